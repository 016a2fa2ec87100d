package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
)

// AnswerRepository is the answer ledger: one row per (question, member).
type AnswerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(database *gorm.DB) *AnswerRepository {
	return &AnswerRepository{db: database}
}

func (r *AnswerRepository) WithTx(tx *gorm.DB) *AnswerRepository {
	return &AnswerRepository{db: tx}
}

// Deliver records that the question was shown. An existing row is left
// untouched; created reports whether this call inserted it.
func (r *AnswerRepository) Deliver(ctx context.Context, questionID, memberID uint64) (created bool, err error) {
	row := db.Answer{
		QuestionID: questionID,
		MemberID:   memberID,
		Status:     string(engine.AnswerDelivered),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "question_id"}, {Name: "member_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// State returns the current ledger state. exists is false when the question
// was never delivered to the member.
func (r *AnswerRepository) State(ctx context.Context, questionID, memberID uint64) (state engine.AnswerState, exists bool, err error) {
	var row db.Answer
	err = r.db.WithContext(ctx).
		Where("question_id = ? AND member_id = ?", questionID, memberID).
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return engine.Delivered(), false, nil
		}
		return engine.AnswerState{}, false, err
	}
	return toState(row), true, nil
}

// CompareAndSwap writes next only if the row still holds prev. It inserts
// when the row did not exist. A lost race returns ErrStaleWrite.
func (r *AnswerRepository) CompareAndSwap(
	ctx context.Context,
	questionID, memberID uint64,
	prev engine.AnswerState, existed bool,
	next engine.AnswerState,
) error {
	if !existed {
		row := db.Answer{
			QuestionID: questionID,
			MemberID:   memberID,
			Status:     string(next.Status),
			Value:      toColumn(next.Value),
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrStaleWrite
			}
			return err
		}
		return nil
	}

	q := r.db.WithContext(ctx).
		Model(&db.Answer{}).
		Where("question_id = ? AND member_id = ? AND status = ?", questionID, memberID, string(prev.Status))
	if prev.Value == nil {
		q = q.Where("value IS NULL")
	} else {
		q = q.Where("value = ?", int8(*prev.Value))
	}

	res := q.Updates(map[string]any{
		"status": string(next.Status),
		"value":  toColumn(next.Value),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

type signalRow struct {
	QuestionID uint64
	MemberID   uint64
	Value      int8
}

// Signals returns the valid matching signal (answered, non-null, on live
// questions of the group) for each member. When questionIDs is non-empty
// only those questions are read.
func (r *AnswerRepository) Signals(
	ctx context.Context,
	groupID uint64,
	memberIDs []uint64,
	questionIDs []uint64,
) (map[uint64]engine.Signal, error) {
	out := make(map[uint64]engine.Signal, len(memberIDs))
	if len(memberIDs) == 0 {
		return out, nil
	}

	q := r.db.WithContext(ctx).
		Table("answers a").
		Select("a.question_id, a.member_id, a.value").
		Joins("JOIN questions q ON q.id = a.question_id").
		Where("q.group_id = ? AND q.deleted_at IS NULL", groupID).
		Where("a.member_id IN ? AND a.status = ? AND a.value IS NOT NULL", memberIDs, string(engine.AnswerAnswered))
	if len(questionIDs) > 0 {
		q = q.Where("a.question_id IN ?", questionIDs)
	}

	var rows []signalRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		s, ok := out[row.MemberID]
		if !ok {
			s = make(engine.Signal)
			out[row.MemberID] = s
		}
		s[row.QuestionID] = engine.Value(row.Value)
	}
	return out, nil
}

// Signal is Signals for a single member.
func (r *AnswerRepository) Signal(ctx context.Context, groupID, memberID uint64) (engine.Signal, error) {
	all, err := r.Signals(ctx, groupID, []uint64{memberID}, nil)
	if err != nil {
		return nil, err
	}
	if s, ok := all[memberID]; ok {
		return s, nil
	}
	return engine.Signal{}, nil
}

// CountAnswered returns the size of the member's valid signal in the group.
func (r *AnswerRepository) CountAnswered(ctx context.Context, groupID, memberID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table("answers a").
		Joins("JOIN questions q ON q.id = a.question_id").
		Where("q.group_id = ? AND q.deleted_at IS NULL", groupID).
		Where("a.member_id = ? AND a.status = ? AND a.value IS NOT NULL", memberID, string(engine.AnswerAnswered)).
		Count(&n).Error
	return n, err
}

func toState(row db.Answer) engine.AnswerState {
	st := engine.AnswerState{Status: engine.AnswerStatus(row.Status)}
	if row.Value != nil {
		v := engine.Value(*row.Value)
		st.Value = &v
	}
	return st
}

func toColumn(v *engine.Value) *int8 {
	if v == nil {
		return nil
	}
	n := int8(*v)
	return &n
}
