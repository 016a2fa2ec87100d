package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
)

const ModerationApproved = "approved"

// QuestionRepository stores group questions. Soft-deleted rows are invisible
// to every read here.
type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(database *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: database}
}

func (r *QuestionRepository) WithTx(tx *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: tx}
}

// Create inserts a question; moderation defaults to approved.
func (r *QuestionRepository) Create(ctx context.Context, q *db.Question) error {
	if q.Moderation == "" {
		q.Moderation = ModerationApproved
	}
	return r.db.WithContext(ctx).Create(q).Error
}

// Get returns a live question of the group, or ErrQuestionNotFound.
func (r *QuestionRepository) Get(ctx context.Context, groupID, questionID uint64) (*db.Question, error) {
	var q db.Question
	err := r.db.WithContext(ctx).
		Where("id = ? AND group_id = ?", questionID, groupID).
		First(&q).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

// SoftDelete hides the question and drops every answer recorded on it, so
// members revert to "unanswered" for that id.
func (r *QuestionRepository) SoftDelete(ctx context.Context, groupID, questionID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND group_id = ?", questionID, groupID).Delete(&db.Question{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrQuestionNotFound
		}
		return tx.Where("question_id = ?", questionID).Delete(&db.Answer{}).Error
	})
}

// NextUnanswered returns the oldest approved question in the group that the
// member did not author and has not answered. Delivered-but-unanswered
// questions are offered again.
func (r *QuestionRepository) NextUnanswered(ctx context.Context, groupID, memberID uint64) (*db.Question, error) {
	answered := r.db.
		Table("answers a").
		Select("1").
		Where("a.question_id = questions.id AND a.member_id = ? AND a.status = ?", memberID, string(engine.AnswerAnswered))

	var q db.Question
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND author_id <> ? AND moderation = ?", groupID, memberID, ModerationApproved).
		Where("NOT EXISTS (?)", answered).
		Order("created_at ASC, id ASC").
		First(&q).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

// CountLive returns how many non-deleted questions the group has.
func (r *QuestionRepository) CountLive(ctx context.Context, groupID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Question{}).Where("group_id = ?", groupID).Count(&n).Error
	return n, err
}
