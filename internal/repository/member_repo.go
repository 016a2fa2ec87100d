package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
)

// MemberRepository reads and writes group profiles and balances.
type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(database *gorm.DB) *MemberRepository {
	return &MemberRepository{db: database}
}

// WithTx binds the repository to a running transaction.
func (r *MemberRepository) WithTx(tx *gorm.DB) *MemberRepository {
	return &MemberRepository{db: tx}
}

// GetGroup returns the group or ErrGroupNotFound.
func (r *MemberRepository) GetGroup(ctx context.Context, groupID uint64) (*db.Group, error) {
	var g db.Group
	if err := r.db.WithContext(ctx).First(&g, groupID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

// CreateGroup inserts a group owned by ownerID.
func (r *MemberRepository) CreateGroup(ctx context.Context, title string, ownerID uint64) (*db.Group, error) {
	g := db.Group{Title: title, OwnerID: ownerID}
	if err := r.db.WithContext(ctx).Create(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// Upsert creates the member on first join or rewrites the profile fields.
// Balance is never touched here.
func (r *MemberRepository) Upsert(ctx context.Context, m *db.Member) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"nickname", "photo_ref", "location", "gender", "looking_for", "bio", "updated_at",
			}),
		}).
		Create(m).Error
}

// Get returns the member profile, or ErrMemberNotFound.
func (r *MemberRepository) Get(ctx context.Context, groupID, userID uint64) (*db.Member, error) {
	var m db.Member
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListOthers returns every member of the group except userID, ordered by user id.
func (r *MemberRepository) ListOthers(ctx context.Context, groupID, userID uint64) ([]db.Member, error) {
	var members []db.Member
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id <> ?", groupID, userID).
		Order("user_id ASC").
		Find(&members).Error
	return members, err
}

// Credit adds amount to the member's balance and returns the new balance.
func (r *MemberRepository) Credit(ctx context.Context, groupID, userID uint64, amount int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Member{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrMemberNotFound
	}
	return r.balance(ctx, groupID, userID)
}

// Debit subtracts amount only when the balance covers it. ok is false when
// it did not.
func (r *MemberRepository) Debit(ctx context.Context, groupID, userID uint64, amount int64) (balance int64, ok bool, err error) {
	res := r.db.WithContext(ctx).
		Model(&db.Member{}).
		Where("group_id = ? AND user_id = ? AND balance >= ?", groupID, userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, false, res.Error
	}
	balance, err = r.balance(ctx, groupID, userID)
	if err != nil {
		return 0, false, err
	}
	return balance, res.RowsAffected == 1, nil
}

func (r *MemberRepository) balance(ctx context.Context, groupID, userID uint64) (int64, error) {
	var m db.Member
	err := r.db.WithContext(ctx).
		Select("balance").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if err != nil {
		if isNotFound(err) {
			return 0, ErrMemberNotFound
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return m.Balance, nil
}

// Delete removes the member and everything they own inside the group:
// answers on the group's questions, relationship rows in either direction,
// and connections (closed rather than deleted so the partner keeps history).
func (r *MemberRepository) Delete(ctx context.Context, groupID, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&db.Member{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMemberNotFound
		}

		groupQuestions := tx.Unscoped().Model(&db.Question{}).Select("id").Where("group_id = ?", groupID)
		if err := tx.Where("member_id = ? AND question_id IN (?)", userID, groupQuestions).
			Delete(&db.Answer{}).Error; err != nil {
			return err
		}

		if err := tx.Where("group_id = ? AND (subject_id = ? OR candidate_id = ?)", groupID, userID, userID).
			Delete(&db.RelationshipStatus{}).Error; err != nil {
			return err
		}

		return tx.Model(&db.Connection{}).
			Where("group_id = ? AND (member_low = ? OR member_high = ?)", groupID, userID, userID).
			Update("status", string(engine.ConnectionClosed)).Error
	})
}
