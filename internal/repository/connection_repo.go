package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
)

// ConnectResult says what Activate did to the ledger.
type ConnectResult string

const (
	ConnectCreated     ConnectResult = "created"
	ConnectReactivated ConnectResult = "reactivated"
	ConnectExisting    ConnectResult = "existing"
)

// ConnectionRepository is the symmetric connection ledger keyed by the
// canonical (member_low, member_high, group_id) triple.
type ConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(database *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: database}
}

func (r *ConnectionRepository) WithTx(tx *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: tx}
}

// Activate makes the pair's connection active.
//
// Behavior:
//   - No row → insert (status=active). A concurrent insert of the same pair
//     collides on the unique key and is treated as already present.
//   - Closed row → reopened.
//   - Active row → untouched.
func (r *ConnectionRepository) Activate(ctx context.Context, pair engine.Pair, groupID uint64) (ConnectResult, error) {
	row := db.Connection{
		MemberLow:  pair.Low,
		MemberHigh: pair.High,
		GroupID:    groupID,
		Status:     string(engine.ConnectionActive),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_low"}, {Name: "member_high"}, {Name: "group_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil && !isUniqueViolation(res.Error) {
		return "", res.Error
	}
	if res.Error == nil && res.RowsAffected == 1 {
		return ConnectCreated, nil
	}

	upd := r.db.WithContext(ctx).
		Model(&db.Connection{}).
		Where("member_low = ? AND member_high = ? AND group_id = ? AND status = ?",
			pair.Low, pair.High, groupID, string(engine.ConnectionClosed)).
		Update("status", string(engine.ConnectionActive))
	if upd.Error != nil {
		return "", upd.Error
	}
	if upd.RowsAffected == 1 {
		return ConnectReactivated, nil
	}
	return ConnectExisting, nil
}

// Close marks the pair's connection closed.
func (r *ConnectionRepository) Close(ctx context.Context, pair engine.Pair, groupID uint64) error {
	res := r.db.WithContext(ctx).
		Model(&db.Connection{}).
		Where("member_low = ? AND member_high = ? AND group_id = ? AND status = ?",
			pair.Low, pair.High, groupID, string(engine.ConnectionActive)).
		Update("status", string(engine.ConnectionClosed))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConnectionAbsent
	}
	return nil
}

// Get returns the pair's connection row.
func (r *ConnectionRepository) Get(ctx context.Context, pair engine.Pair, groupID uint64) (*db.Connection, error) {
	var c db.Connection
	err := r.db.WithContext(ctx).
		Where("member_low = ? AND member_high = ? AND group_id = ?", pair.Low, pair.High, groupID).
		First(&c).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConnectionAbsent
		}
		return nil, err
	}
	return &c, nil
}

// ListActive returns the member's active connections in the group, newest first.
func (r *ConnectionRepository) ListActive(ctx context.Context, memberID, groupID uint64) ([]db.Connection, error) {
	var rows []db.Connection
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ? AND (member_low = ? OR member_high = ?)",
			groupID, string(engine.ConnectionActive), memberID, memberID).
		Order("updated_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}
