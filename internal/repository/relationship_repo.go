package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
	"github.com/oggyb/qmatch/internal/utils/pagination"
)

// RelationshipRepository stores directional statuses keyed by
// (subject_id, group_id, candidate_id).
type RelationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(database *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: database}
}

func (r *RelationshipRepository) WithTx(tx *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: tx}
}

// Set upserts subject -> candidate, overwriting any prior status.
//
// Behavior:
//   - If (subject_id, group_id, candidate_id) exists → status is replaced.
//   - Otherwise a new row is inserted.
func (r *RelationshipRepository) Set(ctx context.Context, subjectID, groupID, candidateID uint64, status engine.Status) error {
	row := db.RelationshipStatus{
		SubjectID:   subjectID,
		GroupID:     groupID,
		CandidateID: candidateID,
		Status:      string(status),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "group_id"}, {Name: "candidate_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&row).Error
}

// Get returns the current status, or nil when no row exists.
func (r *RelationshipRepository) Get(ctx context.Context, subjectID, groupID, candidateID uint64) (*engine.Status, error) {
	var row db.RelationshipStatus
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND group_id = ? AND candidate_id = ?", subjectID, groupID, candidateID).
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	st := engine.Status(row.Status)
	return &st, nil
}

// CompareAndSet replaces from with to. A nil from means "no row yet".
// A lost race returns ErrStaleWrite so the caller re-reads and re-validates.
func (r *RelationshipRepository) CompareAndSet(
	ctx context.Context,
	subjectID, groupID, candidateID uint64,
	from *engine.Status, to engine.Status,
) error {
	if from == nil {
		row := db.RelationshipStatus{
			SubjectID:   subjectID,
			GroupID:     groupID,
			CandidateID: candidateID,
			Status:      string(to),
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrStaleWrite
			}
			return err
		}
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&db.RelationshipStatus{}).
		Where("subject_id = ? AND group_id = ? AND candidate_id = ? AND status = ?",
			subjectID, groupID, candidateID, string(*from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// Delete removes subject -> candidate when it currently holds status.
// Returns ErrRelationshipAbsent when there was nothing to clear.
func (r *RelationshipRepository) Delete(ctx context.Context, subjectID, groupID, candidateID uint64, status engine.Status) error {
	res := r.db.WithContext(ctx).
		Where("subject_id = ? AND group_id = ? AND candidate_id = ? AND status = ?",
			subjectID, groupID, candidateID, string(status)).
		Delete(&db.RelationshipStatus{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRelationshipAbsent
	}
	return nil
}

// Excluded returns every candidate the subject suppressed in the group.
// Always rebuilt from the table; nothing is cached.
func (r *RelationshipRepository) Excluded(ctx context.Context, subjectID, groupID uint64) (map[uint64]struct{}, error) {
	statuses := make([]string, 0, len(engine.ExcludingStatuses))
	for _, s := range engine.ExcludingStatuses {
		statuses = append(statuses, string(s))
	}

	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.RelationshipStatus{}).
		Where("subject_id = ? AND group_id = ? AND status IN ?", subjectID, groupID, statuses).
		Pluck("candidate_id", &ids).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// ListIncoming returns requests addressed to candidateID that still wait for
// an answer.
//
// Behavior:
//   - Only rows with candidate_id = X and status = pending_approval.
//   - Ordered by updated_at DESC, subject_id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *RelationshipRepository) ListIncoming(
	ctx context.Context,
	candidateID, groupID uint64,
	paginationToken *string,
	limit int,
) ([]db.RelationshipStatus, *string, error) {
	var rows []db.RelationshipStatus

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.RelationshipStatus{}).
		Where("candidate_id = ? AND group_id = ? AND status = ?",
			candidateID, groupID, string(engine.StatusPendingApproval)).
		Order("updated_at DESC, subject_id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix).UTC()
		query = query.Where(
			"(updated_at < ? OR (updated_at = ? AND subject_id < ?))",
			ts, ts, cursor.MemberID,
		)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(rows) > limit {
		last := rows[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			MemberID:    last.SubjectID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		rows = rows[:limit]
	}

	return rows, nextToken, nil
}

// CountIncoming counts requests addressed to candidateID awaiting an answer.
func (r *RelationshipRepository) CountIncoming(ctx context.Context, candidateID, groupID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.RelationshipStatus{}).
		Where("candidate_id = ? AND group_id = ? AND status = ?",
			candidateID, groupID, string(engine.StatusPendingApproval)).
		Count(&count).Error
	return count, err
}

// PendingTargets lists candidates the subject has an open request toward.
func (r *RelationshipRepository) PendingTargets(ctx context.Context, subjectID, groupID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.RelationshipStatus{}).
		Where("subject_id = ? AND group_id = ? AND status = ?",
			subjectID, groupID, string(engine.StatusPendingApproval)).
		Order("candidate_id ASC").
		Pluck("candidate_id", &ids).Error
	return ids, err
}
