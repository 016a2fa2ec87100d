package matching

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/app"
	"github.com/oggyb/qmatch/internal/cache"
	"github.com/oggyb/qmatch/internal/engine"
	"github.com/oggyb/qmatch/internal/logger"
	"github.com/oggyb/qmatch/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service implements candidate selection, relationship statuses and the
// connection ledger. Every write runs in one transaction; lost races on a
// relationship row are retried from a fresh read.
type Service struct {
	appCtx        *app.AppContext
	members       *repository.MemberRepository
	answers       *repository.AnswerRepository
	relationships *repository.RelationshipRepository
	connections   *repository.ConnectionRepository
}

func NewMatchingService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		members:       repository.NewMemberRepository(appCtx.DB),
		answers:       repository.NewAnswerRepository(appCtx.DB),
		relationships: repository.NewRelationshipRepository(appCtx.DB),
		connections:   repository.NewConnectionRepository(appCtx.DB),
	}
}

// move replaces subject -> candidate with to, subject to the configured
// transition table. It returns the status that was replaced.
func (s *Service) move(ctx context.Context, tx *gorm.DB, groupID, subjectID, candidateID uint64, to engine.Status) (*engine.Status, error) {
	rel := s.relationships.WithTx(tx)
	prev, err := rel.Get(ctx, subjectID, groupID, candidateID)
	if err != nil {
		return nil, err
	}
	if err := s.appCtx.Transitions.Check(prev, to); err != nil {
		s.appCtx.Metrics.RelationshipTransitions.WithLabelValues(string(to), "rejected").Inc()
		return prev, err
	}
	if prev != nil && *prev == to {
		return prev, nil
	}
	return prev, rel.CompareAndSet(ctx, subjectID, groupID, candidateID, prev, to)
}

// requireMembers fails with ErrSelfTarget or ErrMemberNotFound before any write.
func (s *Service) requireMembers(ctx context.Context, tx *gorm.DB, groupID, subjectID, candidateID uint64) error {
	if subjectID == candidateID {
		return engine.ErrSelfTarget
	}
	members := s.members.WithTx(tx)
	if _, err := members.Get(ctx, groupID, subjectID); err != nil {
		return err
	}
	_, err := members.Get(ctx, groupID, candidateID)
	return err
}

// counterDeltas collects incoming-request counter changes to apply after commit.
type counterDeltas map[string]int64

// track records how replacing prev with to moves the candidate's counter.
func (d counterDeltas) track(groupID, candidateID uint64, prev *engine.Status, to engine.Status) {
	wasPending := prev != nil && *prev == engine.StatusPendingApproval
	isPending := to == engine.StatusPendingApproval
	switch {
	case isPending && !wasPending:
		d[cache.KeyForIncomingRequests(groupID, candidateID)]++
	case wasPending && !isPending:
		d[cache.KeyForIncomingRequests(groupID, candidateID)]--
	}
}

// apply pushes deltas to Redis. Failures only cost a stale cached count, so
// the key is dropped instead.
func (s *Service) apply(ctx context.Context, d counterDeltas) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	for key, delta := range d {
		if delta == 0 {
			continue
		}
		if err := s.appCtx.RedisCache.Adjust(ctx, key, delta); err != nil {
			log.Warn("failed to adjust counter", "key", key, "err", err)
			if err := s.appCtx.RedisCache.Invalidate(ctx, key); err != nil {
				log.Warn("failed to invalidate counter", "key", key, "err", err)
			}
		}
	}
}

func statusString(st *engine.Status) string {
	if st == nil {
		return ""
	}
	return string(*st)
}
