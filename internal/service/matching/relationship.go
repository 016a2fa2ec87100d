package matching

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/cache"
	"github.com/oggyb/qmatch/internal/engine"
	svcErr "github.com/oggyb/qmatch/internal/errors"
	"github.com/oggyb/qmatch/internal/logger"
	"github.com/oggyb/qmatch/internal/repository"
	"github.com/oggyb/qmatch/internal/utils/pagination"
)

// SetStatus records the subject's decision about a candidate.
//
// Behavior:
//   - The candidate must be another member of the group.
//   - The configured transition table decides whether the current status may
//     be replaced; the strict table rejects moves such as blocked -> pending.
//   - matched is only reachable through Connect, which writes both directions.
func (s *Service) SetStatus(ctx context.Context, req *SetStatusRequest) (*StatusResponse, error) {
	to, err := engine.ParseStatus(req.Status)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if to == engine.StatusMatched {
		return nil, svcErr.InvalidArgument("matched is set by Connect")
	}
	return s.setStatus(ctx, req.GroupID, req.SubjectID, req.CandidateID, to)
}

// RequestConnection marks the subject as waiting for the candidate's answer.
func (s *Service) RequestConnection(ctx context.Context, req *PairRequest) (*StatusResponse, error) {
	return s.setStatus(ctx, req.GroupID, req.SubjectID, req.CandidateID, engine.StatusPendingApproval)
}

func (s *Service) setStatus(ctx context.Context, groupID, subjectID, candidateID uint64, to engine.Status) (*StatusResponse, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("SetStatus called", "group", groupID, "subject", subjectID, "candidate", candidateID, "to", to)

	var prev *engine.Status
	deltas := counterDeltas{}
	err := repository.RetryStale(ctx, func() error {
		return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.requireMembers(ctx, tx, groupID, subjectID, candidateID); err != nil {
				return err
			}
			var err error
			prev, err = s.move(ctx, tx, groupID, subjectID, candidateID, to)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, engine.ErrTransitionNotAllowed) {
			log.Warn("relationship transition rejected", "subject", subjectID, "candidate", candidateID, "err", err)
		}
		return nil, svcErr.Map(err)
	}

	deltas.track(groupID, candidateID, prev, to)
	s.apply(ctx, deltas)
	s.appCtx.Metrics.RelationshipTransitions.WithLabelValues(string(to), "applied").Inc()

	return &StatusResponse{Status: string(to), Previous: statusString(prev), Exists: true}, nil
}

// GetStatus returns the subject's current status toward the candidate.
func (s *Service) GetStatus(ctx context.Context, req *PairRequest) (*StatusResponse, error) {
	st, err := s.relationships.Get(ctx, req.SubjectID, req.GroupID, req.CandidateID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &StatusResponse{Status: statusString(st), Exists: st != nil}, nil
}

// ClearPostponed returns a postponed candidate to the subject's pool.
// Rows holding any other status are left alone and reported as not found.
func (s *Service) ClearPostponed(ctx context.Context, req *PairRequest) (*ClearPostponedResponse, error) {
	err := s.relationships.Delete(ctx, req.SubjectID, req.GroupID, req.CandidateID, engine.StatusPostponed)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ClearPostponedResponse{}, nil
}

// RespondToRequest answers a pending request from requester to responder.
// The requester's row is overwritten with the decision; it must still be
// pending_approval.
func (s *Service) RespondToRequest(ctx context.Context, req *RespondRequest) (*StatusResponse, error) {
	decision, err := engine.ParseStatus(req.Decision)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !decision.IsResponse() {
		return nil, svcErr.InvalidArgument("decision must be accepted, rejected or blocked")
	}

	err = repository.RetryStale(ctx, func() error {
		return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.requireMembers(ctx, tx, req.GroupID, req.RequesterID, req.ResponderID); err != nil {
				return err
			}
			rel := s.relationships.WithTx(tx)
			cur, err := rel.Get(ctx, req.RequesterID, req.GroupID, req.ResponderID)
			if err != nil {
				return err
			}
			if cur == nil || *cur != engine.StatusPendingApproval {
				return svcErr.ErrNoPendingRequest
			}
			_, err = s.move(ctx, tx, req.GroupID, req.RequesterID, req.ResponderID, decision)
			return err
		})
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	pending := engine.StatusPendingApproval
	deltas := counterDeltas{}
	deltas.track(req.GroupID, req.ResponderID, &pending, decision)
	s.apply(ctx, deltas)
	s.appCtx.Metrics.RelationshipTransitions.WithLabelValues(string(decision), "applied").Inc()

	logger.FromContext(ctx, s.appCtx.Logger).Info("request answered",
		"group", req.GroupID, "requester", req.RequesterID, "responder", req.ResponderID, "decision", decision)
	return &StatusResponse{Status: string(decision), Previous: string(pending), Exists: true}, nil
}

// ListIncomingRequests returns members whose request to MemberID still waits
// for an answer, newest first.
func (s *Service) ListIncomingRequests(ctx context.Context, req *IncomingRequestsRequest) (*IncomingRequestsResponse, error) {
	limit := pagination.ClampLimit(req.Limit, defaultPageSize, maxPageSize)

	var token *string
	if req.PageToken != "" {
		token = &req.PageToken
	}

	rows, next, err := s.relationships.ListIncoming(ctx, req.MemberID, req.GroupID, token, limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &IncomingRequestsResponse{Requesters: make([]Requester, 0, len(rows))}
	for _, r := range rows {
		resp.Requesters = append(resp.Requesters, Requester{MemberID: r.SubjectID, RequestedAt: r.UpdatedAt})
	}
	if next != nil {
		resp.NextPageToken = *next
	}
	return resp, nil
}

// CountIncomingRequests returns the number of pending requests addressed to
// the member.
//
// Behavior:
//   - Try Redis first.
//   - On miss (or Redis error), fall back to the DB and store the result.
func (s *Service) CountIncomingRequests(ctx context.Context, req *MatchRequest) (*CountIncomingResponse, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	key := cache.KeyForIncomingRequests(req.GroupID, req.MemberID)

	count, hit, err := s.appCtx.RedisCache.GetCount(ctx, key)
	if err != nil {
		log.Warn("redis read failed, falling back to DB", "key", key, "err", err)
	}
	if hit {
		return &CountIncomingResponse{Count: uint64(count)}, nil
	}

	count, err = s.relationships.CountIncoming(ctx, req.MemberID, req.GroupID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := s.appCtx.RedisCache.SetCount(ctx, key, count); err != nil {
		log.Warn("failed to cache count", "key", key, "err", err)
	}
	return &CountIncomingResponse{Count: uint64(count)}, nil
}
