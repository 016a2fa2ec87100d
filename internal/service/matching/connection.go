package matching

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/engine"
	svcErr "github.com/oggyb/qmatch/internal/errors"
	"github.com/oggyb/qmatch/internal/logger"
	"github.com/oggyb/qmatch/internal/repository"
)

// Connect confirms mutual interest between subject and candidate.
//
// Behavior:
//   - Both directions move to matched, each checked against the transition table.
//   - The connection row is keyed by the canonical (low, high, group) triple,
//     so calls from either side, in any order, converge on one row.
//   - An already active connection is reported as existing, not duplicated.
func (s *Service) Connect(ctx context.Context, req *PairRequest) (*ConnectResponse, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("Connect called", "group", req.GroupID, "subject", req.SubjectID, "candidate", req.CandidateID)

	var (
		result repository.ConnectResult
		deltas counterDeltas
	)
	err := repository.RetryStale(ctx, func() error {
		deltas = counterDeltas{}
		return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.requireMembers(ctx, tx, req.GroupID, req.SubjectID, req.CandidateID); err != nil {
				return err
			}

			for _, dir := range [][2]uint64{{req.SubjectID, req.CandidateID}, {req.CandidateID, req.SubjectID}} {
				prev, err := s.move(ctx, tx, req.GroupID, dir[0], dir[1], engine.StatusMatched)
				if err != nil {
					return err
				}
				deltas.track(req.GroupID, dir[1], prev, engine.StatusMatched)
			}

			var err error
			result, err = s.connections.WithTx(tx).Activate(ctx, engine.CanonicalPair(req.SubjectID, req.CandidateID), req.GroupID)
			return err
		})
	})
	if err != nil {
		log.Warn("Connect failed", "subject", req.SubjectID, "candidate", req.CandidateID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.apply(ctx, deltas)
	s.appCtx.Metrics.Connections.WithLabelValues(string(result)).Inc()
	return &ConnectResponse{Created: result == repository.ConnectCreated, Result: string(result)}, nil
}

// CloseConnection ends an active connection. A later Connect reopens it.
func (s *Service) CloseConnection(ctx context.Context, req *PairRequest) (*CloseConnectionResponse, error) {
	if req.SubjectID == req.CandidateID {
		return nil, svcErr.Map(engine.ErrSelfTarget)
	}
	err := s.connections.Close(ctx, engine.CanonicalPair(req.SubjectID, req.CandidateID), req.GroupID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	s.appCtx.Metrics.Connections.WithLabelValues("closed").Inc()
	return &CloseConnectionResponse{}, nil
}

// ListConnections returns the member's active connections in the group.
func (s *Service) ListConnections(ctx context.Context, req *ListConnectionsRequest) (*ListConnectionsResponse, error) {
	rows, err := s.connections.ListActive(ctx, req.MemberID, req.GroupID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &ListConnectionsResponse{Connections: make([]ConnectionView, 0, len(rows))}
	for _, c := range rows {
		pair := engine.Pair{Low: c.MemberLow, High: c.MemberHigh}
		resp.Connections = append(resp.Connections, ConnectionView{
			MemberID: pair.Other(req.MemberID),
			Since:    c.UpdatedAt,
		})
	}
	return resp, nil
}
