package matching

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
	svcErr "github.com/oggyb/qmatch/internal/errors"
	"github.com/oggyb/qmatch/internal/logger"
	"github.com/oggyb/qmatch/internal/utils/pagination"
)

// BestMatch proposes the single most compatible candidate.
//
// Behavior:
//   - Balance must cover MatchCost and the member must have answered at least
//     MinAnswered questions; otherwise a structured outcome is returned.
//   - MatchCost is deducted only when a candidate is found.
//   - Gate, selection and charge share one transaction.
func (s *Service) BestMatch(ctx context.Context, req *MatchRequest) (*BestMatchResponse, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("BestMatch called", "group", req.GroupID, "member", req.MemberID)

	eco := s.appCtx.Economy
	resp := &BestMatchResponse{Cost: eco.MatchCost, Required: eco.MinAnswered}

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.members.WithTx(tx)
		subject, err := members.Get(ctx, req.GroupID, req.MemberID)
		if err != nil {
			return err
		}
		resp.Balance = subject.Balance

		resp.Answered, err = s.answers.WithTx(tx).CountAnswered(ctx, req.GroupID, req.MemberID)
		if err != nil {
			return err
		}

		switch {
		case subject.Balance < eco.MatchCost:
			resp.Outcome = OutcomeInsufficientBalance
			return nil
		case resp.Answered < eco.MinAnswered:
			resp.Outcome = OutcomeNotEnoughAnswers
			return nil
		}

		sel, pool, err := s.rank(ctx, tx, subject)
		if err != nil {
			return err
		}
		best, ok := sel.Best()
		if !ok {
			resp.Outcome = string(sel.Outcome())
			return nil
		}

		balance, charged, err := members.Debit(ctx, req.GroupID, req.MemberID, eco.MatchCost)
		if err != nil {
			return err
		}
		resp.Balance = balance
		if !charged {
			resp.Outcome = OutcomeInsufficientBalance
			return nil
		}

		resp.Outcome = OutcomeFound
		c := candidateView(pool[best.MemberID], best)
		resp.Candidate = &c
		return nil
	})
	if err != nil {
		log.Error("BestMatch failed", "group", req.GroupID, "member", req.MemberID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.appCtx.Metrics.MatchRequests.WithLabelValues("best", resp.Outcome).Inc()
	return resp, nil
}

// AllMatches lists every eligible candidate, best first. It is free and not
// gated. Pages continue strictly after the (similarity, common, member id)
// of the last returned candidate.
func (s *Service) AllMatches(ctx context.Context, req *AllMatchesRequest) (*AllMatchesResponse, error) {
	cursor, err := pagination.Decode(req.PageToken)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	limit := pagination.ClampLimit(req.Limit, defaultPageSize, maxPageSize)

	var (
		sel  engine.Selection
		pool map[uint64]db.Member
	)
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subject, err := s.members.WithTx(tx).Get(ctx, req.GroupID, req.MemberID)
		if err != nil {
			return err
		}
		sel, pool, err = s.rank(ctx, tx, subject)
		return err
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ranked := sel.Ranked
	if !cursor.IsZero() {
		after := engine.Ranked{
			MemberID: cursor.MemberID,
			Score:    engine.Score{Similarity: cursor.Similarity, Common: cursor.Common},
		}
		start := len(ranked)
		for i, r := range ranked {
			if engine.CompareRanked(after, r) < 0 {
				start = i
				break
			}
		}
		ranked = ranked[start:]
	}

	resp := &AllMatchesResponse{Outcome: string(sel.Outcome()), Candidates: []CandidateView{}}
	if len(ranked) > limit {
		last := ranked[limit-1]
		token, err := pagination.Encode(pagination.Cursor{
			MemberID:   last.MemberID,
			Similarity: last.Similarity,
			Common:     last.Common,
		})
		if err != nil {
			return nil, svcErr.Map(err)
		}
		resp.NextPageToken = token
		ranked = ranked[:limit]
	}
	for _, r := range ranked {
		resp.Candidates = append(resp.Candidates, candidateView(pool[r.MemberID], r))
	}

	s.appCtx.Metrics.MatchRequests.WithLabelValues("all", resp.Outcome).Inc()
	return resp, nil
}

// rank runs the selection pipeline for subject against the rest of its group.
// The exclusion set is rebuilt from the relationship table on every call.
func (s *Service) rank(ctx context.Context, tx *gorm.DB, subject *db.Member) (engine.Selection, map[uint64]db.Member, error) {
	answers := s.answers.WithTx(tx)
	signal, err := answers.Signal(ctx, subject.GroupID, subject.UserID)
	if err != nil || len(signal) == 0 {
		return engine.Selection{}, nil, err
	}

	excluded, err := s.relationships.WithTx(tx).Excluded(ctx, subject.UserID, subject.GroupID)
	if err != nil {
		return engine.Selection{}, nil, err
	}

	others, err := s.members.WithTx(tx).ListOthers(ctx, subject.GroupID, subject.UserID)
	if err != nil {
		return engine.Selection{}, nil, err
	}

	subjectPref := preference(subject)
	pool := make(map[uint64]db.Member, len(others))
	ids := make([]uint64, 0, len(others))
	for _, o := range others {
		if _, skip := excluded[o.UserID]; skip {
			continue
		}
		if !engine.Compatible(subjectPref, preference(&o)) {
			continue
		}
		pool[o.UserID] = o
		ids = append(ids, o.UserID)
	}

	questionIDs := make([]uint64, 0, len(signal))
	for q := range signal {
		questionIDs = append(questionIDs, q)
	}
	signals, err := answers.Signals(ctx, subject.GroupID, ids, questionIDs)
	if err != nil {
		return engine.Selection{}, nil, err
	}

	candidates := make([]engine.Candidate, 0, len(ids))
	for _, id := range ids {
		m := pool[id]
		candidates = append(candidates, engine.Candidate{
			MemberID:   id,
			Preference: preference(&m),
			Signal:     signals[id],
		})
	}

	sel := engine.NewSelector(s.appCtx.Economy.MinCommon).Rank(subject.UserID, subjectPref, signal, candidates, excluded)
	return sel, pool, nil
}

func preference(m *db.Member) engine.Preference {
	return engine.Preference{
		Gender:     engine.Gender(m.Gender),
		LookingFor: engine.LookingFor(m.LookingFor),
	}
}

func candidateView(m db.Member, r engine.Ranked) CandidateView {
	return CandidateView{
		MemberID:   r.MemberID,
		Nickname:   m.Nickname,
		PhotoRef:   m.PhotoRef,
		Location:   m.Location,
		Bio:        m.Bio,
		Similarity: r.Similarity,
		Common:     r.Common,
	}
}
