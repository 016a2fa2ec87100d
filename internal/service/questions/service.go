package questions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/app"
	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
	svcErr "github.com/oggyb/qmatch/internal/errors"
	"github.com/oggyb/qmatch/internal/logger"
	"github.com/oggyb/qmatch/internal/repository"
)

// Service implements the Answer Ledger operations on top of the question store.
type Service struct {
	appCtx    *app.AppContext
	members   *repository.MemberRepository
	questions *repository.QuestionRepository
	answers   *repository.AnswerRepository
}

func NewQuestionsService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		members:   repository.NewMemberRepository(appCtx.DB),
		questions: repository.NewQuestionRepository(appCtx.DB),
		answers:   repository.NewAnswerRepository(appCtx.DB),
	}
}

// CreateQuestion stores a new question authored by a group member.
func (s *Service) CreateQuestion(ctx context.Context, req *CreateQuestionRequest) (*QuestionResponse, error) {
	text := strings.TrimSpace(req.Text)
	if minLen := s.appCtx.Economy.QuestionMinLength; utf8.RuneCountInString(text) < minLen {
		return nil, svcErr.InvalidArgument(fmt.Sprintf("question must be at least %d characters", minLen))
	}

	if _, err := s.members.Get(ctx, req.GroupID, req.AuthorID); err != nil {
		return nil, svcErr.Map(err)
	}

	q := &db.Question{GroupID: req.GroupID, AuthorID: req.AuthorID, Text: text}
	if err := s.questions.Create(ctx, q); err != nil {
		logger.FromContext(ctx, s.appCtx.Logger).Error("CreateQuestion failed", "group", req.GroupID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &QuestionResponse{Question: view(q)}, nil
}

// DeleteQuestion soft-deletes a question. Only its author or the group owner may do it.
func (s *Service) DeleteQuestion(ctx context.Context, req *DeleteQuestionRequest) (*DeleteQuestionResponse, error) {
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.questions.WithTx(tx).Get(ctx, req.GroupID, req.QuestionID)
		if err != nil {
			return err
		}
		g, err := s.members.WithTx(tx).GetGroup(ctx, req.GroupID)
		if err != nil {
			return err
		}
		if req.ActorID != q.AuthorID && req.ActorID != g.OwnerID {
			return svcErr.ErrPermissionDenied
		}
		return s.questions.WithTx(tx).SoftDelete(ctx, req.GroupID, req.QuestionID)
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	logger.FromContext(ctx, s.appCtx.Logger).Info("question deleted",
		"group", req.GroupID, "question", req.QuestionID, "actor", req.ActorID)
	return &DeleteQuestionResponse{}, nil
}

// NextQuestion picks the oldest question the member has not answered yet and
// records its delivery.
func (s *Service) NextQuestion(ctx context.Context, req *NextQuestionRequest) (*NextQuestionResponse, error) {
	resp := &NextQuestionResponse{}
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.members.WithTx(tx).Get(ctx, req.GroupID, req.MemberID); err != nil {
			return err
		}

		q, err := s.questions.WithTx(tx).NextUnanswered(ctx, req.GroupID, req.MemberID)
		if errors.Is(err, repository.ErrQuestionNotFound) {
			resp.Exhausted = true
			return nil
		}
		if err != nil {
			return err
		}

		answers := s.answers.WithTx(tx)
		if _, err := answers.Deliver(ctx, q.ID, req.MemberID); err != nil {
			return err
		}
		state, _, err := answers.State(ctx, q.ID, req.MemberID)
		if err != nil {
			return err
		}

		v := view(q)
		resp.Question = &v
		resp.PreviousValue = valueColumn(state.Value)
		return nil
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return resp, nil
}

// DeliverQuestion records that a specific question was shown to the member.
func (s *Service) DeliverQuestion(ctx context.Context, req *DeliverQuestionRequest) (*DeliverQuestionResponse, error) {
	var created bool
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(ctx, tx, req.GroupID, req.QuestionID, req.MemberID); err != nil {
			return err
		}
		var err error
		created, err = s.answers.WithTx(tx).Deliver(ctx, req.QuestionID, req.MemberID)
		return err
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &DeliverQuestionResponse{Created: created}, nil
}

// AnswerQuestion applies a click on value to the member's ledger row.
//
// Behavior:
//   - The transition is computed by the engine; the row is written only if it
//     still holds the state that was read (lost races re-read and retry).
//   - The per-answer credit is granted only on the first value ever chosen.
//   - A re-click of the answered value reverts to delivered and keeps the value.
func (s *Service) AnswerQuestion(ctx context.Context, req *AnswerQuestionRequest) (*AnswerQuestionResponse, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("AnswerQuestion called", "question", req.QuestionID, "member", req.MemberID, "value", req.Value)

	value, err := engine.ParseValue(req.Value)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	var (
		tr      engine.AnswerTransition
		credit  int64
		balance int64
	)
	err = repository.RetryStale(ctx, func() error {
		return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.checkRefs(ctx, tx, req.GroupID, req.QuestionID, req.MemberID); err != nil {
				return err
			}

			answers := s.answers.WithTx(tx)
			cur, existed, err := answers.State(ctx, req.QuestionID, req.MemberID)
			if err != nil {
				return err
			}
			tr = engine.ApplyAnswer(cur, value)
			if err := answers.CompareAndSwap(ctx, req.QuestionID, req.MemberID, cur, existed, tr.Next); err != nil {
				return err
			}

			members := s.members.WithTx(tx)
			credit = CreditFor(tr, s.appCtx.Economy.AnswerCredit)
			if credit > 0 {
				balance, err = members.Credit(ctx, req.GroupID, req.MemberID, credit)
				return err
			}
			m, err := members.Get(ctx, req.GroupID, req.MemberID)
			if err != nil {
				return err
			}
			balance = m.Balance
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			log.Warn("answer write kept losing races", "question", req.QuestionID, "member", req.MemberID)
		}
		return nil, svcErr.Map(err)
	}

	s.appCtx.Metrics.Answers.WithLabelValues(string(tr.Outcome)).Inc()
	return &AnswerQuestionResponse{
		Outcome:        string(tr.Outcome),
		Status:         string(tr.Next.Status),
		Value:          valueColumn(tr.Next.Value),
		ShowAllOptions: tr.ShowAllOptions(),
		Credited:       credit,
		Balance:        balance,
	}, nil
}

// AnsweredCount returns how many questions count as the member's matching signal.
func (s *Service) AnsweredCount(ctx context.Context, req *AnsweredCountRequest) (*AnsweredCountResponse, error) {
	if _, err := s.members.Get(ctx, req.GroupID, req.MemberID); err != nil {
		return nil, svcErr.Map(err)
	}
	n, err := s.answers.CountAnswered(ctx, req.GroupID, req.MemberID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &AnsweredCountResponse{Count: n, Required: s.appCtx.Economy.MinAnswered}, nil
}

// checkRefs rejects soft-deleted questions and non-members before any write.
func (s *Service) checkRefs(ctx context.Context, tx *gorm.DB, groupID, questionID, memberID uint64) error {
	if _, err := s.members.WithTx(tx).Get(ctx, groupID, memberID); err != nil {
		return err
	}
	_, err := s.questions.WithTx(tx).Get(ctx, groupID, questionID)
	return err
}

func view(q *db.Question) QuestionView {
	return QuestionView{
		ID:        q.ID,
		GroupID:   q.GroupID,
		AuthorID:  q.AuthorID,
		Text:      q.Text,
		CreatedAt: q.CreatedAt,
	}
}

func valueColumn(v *engine.Value) *int8 {
	if v == nil {
		return nil
	}
	n := int8(*v)
	return &n
}
