package members

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/app"
	"github.com/oggyb/qmatch/internal/cache"
	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/engine"
	svcErr "github.com/oggyb/qmatch/internal/errors"
	"github.com/oggyb/qmatch/internal/logger"
	"github.com/oggyb/qmatch/internal/repository"
)

// Service manages groups and the member profiles the matching engine reads.
// Identity resolution happens upstream; UserID is already internal.
type Service struct {
	appCtx        *app.AppContext
	members       *repository.MemberRepository
	relationships *repository.RelationshipRepository
}

func NewMembersService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		members:       repository.NewMemberRepository(appCtx.DB),
		relationships: repository.NewRelationshipRepository(appCtx.DB),
	}
}

// CreateGroup creates a group and enrolls the owner with an empty profile.
func (s *Service) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*CreateGroupResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, svcErr.InvalidArgument("title is required")
	}
	if req.OwnerID == 0 {
		return nil, svcErr.InvalidArgument("owner_id is required")
	}

	var groupID uint64
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.members.WithTx(tx)
		g, err := repo.CreateGroup(ctx, title, req.OwnerID)
		if err != nil {
			return err
		}
		groupID = g.ID
		return repo.Upsert(ctx, &db.Member{GroupID: g.ID, UserID: req.OwnerID})
	})
	if err != nil {
		logger.FromContext(ctx, s.appCtx.Logger).Error("CreateGroup failed", "owner", req.OwnerID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &CreateGroupResponse{GroupID: groupID}, nil
}

// JoinGroup creates the member on first join or completes onboarding.
func (s *Service) JoinGroup(ctx context.Context, req *JoinGroupRequest) (*MemberResponse, error) {
	return s.saveProfile(ctx, req, false)
}

// UpdateProfile rewrites the profile of an existing member.
func (s *Service) UpdateProfile(ctx context.Context, req *JoinGroupRequest) (*MemberResponse, error) {
	return s.saveProfile(ctx, req, true)
}

func (s *Service) saveProfile(ctx context.Context, req *JoinGroupRequest, mustExist bool) (*MemberResponse, error) {
	if req.GroupID == 0 || req.UserID == 0 {
		return nil, svcErr.InvalidArgument("group_id and user_id are required")
	}
	gender, err := engine.ParseGender(req.Profile.Gender)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	lookingFor, err := engine.ParseLookingFor(req.Profile.LookingFor)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	var saved *db.Member
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.members.WithTx(tx)
		if _, err := repo.GetGroup(ctx, req.GroupID); err != nil {
			return err
		}
		if mustExist {
			if _, err := repo.Get(ctx, req.GroupID, req.UserID); err != nil {
				return err
			}
		}

		m := &db.Member{
			GroupID:    req.GroupID,
			UserID:     req.UserID,
			Nickname:   strings.TrimSpace(req.Profile.Nickname),
			PhotoRef:   req.Profile.PhotoRef,
			Location:   strings.TrimSpace(req.Profile.Location),
			Gender:     string(gender),
			LookingFor: string(lookingFor),
			Bio:        strings.TrimSpace(req.Profile.Bio),
		}
		if err := repo.Upsert(ctx, m); err != nil {
			return err
		}
		saved, err = repo.Get(ctx, req.GroupID, req.UserID)
		return err
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	logger.FromContext(ctx, s.appCtx.Logger).Debug("profile saved", "group", req.GroupID, "user", req.UserID)
	return &MemberResponse{Member: View(saved)}, nil
}

// GetMember returns the member's profile and balance.
func (s *Service) GetMember(ctx context.Context, req *MemberRequest) (*MemberResponse, error) {
	m, err := s.members.Get(ctx, req.GroupID, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &MemberResponse{Member: View(m)}, nil
}

// LeaveGroup removes the member and cascades their answers and relationships.
// Incoming-request counters touched by the cascade are dropped from Redis.
func (s *Service) LeaveGroup(ctx context.Context, req *MemberRequest) (*LeaveGroupResponse, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)

	targets, err := s.relationships.PendingTargets(ctx, req.UserID, req.GroupID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := s.members.Delete(ctx, req.GroupID, req.UserID); err != nil {
		return nil, svcErr.Map(err)
	}

	keys := []string{cache.KeyForIncomingRequests(req.GroupID, req.UserID)}
	for _, id := range targets {
		keys = append(keys, cache.KeyForIncomingRequests(req.GroupID, id))
	}
	for _, key := range keys {
		if err := s.appCtx.RedisCache.Invalidate(ctx, key); err != nil {
			log.Warn("failed to invalidate counter", "key", key, "err", err)
		}
	}

	log.Info("member left group", "group", req.GroupID, "user", req.UserID)
	return &LeaveGroupResponse{}, nil
}

// View converts a member row into its API shape.
func View(m *db.Member) MemberView {
	return MemberView{
		GroupID: m.GroupID,
		UserID:  m.UserID,
		Balance: m.Balance,
		Profile: Profile{
			Nickname:   m.Nickname,
			PhotoRef:   m.PhotoRef,
			Location:   m.Location,
			Gender:     m.Gender,
			LookingFor: m.LookingFor,
			Bio:        m.Bio,
		},
	}
}
