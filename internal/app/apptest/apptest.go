// Package apptest wires an AppContext on in-memory SQLite and miniredis for
// service tests.
package apptest

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/app"
	"github.com/oggyb/qmatch/internal/cache"
	"github.com/oggyb/qmatch/internal/config"
	"github.com/oggyb/qmatch/internal/db"
)

// Env is one isolated test environment.
type Env struct {
	App   *app.AppContext
	DB    *gorm.DB
	Redis *miniredis.Miniredis
	Cfg   *config.Config
}

// Option tweaks the config before the AppContext is built.
type Option func(*config.Config)

// New spins up an in-memory SQLite DB, applies migrations, starts a
// miniredis and wires everything into an AppContext.
//
// Each test gets its own isolated DB + Redis.
func New(t *testing.T, opts ...Option) *Env {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	dbase, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	for _, opt := range opts {
		opt(cfg)
	}

	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests
	return &Env{
		App:   app.New(cfg, dbase, redisCache, log, nil),
		DB:    dbase,
		Redis: mr,
		Cfg:   cfg,
	}
}

// Group inserts a group owned by ownerID and returns its id.
func (e *Env) Group(t *testing.T, ownerID uint64) uint64 {
	t.Helper()
	g := db.Group{Title: "test group", OwnerID: ownerID}
	require.NoError(t, e.DB.Create(&g).Error)
	return g.ID
}

// Member inserts a member with the given preferences and balance.
func (e *Env) Member(t *testing.T, groupID, userID uint64, gender, lookingFor string, balance int64) {
	t.Helper()
	m := db.Member{
		GroupID:    groupID,
		UserID:     userID,
		Nickname:   fmt.Sprintf("member-%d", userID),
		Gender:     gender,
		LookingFor: lookingFor,
		Balance:    balance,
	}
	require.NoError(t, e.DB.Create(&m).Error)
}

// Questions inserts n approved questions authored by authorID.
func (e *Env) Questions(t *testing.T, groupID, authorID uint64, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		q := db.Question{
			GroupID:    groupID,
			AuthorID:   authorID,
			Text:       fmt.Sprintf("do you agree with statement %d?", i),
			Moderation: "approved",
		}
		require.NoError(t, e.DB.Create(&q).Error)
		ids = append(ids, q.ID)
	}
	return ids
}

// Answers stores answered rows for memberID, one per question id.
func (e *Env) Answers(t *testing.T, memberID uint64, qids []uint64, values []int8) {
	t.Helper()
	require.Len(t, values, len(qids))
	for i, qid := range qids {
		v := values[i]
		row := db.Answer{QuestionID: qid, MemberID: memberID, Value: &v, Status: "answered"}
		require.NoError(t, e.DB.Create(&row).Error)
	}
}
