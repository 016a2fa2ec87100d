package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/cache"
	"github.com/oggyb/qmatch/internal/config"
	"github.com/oggyb/qmatch/internal/engine"
	"github.com/oggyb/qmatch/internal/metrics"
)

// Economy holds the opaque point constants that gate and reward engine operations.
type Economy struct {
	AnswerCredit      int64
	MatchCost         int64
	MinAnswered       int64
	MinCommon         int
	QuestionMinLength int
}

// EconomyFromConfig copies the configured constants.
func EconomyFromConfig(cfg *config.Config) Economy {
	return Economy{
		AnswerCredit:      cfg.Economy.AnswerCredit,
		MatchCost:         cfg.Economy.MatchCost,
		MinAnswered:       cfg.Economy.MinAnswered,
		MinCommon:         cfg.Economy.MinCommon,
		QuestionMinLength: cfg.Economy.QuestionMinLength,
	}
}

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	DB          *gorm.DB
	RedisCache  *cache.RedisCache
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Economy     Economy
	Transitions engine.TransitionTable
}

// New creates a new AppContext. Economy and transition policy come from cfg.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, m *metrics.Metrics) *AppContext {
	if m == nil {
		m = metrics.New()
	}
	return &AppContext{
		DB:          db,
		RedisCache:  rdb,
		Logger:      logger,
		Metrics:     m,
		Economy:     EconomyFromConfig(cfg),
		Transitions: engine.TransitionTableByName(cfg.Relationships.Transitions),
	}
}
