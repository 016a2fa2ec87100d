package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
		File      string // rotated log file; stdout only when empty
	}

	DB struct {
		Driver     string
		DSN        string
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		SQLitePath string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host string
		Port string
	}

	// RateLimit throttles unary calls per process. RPS <= 0 disables it.
	RateLimit struct {
		RPS   float64
		Burst int
	}

	// Economy holds the point constants that gate and reward engine operations.
	Economy struct {
		AnswerCredit      int64
		MatchCost         int64
		MinAnswered       int64
		MinCommon         int
		QuestionMinLength int
	}

	Relationships struct {
		Transitions string // strict | permissive
	}
}

// New reads the configuration from the environment.
func New() *Config {
	return build(envSource)
}

// Load reads the configuration from the environment, falling back to the
// given file (yaml, json or toml, keyed by the lower-cased variable names)
// for anything the environment leaves unset. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return New(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return build(func(k string) string {
		if val := envSource(k); val != "" {
			return val
		}
		return strings.TrimSpace(v.GetString(strings.ToLower(k)))
	}), nil
}

// source resolves a variable name to its raw value, "" when unset.
type source func(k string) string

func envSource(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func build(get source) *Config {
	cfg := &Config{}

	cfg.App.ENV = get.str("APP_ENV", "production")

	// Logger
	cfg.Log.Level = get.str("LOG_LEVEL", "info")
	cfg.Log.Format = get.str("LOG_FORMAT", "text")
	cfg.Log.Component = get.str("LOG_COMPONENT", "qmatch")
	cfg.Log.Source = isTruthy(get("LOG_SOURCE"))
	cfg.Log.File = get("LOG_FILE")

	// Database
	cfg.DB.Driver = strings.ToLower(get.str("DB_DRIVER", "mysql"))
	cfg.DB.SQLitePath = get.str("SQLITE_PATH", "qmatch.db")
	cfg.DB.DSN = get("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = get.str("DB_HOST", "localhost")
		cfg.DB.Port = get.str("DB_PORT", "3306")
		cfg.DB.User = get.str("DB_USER", "root")
		cfg.DB.Password = get.str("DB_PASSWORD", "root")
		cfg.DB.Name = get.str("DB_NAME", "qmatch")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = get.str("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = get.str("REDIS_PASSWORD", "")
	if dbStr := get.str("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// gRPC
	cfg.GRPC.Host = get.str("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = get.str("GRPC_PORT", "50051")

	// metrics / health
	cfg.HTTP.Host = get.str("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = get.str("HTTP_PORT", "9090")

	cfg.RateLimit.RPS = get.float("RATE_LIMIT_RPS", 0)
	cfg.RateLimit.Burst = int(get.num("RATE_LIMIT_BURST", 20))

	// Economy
	cfg.Economy.AnswerCredit = get.num("ANSWER_CREDIT", 1)
	cfg.Economy.MatchCost = get.num("MATCH_COST", 10)
	cfg.Economy.MinAnswered = get.num("MIN_ANSWERED", 10)
	cfg.Economy.MinCommon = int(get.num("MIN_COMMON_QUESTIONS", 3))
	cfg.Economy.QuestionMinLength = int(get.num("QUESTION_MIN_LENGTH", 10))

	cfg.Relationships.Transitions = strings.ToLower(get.str("RELATIONSHIP_TRANSITIONS", "strict"))

	return cfg
}

func (get source) str(k, def string) string {
	if v := get(k); v != "" {
		return v
	}
	return def
}

// num falls back to def when the variable is unset or malformed.
func (get source) num(k string, def int64) int64 {
	v := get(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func (get source) float(k string, def float64) float64 {
	n, err := strconv.ParseFloat(get(k), 64)
	if err != nil {
		return def
	}
	return n
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
