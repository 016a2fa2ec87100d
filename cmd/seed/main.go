package main

import (
	"os"

	"github.com/oggyb/qmatch/internal/config"
	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	seed := db.SeedTestData
	if len(os.Args) > 1 && os.Args[1] == "minimal" {
		seed = db.SeedMinimalTestData
	}
	if err := seed(database); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed")
}
