package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/paoshea/disco-sub000/internal/config"
	"github.com/paoshea/disco-sub000/internal/infra/logger"
	"github.com/paoshea/disco-sub000/internal/jobs/cleanup"
	pgrepo "github.com/paoshea/disco-sub000/internal/repo/postgres"
)

// One-shot binary meant to run from cron.
func main() {
	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	retention := 30 * 24 * time.Hour
	if v := os.Getenv("LOCATION_RETENTION"); v != "" {
		if d, parseErr := time.ParseDuration(v); parseErr == nil {
			retention = d
		}
	}

	job := cleanup.New(pgrepo.NewUserRepo(pool), retention, log)
	if err := job.Run(ctx); err != nil {
		log.Fatal("run cleanup", zap.Error(err))
	}
}
