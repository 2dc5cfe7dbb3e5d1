package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hillshield/internal/ai"
	"hillshield/internal/auth"
	"hillshield/internal/backup"
	"hillshield/internal/config"
	"hillshield/internal/kvstore"
	"hillshield/internal/logging"
	"hillshield/internal/mesh"
	"hillshield/internal/middleware"
	"hillshield/internal/notify"
	"hillshield/internal/server"
	"hillshield/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.GinMode)

	var kv kvstore.Store
	switch cfg.StoreBackend {
	case "sqlite":
		kv, err = kvstore.NewSQLite(cfg.SQLiteDSN)
	default:
		kv, err = kvstore.NewMemory(cfg.SnapshotFile)
	}
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer func() { _ = kv.Close() }()

	st := store.New(kv, notify.New(), log)

	monitor := mesh.NewMonitor(cfg.StartOnline)
	simulator := mesh.NewSimulator(st, monitor, cfg.MeshWindow, log)
	simulator.Start(cfg.SweepInterval)
	defer simulator.Stop()

	aiClient := ai.New(ai.Config{
		APIKey:   cfg.AIAPIKey,
		BaseURL:  cfg.AIBaseURL,
		Model:    cfg.AIModel,
		Timeout:  cfg.AITimeout,
		CacheTTL: cfg.AICacheTTL,
	}, log)

	if cfg.BackupCron != "" && cfg.BackupPath != "" {
		var source string
		if cfg.StoreBackend == "sqlite" {
			source = cfg.SQLiteDSN
		} else {
			source = cfg.SnapshotFile
		}
		if source != "" {
			sched, err := backup.New(source, cfg.BackupPath, cfg.BackupCron, log)
			if err != nil {
				log.Fatal("schedule backup", zap.Error(err))
			}
			sched.Start()
			defer sched.Stop()
		}
	}

	tokenCfg := auth.TokenConfig{
		Secret: cfg.MasterSecret,
		Expiry: cfg.TokenExpiry,
		Issuer: "hillshield",
	}

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, log)

	router := server.NewRouter(server.Deps{
		Store:       st,
		Monitor:     monitor,
		Transport:   simulator,
		AI:          aiClient,
		TokenConfig: tokenCfg,
		Limiter:     limiter,
	})

	log.Info("listening", zap.String("addr", fmt.Sprintf(":%d", cfg.Port)))
	if err := server.Run(cfg, router); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}
