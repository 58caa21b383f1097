package main

import (
	"log"

	"nedapay-api/internal/api"
	"nedapay-api/internal/config"
	"nedapay-api/internal/database"
	"nedapay-api/internal/kotani"
	"nedapay-api/internal/logging"
	"nedapay-api/internal/paycrest"
	"nedapay-api/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	if err := logging.InitLogger(cfg.Env == "production"); err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer logging.Logger.Sync()

	// Connect to Database
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	kotaniClient := kotani.NewClient(cfg.KotaniAPIURL, cfg.KotaniAPIKey)
	paycrestClient := paycrest.NewClient(cfg.PaycrestAPIURL, cfg.PaycrestClientID, cfg.PaycrestClientSecret)

	// Background reconciliation of pending orders and stale links
	reconciler := worker.NewReconciler(db, rdb, paycrestClient, cfg.ReconcileInterval, cfg.ReconcileMinAge)
	go reconciler.Start()

	server := api.NewServer(cfg, db, rdb, kotaniClient)

	logging.Sugar().Infow("server starting", "port", cfg.Port)
	if err := server.Router().Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
