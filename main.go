package main

import (
	"flag"
	"os"
	"time"

	"github.com/teddywilson/wipshare-sub002/config"
	"github.com/teddywilson/wipshare-sub002/models"
	"github.com/teddywilson/wipshare-sub002/quota"
	"github.com/teddywilson/wipshare-sub002/routes"
	"github.com/teddywilson/wipshare-sub002/storage"
	"github.com/teddywilson/wipshare-sub002/utils"
)

func main() {
	seedTiers := flag.Bool("seed-tiers", false, "seed the default tier catalog and exit")
	flag.Parse()

	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Track{},
		&models.Comment{},
		&models.TierLimit{},
		&models.UsageSnapshot{},
		&models.PlayMetric{},
	)

	if *seedTiers {
		if err := quota.SeedDefaultTiers(db); err != nil {
			utils.Sugar.Errorf("tier seeding failed: %v", err)
			os.Exit(1)
		}
		utils.Sugar.Info("tier catalog seeded")
		os.Exit(0)
	}

	store, err := storage.New(storage.Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		UsePathStyle:    cfg.S3UsePathStyle,
		Insecure:        cfg.S3Insecure,
	})
	if err != nil {
		utils.Sugar.Fatalf("object storage init failed: %v", err)
	}

	r := routes.SetupRouter(db, store)

	// Repair usage counters drifted by failed deltas (best-effort)
	if cfg.UsageReconcileMinutes > 0 {
		quota.StartUsageReconciler(db, time.Duration(cfg.UsageReconcileMinutes)*time.Minute)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
