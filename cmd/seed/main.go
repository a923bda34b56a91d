// Command seed inserts demo safe spots and alerts, skipping rows that already exist.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/safezone/server/internal/db"
	"github.com/safezone/server/internal/logging"
	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
)

type seedConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DevMode     bool   `env:"DEV_MODE" envDefault:"false"`
}

var safeSpotSeeds = []model.SafeSpot{
	{Name: "City Central Police Station", Type: "police-station", Address: "MG Road, Central City, 560001", Location: model.Location{Lat: 12.9716, Lng: 77.5946}},
	{Name: "General Hospital", Type: "hospital", Address: "Health Street, Central City, 560002", Location: model.Location{Lat: 12.975, Lng: 77.59}},
	{Name: "Women Help Center", Type: "help-center", Address: "Safety Lane, East City, 560003", Location: model.Location{Lat: 12.978, Lng: 77.6}},
	{Name: "Community Safe House", Type: "community-center", Address: "Lake View Road, North City, 560004", Location: model.Location{Lat: 12.98, Lng: 77.59}},
	{Name: "Metro Station - Safe Zone", Type: "public-transport", Address: "Metro Line 1, South City, 560005", Location: model.Location{Lat: 12.965, Lng: 77.6}},
}

// alertSeeds are timestamped relative to now, one hour apart
func alertSeeds(now time.Time) []model.Alert {
	hoursAgo := func(h int) time.Time { return now.Add(-time.Duration(h) * time.Hour) }
	return []model.Alert{
		{Type: "harassment", Severity: model.SeverityHigh, Timestamp: hoursAgo(1), Location: model.Location{Lat: 12.9716, Lng: 77.5946}, Description: "Reported harassment incident near central bus stop."},
		{Type: "suspicious-activity", Severity: model.SeverityMedium, Timestamp: hoursAgo(2), Location: model.Location{Lat: 12.975, Lng: 77.59}, Description: "Group of people loitering late at night."},
		{Type: "theft", Severity: model.SeverityMedium, Timestamp: hoursAgo(3), Location: model.Location{Lat: 12.978, Lng: 77.6}, Description: "Reported bag theft near park entrance."},
		{Type: "harassment", Severity: model.SeverityLow, Timestamp: hoursAgo(4), Location: model.Location{Lat: 12.98, Lng: 77.59}, Description: "Verbal harassment reported on main street."},
		{Type: "unsafe-driving", Severity: model.SeverityMedium, Timestamp: hoursAgo(5), Location: model.Location{Lat: 12.965, Lng: 77.6}, Description: "High-speed driving near school zone."},
	}
}

func main() {
	only := flag.String("only", "", "seed only `spots` or `alerts`")
	flag.Parse()

	_ = godotenv.Load(".env")

	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.DevMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), cfg, *only, logger); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg seedConfig, only string, logger *zap.Logger) error {
	switch only {
	case "", "spots", "alerts":
	default:
		return fmt.Errorf("-only must be spots or alerts, got %q", only)
	}

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		return err
	}

	if only != "alerts" {
		if err := seedSafeSpots(ctx, repo.NewSafeSpotRepo(database), logger); err != nil {
			return err
		}
	}
	if only != "spots" {
		if err := seedAlerts(ctx, repo.NewAlertRepo(database), time.Now().UTC(), logger); err != nil {
			return err
		}
	}
	return nil
}

func seedSafeSpots(ctx context.Context, spots repo.SafeSpotRepo, logger *zap.Logger) error {
	created := 0
	for _, seed := range safeSpotSeeds {
		exists, err := spots.FindByNameAndLocation(ctx, seed.Name, seed.Location)
		if err != nil {
			return err
		}
		if exists {
			logger.Info("safe spot already exists, skipping", zap.String("name", seed.Name))
			continue
		}
		if _, err := spots.Create(ctx, seed); err != nil {
			return err
		}
		created++
		logger.Info("safe spot created", zap.String("name", seed.Name))
	}
	logger.Info("safe spot seeding completed", zap.Int("created", created))
	return nil
}

func seedAlerts(ctx context.Context, alerts repo.AlertRepo, now time.Time, logger *zap.Logger) error {
	created := 0
	for _, seed := range alertSeeds(now) {
		exists, err := alerts.FindDuplicate(ctx, seed)
		if err != nil {
			return err
		}
		if exists {
			logger.Info("alert already exists, skipping", zap.String("type", seed.Type), zap.String("description", seed.Description))
			continue
		}
		if _, err := alerts.Create(ctx, seed); err != nil {
			return err
		}
		created++
		logger.Info("alert created", zap.String("type", seed.Type))
	}
	logger.Info("alert seeding completed", zap.Int("created", created))
	return nil
}
