package main

import (
	"database/sql"
	"flag"
	"fmt"

	"carpool-route-service/internal/adapters/repositories"
	"carpool-route-service/internal/config"
	"carpool-route-service/internal/platform/db"
	"carpool-route-service/internal/platform/obs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	initOnly := flag.Bool("init-only", false, "create the schema without seeding the roster")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found (using environment variables)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatal(err)
	}
	if err := obs.SetupLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
		logrus.Fatal(err)
	}

	conn, driver, err := db.Open(&cfg.Database)
	if err != nil {
		logrus.Fatal(err)
	}
	defer conn.Close()

	seedPath := cfg.Planner.SeedPath
	if *initOnly {
		seedPath = ""
	}
	if err := initAndSeed(conn, driver, seedPath); err != nil {
		logrus.Fatal(err)
	}
}

func initAndSeed(conn *sql.DB, driver, seedPath string) error {
	logrus.WithField("driver", driver).Info("Initializing database schema...")
	if err := repositories.InitSchema(conn, driver); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	logrus.Info("Schema ready.")

	if seedPath == "" {
		return nil
	}

	logrus.WithField("path", seedPath).Info("Seeding roster...")
	if err := repositories.SeedFromJSON(conn, driver, seedPath); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	logrus.Info("Seeding complete.")

	return nil
}
