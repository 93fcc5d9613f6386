package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"carpool-route-service/internal/app"
	"carpool-route-service/internal/config"
	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/platform/obs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// main routes every roster group once and writes the results file.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	destination := flag.String("destination", "", "final destination (overrides config)")
	output := flag.String("out", "", "results file (overrides config)")
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

	dest := cfg.Planner.FinalDestination
	if *destination != "" {
		dest = *destination
	}
	out := cfg.Planner.ResultsPath
	if *output != "" {
		out = *output
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer a.Close()

	run, err := a.Planner.Run(ctx, dest)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := writeResults(out, run.Groups); err != nil {
		logrus.Fatal(err)
	}

	logFailures(run)
	logrus.WithFields(logrus.Fields{
		"run_id": run.ID,
		"groups": len(run.Groups),
		"path":   out,
	}).Info("results written")
}

func writeResults(path string, groups []domain.Group) error {
	if groups == nil {
		groups = []domain.Group{}
	}
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return fmt.Errorf("write results: encode: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write results %q: %w", path, err)
	}
	return nil
}

func logFailures(run *domain.Run) {
	for _, g := range run.Groups {
		legs := []struct {
			leg domain.Leg
			err *domain.RouteError
		}{
			{domain.LegForward, g.BestRouteError},
			{domain.LegReturn, g.BestReturnRouteError},
		}
		for _, l := range legs {
			if l.err == nil {
				continue
			}
			logrus.WithFields(logrus.Fields{
				"column": g.Column,
				"leg":    l.leg,
				"code":   l.err.Code,
				"status": l.err.Status,
			}).Warn("leg failed: " + l.err.Error())
		}
	}
}
