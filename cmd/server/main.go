package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carpool-route-service/internal/api"
	"carpool-route-service/internal/app"
	"carpool-route-service/internal/config"
	"carpool-route-service/internal/platform/obs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// main starts the HTTP API over the shared composition root.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer a.Close()

	router := api.NewRouter(api.Deps{
		Groups:             a.Groups,
		Runs:               a.Runs,
		Planner:            a.Planner,
		Optimizer:          a.Optimizer,
		DefaultDestination: cfg.Planner.FinalDestination,
	})

	// A plan run issues two provider calls per group; the write timeout leaves
	// room for a full roster.
	srv := &http.Server{
		Addr:              ":" + cfg.Web.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("server shutdown")
		}
	}()

	logrus.WithField("addr", srv.Addr).Info("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatal(err)
	}
}
