package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"carpool-route-service/internal/adapters/publish"
	"carpool-route-service/internal/adapters/repositories"
	"carpool-route-service/internal/adapters/throttle"
	"carpool-route-service/internal/adapters/traveltime"
	"carpool-route-service/internal/config"
	"carpool-route-service/internal/platform/db"
	"carpool-route-service/internal/ports"
	"carpool-route-service/internal/services"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// App is the composition root shared by the server and the batch planner.
// It wires concrete adapters behind ports.
type App struct {
	Config      *config.Config
	DB          *sql.DB
	Groups      *repositories.SQLGroupRepository
	Runs        *repositories.SQLRunRepository
	Oracle      *traveltime.GoogleOracle
	Optimizer   *services.Optimizer
	Coordinator *services.RoundTripCoordinator
	Planner     *services.Planner

	closers []func() error
}

// Build opens storage, seeds the roster when a seed file is present and
// wires the oracle, optimizer and planner.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Oracle.APIKey == "" {
		return nil, errors.New("GOOGLE_MAPS_API_KEY is required")
	}

	a := &App{Config: cfg}

	conn, driver, err := db.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = conn
	a.closers = append(a.closers, conn.Close)
	logrus.WithField("driver", driver).Info("database open")

	if err := initAndSeed(conn, driver, cfg.Planner.SeedPath); err != nil {
		a.Close()
		return nil, err
	}

	a.Groups = repositories.NewSQLGroupRepository(conn)
	a.Runs = repositories.NewSQLRunRepository(conn, driver)

	a.Oracle, err = traveltime.NewGoogleOracle(cfg.Oracle.APIKey, traveltime.GoogleOptions{
		BaseURL:         cfg.Oracle.BaseURL,
		Units:           cfg.Oracle.Units,
		TrafficModel:    cfg.Oracle.TrafficModel,
		Timeout:         cfg.Oracle.Timeout,
		DepartureOffset: cfg.Oracle.DepartureOffset,
		MaxLocations:    cfg.Oracle.MaxLocations,
		Throttle:        a.throttle(ctx),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	search, err := services.SearchByName(cfg.Planner.Search)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Optimizer = services.NewOptimizerWithSearch(a.Oracle, search).
		WithStopLimit(cfg.Planner.MaxExhaustiveStops, services.NearestNeighborSearch)
	a.Coordinator = services.NewRoundTripCoordinator(a.Optimizer, cfg.Planner.Concurrency)
	a.Planner = services.NewPlanner(a.Groups, a.Runs, a.Coordinator, a.publisher())

	return a, nil
}

// throttle shares the provider request budget through Redis when configured.
// An unreachable Redis falls back to no pacing.
func (a *App) throttle(ctx context.Context) ports.Throttle {
	rc := a.Config.Redis
	if rc.Address == "" {
		return throttle.Nop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rc.Address,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logrus.WithError(err).WithField("addr", rc.Address).Warn("redis not available, provider calls are not throttled")
		client.Close()
		return throttle.Nop{}
	}

	t, err := throttle.NewRedisThrottle(client, "", rc.Limit, rc.Window)
	if err != nil {
		logrus.WithError(err).Warn("redis throttle disabled")
		client.Close()
		return throttle.Nop{}
	}

	a.closers = append(a.closers, client.Close)
	logrus.WithFields(logrus.Fields{
		"addr":   rc.Address,
		"limit":  rc.Limit,
		"window": rc.Window,
	}).Info("redis throttle enabled")
	return t
}

func (a *App) publisher() ports.ResultPublisher {
	kc := a.Config.Kafka
	if len(kc.Brokers) == 0 {
		return nil
	}

	p, err := publish.NewKafkaPublisher(kc.Brokers, kc.Topic)
	if err != nil {
		logrus.WithError(err).Warn("kafka publishing disabled")
		return nil
	}
	a.closers = append(a.closers, p.Close)
	logrus.WithFields(logrus.Fields{"brokers": kc.Brokers, "topic": kc.Topic}).Info("kafka publishing enabled")
	return p
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logrus.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

func initAndSeed(conn *sql.DB, driver, seedPath string) error {
	if err := repositories.InitSchema(conn, driver); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if seedPath == "" {
		return nil
	}
	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		logrus.WithField("path", seedPath).Info("no roster seed file, keeping stored roster")
		return nil
	}

	if err := repositories.SeedFromJSON(conn, driver, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	logrus.WithField("path", seedPath).Info("roster seeded")
	return nil
}
