package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Web      WebConfig      `yaml:"web"`
	Planner  PlannerConfig  `yaml:"planner"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OracleConfig holds the fixed query parameters of the travel-time provider.
// APIKey is never read from the file; it comes from GOOGLE_MAPS_API_KEY.
type OracleConfig struct {
	APIKey          string        `yaml:"-"`
	BaseURL         string        `yaml:"base_url"`
	Units           string        `yaml:"units"`
	TrafficModel    string        `yaml:"traffic_model"`
	Timeout         time.Duration `yaml:"timeout"`
	DepartureOffset time.Duration `yaml:"departure_offset"`
	MaxLocations    int           `yaml:"max_locations"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables the shared provider throttle when Address is set.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Limit    int           `yaml:"limit"`
	Window   time.Duration `yaml:"window"`
}

// KafkaConfig enables result publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type WebConfig struct {
	Port string `yaml:"port"`
}

type PlannerConfig struct {
	FinalDestination string `yaml:"final_destination"`
	SeedPath         string `yaml:"seed_path"`
	ResultsPath      string `yaml:"results_path"`
	Concurrency      int    `yaml:"concurrency"`

	// Search picks the stop ordering strategy: exhaustive or nearest_neighbor.
	Search string `yaml:"search"`

	// MaxExhaustiveStops hands legs with more stops to nearest_neighbor.
	// Zero disables the limit.
	MaxExhaustiveStops int `yaml:"max_exhaustive_stops"`
}

func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Oracle: OracleConfig{
			BaseURL:         "https://maps.googleapis.com/maps/api/distancematrix/json",
			Units:           "imperial",
			TrafficModel:    "best_guess",
			Timeout:         20 * time.Second,
			DepartureOffset: time.Minute,
			MaxLocations:    25,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "data/app.db"},
		},
		Redis: RedisConfig{
			Limit:  50,
			Window: time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "carpool.routes",
		},
		Web: WebConfig{
			Port: "8080",
		},
		Planner: PlannerConfig{
			SeedPath:    "data/seeds/roster.json",
			ResultsPath: "results.json",
			Concurrency: 1,
			Search:      "exhaustive",

			MaxExhaustiveStops: 10,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("load config %q: parse yaml: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Oracle.APIKey = strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY"))
	c.Log.Level = Get("LOG_LEVEL", c.Log.Level)
	c.Database.Driver = Get("DB_DRIVER", c.Database.Driver)
	c.Database.SQLite.Path = Get("DB_PATH", c.Database.SQLite.Path)
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.Postgres.URL = url
		if os.Getenv("DB_DRIVER") == "" {
			c.Database.Driver = "postgres"
		}
	}
	c.Redis.Address = Get("REDIS_ADDR", c.Redis.Address)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Web.Port = Get("PORT", c.Web.Port)
	c.Planner.FinalDestination = Get("FINAL_DESTINATION", c.Planner.FinalDestination)
	c.Planner.SeedPath = Get("SEED_PATH", c.Planner.SeedPath)
	if v := os.Getenv("PLANNER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLANNER_CONCURRENCY: %w", err)
		}
		c.Planner.Concurrency = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.Postgres.URL == "" {
		return fmt.Errorf("postgres driver requires DATABASE_URL")
	}
	if c.Oracle.MaxLocations < 1 {
		return fmt.Errorf("oracle.max_locations must be positive, got %d", c.Oracle.MaxLocations)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout must be positive")
	}
	if c.Oracle.DepartureOffset < 0 {
		return fmt.Errorf("oracle.departure_offset must not be negative")
	}
	switch c.Planner.Search {
	case "exhaustive", "nearest_neighbor":
	default:
		return fmt.Errorf("unsupported planner.search: %q", c.Planner.Search)
	}
	if c.Planner.MaxExhaustiveStops < 0 {
		return fmt.Errorf("planner.max_exhaustive_stops must not be negative, got %d", c.Planner.MaxExhaustiveStops)
	}
	if c.Planner.Concurrency < 1 {
		return fmt.Errorf("planner.concurrency must be at least 1, got %d", c.Planner.Concurrency)
	}
	return nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
