package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath        string `long:"db-path" env:"DB_PATH" default:"./data/sitemap.db" description:"SQLite database file"`
	SiteConfig    string `long:"site-config" env:"SITE_CONFIG" default:"./site.yml" description:"Site configuration YAML file"`
	StateBackend  string `long:"state-backend" env:"STATE_BACKEND" default:"sqlite" choice:"sqlite" choice:"redis" description:"Where generation state is persisted"`
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address (state-backend=redis)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`

	// Application configuration
	Port                string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl             string `long:"base-url" env:"BASE_URL" description:"Public base URL of the site, overrides site.base_url (e.g., https://blog.example.com)"`
	APIAccessKey        string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	APIRateLimit        int    `long:"api-rate-limit" env:"API_RATE_LIMIT" default:"60" description:"Admin API requests per minute per client, 0 disables"`
	GenerationSchedule  string `long:"generation-schedule" env:"GENERATION_SCHEDULE" default:"@every 1m" description:"Cron spec of the full rebuild tick"`
	IncrementalSchedule string `long:"incremental-schedule" env:"INCREMENTAL_SCHEDULE" default:"@every 10m" description:"Cron spec of the incremental pass"`
	StaleLookback       int    `long:"stale-lookback" env:"STALE_LOOKBACK" default:"48" description:"Hours of content modifications inspected for stale documents"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for calendar days (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads an optional .env file, then flags and environment.
func Load() (*Cfg, error) {
	_ = godotenv.Load()

	return load(os.Args[1:])
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.StaleLookback <= 0 {
		return nil, fmt.Errorf("stale lookback must be positive, got %d", raw.StaleLookback)
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		SiteConfig:          raw.SiteConfig,
		StateBackend:        raw.StateBackend,
		RedisAddr:           raw.RedisAddr,
		RedisPassword:       raw.RedisPassword,
		RedisDB:             raw.RedisDB,
		Port:                raw.Port,
		BaseUrl:             raw.BaseUrl,
		APIAccessKey:        raw.APIAccessKey,
		APIRateLimit:        raw.APIRateLimit,
		GenerationSchedule:  raw.GenerationSchedule,
		IncrementalSchedule: raw.IncrementalSchedule,
		StaleLookback:       time.Duration(raw.StaleLookback) * time.Hour,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
