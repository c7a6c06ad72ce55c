package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/aggregator"
	"github.com/lysyi3m/sitemap-comb/app/api"
	"github.com/lysyi3m/sitemap-comb/app/cache"
	"github.com/lysyi3m/sitemap-comb/app/cfg"
	"github.com/lysyi3m/sitemap-comb/app/config"
	"github.com/lysyi3m/sitemap-comb/app/content"
	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/detector"
	"github.com/lysyi3m/sitemap-comb/app/engine"
	"github.com/lysyi3m/sitemap-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Sitemap Comb server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	site, err := config.NewLoader(appCfg.SiteConfig, appCfg.BaseUrl).Load()
	if err != nil {
		slog.Error("Failed to load site configuration", "path", appCfg.SiteConfig, "error", err)
		os.Exit(1)
	}
	slog.Info("Site configuration loaded",
		"base_url", site.Site.BaseURL,
		"date_types", site.Site.DateTypes,
		"entities", site.Entities.EntityTypes())

	contentRepo := database.NewContentRepository(db)
	documentRepo := database.NewDocumentRepository(db)

	var options database.OptionStore = database.NewOptionRepository(db)
	if appCfg.StateBackend == "redis" {
		redisStore, err := cache.NewOptionStore(context.Background(), cache.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		if err != nil {
			slog.Error("Failed to connect to state backend", "backend", appCfg.StateBackend, "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		options = redisStore
	}
	slog.Info("Generation state backend selected", "backend", appCfg.StateBackend)

	registry := content.BuildRegistry(contentRepo, site)

	filterer := aggregator.NewFilterer(site.Filters, site.ExcludeIDs)
	agg, err := aggregator.New(registry,
		aggregator.WithSkip(filterer.Skip),
		aggregator.WithFrequency(
			aggregator.AgeBasedFrequency(aggregator.FrequencyFromConfig(site.Frequency.Today), time.Now),
			aggregator.FrequencyFromConfig(site.Frequency.Default),
		),
		aggregator.WithMaxEntries(site.Site.MaxEntries),
	)
	if err != nil {
		slog.Error("Failed to configure aggregator", "error", err)
		os.Exit(1)
	}

	query := database.ContentQuery{Status: site.Site.Status, Types: site.Site.DateTypes}

	det := detector.New(detector.Config{
		Content:   contentRepo,
		Documents: documentRepo,
		Options:   options,
		Registry:  registry,
		Query:     query,
		Lookback:  appCfg.StaleLookback,
	})

	eng := engine.New(engine.Config{
		Aggregator:       agg,
		Content:          contentRepo,
		Documents:        documentRepo,
		Options:          options,
		Detector:         det,
		Registry:         registry,
		Query:            query,
		DefaultFrequency: appCfg.GenerationSchedule,
	})

	generationSchedule, err := eng.CronFrequency(context.Background())
	if err != nil {
		slog.Error("Failed to load cron frequency", "error", err)
		os.Exit(1)
	}

	scheduler, err := tasks.NewScheduler(eng, generationSchedule, appCfg.IncrementalSchedule)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	eng.AttachScheduler(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(eng, documentRepo, contentRepo, site.Site.BaseURL)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.APIRateLimit)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
