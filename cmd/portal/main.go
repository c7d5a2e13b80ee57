package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fileportal/internal/blob"
	"fileportal/internal/config"
	"fileportal/internal/db"
	"fileportal/internal/server"
	"fileportal/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)

	// Refuse to start without secret material: sessions signed under an
	// empty key would be forgeable.
	if cfg.SessionSecret == "" {
		log.Fatal().Msg("PORTAL_SESSION_SECRET is required")
	}

	st, sqlDB, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer func() { _ = sqlDB.Close() }()

	log.Info().Msg("running migrations")
	if err := db.RunMigrations(sqlDB); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	ctx := context.Background()
	created, err := st.EnsureSeedAdmin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("seed admin failed")
	}
	if created {
		log.Info().Str("username", store.SeedAdminUsername).Msg("seeded bootstrap admin")
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("blob store init failed")
	}

	srv := server.New(server.Config{
		Addr:           cfg.Addr,
		SessionSecret:  cfg.SessionSecret,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Users:          st,
		Files:          st,
		Blobs:          blobs,
		Alerts: server.AlertConfig{
			Enabled:     cfg.Alerts.Enabled,
			GitHubOwner: cfg.Alerts.GitHubOwner,
			GitHubRepo:  cfg.Alerts.GitHubRepo,
			GitHubToken: cfg.Alerts.GitHubToken,
			Cooldown:    time.Duration(cfg.Alerts.CooldownSeconds) * time.Second,
		},
		Logger: log,
	})

	if cfg.ShowStartupBanner {
		fmt.Println()
		fmt.Println("===================================")
		fmt.Println("File Portal is running!")
		fmt.Printf("Open in browser: http://127.0.0.1%s/login\n", cfg.Addr)
		fmt.Println("===================================")
		fmt.Println()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting")
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
			os.Exit(1)
		}
		log.Info().Msg("shutdown complete")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}
}

func newLogger(cfg config.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return blob.NewMinio(ctx, blob.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
	default:
		return blob.NewLocal(cfg.UploadDir)
	}
}
