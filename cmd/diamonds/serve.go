package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/derekprior/diamonds/internal/httpapi"
	"github.com/derekprior/diamonds/internal/logging"
	"github.com/derekprior/diamonds/internal/notify"
	"github.com/derekprior/diamonds/internal/planner"
	"github.com/derekprior/diamonds/internal/store"
)

// serveSettings are read from DIAMONDS_* environment variables, after an
// optional .env file.
type serveSettings struct {
	HTTPAddr          string        `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	NATSURL           string        `envconfig:"NATS_URL"`
	NATSSubjectPrefix string        `envconfig:"NATS_SUBJECT_PREFIX" default:"diamonds"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	StateDir          string        `envconfig:"STATE_DIR" default:".diamonds"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func loadServeSettings() (serveSettings, error) {
	_ = godotenv.Load()
	var s serveSettings
	if err := envconfig.Process("diamonds", &s); err != nil {
		return s, errors.Wrap(err, "reading DIAMONDS_* settings")
	}
	return s, nil
}

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Serve the schedule API over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadServeSettings()
			if err != nil {
				return err
			}
			return runServe(g, settings)
		},
	}
}

func runServe(g *globals, settings serveSettings) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewJSON(level)
	logging.SetDefault(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if settings.DatabaseURL != "" {
		pg, err := store.OpenPostgres(ctx, settings.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		st = pg
		logger.Info("using postgres store")
	} else {
		fs, err := store.NewFileStore(settings.StateDir)
		if err != nil {
			return err
		}
		st = fs
		logger.Info("using file store", "dir", settings.StateDir)
	}

	opts := []planner.Option{planner.WithLogger(logger)}
	if settings.NATSURL != "" {
		natsCfg := notify.DefaultNATSConfig()
		natsCfg.URL = settings.NATSURL
		natsCfg.SubjectPrefix = settings.NATSSubjectPrefix
		pub, err := notify.NewNATSPublisher(natsCfg, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, planner.WithPublisher(pub))
		logger.Info("publishing schedule events", "url", settings.NATSURL, "prefix", settings.NATSSubjectPrefix)
	}

	p := planner.New(cfg, st, opts...)
	n, err := p.Seed(ctx)
	switch {
	case errors.Is(err, planner.ErrAlreadySeeded):
	case err != nil:
		return err
	default:
		logger.Info("seeded new tournament", "matchups", n)
	}

	srv := &http.Server{
		Addr:              settings.HTTPAddr,
		Handler:           httpapi.NewRouter(p, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", settings.HTTPAddr, "tournament", cfg.Tournament.ID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "http server failed")
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	logger.Info("http server stopped")
	return nil
}
