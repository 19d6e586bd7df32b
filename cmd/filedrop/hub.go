package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rickgao/filedrop/internal/config"
	"github.com/rickgao/filedrop/internal/database"
	"github.com/rickgao/filedrop/internal/delivery"
	"github.com/rickgao/filedrop/internal/hub"
	"github.com/rickgao/filedrop/internal/journal"
	"github.com/rickgao/filedrop/internal/registry"
	"github.com/rickgao/filedrop/internal/router"
	"github.com/rickgao/filedrop/internal/version"
)

type hubOptions struct {
	configPath    string
	listenAddr    string
	wsPath        string
	maxQueueDepth int
	maxUpload     int64
}

func newHubCommand(root *rootOptions) *cobra.Command {
	opts := &hubOptions{}

	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Run the hub devices connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadHubConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}

			// Explicit --log-* flags win over the file.
			level, format := cfg.Logging.Level, cfg.Logging.Format
			if cmd.Flags().Changed("log-level") {
				level = root.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				format = root.logFormat
			}
			logger, err := newLogger(level, format)
			if err != nil {
				return err
			}

			return runHub(cfg, logger)
		},
	}

	opts.bind(cmd.Flags())
	return cmd
}

func (o *hubOptions) bind(f *pflag.FlagSet) {
	f.StringVar(&o.configPath, "config", "", "path to hub YAML config (defaults apply without one)")
	f.StringVar(&o.listenAddr, "listen", config.DefaultListenAddr, "listen address")
	f.StringVar(&o.wsPath, "ws-path", config.DefaultWSPath, "WebSocket path")
	f.IntVar(&o.maxQueueDepth, "max-queue-depth", 0, "per-client queue cap (0 = unbounded)")
	f.Int64Var(&o.maxUpload, "max-upload-bytes", config.DefaultUploadMaxBytes, "largest accepted upload")
}

// loadHubConfig reads the file (if any), then applies only the flags the
// user actually set.
func loadHubConfig(opts *hubOptions, flags *pflag.FlagSet) (*config.HubConfig, error) {
	cfg := &config.HubConfig{}
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Server.ListenAddr = opts.listenAddr
		case "ws-path":
			cfg.Server.WSPath = opts.wsPath
		case "max-queue-depth":
			cfg.Sessions.MaxQueueDepth = opts.maxQueueDepth
		case "max-upload-bytes":
			cfg.Uploads.MaxBytes = opts.maxUpload
		}
	})

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func runHub(cfg *config.HubConfig, logger *slog.Logger) error {
	logger.Info("starting hub",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
	)

	ctx, cancel := signalContext(logger)
	defer cancel()

	var recorder delivery.Recorder = delivery.NopRecorder{}

	if cfg.Journal.Enabled {
		logger.Info("connecting to journal database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect journal database: %w", err)
		}
		defer pool.Close()

		if err := journal.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		j := journal.New(journal.Config{
			HubID:         cfg.Instance.ID,
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger.With("component", "journal"))
		if err := j.Start(ctx); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			j.Stop(stopCtx)
		}()
		recorder = j
	}

	reg := registry.New()
	rt := router.New(reg, recorder, logger.With("component", "router"))
	srv := hub.New(hub.FromConfig(cfg), reg, rt, recorder, logger.With("component", "hub"))

	if err := srv.Start(ctx); err != nil {
		return err
	}

	logger.Info("hub running",
		"addr", srv.Addr(),
		"dashboard", fmt.Sprintf("http://%s/", srv.Addr()),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("hub shutdown incomplete", "error", err)
	}

	stats := rt.Stats()
	logger.Info("hub stopped",
		"requests", stats.Requests,
		"queued", stats.Queued,
		"target_not_found", stats.TargetNotFound,
		"dropped", stats.Dropped,
	)
	return nil
}
