package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rickgao/filedrop/internal/receiver"
)

func newReceiveCommand(root *rootOptions) *cobra.Command {
	cfg := receiver.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Connect to a hub under a name and save the files sent to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(root.logLevel, root.logFormat)
			if err != nil {
				return err
			}

			r, err := receiver.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(logger)
			defer cancel()

			logger.Info("receiving files",
				"hub", cfg.HubURL,
				"identity", cfg.Identity,
				"dir", cfg.Dir,
			)
			if err := r.Run(ctx); err != nil {
				return err
			}

			stats := r.Stats()
			logger.Info("receiver stopped",
				"files", stats.FilesSaved,
				"bytes", stats.BytesSaved,
				"connects", stats.Connects,
			)
			return nil
		},
	}

	hostname, _ := os.Hostname()

	f := cmd.Flags()
	f.StringVar(&cfg.HubURL, "hub", "ws://localhost:8765/ws", "hub WebSocket URL")
	f.StringVar(&cfg.Identity, "id", hostname, "name other devices send to")
	f.StringVar(&cfg.Dir, "dir", "./shared", "directory received files are saved in")
	f.Int64Var(&cfg.MaxFrameBytes, "max-frame-bytes", 0, "largest accepted file (0 = unlimited)")
	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "reconnect after this long without traffic or pings")
	f.DurationVar(&cfg.ReconnectMaxWait, "reconnect-max-wait", cfg.ReconnectMaxWait, "upper bound on reconnect backoff")
	return cmd
}
