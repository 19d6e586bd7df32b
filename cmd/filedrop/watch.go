package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/filedrop/internal/pusher"
)

func newWatchCommand(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}
	var cfg pusher.WatchConfig

	cmd := &cobra.Command{
		Use:   "watch --to NAME --dir OUTBOX",
		Short: "Push every file dropped into a directory to one device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root)
			if err != nil {
				return err
			}
			logger := slog.Default()

			w, err := pusher.NewWatcher(cfg, client, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(logger)
			defer cancel()

			if err := w.Run(ctx); err != nil {
				return err
			}

			stats := w.Stats()
			logger.Info("watcher stopped",
				"pushed", stats.Pushed,
				"failed", stats.Failed,
			)
			return nil
		},
	}

	opts.register(cmd)
	f := cmd.Flags()
	f.StringVar(&cfg.Target, "to", "", "identity of the receiving device")
	f.StringVar(&cfg.Dir, "dir", "", "outbox directory to watch")
	f.StringVar(&cfg.SentDir, "sent-dir", "", "move pushed files here (default: leave in place)")
	f.DurationVar(&cfg.Debounce, "debounce", 500*time.Millisecond, "quiet period after the last write before pushing")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("dir")
	return cmd
}
