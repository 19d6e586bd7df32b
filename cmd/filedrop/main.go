// Command filedrop sends files to named devices over a WebSocket hub.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rickgao/filedrop/internal/version"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "filedrop",
		Short: "Push files to your own devices by name",
		Long: strings.TrimSpace(`
filedrop runs a small hub that your devices stay connected to. Each device
declares a name when it connects; anyone who can reach the hub can then send
a file to a device by that name. Files are relayed, never stored: a device
that is offline simply does not get the file.`),
		Example: strings.TrimSpace(`
  filedrop hub --config hub.yaml
  filedrop receive --hub ws://hub.tailnet:8765/ws --id Laptop --dir ~/Downloads/drop
  filedrop push --hub http://hub.tailnet:8765 --to Laptop photo.png
  filedrop watch --hub http://hub.tailnet:8765 --to Phone --dir ~/outbox --sent-dir ~/outbox/sent`),
		Version:      version.String(),
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (text or json)")

	root.AddCommand(
		newHubCommand(opts),
		newReceiveCommand(opts),
		newPushCommand(opts),
		newClientsCommand(opts),
		newWatchCommand(opts),
		newVersionCommand(),
	)
	return root
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "filedrop", version.String())
		},
	}
}
