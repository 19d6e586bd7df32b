package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/filedrop/internal/pusher"
)

type clientOptions struct {
	hubURL  string
	timeout time.Duration
	retries int
}

func (o *clientOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.hubURL, "hub", "http://localhost:8765", "hub HTTP URL")
	f.DurationVar(&o.timeout, "timeout", 5*time.Minute, "per-request timeout")
	f.IntVar(&o.retries, "retries", 3, "retries on 5xx and 429 responses")
}

func (o *clientOptions) client(root *rootOptions) (*pusher.Client, error) {
	logger, err := newLogger(root.logLevel, root.logFormat)
	if err != nil {
		return nil, err
	}
	return pusher.NewClient(o.hubURL,
		pusher.WithLogger(logger),
		pusher.WithTimeout(o.timeout),
		pusher.WithRetries(o.retries, time.Second),
	), nil
}

func newPushCommand(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}
	var target string

	cmd := &cobra.Command{
		Use:   "push --to NAME FILE...",
		Short: "Send files to an online device",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(slog.Default())
			defer cancel()

			var failed int
			for _, path := range args {
				receipt, err := client.Push(ctx, target, path)
				if err != nil {
					if errors.Is(err, pusher.ErrTargetNotFound) {
						return fmt.Errorf("%s is not online", target)
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d bytes, %s)\n",
					receipt.Filename, receipt.Target, receipt.Size, receipt.ID)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&target, "to", "", "identity of the receiving device")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newClientsCommand(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}

	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List devices currently connected to the hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(slog.Default())
			defer cancel()

			online, err := client.Clients(ctx)
			if err != nil {
				return err
			}
			for _, id := range online {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	opts.register(cmd)
	return cmd
}
