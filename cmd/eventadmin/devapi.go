package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/eventadmin/internal/devapi"
	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
)

func newDevAPICmd() *cobra.Command {
	cfg := devapi.DefaultConfig()
	var noSeed bool

	cmd := &cobra.Command{
		Use:   "devapi",
		Short: "Run an in-memory admin backend for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Seed = !noSeed
			cfg.Logger = newLogger(core.LogConfig{Level: "debug"}).With(logging.String("component", "devapi"))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return devapi.New(cfg).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	cmd.Flags().StringVar(&cfg.Username, "user", "", "require basic auth with this user")
	cmd.Flags().StringVar(&cfg.Password, "password", "", "basic auth password")
	cmd.Flags().Int64Var(&cfg.MaxUploadSize, "max-upload-size", cfg.MaxUploadSize, "largest accepted file in bytes")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "start without sample data")
	return cmd
}

func init() {
	rootCmd.AddCommand(newDevAPICmd())
}
