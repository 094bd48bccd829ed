// Command eventadmin runs the event administration console.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
)

var version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "eventadmin",
	Short:         "Event administration console",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eventadmin v%s\n", version)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config over the defaults, or over the development
// defaults when dev is set.
func loadConfig(dev bool) (core.Config, error) {
	if configPath != "" {
		return core.LoadConfig(configPath)
	}
	if dev {
		return core.DevelopmentConfig(), nil
	}
	return core.DefaultConfig(), nil
}

func newLogger(cfg core.LogConfig) logging.Logger {
	opts := []logging.LoggerOption{logging.WithLevel(logging.ParseLevel(cfg.Level))}
	if cfg.JSON {
		opts = append(opts, logging.WithJSON())
	}
	logger := logging.NewSlogLogger(opts...)
	logging.SetDefault(logger)
	return logger
}
