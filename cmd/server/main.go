package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/server"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "gophsync-server",
		Short:         "GophSync server: relays CRDT sync messages between peers",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			logger, closeLog, err := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeLog()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("Starting GophSync server",
				"version", Version,
				"commit", GitCommit,
				"db_path", cfg.DBPath,
				"latency", cfg.Latency,
			)

			srv, err := server.New(ctx, cfg, logger, Version)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.SetVersionTemplate(versionString())

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to YAML config file")
	flags.String("addr", ":8080", "Listen address")
	flags.String("db-path", "gophsync-server.db", "Path to SQLite database")
	flags.Duration("latency", 100*time.Millisecond, "Simulated latency before each sync request")
	flags.String("log-file", "", "Path to rotating log file")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.Int("rate-limit", 100, "Requests per window per client IP, 0 disables limiting")
	flags.Duration("rate-window", time.Minute, "Rate limit window")
	flags.StringSlice("trusted-proxies", nil, "Proxy IPs or CIDRs allowed to set X-Forwarded-For")

	return cmd
}

func versionString() string {
	return fmt.Sprintf("GophSync Server\nVersion:    %s\nBuild Date: %s\nGit Commit: %s\n",
		Version, BuildDate, GitCommit)
}
