package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/client/api"
	"github.com/iudanet/gophsync/internal/client/cli"
	"github.com/iudanet/gophsync/internal/client/iocli"
	"github.com/iudanet/gophsync/internal/client/storage/boltdb"
	"github.com/iudanet/gophsync/internal/client/store"
	clientsync "github.com/iudanet/gophsync/internal/client/sync"
	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/crdt"
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

// app открытые ресурсы одного запуска команды
type app struct {
	cfg     *config.Client
	logger  *slog.Logger
	db      *boltdb.Storage
	store   *store.Store
	adapter *clientsync.Adapter
	cli     *cli.Cli
}

// open загружает конфигурацию и открывает store.
// Если withSync, store отправляет сохраненные изменения через адаптер.
func open(cmd *cobra.Command, configPath string, withSync bool) (*app, error) {
	ctx := cmd.Context()

	cfg, err := config.LoadClient(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, _, err := config.NewLogger(os.Stderr, cfg.LogLevel, "")
	if err != nil {
		return nil, err
	}

	db, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	var synchronizer store.Synchronizer
	if withSync {
		peerID := cfg.PeerID
		if peerID == "" {
			peerID = uuid.NewString()
		}

		a.adapter = clientsync.New(api.NewClient(cfg.Server), crdt.NewAutomerge(), logger,
			clientsync.WithReconnectDelay(cfg.ReconnectDelay),
			clientsync.WithPollInterval(cfg.PollInterval),
		)
		a.adapter.Connect(peerID)
		synchronizer = a.adapter
	}

	a.store, err = store.New(ctx, store.Config{Key: cfg.Store, SaveDebounce: cfg.SaveDebounce},
		crdt.NewAutomerge(), db, db, synchronizer, logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to open store %s: %w", cfg.Store, err)
	}

	a.cli = cli.New(iocli.NewStdio(), a.store)
	return a, nil
}

// close сохраняет отложенные изменения и закрывает ресурсы
func (a *app) close(ctx context.Context) {
	if a.store != nil {
		a.store.Close(ctx)
	}
	if a.adapter != nil {
		a.adapter.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "gophsync",
		Short:         "GophSync client: versioned CRDT documents with branches and sync",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("GophSync Client\nVersion:    %s\nBuild Date: %s\nGit Commit: %s\n",
		Version, BuildDate, GitCommit))

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to YAML config file")
	flags.String("server", "http://localhost:8080", "Server URL")
	flags.String("db-path", "gophsync-client.db", "Path to local database")
	flags.String("store", "default", "Store name")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")

	// run открывает store, выполняет fn и сохраняет изменения
	run := func(withSync bool, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, configPath, withSync)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			return fn(cmd.Context(), a, args)
		}
	}

	var message string

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show commits of every branch",
		Args:  cobra.NoArgs,
		RunE: run(false, func(ctx context.Context, a *app, _ []string) error {
			return a.cli.RunLog(ctx)
		}),
	}

	commitCmd := &cobra.Command{
		Use:   "commit [message]",
		Short: "Commit the current head of the active branch",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(false, func(ctx context.Context, a *app, args []string) error {
			var msg string
			if len(args) > 0 {
				msg = args[0]
			}
			return a.cli.RunCommit(ctx, msg)
		}),
	}

	branchCmd := &cobra.Command{
		Use:   "branch [title] [commit]",
		Short: "List branches, or create a branch from a commit and switch to it",
		Args:  cobra.MaximumNArgs(2),
		RunE: run(false, func(ctx context.Context, a *app, args []string) error {
			switch len(args) {
			case 0:
				return a.cli.RunBranches(ctx)
			case 1:
				return a.cli.RunBranch(ctx, args[0], "")
			default:
				return a.cli.RunBranch(ctx, args[0], args[1])
			}
		}),
	}

	mergeCmd := &cobra.Command{
		Use:   "merge <from> [to]",
		Short: "Merge a branch into the active (or given) branch",
		Args:  cobra.RangeArgs(1, 2),
		RunE: run(false, func(ctx context.Context, a *app, args []string) error {
			to := ""
			if len(args) > 1 {
				to = args[1]
			}
			return a.cli.RunMerge(ctx, args[0], to)
		}),
	}

	checkoutCmd := &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Switch branch or view a historical commit",
		Args:  cobra.ExactArgs(1),
		RunE: run(false, func(ctx context.Context, a *app, args []string) error {
			return a.cli.RunCheckout(ctx, args[0])
		}),
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Show the document of the active branch",
		Args:  cobra.NoArgs,
		RunE: run(false, func(ctx context.Context, a *app, _ []string) error {
			return a.cli.RunView(ctx)
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the active branch",
		Args:  cobra.ExactArgs(2),
		RunE: run(false, func(ctx context.Context, a *app, args []string) error {
			return a.cli.RunSet(ctx, args[0], args[1], message)
		}),
	}
	setCmd.Flags().StringVarP(&message, "message", "m", "", "Change message")

	incrCmd := &cobra.Command{
		Use:   "incr <key> [delta]",
		Short: "Increment a counter in the active branch",
		Args:  cobra.RangeArgs(1, 2),
		RunE: run(false, func(ctx context.Context, a *app, args []string) error {
			delta := int64(1)
			if len(args) > 1 {
				d, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid delta %q: %w", args[1], err)
				}
				delta = d
			}
			return a.cli.RunIncr(ctx, args[0], delta, message)
		}),
	}
	incrCmd.Flags().StringVarP(&message, "message", "m", "", "Change message")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize every branch with the server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return run(true, func(ctx context.Context, a *app, _ []string) error {
				return a.cli.RunSync(ctx, a.adapter, a.store, cli.SyncOptions{
					JoinRetryDelay: cli.DefaultJoinRetryDelay,
					JoinRetries:    cli.DefaultJoinRetries,
				})
			})(cmd, args)
		},
	}
	syncFlags := syncCmd.Flags()
	syncFlags.String("peer-id", "", "Peer id, random when empty")
	syncFlags.Duration("reconnect-delay", 3*time.Second, "Delay before reconnecting after a transport failure")
	syncFlags.Duration("poll-interval", 5*time.Second, "Server poll interval")
	syncFlags.Duration("save-debounce", 100*time.Millisecond, "Delay before saving and pushing changes")

	root.AddCommand(logCmd, commitCmd, branchCmd, mergeCmd, checkoutCmd, viewCmd, setCmd, incrCmd, syncCmd)
	return root
}
