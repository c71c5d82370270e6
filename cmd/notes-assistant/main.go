package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-notes/internal/api"
	"github.com/Keyring-Network/keyring-notes/internal/app"
	"github.com/Keyring-Network/keyring-notes/internal/config"
	"github.com/Keyring-Network/keyring-notes/internal/logging"
	"github.com/Keyring-Network/keyring-notes/internal/store/postgres"
	"github.com/Keyring-Network/keyring-notes/internal/workflows"
)

var Version = "dev"

type server interface {
	Start(ctx context.Context, addr string) error
}

var (
	loadConfig = func() (config.Config, error) {
		return config.Load(), nil
	}
	newLogger          = logging.New
	newRuntime         = app.New
	dialTemporal       = client.Dial
	newWorkflowService = workflows.NewService
	newServer          = func(rt *app.Runtime, planner api.Planner) server {
		return api.NewServer(rt.Store, rt.Broker, rt.Assistant, planner, rt.Config, rt.Logger)
	}
	openDB          = postgres.Open
	applyMigrations = postgres.ApplyMigrations
	notifyContext   = signal.NotifyContext
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "notes-assistant",
		Short:         "Personal knowledge and planning assistant",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(askCmd())
	root.AddCommand(planCmd())
	return root
}

// session is the wiring every subcommand that runs turns needs.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	runtime *app.Runtime
	planner api.Planner
	cleanup []func()
}

func (s *session) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logger: logger}
	s.cleanup = append(s.cleanup, func() { _ = logger.Sync() })

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.runtime = rt
	s.cleanup = append(s.cleanup, func() { _ = rt.Close() })

	planner, err := s.selectPlanner()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.planner = planner
	return s, nil
}

// selectPlanner runs planning turns in-process unless PLANNING_MODE=temporal.
func (s *session) selectPlanner() (api.Planner, error) {
	if !strings.EqualFold(s.cfg.PlanningMode, "temporal") {
		return s.runtime.Assistant, nil
	}
	temporalClient, err := dialTemporal(client.Options{HostPort: s.cfg.TemporalAddress})
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}
	if temporalClient != nil {
		s.cleanup = append(s.cleanup, temporalClient.Close)
	}
	s.logger.Info("planning turns run through temporal",
		zap.String("address", s.cfg.TemporalAddress),
		zap.String("task_queue", s.cfg.TemporalTaskQueue),
	)
	return newWorkflowService(temporalClient, s.cfg.TemporalTaskQueue), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			srv := newServer(s.runtime, s.planner)
			addr := fmt.Sprintf(":%s", s.cfg.Port)
			s.logger.Info("notes assistant listening", zap.String("addr", addr))
			if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg.PostgresURL)
			if err != nil {
				return err
			}
			defer closeDB(db)
			if err := applyMigrations(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}
