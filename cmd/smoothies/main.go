package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smoothie-orders/internal/app"
	"smoothie-orders/internal/config"
	"smoothie-orders/internal/database"
	"smoothie-orders/internal/logging"
	"smoothie-orders/internal/session"
	"smoothie-orders/internal/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose bool
	envFile string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "smoothies",
	Short:         "Smoothie order form and catalogue tools",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.NewFromEnv()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Println("Migrations applied.")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <catalogue.yaml>",
	Short: "Insert or update fruit options from a YAML catalogue",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		_, err := a.SeedCatalogue(ctx, args[0])
		return err
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export <catalogue.yaml>",
	Short: "Write the fruit options to a YAML catalogue",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		return a.ExportCatalogue(ctx, args[0])
	}),
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <fruit>...",
	Short: "Print nutrition information for fruits",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		return a.LookupFruits(ctx, args)
	}),
}

var previewName string

var previewCmd = &cobra.Command{
	Use:   "preview --name NAME <fruit>...",
	Short: "Show the insert statement for an order without placing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		return a.PreviewOrder(previewName, args)
	}),
}

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Show database and process diagnostics",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		return a.Diagnostics(ctx)
	}),
}

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old lookup metrics",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		_, err := a.CleanupMetrics(ctx, cleanupDays)
		return err
	}),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the order form over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Secrets file loaded before reading the environment")

	previewCmd.Flags().StringVar(&previewName, "name", "", "Name on the order")
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Keep records for the last N days")

	rootCmd.AddCommand(migrateCmd, seedCmd, exportCmd, lookupCmd, previewCmd, diagCmd, cleanupCmd, serveCmd)
}

// withApp opens the application for the duration of one command.
func withApp(run func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd.Context(), a, args)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateWeb(); err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs, err := a.StartMaintenance(ctx)
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	defer jobs.Stop()

	server := web.NewServer(a.Form(), a.Sessions(), session.NewSigner(cfg.SessionSecret, cfg.SessionTTL), logger)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("order form listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
