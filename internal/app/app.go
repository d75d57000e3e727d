package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"smoothie-orders/internal/config"
	"smoothie-orders/internal/database"
	"smoothie-orders/internal/form"
	"smoothie-orders/internal/fruit"
	"smoothie-orders/internal/metrics"
	"smoothie-orders/internal/nutrition"
	"smoothie-orders/internal/order"
	"smoothie-orders/internal/session"
	"smoothie-orders/internal/storage"

	"go.uber.org/zap"
)

// App holds the application's dependencies.
type App struct {
	db           *database.DB
	fruits       *fruit.Repository
	orders       *order.Repository
	sessions     *session.Repository
	metricsStore *metrics.Store
	recorder     *metrics.Recorder
	lookups      nutrition.Client
	policy       fruit.Policy
	form         *form.Service
	cfg          *config.Config
	logger       *zap.Logger
	out          io.Writer
}

// New opens the database and wires the repositories, nutrition client and form service.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a, err := newApp(cfg, db, nutrition.NewClient(cfg), logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func newApp(cfg *config.Config, db *database.DB, lookups nutrition.Client, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy, err := fruit.ParsePolicy(cfg.LookupPolicy)
	if err != nil {
		return nil, err
	}

	fruitRepo := fruit.NewRepository(db.SQL)
	orderRepo := order.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)
	recorder := metrics.NewRecorder(metricsStore, logger)

	return &App{
		db:           db,
		fruits:       fruitRepo,
		orders:       orderRepo,
		sessions:     session.NewRepository(db.SQL, cfg.SessionTTL),
		metricsStore: metricsStore,
		recorder:     recorder,
		lookups:      lookups,
		policy:       policy,
		form:         form.NewService(fruitRepo, orderRepo, lookups, policy, recorder, cfg.ShowSQL, logger),
		cfg:          cfg,
		logger:       logger,
		out:          os.Stdout,
	}, nil
}

// Close closes the database connection.
func (a *App) Close() error {
	return a.db.Close()
}

// SetOutput redirects command output, which defaults to stdout.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

func (a *App) Form() *form.Service           { return a.form }
func (a *App) Sessions() *session.Repository { return a.sessions }
func (a *App) MetricsStore() *metrics.Store  { return a.metricsStore }
func (a *App) Config() *config.Config        { return a.cfg }
func (a *App) Logger() *zap.Logger           { return a.logger }

// SeedCatalogue upserts the fruit options listed in a YAML catalogue file.
func (a *App) SeedCatalogue(ctx context.Context, path string) (int, error) {
	options, err := storage.LoadCatalogue(path)
	if err != nil {
		return 0, err
	}
	n, err := a.fruits.Upsert(ctx, options)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(a.out, "Seeded %d fruit options from %s.\n", n, path)
	return n, nil
}

// ExportCatalogue writes the current fruit options to a YAML catalogue file.
func (a *App) ExportCatalogue(ctx context.Context, path string) error {
	options, err := a.fruits.List(ctx)
	if err != nil {
		return err
	}
	if err := storage.SaveCatalogue(path, options); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d fruit options to %s.\n", len(options), path)
	return nil
}

// LookupFruits prints nutrition facts for each named fruit. A failed lookup prints a
// warning and the remaining fruits are still looked up.
func (a *App) LookupFruits(ctx context.Context, names []string) error {
	options, err := a.fruits.List(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]fruit.Option, len(options))
	for _, opt := range options {
		byName[strings.ToLower(opt.Name)] = opt
	}

	failures := 0
	for _, name := range names {
		opt, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			opt = fruit.Option{Name: strings.TrimSpace(name)}
		}
		key := a.policy.Key(opt)

		start := time.Now()
		facts, err := a.lookups.Lookup(ctx, key)
		latency := time.Since(start)
		if err != nil {
			failures++
			outcome := form.OutcomeError
			switch {
			case errors.Is(err, nutrition.ErrNotFound):
				outcome = form.OutcomeNotFound
			case errors.Is(err, nutrition.ErrUnexpectedShape):
				outcome = form.OutcomeBadShape
			}
			a.recorder.RecordLookup(opt.Name, key, outcome, latency)
			fmt.Fprintf(a.out, "WARNING: no nutrition information for %s (%s): %v\n\n", opt.Name, key, err)
			continue
		}
		a.recorder.RecordLookup(opt.Name, key, form.OutcomeOK, latency)

		fmt.Fprintf(a.out, "=== %s (%s) ===\n", opt.Name, key)
		width := 0
		for _, row := range facts.Rows {
			if len(row.Field) > width {
				width = len(row.Field)
			}
		}
		for _, row := range facts.Rows {
			fmt.Fprintf(a.out, "%-*s  %s\n", width, row.Field, row.Value)
		}
		fmt.Fprintln(a.out)
	}

	if failures > 0 && failures == len(names) {
		return fmt.Errorf("no nutrition information found for %d fruit(s)", failures)
	}
	return nil
}

// PreviewOrder prints the insert statement an order would perform without running it.
func (a *App) PreviewOrder(name string, ingredients []string) error {
	req := order.Request{Name: name, Ingredients: ingredients}
	if err := req.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, order.PreviewStatement(req))
	return nil
}

// Diagnostics prints database session details, the option count and process health.
func (a *App) Diagnostics(ctx context.Context) error {
	diag, err := a.db.Diagnostics(ctx)
	if err != nil {
		return err
	}
	options, err := a.fruits.List(ctx)
	if err != nil {
		return err
	}
	health := metrics.GetSysHealth(a.dataPath())

	fmt.Fprintf(a.out, "Driver:        %s\n", diag.Driver)
	fmt.Fprintf(a.out, "Server:        %s\n", diag.Version)
	fmt.Fprintf(a.out, "Database:      %s\n", diag.Database)
	fmt.Fprintf(a.out, "Fruit options: %d\n", len(options))
	fmt.Fprintf(a.out, "Nutrition API: %s (policy %s)\n", a.cfg.NutritionAPIURL, a.policy)
	fmt.Fprintf(a.out, "Memory:        %dMB alloc / %dMB sys, %d goroutines\n", health.AllocMB, health.SysMB, health.Goroutines)
	fmt.Fprintf(a.out, "Disk data:     %s\n", health.DataSize)
	return nil
}

// CleanupMetrics removes lookup metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	affected, err := a.metricsStore.Cleanup(ctx, days)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(a.out, "Successfully removed %d old metric records.\n", affected)
	return affected, nil
}

func (a *App) dataPath() string {
	if a.cfg.DatabaseDriver == database.DriverSQLite {
		return a.cfg.DatabaseURL
	}
	return "data"
}
