// Command sparkify loads the song_data and log_data JSON trees into the
// songs, artists, users, time and songplays tables.
//
// main stays tiny: it loads .env, installs a signal context and runs the
// cobra root. Every side effect (DB open, logger, metrics push) is injected
// through Deps so run() is testable without a real server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparkify/internal/config"
	"sparkify/internal/logging"
	"sparkify/internal/metrics"
	"sparkify/internal/metrics/prompush"
	"sparkify/internal/pipeline"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
	"sparkify/internal/storage/mssql"
	"sparkify/internal/storage/mysql"
	"sparkify/internal/storage/postgres"
	"sparkify/internal/storage/sqlite"
)

// Deps holds the boundaries run() crosses. Tests pass fakes here;
// defaultDeps wires the real ones.
type Deps struct {
	OpenDB    func(ctx context.Context, driver, dsn string) (storage.DB, error)
	NewLogger func(cfg logging.Config) (*zap.Logger, error)
	// NewPusher builds the Pushgateway backend when a URL is configured.
	NewPusher func(job, url string) (metrics.Backend, error)
	Stdout    io.Writer
}

func defaultDeps() Deps {
	return Deps{
		OpenDB:    openDB,
		NewLogger: logging.New,
		NewPusher: func(job, url string) (metrics.Backend, error) {
			return prompush.NewBackend(job, url)
		},
		Stdout: os.Stdout,
	}
}

func openDB(ctx context.Context, driver, dsn string) (storage.DB, error) {
	switch driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverMSSQL:
		db, err := mssql.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverMySQL:
		db, err := mysql.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

func dialectFor(driver string) (storage.Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return postgres.Dialect, nil
	case config.DriverMSSQL:
		return mssql.Dialect, nil
	case config.DriverMySQL:
		return mysql.Dialect, nil
	case config.DriverSQLite:
		return sqlite.Dialect, nil
	default:
		return storage.Dialect{}, fmt.Errorf("unsupported db driver %q", driver)
	}
}

func newRootCmd(deps Deps, getenv func(string) string) *cobra.Command {
	root := &cobra.Command{
		Use:           "sparkify",
		Short:         "Load song metadata and listening logs into the sparkify star schema",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfg := config.Register(root.PersistentFlags(), getenv)

	root.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), cfg, deps)
	}

	root.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Drop the five tables and create them again, empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reset(cmd.Context(), cfg, deps)
		},
	})

	var withDrop bool
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the DDL for the selected --db-driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printSchema(deps.Stdout, cfg.DBDriver, withDrop)
		},
	}
	schemaCmd.Flags().BoolVar(&withDrop, "drop", false, "Emit DROP TABLE statements first")
	root.AddCommand(schemaCmd)

	return root
}

// setup validates cfg and builds the logger. Warnings are logged, errors
// returned.
func setup(cfg *config.Config, deps Deps) (*zap.Logger, error) {
	issues := cfg.Validate()
	if err := config.Err(issues); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := deps.NewLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	for _, iss := range issues {
		log.Warn("configuration", zap.String("flag", iss.Path), zap.String("issue", iss.Message))
	}
	return log, nil
}

func connect(ctx context.Context, cfg *config.Config, deps Deps, log *zap.Logger) (storage.DB, error) {
	dsn, err := cfg.ResolveDSN()
	if err != nil {
		return nil, err
	}
	db, err := deps.OpenDB(ctx, cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	log.Info("connected", zap.String("driver", cfg.DBDriver), zap.String("db", cfg.DBName))
	return db, nil
}

// run executes the ETL: both phases, then the summary and the metrics push.
func run(ctx context.Context, cfg *config.Config, deps Deps) error {
	log, err := setup(cfg, deps)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	summary := metrics.NewSummary()
	backends := []metrics.Backend{summary}
	if cfg.PushgatewayURL != "" {
		pusher, err := deps.NewPusher(pipeline.Job, cfg.PushgatewayURL)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		backends = append(backends, pusher)
	}
	metrics.SetBackend(metrics.Tee(backends...))
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics push failed", zap.Error(err))
		}
	}()

	db, err := connect(ctx, cfg, deps, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(context.Background()) }()

	if cfg.CreateTables {
		if err := storage.EnsureSchema(ctx, db); err != nil {
			return err
		}
	}

	start := time.Now()
	d := pipeline.New(db, log, cfg.SongDataDir, cfg.LogDataDir, cfg.FilePattern)
	st, err := d.Run(ctx)
	log.Info("summary", append([]zap.Field{st.Field(), zap.Duration("elapsed", time.Since(start))}, summary.Fields()...)...)
	if err != nil {
		return err
	}
	if st.FailedLoads > 0 {
		log.Warn("some bulk loads were rolled back", zap.Int("failed_loads", st.FailedLoads))
	}
	return nil
}

func reset(ctx context.Context, cfg *config.Config, deps Deps) error {
	log, err := setup(cfg, deps)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := connect(ctx, cfg, deps, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(context.Background()) }()

	if err := storage.ResetSchema(ctx, db); err != nil {
		return err
	}
	log.Info("tables reset", zap.Strings("tables", schema.DropOrder()))
	return nil
}

func printSchema(w io.Writer, driver string, withDrop bool) error {
	d, err := dialectFor(driver)
	if err != nil {
		return err
	}
	if withDrop {
		for _, s := range schema.DropStatements(d.DDL) {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
	}
	stmts, err := schema.CreateStatements(d.DDL)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := fmt.Fprintf(w, "%s\n\n", s); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultDeps(), os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "sparkify:", err)
		stop()
		os.Exit(1)
	}
}
