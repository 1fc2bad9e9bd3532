package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	coreconfig "github.com/m3rciful/kilobot/core/config"
	coredatabase "github.com/m3rciful/kilobot/core/database"
	"github.com/m3rciful/kilobot/core/logger"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/state"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
	// Registry receives the bot collectors. Nil creates a fresh one.
	Registry *prometheus.Registry
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when the database is disabled.
	DB *sqlx.DB
	// FSM tracks conversation state in memory.
	FSM state.Manager
	// Store persists sessions: postgres when enabled, FSM otherwise.
	Store   state.Store
	Metrics *metrics.Collector
}

// Close releases the database connection if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and metrics, then connects to the database and
// applies migrations when the database is enabled.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	promReg := opts.Registry
	if promReg == nil {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	collector := metrics.NewWithRegistry(promReg)
	metrics.Set(collector)

	fsm := state.NewMemoryManager()
	res := &Result{FSM: fsm, Store: fsm, Metrics: collector}

	dbCfg := opts.Config.Database
	if !dbCfg.Enabled {
		logger.Info(context.Background(), "db", "db.disabled", slog.String("status", "skip"))
		return res, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(dbCfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	res.DB = db
	res.Store = state.NewPostgresStore(db)
	return res, nil
}
