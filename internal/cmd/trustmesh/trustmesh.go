// Package trustmesh parses daemon configuration and runs the trust engine:
// replay the log into a fresh store, then follow every topic while serving
// gRPC health.
package trustmesh

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	entrypoint "github.com/louisbranch/trustmesh/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/trustmesh/internal/platform/grpc"
	"github.com/louisbranch/trustmesh/internal/platform/logging"
	"github.com/louisbranch/trustmesh/internal/platform/otel"
	"github.com/louisbranch/trustmesh/internal/trustmesh/engine"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog"
	sqlitelog "github.com/louisbranch/trustmesh/internal/trustmesh/eventlog/sqlite"
	"github.com/louisbranch/trustmesh/internal/trustmesh/service"
)

// HealthService is the health-check name reported once replay completes.
const HealthService = "trustmesh.engine"

// Config holds daemon configuration. Variables carry the TRUSTMESH_ prefix.
type Config struct {
	DBPath            string        `env:"DB_PATH" envDefault:"data/trustmesh.db"`
	MemoryLog         bool          `env:"MEMORY_LOG"`
	Lanes             int           `env:"LANES" envDefault:"4"`
	HealthAddr        string        `env:"HEALTH_ADDR" envDefault:"127.0.0.1:8090"`
	PollDuration      time.Duration `env:"POLL_DURATION" envDefault:"168h"`
	MinimumTrustScore float64       `env:"POLL_MIN_TRUST" envDefault:"50"`
	Log               logging.Config
	OTel              otel.Config
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite event log path")
	fs.BoolVar(&cfg.MemoryLog, "memory", cfg.MemoryLog, "Use an in-memory event log")
	fs.IntVar(&cfg.Lanes, "lanes", cfg.Lanes, "Worker lanes applying events")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Log.Dev, "log-dev", cfg.Log.Dev, "Human-readable console logs")
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args, bindFlags); err != nil {
		return Config{}, err
	}
	if cfg.Lanes <= 0 {
		return Config{}, fmt.Errorf("lanes must be positive, got %d", cfg.Lanes)
	}
	if strings.TrimSpace(cfg.HealthAddr) == "" {
		return Config{}, errors.New("health address is required")
	}
	if !cfg.MemoryLog && strings.TrimSpace(cfg.DBPath) == "" {
		return Config{}, errors.New("db path is required unless the memory log is used")
	}
	return cfg, nil
}

// Run starts the daemon and blocks until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.Log, entrypoint.ServiceTrustmesh)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTrustmesh, cfg.OTel, logger, func(ctx context.Context) error {
		return run(ctx, cfg, logger, nil)
	})
}

type eventLog interface {
	eventlog.Log
	eventlog.Reader
	Close() error
}

func openLog(ctx context.Context, cfg Config) (eventLog, error) {
	if cfg.MemoryLog {
		return eventlog.NewMemory(), nil
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return sqlitelog.Open(ctx, cfg.DBPath)
}

// run wires the daemon. ready, when set, is called with the health address
// and service once the engine is serving.
func run(ctx context.Context, cfg Config, logger *zap.Logger, ready func(addr string, svc *service.Service)) error {
	logger = logging.OrNop(logger)
	log, err := openLog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer func() {
		if err := log.Close(); err != nil {
			logger.Warn("close event log", zap.Error(err))
		}
	}()

	health, err := platformgrpc.ListenHealth(cfg.HealthAddr, logger, HealthService)
	if err != nil {
		return err
	}

	store := engine.NewStore(engine.WithLogger(logger))
	svc, err := service.New(log, store,
		service.WithLogger(logger),
		service.WithConfig(service.Config{PollDuration: cfg.PollDuration, MinimumTrustScore: cfg.MinimumTrustScore}),
	)
	if err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return health.Serve(gctx)
	})
	group.Go(func() error {
		res, err := engine.Replay(gctx, log, store, engine.ReplayOptions{Lanes: cfg.Lanes, Logger: logger})
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		health.SetServing(HealthService, true)
		health.SetServing("", true)
		if ready != nil {
			ready(health.Addr(), svc)
		}

		dispatcher := engine.NewDispatcher(gctx, store, cfg.Lanes, engine.WithDispatcherLogger(logger))
		consumer := &engine.Consumer{Store: store, Dispatcher: dispatcher, Logger: logger}
		consumeErr := consumer.ConsumeAll(gctx, log, res.LastSeq, event.Topics())
		dispatcher.Close()
		if err := dispatcher.Wait(); err != nil && consumeErr == nil {
			consumeErr = err
		}
		return consumeErr
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	view := store.Snapshot()
	logger.Info("engine stopped",
		zap.Uint64("version", view.Version()),
		zap.Int("parked", len(store.Parked())),
		zap.Int("rejected", len(store.Rejections())),
	)
	return err
}
