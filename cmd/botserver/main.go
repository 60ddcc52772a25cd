// Command botserver boots the headless automation server: it loads
// configuration, connects the Postgres-backed tile cache, and serves the
// HTTP control surface until signalled to stop. Grounded on the
// teacher's cmd/l1jgo/main.go ordered boot stages (config → logger →
// database → migrations → game loop → signal-driven shutdown), trimmed
// to this system's actual dependencies.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/elsid/hafen-botserver/internal/config"
	"github.com/elsid/hafen-botserver/internal/control"
	"github.com/elsid/hafen-botserver/internal/mapdb"
	"github.com/elsid/hafen-botserver/internal/session"
	"github.com/elsid/hafen-botserver/internal/tasks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("BOTSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting", zap.String("server", cfg.Server.Name))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mapdb.NewDB(ctx, cfg.MapDb, log)
	if err != nil {
		return fmt.Errorf("mapdb connect: %w", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = mapdb.RunMigrations(migrateCtx, db.Pool)
	cancel()
	if err != nil {
		return fmt.Errorf("mapdb migrations: %w", err)
	}
	log.Info("mapdb ready")

	store, err := mapdb.NewStore(db, cfg.MapDb.RetryAttempts, cfg.MapDb.RetryBaseDelay, log)
	if err != nil {
		return fmt.Errorf("mapdb store: %w", err)
	}

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		return fmt.Errorf("build task registry: %w", err)
	}

	manager := session.NewManager(store, registry, log)
	controlServer := control.NewServer(control.Config{
		BindAddress:  cfg.Control.BindAddress,
		ReadTimeout:  cfg.Control.ReadTimeout,
		WriteTimeout: cfg.Control.WriteTimeout,
		APIKeyHash:   cfg.Control.APIKeyHash,
	}, manager, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("control surface listening", zap.String("addr", cfg.Control.BindAddress))
		return controlServer.Serve(groupCtx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info("stopped")
	return nil
}

// buildRegistry wraps session.DefaultRegistry with config-sourced
// defaults for the config-bearing tasks (Drinker reads its tuning table
// once at startup rather than per add-task call, since operators rarely
// need distinct Drinker tuning per session). An operator-supplied
// AddTask params payload still overrides the on-disk default.
func buildRegistry(cfg *config.Config, log *zap.Logger) (session.Registry, error) {
	registry := session.DefaultRegistry()

	if cfg.Tasks.DrinkerPath == "" {
		return registry, nil
	}
	if _, err := os.Stat(cfg.Tasks.DrinkerPath); err != nil {
		log.Debug("no drinker config found, using operator-supplied params", zap.String("path", cfg.Tasks.DrinkerPath))
		return registry, nil
	}
	drinkerDefault, err := config.LoadDrinker(cfg.Tasks.DrinkerPath)
	if err != nil {
		return nil, fmt.Errorf("load drinker config: %w", err)
	}
	defaultParams, err := json.Marshal(drinkerDefault)
	if err != nil {
		return nil, fmt.Errorf("marshal drinker defaults: %w", err)
	}
	base := registry["Drinker"]
	registry["Drinker"] = func(params json.RawMessage, deps session.Deps) (tasks.Task, error) {
		if len(params) == 0 {
			params = defaultParams
		}
		return base(params, deps)
	}

	return registry, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
