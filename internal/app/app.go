package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"annobot/internal/announce"
	"annobot/internal/config"
	"annobot/internal/resync"
	"annobot/internal/storage"
	telegram "annobot/internal/transport/telegram"
	logx "annobot/pkg/logx"
)

// App wires the announcement service together: config manager, logging,
// sqlite store, telegram gateway, and the resync sweep.
type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store *storage.SQLite
	gw    *telegram.Gateway
	svc   *announce.Service
	sweep *resync.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logs, log := logx.New(loggingConfig(cfg.Logging))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busy, err := parseDurationOr("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(
		storage.Config{Path: cfg.Storage.Path, BusyTimeout: busy},
		log.With(logx.String("comp", "storage")),
	)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	callTimeout, err := parseDurationOr("telegram.call_timeout", cfg.Telegram.CallTimeout, 10*time.Second)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	gw, err := telegram.New(
		telegram.Config{Token: cfg.Telegram.Token, RatePerSec: cfg.Telegram.RatePerSec, Timeout: callTimeout},
		log.With(logx.String("comp", "telegram")),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("telegram gateway: %w", err)
	}

	svc := announce.NewService(store, gw, log.With(logx.String("comp", "announce")))

	rcfg, err := resyncConfig(cfg.Resync)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sweep := resync.New(rcfg, svc.Resync, log.With(logx.String("comp", "resync")))

	return &App{
		cfgm:  cfgm,
		logs:  logs,
		log:   log,
		store: store,
		gw:    gw,
		svc:   svc,
		sweep: sweep,
	}, nil
}

// Announcer exposes the announcement operations to the host surface.
func (a *App) Announcer() *announce.Service { return a.svc }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.sweep.Start(runCtx); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	sub := a.cfgm.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg := <-sub:
				if cfg == nil {
					continue
				}
				a.applyConfig(cfg)
			}
		}
	}()

	a.log.Info("announcer started")
	return nil
}

// applyConfig hot-reloads the parts that can change at runtime. Token and
// storage path changes need a restart.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(loggingConfig(cfg.Logging))
	rcfg, err := resyncConfig(cfg.Resync)
	if err != nil {
		a.log.Warn("resync config rejected", logx.Err(err))
		return
	}
	a.sweep.Apply(rcfg)
	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.sweep.Stop()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	_ = a.store.Close()
	_ = a.logs.Close()
	return nil
}

func loggingConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
	}
}

func resyncConfig(c config.ResyncConfig) (resync.Config, error) {
	timeout, err := parseDurationOr("resync.timeout", c.Timeout, 2*time.Minute)
	if err != nil {
		return resync.Config{}, err
	}
	spec := c.Spec
	if spec == "" {
		spec = "@every 30m"
	}
	return resync.Config{Enabled: c.Enabled, Spec: spec, Timeout: timeout}, nil
}

func parseDurationOr(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}
