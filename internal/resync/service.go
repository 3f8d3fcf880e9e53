// Package resync periodically re-reconciles every enabled announcement so
// externally deleted messages get resent without waiting for the next manual
// update.
package resync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "annobot/pkg/logx"
)

type Config struct {
	Enabled bool
	Spec    string        // cron spec (5-field) or "@every 15m"
	Timeout time.Duration // per sweep; 0 means no timeout
}

// Service schedules sweeps. The actual work is the injected run function
// (announce.Service.Resync).
type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	run func(ctx context.Context) error

	parser  cron.Parser
	c       *cron.Cron
	baseCtx context.Context

	// running prevents overlapping sweeps when one takes longer than the
	// schedule interval.
	running sync.Mutex
}

func New(cfg Config, run func(ctx context.Context) error, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		run:    run,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.baseCtx = ctx
	return s.startLocked()
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Apply restarts the schedule when the config changed. Safe to call from the
// config watcher at any time.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == s.cfg {
		return
	}
	wasRunning := s.c != nil
	s.stopLocked()
	s.cfg = cfg
	if wasRunning || s.baseCtx != nil {
		if err := s.startLocked(); err != nil {
			s.log.Warn("resync schedule rejected", logx.String("spec", cfg.Spec), logx.Err(err))
		}
	}
}

func (s *Service) startLocked() error {
	if !s.cfg.Enabled {
		return nil
	}
	spec := strings.TrimSpace(s.cfg.Spec)
	if spec == "" {
		return errors.New("resync spec is empty")
	}
	c := cron.New(cron.WithParser(s.parser))
	if _, err := c.AddFunc(spec, s.sweep); err != nil {
		return err
	}
	s.c = c
	c.Start()
	s.log.Info("resync started", logx.String("spec", spec))
	return nil
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.log.Info("resync stopped")
}

func (s *Service) sweep() {
	if !s.running.TryLock() {
		s.log.Debug("resync sweep skipped, previous sweep still running")
		return
	}
	defer s.running.Unlock()

	s.mu.Lock()
	ctx := s.baseCtx
	timeout := s.cfg.Timeout
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.run(ctx); err != nil {
		s.log.Warn("resync sweep failed", logx.Duration("dur", time.Since(start)), logx.Err(err))
		return
	}
	s.log.Info("resync sweep done", logx.Duration("dur", time.Since(start)))
}
