package announce

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	kit "annobot/internal/transport"
	logx "annobot/pkg/logx"
)

// Service exposes the public announcement operations. Each mutation is one
// reconciliation pass; passes on the same config are serialized by a
// per-config lock, passes on different configs run freely in parallel.
type Service struct {
	store Store
	rec   *Reconciler
	log   logx.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, gw kit.Gateway, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		store: store,
		rec:   NewReconciler(gw, log),
		log:   log,
		locks: map[string]*sync.Mutex{},
	}
}

// lockConfig serializes passes per config id. Without it, two concurrent
// Updates race between the gateway fan-out and the target replace, and the
// slower pass could persist ids the faster one already retired.
func (s *Service) lockConfig(id string) func() {
	s.mu.Lock()
	m := s.locks[id]
	if m == nil {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Create persists a new announcement and, when enabled, delivers it to every
// listed channel.
func (s *Service) Create(ctx context.Context, scopeID int64, in Input) (*OpResult, error) {
	if scopeID == 0 {
		return nil, &ValidationError{Field: "scope_id", Reason: "must be non-zero"}
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cfg := &Config{
		ID:        uuid.NewString(),
		ScopeID:   scopeID,
		CreatedBy: strings.TrimSpace(in.CreatedBy),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(cfg, in)

	if err := s.store.CreateConfig(ctx, cfg); err != nil {
		return nil, persistErr("create config", err)
	}

	desired := newTargets(cfg.ID, scopeID, in.Channels)
	if !cfg.Enabled || len(desired) == 0 {
		if err := s.store.ReplaceTargets(ctx, cfg.ID, desired); err != nil {
			return nil, persistErr("replace targets", err)
		}
		return &OpResult{Success: true, ID: cfg.ID, Message: "announcement created"}, nil
	}

	res := s.rec.Publish(ctx, desired, Render(cfg))
	return s.persistPass(ctx, cfg, res, "announcement created")
}

// Update replaces the announcement's fields and desired channel set, carrying
// forward the recorded message id of every channel that stays, so content
// changes edit in place instead of resending.
func (s *Service) Update(ctx context.Context, id string, scopeID int64, in Input) (*OpResult, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	unlock := s.lockConfig(id)
	defer unlock()

	cfg, err := s.store.GetConfig(ctx, id, scopeID)
	if err != nil {
		return nil, persistErr("get config", err)
	}
	if cfg == nil {
		return nil, ErrNotFound
	}

	applyInput(cfg, in)
	cfg.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateConfig(ctx, cfg); err != nil {
		return nil, persistErr("update config", err)
	}

	prior, err := s.store.ListTargets(ctx, id)
	if err != nil {
		return nil, persistErr("list targets", err)
	}

	if !cfg.Enabled {
		return s.disablePass(ctx, cfg, prior, in.Channels, "announcement updated")
	}

	prevIDs := make(map[int64]*int, len(prior))
	for _, t := range prior {
		prevIDs[t.ChannelID] = t.MessageID
	}

	desired := make([]Target, 0, len(in.Channels))
	keep := make(map[int64]bool, len(in.Channels))
	for _, ch := range in.Channels {
		keep[ch] = true
		desired = append(desired, Target{ConfigID: id, ScopeID: scopeID, ChannelID: ch, MessageID: prevIDs[ch]})
	}

	var removed []Target
	for _, t := range prior {
		if !keep[t.ChannelID] {
			removed = append(removed, t)
		}
	}
	s.rec.Retire(ctx, removed)

	res := s.rec.Publish(ctx, desired, Render(cfg))
	return s.persistPass(ctx, cfg, res, "announcement updated")
}

// Delete retires every live message best-effort, then removes the config row;
// the target rows cascade with it.
func (s *Service) Delete(ctx context.Context, id string, scopeID int64) error {
	unlock := s.lockConfig(id)
	defer unlock()

	cfg, err := s.store.GetConfig(ctx, id, scopeID)
	if err != nil {
		return persistErr("get config", err)
	}
	if cfg == nil {
		return ErrNotFound
	}

	targets, err := s.store.ListTargets(ctx, id)
	if err != nil {
		return persistErr("list targets", err)
	}
	s.rec.Retire(ctx, targets)

	if err := s.store.DeleteConfig(ctx, id, scopeID); err != nil {
		return persistErr("delete config", err)
	}
	return nil
}

// SetEnabled toggles delivery. Turning off retires every message and clears
// the recorded ids; turning back on sends fresh to every configured channel.
// Ids are never reused across a disable/enable cycle.
func (s *Service) SetEnabled(ctx context.Context, id string, scopeID int64, enabled bool) (*OpResult, error) {
	unlock := s.lockConfig(id)
	defer unlock()

	cfg, err := s.store.GetConfig(ctx, id, scopeID)
	if err != nil {
		return nil, persistErr("get config", err)
	}
	if cfg == nil {
		return nil, ErrNotFound
	}

	targets, err := s.store.ListTargets(ctx, id)
	if err != nil {
		return nil, persistErr("list targets", err)
	}

	cfg.Enabled = enabled
	cfg.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateConfig(ctx, cfg); err != nil {
		return nil, persistErr("update config", err)
	}

	if !enabled {
		return s.disablePass(ctx, cfg, targets, channelIDs(targets), "announcement disabled")
	}

	res := s.rec.Publish(ctx, targets, Render(cfg))
	return s.persistPass(ctx, cfg, res, "announcement enabled")
}

// Get returns the announcement and its target set.
func (s *Service) Get(ctx context.Context, id string, scopeID int64) (*Config, []Target, error) {
	cfg, err := s.store.GetConfig(ctx, id, scopeID)
	if err != nil {
		return nil, nil, persistErr("get config", err)
	}
	if cfg == nil {
		return nil, nil, ErrNotFound
	}
	targets, err := s.store.ListTargets(ctx, id)
	if err != nil {
		return nil, nil, persistErr("list targets", err)
	}
	return cfg, targets, nil
}

// List returns every announcement of a scope.
func (s *Service) List(ctx context.Context, scopeID int64) ([]*Config, error) {
	configs, err := s.store.ListConfigs(ctx, scopeID)
	if err != nil {
		return nil, persistErr("list configs", err)
	}
	return configs, nil
}

// Resync re-runs a pass for every enabled announcement with its stored
// desired set unchanged, healing messages that were deleted externally.
func (s *Service) Resync(ctx context.Context) error {
	configs, err := s.store.ListEnabled(ctx)
	if err != nil {
		return persistErr("list enabled", err)
	}
	var firstErr error
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.resyncOne(ctx, cfg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) resyncOne(ctx context.Context, cfg *Config) error {
	unlock := s.lockConfig(cfg.ID)
	defer unlock()

	targets, err := s.store.ListTargets(ctx, cfg.ID)
	if err != nil {
		return persistErr("list targets", err)
	}
	if len(targets) == 0 {
		return nil
	}

	res := s.rec.Publish(ctx, targets, Render(cfg))
	out, err := s.persistPass(ctx, cfg, res, "resync")
	if err != nil {
		return err
	}
	if out.Warning != "" {
		s.log.Warn("resync partial failure",
			logx.String("config_id", cfg.ID), logx.String("warning", out.Warning))
	}
	return nil
}

// disablePass clears publication state: retire live messages, keep the
// channel rows with null ids, drop the primary id.
func (s *Service) disablePass(ctx context.Context, cfg *Config, prior []Target, channels []int64, msg string) (*OpResult, error) {
	s.rec.Retire(ctx, prior)

	rows := newTargets(cfg.ID, cfg.ScopeID, channels)
	if err := s.store.ReplaceTargets(ctx, cfg.ID, rows); err != nil {
		return nil, persistErr("replace targets", err)
	}
	if err := s.store.SetPrimaryMessage(ctx, cfg.ID, nil); err != nil {
		return nil, persistErr("set primary message", err)
	}
	return &OpResult{Success: true, ID: cfg.ID, Message: msg}, nil
}

// persistPass stores whatever the pass produced, sibling failures included,
// and shapes the caller-facing result. Only a store failure makes the whole
// call fail.
func (s *Service) persistPass(ctx context.Context, cfg *Config, res Result, msg string) (*OpResult, error) {
	rows := make([]Target, 0, len(res.PerChannel))
	for _, oc := range res.PerChannel {
		rows = append(rows, Target{ConfigID: cfg.ID, ScopeID: cfg.ScopeID, ChannelID: oc.ChannelID, MessageID: oc.MessageID})
	}
	if err := s.store.ReplaceTargets(ctx, cfg.ID, rows); err != nil {
		return nil, persistErr("replace targets", err)
	}

	primary := firstMessageID(rows)
	if err := s.store.SetPrimaryMessage(ctx, cfg.ID, primary); err != nil {
		return nil, persistErr("set primary message", err)
	}

	out := &OpResult{
		Success:    true,
		ID:         cfg.ID,
		MessageID:  primary,
		Message:    msg,
		Attempted:  res.Attempted,
		PerChannel: res.PerChannel,
	}
	for _, oc := range res.PerChannel {
		if oc.Status != StatusFailed && oc.MessageID != nil {
			out.Sent = append(out.Sent, SentMessage{ScopeID: cfg.ScopeID, ChannelID: oc.ChannelID, MessageID: *oc.MessageID})
		}
	}
	if failed := res.Failed(); len(failed) > 0 {
		parts := make([]string, 0, len(failed))
		for _, oc := range failed {
			parts = append(parts, fmt.Sprintf("%d (%v)", oc.ChannelID, oc.Err))
		}
		out.Warning = "delivery failed for channels: " + strings.Join(parts, ", ")
	}
	return out, nil
}

func applyInput(cfg *Config, in Input) {
	cfg.Title = in.Title
	cfg.Description = in.Description
	cfg.Color = in.Color
	cfg.ImageURL = in.ImageURL
	cfg.ThumbnailURL = in.ThumbnailURL
	cfg.Author = in.Author
	cfg.AuthorName = in.AuthorName
	cfg.AuthorIconURL = in.AuthorIconURL
	cfg.Footer = in.Footer
	cfg.FooterText = in.FooterText
	cfg.FooterIconURL = in.FooterIconURL
	cfg.Timestamp = in.Timestamp
	cfg.Enabled = in.Enabled
	cfg.Buttons = append([]kit.Button(nil), in.Buttons...)
	cfg.EnableButtons = in.EnableButtons
}

func newTargets(configID string, scopeID int64, channels []int64) []Target {
	out := make([]Target, 0, len(channels))
	for _, ch := range channels {
		out = append(out, Target{ConfigID: configID, ScopeID: scopeID, ChannelID: ch})
	}
	return out
}

func firstMessageID(rows []Target) *int {
	for _, t := range rows {
		if t.MessageID != nil {
			return t.MessageID
		}
	}
	return nil
}

func channelIDs(targets []Target) []int64 {
	out := make([]int64, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.ChannelID)
	}
	return out
}
