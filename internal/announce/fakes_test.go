package announce

import (
	"context"
	"sync"

	kit "annobot/internal/transport"
)

// fakeGateway is an in-memory provider. Messages live in live[channel][id];
// deleting from live simulates external deletion.
type fakeGateway struct {
	mu     sync.Mutex
	nextID int
	live   map[int64]map[int]kit.MessageBody

	sendCalls   int
	editCalls   int
	deleteCalls int

	failSend    map[int64]error
	failEdit    map[int64]error
	badChannels map[int64]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID:      1000,
		live:        map[int64]map[int]kit.MessageBody{},
		failSend:    map[int64]error{},
		failEdit:    map[int64]error{},
		badChannels: map[int64]bool{},
	}
}

func (g *fakeGateway) FetchChannel(_ context.Context, _, channelID int64) (*kit.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.badChannels[channelID] {
		return nil, kit.ErrNotFound
	}
	return &kit.Channel{ID: channelID}, nil
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID int64, body kit.MessageBody) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendCalls++
	if err := g.failSend[channelID]; err != nil {
		return 0, err
	}
	g.nextID++
	if g.live[channelID] == nil {
		g.live[channelID] = map[int]kit.MessageBody{}
	}
	g.live[channelID][g.nextID] = body
	return g.nextID, nil
}

func (g *fakeGateway) EditMessage(_ context.Context, channelID int64, messageID int, body kit.MessageBody) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.editCalls++
	if err := g.failEdit[channelID]; err != nil {
		return err
	}
	if _, ok := g.live[channelID][messageID]; !ok {
		return kit.ErrNotFound
	}
	g.live[channelID][messageID] = body
	return nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, channelID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	if _, ok := g.live[channelID][messageID]; !ok {
		return kit.ErrNotFound
	}
	delete(g.live[channelID], messageID)
	return nil
}

// dropMessage simulates the message being deleted externally.
func (g *fakeGateway) dropMessage(channelID int64, messageID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.live[channelID], messageID)
}

func (g *fakeGateway) messageCount(channelID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live[channelID])
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu      sync.Mutex
	configs map[string]*Config
	targets map[string][]Target

	failReplace error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs: map[string]*Config{},
		targets: map[string][]Target{},
	}
}

func (s *fakeStore) CreateConfig(_ context.Context, cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.configs[cfg.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateConfig(_ context.Context, cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.configs[cfg.ID]; !ok || cur.ScopeID != cfg.ScopeID {
		return nil
	}
	cp := *cfg
	cp.PrimaryMessageID = s.configs[cfg.ID].PrimaryMessageID
	s.configs[cfg.ID] = &cp
	return nil
}

func (s *fakeStore) DeleteConfig(_ context.Context, id string, scopeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.configs[id]; ok && cur.ScopeID == scopeID {
		delete(s.configs, id)
		delete(s.targets, id)
	}
	return nil
}

func (s *fakeStore) GetConfig(_ context.Context, id string, scopeID int64) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.configs[id]
	if !ok || cur.ScopeID != scopeID {
		return nil, nil
	}
	cp := *cur
	return &cp, nil
}

func (s *fakeStore) ListConfigs(_ context.Context, scopeID int64) ([]*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Config
	for _, c := range s.configs {
		if c.ScopeID == scopeID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListEnabled(_ context.Context) ([]*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Config
	for _, c := range s.configs {
		if c.Enabled {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListTargets(_ context.Context, configID string) ([]Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Target(nil), s.targets[configID]...), nil
}

func (s *fakeStore) ReplaceTargets(_ context.Context, configID string, targets []Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReplace != nil {
		return s.failReplace
	}
	s.targets[configID] = append([]Target(nil), targets...)
	return nil
}

func (s *fakeStore) SetPrimaryMessage(_ context.Context, configID string, messageID *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.configs[configID]; ok {
		c.PrimaryMessageID = messageID
	}
	return nil
}
