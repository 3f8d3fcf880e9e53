package announce

import "context"

// Store is the persistence contract the service depends on. The sqlite
// implementation lives in internal/storage.
//
// GetConfig returns (nil, nil) when the announcement does not exist.
// ReplaceTargets is transactional delete-all-then-insert-all: readers never
// observe a partially replaced target set, and callers must carry forward
// any message ids they want preserved.
type Store interface {
	CreateConfig(ctx context.Context, cfg *Config) error
	UpdateConfig(ctx context.Context, cfg *Config) error
	DeleteConfig(ctx context.Context, id string, scopeID int64) error
	GetConfig(ctx context.Context, id string, scopeID int64) (*Config, error)
	ListConfigs(ctx context.Context, scopeID int64) ([]*Config, error)
	ListEnabled(ctx context.Context) ([]*Config, error)

	ListTargets(ctx context.Context, configID string) ([]Target, error)
	ReplaceTargets(ctx context.Context, configID string, targets []Target) error
	SetPrimaryMessage(ctx context.Context, configID string, messageID *int) error
}
