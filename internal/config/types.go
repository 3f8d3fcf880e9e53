package config

// Config is the full bot configuration, read from a JSON or YAML file.
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Resync   ResyncConfig   `json:"resync,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// RatePerSec paces outbound API calls; 0 keeps the default.
	RatePerSec int `json:"rate_per_sec,omitempty"`

	// CallTimeout bounds a single API call.
	CallTimeout string `json:"call_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// ResyncConfig controls the periodic reconciliation sweep.
//
// Example:
//
//	"resync": { "enabled": true, "spec": "@every 30m" }
type ResyncConfig struct {
	Enabled bool   `json:"enabled"`
	Spec    string `json:"spec,omitempty"`    // cron spec or "@every <dur>"
	Timeout string `json:"timeout,omitempty"` // per sweep
}
