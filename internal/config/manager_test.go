package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"telegram": {"token": "123:abc", "rate_per_sec": 20, "call_timeout": "15s"},
		"logging": {"level": "debug", "console": true},
		"storage": {"path": "./data/annobot.db", "busy_timeout": "3s"},
		"resync": {"enabled": true, "spec": "@every 10m", "timeout": "90s"}
	}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.RatePerSec != 20 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Path != "./data/annobot.db" || cfg.Storage.BusyTimeout != "3s" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !cfg.Resync.Enabled || cfg.Resync.Spec != "@every 10m" || cfg.Resync.Timeout != "90s" {
		t.Fatalf("resync = %+v", cfg.Resync)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  rate_per_sec: 5
logging:
  level: info
storage:
  path: ./annobot.db
resync:
  enabled: true
  spec: "@hourly"
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.RatePerSec != 5 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Resync.Spec != "@hourly" {
		t.Fatalf("resync = %+v", cfg.Resync)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"telegram": {"token": "t"}, "bogus": 1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("unknown top-level field accepted")
	}

	nested := writeConfig(t, "config.json", `{"telegram": {"token": "t", "shard": 2}}`)
	if _, err := NewManager(nested).Parse(); err == nil {
		t.Fatal("unknown nested field accepted")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"telegram": {"token": "t"}} {"more": true}`)
	_, err := NewManager(path).Parse()
	if err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("err = %v, want trailing data rejection", err)
	}
}

func TestLoadCommitsAndGetReturnsIt(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"logging": {"level": "warn"}}`)
	m := NewManager(path)

	if m.Get() != nil {
		t.Fatal("Get before Load should be nil")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get = %p, want the loaded config %p", got, cfg)
	}
}

func TestSubscribeDropsOldestWhenSlow(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{}`)
	m := NewManager(path)

	sub := m.Subscribe(1)
	old := &Config{}
	cur := &Config{Logging: LoggingConfig{Level: "debug"}}

	m.publish(old)
	m.publish(cur) // buffer full: the stale item gives way

	got := <-sub
	if got != cur {
		t.Fatalf("slow subscriber got the stale config")
	}

	m.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Fatal("channel not closed on unsubscribe")
	}
}

func TestYAMLCoercionNormalizesNestedMaps(t *testing.T) {
	t.Parallel()
	out, err := coerceToJSON("x.yml", []byte("logging:\n  file:\n    enabled: true\n    path: /tmp/a.log\n"))
	if err != nil {
		t.Fatalf("coerceToJSON: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"enabled":true`) || !strings.Contains(s, `"/tmp/a.log"`) {
		t.Fatalf("coerced JSON = %s", s)
	}
}
