package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"annobot/internal/announce"
	kit "annobot/internal/transport"
	logx "annobot/pkg/logx"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "annobot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleConfig(scopeID int64) *announce.Config {
	now := time.Now().UTC().Truncate(time.Millisecond)
	ts := now.Add(-time.Hour)
	return &announce.Config{
		ID:            uuid.NewString(),
		ScopeID:       scopeID,
		Title:         "Release",
		Description:   "v2 is out",
		Color:         0x5865F2,
		ImageURL:      "https://x/img.png",
		Author:        &announce.Author{Name: "release bot", IconURL: "https://x/a.png"},
		FooterText:    "build 12",
		Timestamp:     &ts,
		Enabled:       true,
		Buttons:       []kit.Button{{Label: "Notes", URL: "https://x/notes", Style: "link"}},
		EnableButtons: true,
		CreatedBy:     "ops",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	in := sampleConfig(42)
	if err := s.CreateConfig(ctx, in); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}

	out, err := s.GetConfig(ctx, in.ID, 42)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if out == nil {
		t.Fatal("config not found after create")
	}
	if out.Title != in.Title || out.Description != in.Description || out.Color != in.Color {
		t.Fatalf("content mismatch: %+v", out)
	}
	// The nested author is written in its normalized flat form.
	if out.Author != nil {
		t.Fatal("nested author should not survive a round trip")
	}
	if out.AuthorName != "release bot" || out.AuthorIconURL != "https://x/a.png" {
		t.Fatalf("author not normalized: %q %q", out.AuthorName, out.AuthorIconURL)
	}
	if out.Timestamp == nil || !out.Timestamp.Equal(*in.Timestamp) {
		t.Fatalf("timestamp = %v, want %v", out.Timestamp, in.Timestamp)
	}
	if len(out.Buttons) != 1 || out.Buttons[0] != in.Buttons[0] {
		t.Fatalf("buttons = %+v", out.Buttons)
	}
	if !out.EnableButtons || !out.Enabled {
		t.Fatalf("flags lost: %+v", out)
	}
	if out.CreatedBy != "ops" {
		t.Fatalf("CreatedBy = %q", out.CreatedBy)
	}
}

func TestGetConfigScoping(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	in := sampleConfig(42)
	if err := s.CreateConfig(ctx, in); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}

	if got, err := s.GetConfig(ctx, in.ID, 999); err != nil || got != nil {
		t.Fatalf("cross-scope read = %v, %v; want nil, nil", got, err)
	}
	if got, err := s.GetConfig(ctx, uuid.NewString(), 42); err != nil || got != nil {
		t.Fatalf("missing id read = %v, %v; want nil, nil", got, err)
	}
}

func TestUpdateConfigDoesNotTouchPrimary(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	in := sampleConfig(42)
	if err := s.CreateConfig(ctx, in); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}
	id := 555
	if err := s.SetPrimaryMessage(ctx, in.ID, &id); err != nil {
		t.Fatalf("SetPrimaryMessage: %v", err)
	}

	in.Title = "Release v2.1"
	in.UpdatedAt = time.Now().UTC()
	if err := s.UpdateConfig(ctx, in); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	out, err := s.GetConfig(ctx, in.ID, 42)
	if err != nil || out == nil {
		t.Fatalf("GetConfig: %v %v", out, err)
	}
	if out.Title != "Release v2.1" {
		t.Fatalf("Title = %q", out.Title)
	}
	if out.PrimaryMessageID == nil || *out.PrimaryMessageID != 555 {
		t.Fatalf("primary id lost on update: %v", out.PrimaryMessageID)
	}

	if err := s.SetPrimaryMessage(ctx, in.ID, nil); err != nil {
		t.Fatalf("SetPrimaryMessage(nil): %v", err)
	}
	out, _ = s.GetConfig(ctx, in.ID, 42)
	if out.PrimaryMessageID != nil {
		t.Fatalf("primary id not cleared: %v", out.PrimaryMessageID)
	}
}

func TestReplaceTargetsKeepsOrderAndNulls(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	cfg := sampleConfig(42)
	if err := s.CreateConfig(ctx, cfg); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}

	id := 1001
	want := []announce.Target{
		{ConfigID: cfg.ID, ScopeID: 42, ChannelID: -100500, MessageID: &id},
		{ConfigID: cfg.ID, ScopeID: 42, ChannelID: 7, MessageID: nil},
		{ConfigID: cfg.ID, ScopeID: 42, ChannelID: 3, MessageID: nil},
	}
	if err := s.ReplaceTargets(ctx, cfg.ID, want); err != nil {
		t.Fatalf("ReplaceTargets: %v", err)
	}

	got, err := s.ListTargets(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("ListTargets: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := range want {
		if got[i].ChannelID != want[i].ChannelID {
			t.Fatalf("order lost at %d: %d != %d", i, got[i].ChannelID, want[i].ChannelID)
		}
	}
	if got[0].MessageID == nil || *got[0].MessageID != 1001 {
		t.Fatalf("message id = %v", got[0].MessageID)
	}
	if got[1].MessageID != nil || got[2].MessageID != nil {
		t.Fatal("null ids not preserved")
	}

	// Replacing again fully swaps the set.
	if err := s.ReplaceTargets(ctx, cfg.ID, want[:1]); err != nil {
		t.Fatalf("ReplaceTargets #2: %v", err)
	}
	got, _ = s.ListTargets(ctx, cfg.ID)
	if len(got) != 1 || got[0].ChannelID != -100500 {
		t.Fatalf("replace did not swap the set: %+v", got)
	}
}

func TestDeleteConfigCascades(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	cfg := sampleConfig(42)
	if err := s.CreateConfig(ctx, cfg); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}
	if err := s.ReplaceTargets(ctx, cfg.ID, []announce.Target{
		{ConfigID: cfg.ID, ScopeID: 42, ChannelID: 1},
		{ConfigID: cfg.ID, ScopeID: 42, ChannelID: 2},
	}); err != nil {
		t.Fatalf("ReplaceTargets: %v", err)
	}

	if err := s.DeleteConfig(ctx, cfg.ID, 42); err != nil {
		t.Fatalf("DeleteConfig: %v", err)
	}
	targets, err := s.ListTargets(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("ListTargets: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("targets survived the cascade: %+v", targets)
	}
}

func TestListEnabled(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	on := sampleConfig(42)
	off := sampleConfig(42)
	off.Enabled = false
	other := sampleConfig(77)
	for _, c := range []*announce.Config{on, off, other} {
		if err := s.CreateConfig(ctx, c); err != nil {
			t.Fatalf("CreateConfig: %v", err)
		}
	}

	enabled, err := s.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled: %v", err)
	}
	if len(enabled) != 2 {
		t.Fatalf("len = %d, want 2 (enabled spans scopes)", len(enabled))
	}

	scoped, err := s.ListConfigs(ctx, 42)
	if err != nil {
		t.Fatalf("ListConfigs: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("len = %d, want 2", len(scoped))
	}
}
