package activity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFileRecorderPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facepass.activity.yaml")
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	first := NewFile(path, 3)
	events, err := first.Recent(ctx, 10)
	if err != nil || len(events) != 0 {
		t.Fatalf("expected empty activity before the file exists, got %v err=%v", events, err)
	}
	login := Event{ID: uuid.NewString(), Kind: KindAuthenticated, FlowID: "flow-1", OccurredAt: base}
	if err := first.Record(ctx, login); err != nil {
		t.Fatalf("record: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := first.Record(ctx, Event{ID: uuid.NewString(), Kind: KindRegistered, OccurredAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	second := NewFile(path, 3)
	events, err = second.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected capacity-bounded 3 events, got %d", len(events))
	}
	if !events[0].OccurredAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("expected newest first, got %+v", events[0])
	}

	got, ok, err := second.Latest(ctx, KindAuthenticated)
	if err != nil || !ok {
		t.Fatalf("expected persisted login, ok=%v err=%v", ok, err)
	}
	if got.ID != login.ID || got.FlowID != "flow-1" || !got.OccurredAt.Equal(base) {
		t.Fatalf("unexpected login event: %+v", got)
	}
}

func TestFileRecorderRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.yaml")
	if err := os.WriteFile(path, []byte("events: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFile(path, 0).Recent(context.Background(), 5); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPathFor(t *testing.T) {
	cases := map[string]string{
		"/tmp/facepass.yaml": "/tmp/facepass.activity.yaml",
		"/tmp/store":         "/tmp/store.activity.yaml",
		"data.yml":           "data.activity.yml",
	}
	for in, want := range cases {
		if got := PathFor(in); got != want {
			t.Fatalf("PathFor(%q) = %q, want %q", in, got, want)
		}
	}
}
