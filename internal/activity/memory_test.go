package activity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryRecentNewestFirst(t *testing.T) {
	rec := NewMemory(3)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	kinds := []string{KindRegistered, KindAuthenticated, KindRejected, KindAuthenticated}
	for i, k := range kinds {
		if err := rec.Record(ctx, Event{ID: uuid.NewString(), Kind: k, OccurredAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	events, err := rec.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected capacity-bounded 3 events, got %d", len(events))
	}
	if events[0].Kind != KindAuthenticated || events[2].Kind != KindAuthenticated {
		t.Fatalf("unexpected order: %+v", events)
	}
	if events[1].Kind != KindRejected {
		t.Fatalf("expected rejected in the middle, got %s", events[1].Kind)
	}

	limited, _ := rec.Recent(ctx, 1)
	if len(limited) != 1 || !limited[0].OccurredAt.Equal(base.Add(3*time.Minute)) {
		t.Fatalf("unexpected limited result: %+v", limited)
	}

	if _, ok := LastOf(events, KindRegistered); ok {
		t.Fatal("registration should have been evicted")
	}
}

func TestMemoryLatestSurvivesEviction(t *testing.T) {
	rec := NewMemory(2)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, err := rec.Latest(ctx, KindAuthenticated); ok || err != nil {
		t.Fatalf("expected no login yet, ok=%v err=%v", ok, err)
	}
	login := Event{ID: uuid.NewString(), Kind: KindAuthenticated, OccurredAt: base}
	if err := rec.Record(ctx, login); err != nil {
		t.Fatalf("record: %v", err)
	}
	for i := 1; i <= 5; i++ {
		_ = rec.Record(ctx, Event{ID: uuid.NewString(), Kind: KindRejected, OccurredAt: base.Add(time.Duration(i) * time.Minute)})
	}

	recent, _ := rec.Recent(ctx, 0)
	if _, ok := LastOf(recent, KindAuthenticated); ok {
		t.Fatal("login should have been evicted from recent events")
	}
	got, ok, err := rec.Latest(ctx, KindAuthenticated)
	if err != nil || !ok || got.ID != login.ID {
		t.Fatalf("expected login %s, got %+v ok=%v err=%v", login.ID, got, ok, err)
	}
}

func TestFlowContext(t *testing.T) {
	ctx := WithFlow(context.Background(), "flow-1")
	if got := FlowFrom(ctx); got != "flow-1" {
		t.Fatalf("expected flow-1, got %q", got)
	}
	if got := FlowFrom(context.Background()); got != "" {
		t.Fatalf("expected empty flow id, got %q", got)
	}
}
