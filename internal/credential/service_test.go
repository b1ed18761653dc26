package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facepass/facepass/internal/activity"
	"github.com/facepass/facepass/internal/clock"
	"github.com/facepass/facepass/internal/kvstore"
)

const (
	handleA = "data:image/png;base64,QUFBQQ=="
	handleB = "data:image/png;base64,QkJCQg=="
)

func newInstantService(store kvstore.Store, matcher Matcher, rec activity.Recorder) *Service {
	return NewService(store, Options{RegisterDelay: -1, AuthenticateDelay: -1, Matcher: matcher, Activity: rec})
}

func TestAuthenticateWithoutRegistrationFails(t *testing.T) {
	svc := newInstantService(kvstore.NewMemory(), nil, nil)
	ctx := context.Background()

	for _, handle := range []string{"", handleA, handleB, "not-a-data-uri"} {
		ok, err := svc.Authenticate(ctx, handle)
		if err != nil {
			t.Fatalf("authenticate %q: %v", handle, err)
		}
		if ok {
			t.Fatalf("expected rejection without registration for %q", handle)
		}
	}
}

func TestRegisterThenAuthenticateAnyHandle(t *testing.T) {
	rec := activity.NewMemory(10)
	svc := newInstantService(kvstore.NewMemory(), nil, rec)
	ctx := activity.WithFlow(context.Background(), "flow-1")

	if err := svc.Register(ctx, handleA); err != nil {
		t.Fatalf("register: %v", err)
	}

	// The stored handle is never compared in presence mode.
	for _, handle := range []string{handleA, handleB, "", "anything"} {
		ok, err := svc.Authenticate(ctx, handle)
		if err != nil {
			t.Fatalf("authenticate %q: %v", handle, err)
		}
		if !ok {
			t.Fatalf("expected %q to authenticate", handle)
		}
	}

	events, _ := rec.Recent(ctx, 10)
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	reg, ok := activity.LastOf(events, activity.KindRegistered)
	if !ok || reg.FlowID != "flow-1" {
		t.Fatalf("expected registration event for flow-1, got %+v", reg)
	}
}

func TestExactMatcherRejectsDifferentHandle(t *testing.T) {
	svc := newInstantService(kvstore.NewMemory(), ExactMatcher{}, nil)
	ctx := context.Background()

	if err := svc.Register(ctx, handleA); err != nil {
		t.Fatalf("register: %v", err)
	}
	if ok, _ := svc.Authenticate(ctx, handleB); ok {
		t.Fatal("expected different handle to be rejected")
	}
	if ok, _ := svc.Authenticate(ctx, handleA); !ok {
		t.Fatal("expected identical handle to authenticate")
	}
}

func TestRegisterOverwrites(t *testing.T) {
	store := kvstore.NewMemory()
	svc := newInstantService(store, nil, nil)
	ctx := context.Background()

	_ = svc.Register(ctx, handleA)
	_ = svc.Register(ctx, handleB)

	got, err := store.Get(ctx, Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != handleB {
		t.Fatalf("expected latest handle, got %s", got)
	}
}

func TestRegisterRejectsEmptyHandle(t *testing.T) {
	svc := newInstantService(kvstore.NewMemory(), nil, nil)
	if err := svc.Register(context.Background(), ""); !errors.Is(err, ErrEmptyHandle) {
		t.Fatalf("expected ErrEmptyHandle, got %v", err)
	}
	if ok, _ := svc.Registered(context.Background()); ok {
		t.Fatal("empty handle must not be stored")
	}
}

func TestRegisterWaitsForProcessingDelay(t *testing.T) {
	fc := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := NewService(kvstore.NewMemory(), Options{Clock: fc})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- svc.Register(ctx, handleA) }()

	fc.WaitForTimers(1)
	fc.Advance(DefaultRegisterDelay - time.Millisecond)
	select {
	case <-done:
		t.Fatal("register returned before the processing delay")
	default:
	}
	if ok, _ := svc.Registered(ctx); ok {
		t.Fatal("credential stored before delay elapsed")
	}

	fc.Advance(time.Millisecond)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("register did not complete")
	}
	if ok, _ := svc.Registered(ctx); !ok {
		t.Fatal("expected credential after delay")
	}
}

func TestAuthenticateHonoursContext(t *testing.T) {
	fc := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := NewService(kvstore.NewMemory(), Options{Clock: fc})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Authenticate(ctx, handleA); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
