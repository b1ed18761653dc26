// Package credential is the mock credential store: at most one registered
// face image handle, kept under a fixed key.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/facepass/facepass/internal/activity"
	"github.com/facepass/facepass/internal/clock"
	"github.com/facepass/facepass/internal/kvstore"
	"github.com/facepass/facepass/internal/logging"
	"github.com/facepass/facepass/internal/notification"
)

// Key is the fixed identity the single credential is stored under.
const Key = "registeredFace"

const (
	DefaultRegisterDelay     = 2000 * time.Millisecond
	DefaultAuthenticateDelay = 3000 * time.Millisecond
)

var (
	// ErrEmptyHandle rejects registration of an empty image handle.
	ErrEmptyHandle = errors.New("image handle is empty")
	// ErrInvalidHandle means a handle could not be decoded for comparison.
	ErrInvalidHandle = errors.New("invalid image handle")
)

// Options tune a Service. Zero values select the defaults.
type Options struct {
	Clock             clock.Clock
	RegisterDelay     time.Duration
	AuthenticateDelay time.Duration
	Matcher           Matcher
	Notifier          notification.Notifier
	Activity          activity.Recorder
	Logger            *slog.Logger
}

// Service registers and authenticates the single face credential.
type Service struct {
	store             kvstore.Store
	clock             clock.Clock
	registerDelay     time.Duration
	authenticateDelay time.Duration
	matcher           Matcher
	notifier          notification.Notifier
	activity          activity.Recorder
	logger            *slog.Logger
}

// NewService builds a credential service over store. Negative delays
// disable the simulated processing time.
func NewService(store kvstore.Store, opts Options) *Service {
	s := &Service{
		store:             store,
		clock:             opts.Clock,
		registerDelay:     opts.RegisterDelay,
		authenticateDelay: opts.AuthenticateDelay,
		matcher:           opts.Matcher,
		notifier:          opts.Notifier,
		activity:          opts.Activity,
		logger:            logging.Component(opts.Logger, "credential"),
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.registerDelay == 0 {
		s.registerDelay = DefaultRegisterDelay
	}
	if s.authenticateDelay == 0 {
		s.authenticateDelay = DefaultAuthenticateDelay
	}
	if s.matcher == nil {
		s.matcher = PresenceMatcher{}
	}
	return s
}

// Register stores handle as the credential after the simulated processing
// delay, replacing any previous one.
func (s *Service) Register(ctx context.Context, handle string) error {
	if handle == "" {
		return ErrEmptyHandle
	}
	if err := s.wait(ctx, s.registerDelay); err != nil {
		return err
	}
	if err := s.store.Set(ctx, Key, handle); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	flowID := activity.FlowFrom(ctx)
	s.logger.Info("face registered", slog.String("flow_id", flowID), slog.Int("handle_bytes", len(handle)))
	s.record(ctx, activity.KindRegistered, flowID)
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindFaceRegistered,
			Destination: Key,
			FlowID:      flowID,
			Body:        "A face credential was registered",
		})
	}
	return nil
}

// Authenticate reports, after the simulated delay, whether handle is
// accepted. With the default presence matcher any handle is accepted once
// a credential exists.
func (s *Service) Authenticate(ctx context.Context, handle string) (bool, error) {
	if err := s.wait(ctx, s.authenticateDelay); err != nil {
		return false, err
	}

	flowID := activity.FlowFrom(ctx)
	stored, err := s.store.Get(ctx, Key)
	if errors.Is(err, kvstore.ErrNotFound) {
		s.logger.Info("face rejected", slog.String("flow_id", flowID), slog.String("reason", "no credential"))
		s.record(ctx, activity.KindRejected, flowID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load credential: %w", err)
	}

	ok, err := s.matcher.Match(stored, handle)
	if err != nil {
		s.record(ctx, activity.KindRejected, flowID)
		return false, err
	}
	if !ok {
		s.logger.Info("face rejected", slog.String("flow_id", flowID), slog.String("reason", "mismatch"))
		s.record(ctx, activity.KindRejected, flowID)
		return false, nil
	}

	s.logger.Info("face authenticated", slog.String("flow_id", flowID))
	s.record(ctx, activity.KindAuthenticated, flowID)
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindFaceAuthenticated,
			Destination: Key,
			FlowID:      flowID,
			Body:        "Face authentication succeeded",
		})
	}
	return true, nil
}

// Registered reports whether a credential is stored. It does not wait.
func (s *Service) Registered(ctx context.Context) (bool, error) {
	_, err := s.store.Get(ctx, Key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load credential: %w", err)
	}
	return true, nil
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

func (s *Service) record(ctx context.Context, kind, flowID string) {
	if s.activity == nil {
		return
	}
	err := s.activity.Record(ctx, activity.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		FlowID:     flowID,
		OccurredAt: s.clock.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("record activity", slog.String("kind", kind), slog.Any("error", err))
	}
}
