// Package scan produces the simulated face-scan progress sequence.
package scan

import (
	"context"
	"math"
	"time"

	"github.com/facepass/facepass/internal/clock"
)

const (
	// DefaultDuration is how long a simulated scan takes to reach 100%.
	DefaultDuration = 3000 * time.Millisecond
	// DefaultFrameInterval approximates one display frame at 60Hz.
	DefaultFrameInterval = 16 * time.Millisecond
)

// Simulator emits integer percentages from the first frame until 100,
// computed from elapsed clock time.
type Simulator struct {
	clock    clock.Clock
	duration time.Duration
	frame    time.Duration
}

// NewSimulator builds a simulator. A nil clock means the real clock and a
// non-positive frame interval means DefaultFrameInterval. A non-positive
// duration completes on the first frame.
func NewSimulator(c clock.Clock, duration, frame time.Duration) *Simulator {
	if c == nil {
		c = clock.Real()
	}
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	return &Simulator{clock: c, duration: duration, frame: frame}
}

// Duration returns the configured scan length.
func (s *Simulator) Duration() time.Duration { return s.duration }

// Progress maps elapsed time to a percentage in [0, 100].
func Progress(elapsed, duration time.Duration) int {
	if duration <= 0 {
		return 100
	}
	if elapsed <= 0 {
		return 0
	}
	p := math.Round(float64(elapsed) / float64(duration) * 100)
	if p > 100 {
		return 100
	}
	return int(p)
}

// Start calls onProgress once per frame from a separate goroutine until
// 100 is reported. The returned cancel stops further frames, but a call
// already past its cancellation check may still run once after cancel
// returns. Callers discard such a late value themselves.
func (s *Simulator) Start(onProgress func(int)) (cancel func()) {
	ctx, cancelFn := context.WithCancel(context.Background())
	start := s.clock.Now()
	ticker := s.clock.NewTicker(s.frame)
	go s.loop(ctx, start, ticker, onProgress)
	return cancelFn
}

// Run is Start as a channel. The channel is closed after 100 is delivered
// or when ctx is done.
func (s *Simulator) Run(ctx context.Context) <-chan int {
	out := make(chan int)
	start := s.clock.Now()
	ticker := s.clock.NewTicker(s.frame)
	go func() {
		defer close(out)
		s.loop(ctx, start, ticker, func(p int) {
			select {
			case out <- p:
			case <-ctx.Done():
			}
		})
	}()
	return out
}

func (s *Simulator) loop(ctx context.Context, start time.Time, ticker *clock.Ticker, emit func(int)) {
	defer ticker.Stop()

	last := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		p := Progress(s.clock.Now().Sub(start), s.duration)
		if p < last {
			p = last
		}
		last = p

		emit(p)
		if p >= 100 {
			return
		}
	}
}
