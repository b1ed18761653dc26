// Package clock abstracts time so that scan simulation and the mock
// processing delays can be driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package used by the service. Production
// code injects Real(); tests inject Fake().
type Clock interface {
	Now() time.Time

	// After returns a channel that receives once d elapses. If d <= 0 the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc calls f once d elapses. The returned Timer cancels the
	// pending call.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker delivers ticks every d on C. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. C has capacity 1; late ticks are dropped.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Timer represents a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. It reports whether the call was
// still pending.
func (t *Timer) Stop() bool { return t.stopFunc() }
