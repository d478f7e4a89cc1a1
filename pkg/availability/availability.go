// Package availability checks whether a username is free without flooding
// the backend on every keystroke.
//
// Check is the single-shot operation: local format rules first, then one
// backend call. Debouncer wraps it for interactive input: each keystroke
// replaces the pending timer, cancels any in-flight request, and only the
// newest keystroke's outcome is ever published.
package availability

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/doozitravel/gateway/pkg/normalize"
	"github.com/doozitravel/gateway/pkg/validation"
)

// DefaultDelay is the input quiet period before a check runs.
const DefaultDelay = 500 * time.Millisecond

// Messages published with a Result.
const (
	TakenMessage  = "Username is already taken"
	FailedMessage = "Failed to check username availability"
)

// State is where a candidate username stands.
type State string

const (
	Idle      State = "idle"
	Pending   State = "pending"
	Invalid   State = "invalid"
	Available State = "available"
	Taken     State = "taken"
	Failed    State = "failed"
)

// Settled reports whether s is a final answer for its candidate.
func (s State) Settled() bool {
	return s != Pending
}

// Result is the outcome for one candidate.
type Result struct {
	Username string `json:"username"`
	State    State  `json:"state"`
	Message  string `json:"message,omitempty"`
	Err      error  `json:"-"`
}

// Checker asks the backend about one username.
type Checker interface {
	CheckUsername(ctx context.Context, username string) (bool, error)
}

var usernameRules = validation.MustPreset(validation.Username)

// LocalCheck runs the synchronous format rules and returns the first
// failure, or "".
func LocalCheck(username string) string {
	return usernameRules.Validate(validation.Values{"username": username})["username"]
}

// Check normalizes candidate, applies the local format rules and, only when
// they pass, asks c. current is the signed-in user's own username, or "";
// a candidate equal to it is Idle and never sent. It always settles; errors
// are carried in the Result.
func Check(ctx context.Context, c Checker, candidate, current string) Result {
	u := normalize.Username(candidate)
	if u == "" {
		return Result{State: Idle}
	}
	if IsCurrent(u, current) {
		return Result{Username: u, State: Idle}
	}
	if msg := LocalCheck(u); msg != "" {
		return Result{Username: u, State: Invalid, Message: msg}
	}

	free, err := c.CheckUsername(ctx, u)
	switch {
	case err != nil:
		return Result{Username: u, State: Failed, Message: FailedMessage, Err: err}
	case free:
		return Result{Username: u, State: Available}
	default:
		return Result{Username: u, State: Taken, Message: TakenMessage}
	}
}

// IsCurrent reports whether candidate is the user's own username.
func IsCurrent(candidate, current string) bool {
	cur := normalize.Username(current)
	return cur != "" && normalize.Username(candidate) == cur
}

// ─── Debouncer ───────────────────────────────────────────────────────────

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(db *Debouncer) { db.delay = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(db *Debouncer) { db.logger = l }
}

// WithCurrent sets the signed-in user's own username. Typing it back is Idle
// and never reaches the backend.
func WithCurrent(username string) Option {
	return func(db *Debouncer) { db.current = username }
}

// OnResult registers fn to receive every published Result in order. fn runs
// on the publishing goroutine and must not call back into the Debouncer.
func OnResult(fn func(Result)) Option {
	return func(db *Debouncer) { db.publish = fn }
}

// Debouncer owns the pending-timer handle for one input field.
type Debouncer struct {
	checker Checker
	delay   time.Duration
	logger  *zap.Logger
	publish func(Result)

	mu      sync.Mutex
	pubMu   sync.Mutex // orders publish calls; always taken while mu is held
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	current string
	latest  Result
	settled chan struct{}
	closed  bool
}

// NewDebouncer creates a Debouncer that asks c.
func NewDebouncer(c Checker, opts ...Option) *Debouncer {
	d := &Debouncer{
		checker: c,
		delay:   DefaultDelay,
		logger:  zap.NewNop(),
		latest:  Result{State: Idle},
		settled: make(chan struct{}),
	}
	close(d.settled)
	for _, o := range opts {
		o(d)
	}
	return d
}

// Input records a keystroke: the field now holds raw. Any pending or
// in-flight check is superseded.
func (d *Debouncer) Input(raw string) {
	u := normalize.Username(raw)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.supersedeLocked()
	gen := d.gen

	if u == "" {
		d.settleLocked(Result{State: Idle})
		return
	}
	if IsCurrent(u, d.current) {
		d.settleLocked(Result{Username: u, State: Idle})
		return
	}

	d.latest = Result{Username: u, State: Pending}
	select {
	case <-d.settled:
		d.settled = make(chan struct{})
	default:
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen, u) })
	d.publishLocked(d.latest)
}

// supersedeLocked invalidates everything issued for older keystrokes.
func (d *Debouncer) supersedeLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) fire(gen uint64, u string) {
	d.mu.Lock()
	if gen != d.gen || d.closed {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	current := d.current
	d.mu.Unlock()

	res := Check(ctx, d.checker, u, current)
	cancel()

	d.mu.Lock()
	if gen != d.gen || d.closed {
		d.mu.Unlock()
		d.logger.Debug("discarding superseded availability result", zap.String("username", u))
		return
	}
	d.cancel = nil
	if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
		d.logger.Warn("username availability check failed", zap.String("username", u), zap.Error(res.Err))
	}
	d.settleLocked(res)
}

// settleLocked stores a final result, wakes waiters and publishes. It
// releases mu.
func (d *Debouncer) settleLocked(res Result) {
	d.latest = res
	select {
	case <-d.settled:
	default:
		close(d.settled)
	}
	d.publishLocked(res)
}

// publishLocked hands res to the subscriber in state-update order. It
// releases mu.
func (d *Debouncer) publishLocked(res Result) {
	d.pubMu.Lock()
	d.mu.Unlock()
	defer d.pubMu.Unlock()
	if d.publish != nil {
		d.publish(res)
	}
}

// SetCurrent changes the signed-in user's own username, for example after
// it has been updated. It applies to the next keystroke.
func (d *Debouncer) SetCurrent(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = username
}

// Latest returns the current state of the field.
func (d *Debouncer) Latest() Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest
}

// Await blocks until the newest keystroke has settled, or ctx is done.
func (d *Debouncer) Await(ctx context.Context) (Result, error) {
	for {
		d.mu.Lock()
		res, ch := d.latest, d.settled
		d.mu.Unlock()
		if res.State.Settled() {
			return res, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

// Close cancels anything pending. Further input is ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.supersedeLocked()
	d.closed = true
	if !d.latest.State.Settled() {
		d.latest = Result{Username: d.latest.Username, State: Idle}
	}
	select {
	case <-d.settled:
	default:
		close(d.settled)
	}
}
