package storefront

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Suggestion defaults.
const (
	DefaultSuggestDelay   = 400 * time.Millisecond
	DefaultMaxSuggestions = 5
)

// SuggestState is the state of a Controller.
type SuggestState int

// Controller states.
const (
	Idle     SuggestState = iota // no pending input
	Pending                      // debounce timer running
	Awaiting                     // request in flight
)

func (s SuggestState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Awaiting:
		return "awaiting"
	}
	return "unknown"
}

// Fetcher loads suggestions for a text. *Client implements it.
type Fetcher interface {
	Suggest(ctx context.Context, text string, limit int) ([]Product, error)
}

// Timer is a cancelable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d and returns the token that cancels it.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithDelay sets the debounce delay. Default: 400ms.
func WithDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) ControllerOption {
	return func(c *Controller) { c.sched = s }
}

// WithMaxSuggestions caps the suggestion list. Default: 5.
func WithMaxSuggestions(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// OnSuggestions registers a listener called whenever the suggestion list changes.
// The listener runs without the controller lock held. Calls never overlap, and
// a list replaced before its call began is not delivered, so the last call
// always carries the current list. The listener must not call ExecuteSearch.
func OnSuggestions(fn func([]Product)) ControllerOption {
	return func(c *Controller) { c.listener = fn }
}

// WithControllerLogger logs state transitions, failed fetches and stale
// discards at debug level.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.obs = &observer{logger: l}
		}
	}
}

func withObserver(o *observer) ControllerOption {
	return func(c *Controller) { c.obs = o }
}

// Controller debounces keystrokes into at most one live suggestion request.
//
// Every input bumps the generation. A response is applied only when its
// generation is still current; anything older is dropped.
type Controller struct {
	fetcher  Fetcher
	sched    Scheduler
	delay    time.Duration
	limit    int
	listener func([]Product)
	obs      *observer

	// deliverMu is held across the version check and the listener call.
	deliverMu sync.Mutex

	mu          sync.Mutex
	state       SuggestState
	gen         uint64
	text        string
	timer       Timer
	inflight    uint64
	cancel      context.CancelFunc
	suggestions []Product
	version     uint64 // bumped on every suggestion list change
	discarded   uint64
}

// NewController creates a controller fetching through f.
func NewController(f Fetcher, opts ...ControllerOption) *Controller {
	c := &Controller{
		fetcher: f,
		sched:   clockScheduler{},
		delay:   DefaultSuggestDelay,
		limit:   DefaultMaxSuggestions,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Input records a keystroke producing text and restarts the debounce timer.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.text = text
	c.stopTimer()
	c.setState(Pending)

	gen := c.gen
	c.timer = c.sched.AfterFunc(c.delay, func() { c.fire(gen) })
}

// Clear is Input with empty text: suggestions are dropped and nothing is fetched.
func (c *Controller) Clear() { c.Input("") }

// ExecuteSearch submits the current text. The pending timer and any in-flight
// request are canceled, suggestions are discarded and the controller returns
// to Idle. The submitted text is returned for the caller to browse with.
func (c *Controller) ExecuteSearch() string {
	c.mu.Lock()
	c.gen++
	c.stopTimer()
	c.cancelInflight()
	c.setState(Idle)
	changed := len(c.suggestions) > 0
	version := c.replaceSuggestions(nil)
	text := c.text
	c.mu.Unlock()

	if changed {
		c.deliver(version, nil)
	}
	return strings.TrimSpace(text)
}

// State returns the current state.
func (c *Controller) State() SuggestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the current generation.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// InFlight returns the generation of the outstanding request, if any.
func (c *Controller) InFlight() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight, c.state == Awaiting
}

// Suggestions returns a copy of the current suggestion list.
func (c *Controller) Suggestions() []Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Product(nil), c.suggestions...)
}

// Discarded returns how many stale responses were dropped.
func (c *Controller) Discarded() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded
}

// fire handles debounce expiry for generation gen.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Pending {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	text := strings.TrimSpace(c.text)
	if text == "" {
		c.setState(Idle)
		changed := len(c.suggestions) > 0
		version := c.replaceSuggestions(nil)
		c.mu.Unlock()
		if changed {
			c.deliver(version, nil)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.inflight = gen
	c.setState(Awaiting)
	c.mu.Unlock()

	products, err := c.fetcher.Suggest(ctx, text, c.limit)
	cancel()
	c.apply(gen, products, err)
}

// apply installs a response tagged with gen if gen is still current.
func (c *Controller) apply(gen uint64, products []Product, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.discarded++
		current := c.gen
		c.mu.Unlock()
		c.obs.staleSuggestion(gen, current)
		return
	}

	c.cancel = nil
	c.setState(Idle)
	// No retry on error: the next keystroke starts over.
	var next []Product
	if err == nil {
		if len(products) > c.limit {
			products = products[:c.limit]
		}
		next = products
	}
	version := c.replaceSuggestions(next)
	out := append([]Product(nil), c.suggestions...)
	c.mu.Unlock()

	if err != nil {
		c.debug("suggestion fetch failed", "generation", gen, "error", err)
	}
	c.deliver(version, out)
}

// deliver hands products to the listener unless a newer list replaced them.
// Holding deliverMu across the check keeps an older list from landing after
// a newer one.
func (c *Controller) deliver(version uint64, products []Product) {
	if c.listener == nil {
		return
	}
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	current := c.version
	c.mu.Unlock()
	if version != current {
		c.debug("superseded suggestion list dropped", "version", version, "current", current)
		return
	}
	c.listener(products)
}

// replaceSuggestions installs a copy of products and returns the new list
// version. Callers hold mu.
func (c *Controller) replaceSuggestions(products []Product) uint64 {
	c.suggestions = nil
	if len(products) > 0 {
		c.suggestions = append([]Product(nil), products...)
	}
	c.version++
	return c.version
}

// setState records a transition. Callers hold mu.
func (c *Controller) setState(to SuggestState) {
	if c.state != to {
		c.debug("suggest state", "from", c.state.String(), "to", to.String(), "generation", c.gen)
	}
	c.state = to
}

func (c *Controller) debug(msg string, args ...any) {
	if c.obs != nil && c.obs.logger != nil {
		c.obs.logger.Debug(msg, args...)
	}
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) cancelInflight() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
