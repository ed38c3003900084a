package storefront

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeScheduler records timers; tests fire them explicitly.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: f}
	s.timers = append(s.timers, t)
	s.delays = append(s.delays, d)
	return t
}

// fireAll runs every timer that was not stopped.
func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	timers := append([]*fakeTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

type fetchCall struct {
	text  string
	limit int
}

type mockFetcher struct {
	calls    []fetchCall
	suggestF func(ctx context.Context, text string, limit int) ([]Product, error)
}

func (m *mockFetcher) Suggest(ctx context.Context, text string, limit int) ([]Product, error) {
	m.calls = append(m.calls, fetchCall{text: text, limit: limit})
	if m.suggestF != nil {
		return m.suggestF(ctx, text, limit)
	}
	return nil, nil
}

func titled(titles ...string) []Product {
	out := make([]Product, len(titles))
	for i, title := range titles {
		out[i] = Product{Title: title}
	}
	return out
}

func newTestController(f Fetcher, opts ...ControllerOption) (*Controller, *fakeScheduler) {
	sched := &fakeScheduler{}
	return NewController(f, append([]ControllerOption{WithScheduler(sched)}, opts...)...), sched
}

func TestController_DebounceIssuesOneRequest(t *testing.T) {
	var c *Controller
	var tag uint64
	f := &mockFetcher{suggestF: func(context.Context, string, int) ([]Product, error) {
		tag, _ = c.InFlight()
		return titled("Laptop"), nil
	}}
	c, sched := newTestController(f)

	c.Input("l")
	c.Input("la")
	c.Input("lap")
	if c.State() != Pending {
		t.Fatalf("state = %v, want pending", c.State())
	}

	sched.fireAll()

	if len(f.calls) != 1 {
		t.Fatalf("expected 1 request, got %d", len(f.calls))
	}
	if f.calls[0].text != "lap" || f.calls[0].limit != DefaultMaxSuggestions {
		t.Errorf("call = %+v", f.calls[0])
	}
	if tag != 3 {
		t.Errorf("request tagged %d, want 3", tag)
	}
	if c.State() != Idle || len(c.Suggestions()) != 1 {
		t.Errorf("state = %v, suggestions = %v", c.State(), c.Suggestions())
	}
	if sched.delays[0] != DefaultSuggestDelay {
		t.Errorf("delay = %v", sched.delays[0])
	}
}

func TestController_StaleResponseDiscarded(t *testing.T) {
	var c *Controller
	f := &mockFetcher{}
	f.suggestF = func(_ context.Context, text string, _ int) ([]Product, error) {
		if text == "lap" {
			// The user keeps typing while this request is in flight.
			c.Input("lapt")
		}
		return titled("Stale " + text), nil
	}
	c, sched := newTestController(f)

	c.Input("lap")
	sched.fireAll()

	if got := c.Suggestions(); len(got) != 0 {
		t.Fatalf("stale response applied: %v", got)
	}
	if c.Discarded() != 1 {
		t.Errorf("discarded = %d", c.Discarded())
	}
	if c.State() != Pending {
		t.Errorf("state = %v, want pending", c.State())
	}

	sched.fireAll()
	got := c.Suggestions()
	if len(got) != 1 || got[0].Title != "Stale lapt" {
		t.Errorf("suggestions = %v", got)
	}
}

func TestController_ExecuteSearchWhileAwaiting(t *testing.T) {
	var c *Controller
	var submitted string
	var canceled bool
	f := &mockFetcher{suggestF: func(ctx context.Context, _ string, _ int) ([]Product, error) {
		submitted = c.ExecuteSearch()
		canceled = ctx.Err() != nil
		return titled("Laptop"), nil
	}}
	var notified [][]Product
	c, sched := newTestController(f, OnSuggestions(func(ps []Product) { notified = append(notified, ps) }))

	c.Input(" laptop ")
	sched.fireAll()

	if submitted != "laptop" {
		t.Errorf("submitted = %q", submitted)
	}
	if !canceled {
		t.Error("in-flight request context must be canceled")
	}
	if c.State() != Idle || len(c.Suggestions()) != 0 {
		t.Errorf("state = %v, suggestions = %v", c.State(), c.Suggestions())
	}
	if c.Discarded() != 1 {
		t.Errorf("discarded = %d", c.Discarded())
	}
	if len(notified) != 0 {
		t.Errorf("listener called with %v", notified)
	}
}

func TestController_ExecuteSearchCancelsTimer(t *testing.T) {
	f := &mockFetcher{}
	c, sched := newTestController(f)

	c.Input("phone")
	if got := c.ExecuteSearch(); got != "phone" {
		t.Errorf("submitted = %q", got)
	}
	sched.fireAll()

	if len(f.calls) != 0 {
		t.Errorf("expected no request, got %d", len(f.calls))
	}
	if !sched.timers[0].stopped {
		t.Error("debounce timer must be stopped")
	}
}

func TestController_EmptyTextClearsWithoutRequest(t *testing.T) {
	f := &mockFetcher{suggestF: func(context.Context, string, int) ([]Product, error) {
		return titled("Laptop"), nil
	}}
	c, sched := newTestController(f)

	c.Input("lap")
	sched.fireAll()
	if len(c.Suggestions()) != 1 {
		t.Fatalf("suggestions = %v", c.Suggestions())
	}

	c.Input("   ")
	sched.fireAll()
	c.Clear()
	sched.fireAll()

	if len(f.calls) != 1 {
		t.Errorf("expected 1 request, got %d", len(f.calls))
	}
	if c.State() != Idle || len(c.Suggestions()) != 0 {
		t.Errorf("state = %v, suggestions = %v", c.State(), c.Suggestions())
	}
}

func TestController_FailedFetchNoRetry(t *testing.T) {
	f := &mockFetcher{suggestF: func(context.Context, string, int) ([]Product, error) {
		return nil, errors.New("connection refused")
	}}
	c, sched := newTestController(f)

	c.Input("lap")
	sched.fireAll()
	sched.fireAll()

	if len(f.calls) != 1 {
		t.Errorf("expected 1 request, got %d", len(f.calls))
	}
	if c.State() != Idle || len(c.Suggestions()) != 0 {
		t.Errorf("state = %v, suggestions = %v", c.State(), c.Suggestions())
	}
}

func TestController_CapsSuggestions(t *testing.T) {
	f := &mockFetcher{suggestF: func(context.Context, string, int) ([]Product, error) {
		return titled("a", "b", "c", "d"), nil
	}}
	c, sched := newTestController(f, WithMaxSuggestions(2), WithDelay(time.Second))

	c.Input("x")
	sched.fireAll()

	if got := c.Suggestions(); len(got) != 2 {
		t.Errorf("suggestions = %v", got)
	}
	if f.calls[0].limit != 2 || sched.delays[0] != time.Second {
		t.Errorf("limit = %d, delay = %v", f.calls[0].limit, sched.delays[0])
	}
}

func TestController_WallClock(t *testing.T) {
	done := make(chan []Product, 1)
	f := &mockFetcher{suggestF: func(context.Context, string, int) ([]Product, error) {
		return titled("Laptop"), nil
	}}
	c := NewController(f, WithDelay(10*time.Millisecond), OnSuggestions(func(ps []Product) { done <- ps }))

	c.Input("lap")

	select {
	case ps := <-done:
		if len(ps) != 1 {
			t.Errorf("suggestions = %v", ps)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for suggestions")
	}
}

func TestController_ExecuteSearchDuringDelivery(t *testing.T) {
	f := &mockFetcher{suggestF: func(context.Context, string, int) ([]Product, error) {
		return titled("Laptop"), nil
	}}

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu        sync.Mutex
		delivered [][]Product
	)
	listener := func(ps []Product) {
		if len(ps) > 0 {
			close(entered)
			<-release
		}
		mu.Lock()
		delivered = append(delivered, ps)
		mu.Unlock()
	}
	c, sched := newTestController(f, OnSuggestions(listener))

	c.Input("lap")
	fired := make(chan struct{})
	go func() {
		defer close(fired)
		sched.fireAll()
	}()
	<-entered

	submitted := make(chan string)
	go func() { submitted <- c.ExecuteSearch() }()

	select {
	case <-submitted:
		t.Fatal("ExecuteSearch delivered while an older list was being delivered")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	if got := <-submitted; got != "lap" {
		t.Errorf("submitted = %q", got)
	}
	<-fired

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 2 {
		t.Fatalf("delivered = %v, want the list then its clearing", delivered)
	}
	if len(delivered[0]) != 1 || len(delivered[1]) != 0 {
		t.Errorf("delivered = %v, last delivery must be empty", delivered)
	}
	if len(c.Suggestions()) != 0 {
		t.Errorf("suggestions = %v", c.Suggestions())
	}
}

func TestController_SupersededListNotDelivered(t *testing.T) {
	var delivered [][]Product
	c, _ := newTestController(&mockFetcher{}, OnSuggestions(func(ps []Product) {
		delivered = append(delivered, ps)
	}))

	c.mu.Lock()
	old := c.replaceSuggestions(titled("Laptop"))
	current := c.replaceSuggestions(nil)
	c.mu.Unlock()

	c.deliver(old, titled("Laptop"))
	c.deliver(current, nil)

	if len(delivered) != 1 || len(delivered[0]) != 0 {
		t.Errorf("delivered = %v, want only the current empty list", delivered)
	}
}

func TestController_LogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := &mockFetcher{suggestF: func(context.Context, string, int) ([]Product, error) {
		return nil, errors.New("boom")
	}}
	c, sched := newTestController(f, WithControllerLogger(logger))

	c.Input("lap")
	sched.fireAll()

	out := buf.String()
	for _, want := range []string{
		"from=idle to=pending",
		"from=pending to=awaiting",
		"from=awaiting to=idle",
		"suggestion fetch failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
