package postfilter

import (
	"context"
	"sync"
	"time"
)

// --- Transport mock ---

type mockTransport struct {
	mu        sync.Mutex
	compileFn func(ctx context.Context, req CompileRequest) (Result, error)
	listingFn func(ctx context.Context, req ListingRequest) (Result, error)
	compiles  []CompileRequest
	listings  []ListingRequest
}

func (m *mockTransport) Compile(ctx context.Context, req CompileRequest) (Result, error) {
	m.mu.Lock()
	m.compiles = append(m.compiles, req)
	m.mu.Unlock()
	return m.compileFn(ctx, req)
}

func (m *mockTransport) Listing(ctx context.Context, req ListingRequest) (Result, error) {
	m.mu.Lock()
	m.listings = append(m.listings, req)
	m.mu.Unlock()
	return m.listingFn(ctx, req)
}

// --- View mock ---

type viewCall struct {
	op       string
	id       ContainerID
	fragment string
}

type mockObserver struct {
	fire         func()
	disconnected bool
}

func (o *mockObserver) Disconnect() { o.disconnected = true }

type mockView struct {
	mu        sync.Mutex
	calls     []viewCall
	observers []*mockObserver
	loading   map[ContainerID]bool
}

func newMockView() *mockView {
	return &mockView{loading: map[ContainerID]bool{}}
}

func (v *mockView) record(op string, id ContainerID, fragment string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, viewCall{op: op, id: id, fragment: fragment})
}

func (v *mockView) Loading(id ContainerID, on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading[id] = on
}

func (v *mockView) Replace(id ContainerID, fragment string)  { v.record("replace", id, fragment) }
func (v *mockView) Append(id ContainerID, fragment string)   { v.record("append", id, fragment) }
func (v *mockView) Restore(id ContainerID)                   { v.record("restore", id, "") }
func (v *mockView) ShowEmpty(id ContainerID, message string) { v.record("empty", id, message) }

func (v *mockView) Observe(id ContainerID, fire func()) Observer {
	v.record("observe", id, "")
	o := &mockObserver{fire: fire}
	v.mu.Lock()
	v.observers = append(v.observers, o)
	v.mu.Unlock()
	return o
}

func (v *mockView) ops() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.calls))
	for i, c := range v.calls {
		out[i] = c.op
	}
	return out
}

func (v *mockView) last() viewCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[len(v.calls)-1]
}

// --- Clock mock ---

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward, running due callbacks in time order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// --- Form and Submitter mocks ---

type mockForm struct {
	state  FormState
	resets int
}

func (f *mockForm) Snapshot() FormState { return f.state }
func (f *mockForm) Reset()              { f.resets++; f.state.Groups = nil }

type mockSubmitter struct {
	mu   sync.Mutex
	subs []Submission
}

func (m *mockSubmitter) Submit(_ context.Context, sub Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, sub)
	return nil
}

func (m *mockSubmitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
