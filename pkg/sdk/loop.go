package postfilter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default timings of a Loop.
const (
	DefaultDebounce = 700 * time.Millisecond
	DefaultSettle   = 700 * time.Millisecond
)

// FormState is a snapshot of the filter form.
type FormState struct {
	Nonce       string
	Groups      []Group
	Search      string
	OrderBy     string
	Order       string
	OrderByMeta string
	Archive     Archive
}

// Form is the filter form the loop reads from.
type Form interface {
	Snapshot() FormState
	// Reset returns every control to its rendered default.
	Reset()
}

// Submitter sends a submission to every container. *Controller implements it.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) error
}

// Loop turns control changes into submissions. Changes are debounced;
// while the user is mid-interaction (dragging a range, typing) nothing
// fires until the interaction has settled. Sort changes fire at once.
type Loop struct {
	mu          sync.Mutex
	sub         Submitter
	form        Form
	clock       Clock
	debounce    time.Duration
	settle      time.Duration
	manual      bool
	logger      *slog.Logger
	timer       Timer
	settleTimer Timer
	interacting bool
	pending     bool
	stopped     bool
}

// NewLoop creates a loop submitting through sub.
func NewLoop(sub Submitter, form Form, opts ...LoopOption) *Loop {
	l := &Loop{
		sub:      sub,
		form:     form,
		clock:    realClock{},
		debounce: DefaultDebounce,
		settle:   DefaultSettle,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Changed records a control change.
func (l *Loop) Changed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.manual || l.stopped {
		return
	}
	l.pending = true
	if l.interacting {
		return
	}
	l.schedule()
}

// SortChanged fires immediately; ordering changes are not debounced.
func (l *Loop) SortChanged() {
	l.mu.Lock()
	if l.manual || l.stopped {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.mu.Unlock()
	l.fire()
}

// InteractionStart holds submissions back until InteractionEnd.
func (l *Loop) InteractionStart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.interacting = true
	l.cancel()
}

// InteractionEnd fires a pending change once the settle delay passes
// without a new interaction.
func (l *Loop) InteractionEnd() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	if l.settleTimer != nil {
		l.settleTimer.Stop()
	}
	l.settleTimer = l.clock.AfterFunc(l.settle, func() {
		l.mu.Lock()
		l.interacting = false
		l.settleTimer = nil
		fire := l.pending && !l.manual && !l.stopped
		l.mu.Unlock()
		if fire {
			l.fire()
		}
	})
}

// Submit fires now, in any mode.
func (l *Loop) Submit() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.mu.Unlock()
	l.fire()
}

// Reset returns the form to its defaults and fires; the empty submission
// reverts every container.
func (l *Loop) Reset() {
	l.form.Reset()
	l.Submit()
}

// Stop cancels pending timers. The loop ignores every later event.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	l.cancel()
}

// schedule restarts the debounce timer. l.mu must be held.
func (l *Loop) schedule() {
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = l.clock.AfterFunc(l.debounce, func() {
		l.mu.Lock()
		l.timer = nil
		fire := !l.interacting && !l.stopped
		l.mu.Unlock()
		if fire {
			l.fire()
		}
	})
}

// cancel stops every timer and forgets the pending change. l.mu must be held.
func (l *Loop) cancel() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.settleTimer != nil {
		l.settleTimer.Stop()
		l.settleTimer = nil
	}
	if !l.interacting {
		l.pending = false
	}
}

func (l *Loop) fire() {
	l.mu.Lock()
	l.pending = false
	l.mu.Unlock()

	f := l.form.Snapshot()
	sub := Submission{
		Nonce:       f.Nonce,
		Criteria:    Reduce(Collect(f.Groups)),
		Search:      f.Search,
		OrderBy:     f.OrderBy,
		Order:       f.Order,
		OrderByMeta: f.OrderByMeta,
		Archive:     f.Archive,
	}
	if err := l.sub.Submit(context.Background(), sub); err != nil && l.logger != nil {
		l.logger.Warn("filter submission failed", "error", err)
	}
}
