// Package pagination tracks per-container page state and builds page links.
package pagination

import "errors"

// Mode is how a result container moves between pages.
type Mode string

// Pagination modes.
const (
	None             Mode = "none"
	Numbered         Mode = "numbers"
	NumberedPrevNext Mode = "numbers_and_prev_next"
	LoadMoreClick    Mode = "load_more_on_click"
	LoadMoreInfinite Mode = "load_more_infinite_scroll"
)

// ParseMode maps a widget setting to a Mode. "prev_next" renders the same
// controls as NumberedPrevNext; anything unknown disables pagination.
func ParseMode(s string) Mode {
	switch m := Mode(s); m {
	case Numbered, NumberedPrevNext, LoadMoreClick, LoadMoreInfinite:
		return m
	case "prev_next":
		return NumberedPrevNext
	}
	return None
}

// Appends reports whether new pages are appended below the current ones.
func (m Mode) Appends() bool {
	return m == LoadMoreClick || m == LoadMoreInfinite
}

// Phase is the transport phase of a container.
type Phase string

// Phases.
const (
	Idle      Phase = "idle"
	Loading   Phase = "loading"
	Exhausted Phase = "exhausted"
)

// Trigger is what started a transport.
type Trigger string

// Triggers.
const (
	FilterSubmit  Trigger = "filter"
	NumberedClick Trigger = "numbered"
	LoadMore      Trigger = "load_more"
	ObserverFire  Trigger = "observer"
)

// Errors returned by Begin.
var (
	ErrInFlight  = errors.New("pagination: transport already in flight")
	ErrExhausted = errors.New("pagination: no further pages")
)

// State is the page state of one result container.
type State struct {
	mode     Mode
	current  int
	max      int
	phase    Phase
	resume   Phase
	inFlight bool
}

// NewState creates a state at rest. current is clamped to at least 1; an
// appending container that starts on its last page starts Exhausted.
func NewState(mode Mode, current, maxPage int) State {
	s := State{mode: mode}
	s.set(current, maxPage)
	s.settle()
	return s
}

// Mode returns the pagination mode.
func (s *State) Mode() Mode { return s.mode }

// Current returns the 1-based current page.
func (s *State) Current() int { return s.current }

// Max returns the last page number.
func (s *State) Max() int { return s.max }

// Phase returns the transport phase.
func (s *State) Phase() Phase { return s.phase }

// InFlight reports whether a transport is running.
func (s *State) InFlight() bool { return s.inFlight }

// HasNext reports whether a page after the current one exists.
func (s *State) HasNext() bool { return s.current < s.max }

// WantsObserver reports whether a lazy-load observer should be live.
func (s *State) WantsObserver() bool {
	return s.mode == LoadMoreInfinite && s.phase != Exhausted && s.HasNext()
}

// Begin moves the state to Loading. Only one transport runs at a time, and
// once Exhausted only a filter submit may start one.
func (s *State) Begin(t Trigger) error {
	if s.inFlight {
		return ErrInFlight
	}
	switch t {
	case LoadMore, ObserverFire:
		if s.phase == Exhausted || !s.HasNext() {
			return ErrExhausted
		}
	case NumberedClick:
		if s.phase == Exhausted {
			return ErrExhausted
		}
	case FilterSubmit:
	}
	s.resume = s.phase
	s.phase = Loading
	s.inFlight = true
	return nil
}

// Succeed applies a completed fetch. target is the page that was requested
// and maxPage the page count reported with the response.
func (s *State) Succeed(t Trigger, target, maxPage int) {
	current := s.current
	switch t {
	case LoadMore, ObserverFire:
		current++
	case NumberedClick, FilterSubmit:
		current = target
	}
	s.set(current, maxPage)
	s.inFlight = false
	s.settle()
}

// Fail ends a transport without touching the page counters.
func (s *State) Fail() {
	s.inFlight = false
	s.phase = s.resume
}

// Reset re-initializes the container, e.g. after a filter is reverted.
func (s *State) Reset(current, maxPage int) {
	s.set(current, maxPage)
	s.inFlight = false
	s.settle()
	s.resume = s.phase
}

func (s *State) set(current, maxPage int) {
	s.current = max(current, 1)
	s.max = max(maxPage, 0)
}

func (s *State) settle() {
	s.phase = Idle
	if s.mode.Appends() && !s.HasNext() {
		s.phase = Exhausted
	}
}
