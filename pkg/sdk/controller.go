package postfilter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
)

// DefaultNothingFound is shown when a container's fragment renders no text.
const DefaultNothingFound = "Nothing found"

// Transport fetches listing pages. *Client implements it.
type Transport interface {
	Compile(ctx context.Context, req CompileRequest) (Result, error)
	Listing(ctx context.Context, req ListingRequest) (Result, error)
}

// Observer is a live lazy-load watcher on a container.
type Observer interface {
	Disconnect()
}

// View is the rendering target of the containers.
type View interface {
	// Loading toggles the busy indicator of a container.
	Loading(id ContainerID, on bool)
	// Replace swaps the container's content for fragment.
	Replace(id ContainerID, fragment string)
	// Append adds the items of fragment below the current ones and swaps
	// the pagination controls.
	Append(id ContainerID, fragment string)
	// Restore brings back the content the container was registered with.
	Restore(id ContainerID)
	// ShowEmpty renders the nothing-found message.
	ShowEmpty(id ContainerID, message string)
	// Observe starts a lazy-load watcher that calls fire when the end of
	// the container comes into view.
	Observe(id ContainerID, fire func()) Observer
}

// Container is a result container as rendered on page load.
type Container struct {
	Widget       string
	Mode         pagination.Mode
	Page         int
	MaxPage      int
	Where        Page
	NothingFound string
}

// ContainerID addresses a registered container. IDs of disposed containers
// are never valid again.
type ContainerID struct {
	index int
	gen   uint32
}

type slot struct {
	gen      uint32
	live     bool
	cfg      Container
	state    pagination.State
	token    string
	observer Observer
}

// Controller owns the pagination state of every registered container and
// runs their transports. It is safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	slots  []slot
	free   []int
	tr     Transport
	view   View
	logger *slog.Logger
}

// NewController creates a controller. logger may be nil.
func NewController(tr Transport, view View, logger *slog.Logger) *Controller {
	return &Controller{tr: tr, view: view, logger: logger}
}

// Register adds a container and starts its observer when its mode wants one.
func (c *Controller) Register(cfg Container) ContainerID {
	c.mu.Lock()
	var i int
	if n := len(c.free); n > 0 {
		i = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		c.slots = append(c.slots, slot{})
		i = len(c.slots) - 1
	}
	s := &c.slots[i]
	s.gen++
	s.live = true
	s.cfg = cfg
	s.state = pagination.NewState(cfg.Mode, cfg.Page, cfg.MaxPage)
	s.token = ""
	s.observer = nil
	id := ContainerID{index: i, gen: s.gen}
	c.mu.Unlock()

	c.syncObserver(id)
	return id
}

// Dispose removes a container and disconnects its observer. A transport
// still running for it is discarded on arrival.
func (c *Controller) Dispose(id ContainerID) error {
	c.mu.Lock()
	s, err := c.slot(id)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	obs := s.observer
	*s = slot{gen: s.gen}
	c.free = append(c.free, id.index)
	c.mu.Unlock()

	if obs != nil {
		obs.Disconnect()
	}
	return nil
}

// State returns a copy of the container's pagination state.
func (c *Controller) State(id ContainerID) (pagination.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.slot(id)
	if err != nil {
		return pagination.State{}, err
	}
	return s.state, nil
}

// IDs returns the live containers in registration slot order.
func (c *Controller) IDs() []ContainerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []ContainerID
	for i, s := range c.slots {
		if s.live {
			ids = append(ids, ContainerID{index: i, gen: s.gen})
		}
	}
	return ids
}

// Submit sends sub for every container. A container that is already
// loading drops the submission. An empty answer reverts the container to
// the state and content it was registered with.
func (c *Controller) Submit(ctx context.Context, sub Submission) error {
	var errs []error
	for _, id := range c.IDs() {
		err := c.submitOne(ctx, id, sub)
		if err == nil || errors.Is(err, ErrUnknownContainer) || errors.Is(err, ErrInFlight) {
			continue
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Controller) submitOne(ctx context.Context, id ContainerID, sub Submission) error {
	cfg, _, err := c.begin(id, pagination.FilterSubmit)
	if err != nil {
		return err
	}

	res, err := c.tr.Compile(ctx, CompileRequest{Submission: sub, Widget: cfg.Widget, Page: cfg.Where})
	if err != nil {
		c.fail(id, err)
		return fmt.Errorf("submit %s: %w", cfg.Widget, err)
	}

	if res.Empty {
		c.revert(id)
		return nil
	}
	c.succeed(id, pagination.FilterSubmit, 1, res)
	return nil
}

// Advance loads the page after the current one (load more).
func (c *Controller) Advance(ctx context.Context, id ContainerID) error {
	return c.advance(ctx, id, pagination.LoadMore)
}

func (c *Controller) advance(ctx context.Context, id ContainerID, t pagination.Trigger) error {
	cfg, st, err := c.begin(id, t)
	if err != nil {
		return err
	}
	return c.fetch(ctx, id, t, cfg, st.token, st.state.Current()+1)
}

// GoTo loads the page a numbered pagination link points at.
func (c *Controller) GoTo(ctx context.Context, id ContainerID, href string) error {
	target := pagination.PageFromURL(href)
	if target == 0 {
		target = 1
	}
	cfg, st, err := c.begin(id, pagination.NumberedClick)
	if err != nil {
		return err
	}
	return c.fetch(ctx, id, pagination.NumberedClick, cfg, st.token, target)
}

func (c *Controller) fetch(ctx context.Context, id ContainerID, t pagination.Trigger, cfg Container, token string, target int) error {
	res, err := c.tr.Listing(ctx, ListingRequest{Widget: cfg.Widget, Page: target, Token: token, Where: cfg.Where})
	if err != nil {
		c.fail(id, err)
		return fmt.Errorf("load page %d of %s: %w", target, cfg.Widget, err)
	}
	c.succeed(id, t, target, res)
	return nil
}

// begin starts a transport. It returns the container config and a snapshot
// of the slot taken under the lock.
func (c *Controller) begin(id ContainerID, t pagination.Trigger) (Container, slot, error) {
	c.mu.Lock()
	s, err := c.slot(id)
	if err != nil {
		c.mu.Unlock()
		return Container{}, slot{}, err
	}
	if err := s.state.Begin(t); err != nil {
		widget := s.cfg.Widget
		c.mu.Unlock()
		c.debug("transport dropped", "widget", widget, "trigger", string(t), "reason", err.Error())
		return Container{}, slot{}, err
	}
	snap := *s
	c.mu.Unlock()

	c.view.Loading(id, true)
	return snap.cfg, snap, nil
}

func (c *Controller) succeed(id ContainerID, t pagination.Trigger, target int, res Result) {
	c.mu.Lock()
	s, err := c.slot(id)
	if err != nil {
		c.mu.Unlock()
		return
	}
	if res.Page > 0 {
		target = res.Page
	}
	s.state.Succeed(t, target, res.MaxPage)
	if t == pagination.FilterSubmit {
		s.token = res.Token
	}
	msg := s.cfg.NothingFound
	c.mu.Unlock()

	c.view.Loading(id, false)
	switch {
	case !hasText(res.HTML):
		if msg == "" {
			msg = DefaultNothingFound
		}
		c.view.ShowEmpty(id, msg)
	case t == pagination.LoadMore || t == pagination.ObserverFire:
		c.view.Append(id, res.HTML)
	default:
		c.view.Replace(id, res.HTML)
	}
	c.syncObserver(id)
}

func (c *Controller) fail(id ContainerID, err error) {
	c.mu.Lock()
	s, lerr := c.slot(id)
	if lerr != nil {
		c.mu.Unlock()
		return
	}
	s.state.Fail()
	widget := s.cfg.Widget
	c.mu.Unlock()

	c.view.Loading(id, false)
	if c.logger != nil {
		c.logger.Warn("transport failed", "widget", widget, "error", err)
	}
}

func (c *Controller) revert(id ContainerID) {
	c.mu.Lock()
	s, err := c.slot(id)
	if err != nil {
		c.mu.Unlock()
		return
	}
	s.state.Reset(s.cfg.Page, s.cfg.MaxPage)
	s.token = ""
	c.mu.Unlock()

	c.view.Loading(id, false)
	c.view.Restore(id)
	c.syncObserver(id)
}

// syncObserver starts or stops the lazy-load observer to match the state.
func (c *Controller) syncObserver(id ContainerID) {
	c.mu.Lock()
	s, err := c.slot(id)
	if err != nil {
		c.mu.Unlock()
		return
	}
	want := s.state.WantsObserver()
	live := s.observer
	if want == (live != nil) {
		c.mu.Unlock()
		return
	}
	if !want {
		s.observer = nil
		c.mu.Unlock()
		live.Disconnect()
		return
	}
	c.mu.Unlock()

	obs := c.view.Observe(id, func() {
		if err := c.advance(context.Background(), id, pagination.ObserverFire); err != nil {
			c.debug("observer fire ignored", "error", err.Error())
		}
	})

	// fire may already have run inside Observe and changed the state.
	c.mu.Lock()
	s, err = c.slot(id)
	if err != nil || s.observer != nil || !s.state.WantsObserver() {
		c.mu.Unlock()
		obs.Disconnect()
		return
	}
	s.observer = obs
	c.mu.Unlock()
}

// slot returns the live slot for id. c.mu must be held.
func (c *Controller) slot(id ContainerID) (*slot, error) {
	if id.index < 0 || id.index >= len(c.slots) {
		return nil, ErrUnknownContainer
	}
	s := &c.slots[id.index]
	if !s.live || s.gen != id.gen {
		return nil, ErrUnknownContainer
	}
	return s, nil
}

func (c *Controller) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
