package feed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/debuglog"
)

// Status is the fetch state of a Controller.
type Status int

const (
	Idle Status = iota
	Fetching
	Exhausted
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrExhausted  = errors.New("feed exhausted")
	ErrBusy       = errors.New("fetch already in flight")
	ErrNotStarted = errors.New("feed not started")
	// ErrStale is returned to the caller of a fetch whose result was dropped
	// because the controller was restarted meanwhile.
	ErrStale = errors.New("feed restarted")
)

// DefaultFetchTimeout bounds a single page request.
const DefaultFetchTimeout = 15 * time.Second

// Snapshot is a read-only view of a Controller's state.
type Snapshot struct {
	Source     catalog.Source
	Items      []catalog.Item
	Cursor     int
	TotalPages int
	Status     Status
	LastErr    error
	Generation uint64
}

// Controller accumulates the pages of one listing. At most one fetch is in
// flight per generation; Start begins a new generation and drops whatever the
// previous one still had pending.
type Controller struct {
	pager    catalog.Pager
	timeout  time.Duration
	dedupe   bool
	onChange func(Snapshot)
	log      *debuglog.FieldLogger

	mu         sync.Mutex
	source     catalog.Source
	gen        uint64
	items      []catalog.Item
	seen       map[int]struct{}
	cursor     int
	totalPages int
	status     Status
	lastErr    error
	cancel     context.CancelFunc
}

type Option func(*Controller)

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDedupe skips items whose id was already accumulated.
func WithDedupe(on bool) Option {
	return func(c *Controller) { c.dedupe = on }
}

// WithOnChange registers fn to run after every state transition. fn is
// called without the controller lock held.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

func NewController(pager catalog.Pager, opts ...Option) *Controller {
	c := &Controller{
		pager:   pager,
		timeout: DefaultFetchTimeout,
		cursor:  1,
		log:     debuglog.WithFields(map[string]interface{}{"component": "feed"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start resets the controller to source and fetches page 1 in the calling
// goroutine.
func (c *Controller) Start(ctx context.Context, source catalog.Source) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.source = source
	c.items = nil
	c.seen = nil
	c.cursor = 1
	c.totalPages = 0
	c.lastErr = nil
	c.status = Fetching
	gen := c.gen
	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return c.fetch(fctx, cancel, gen, source, 1)
}

// Advance requests the next page unless a fetch is in flight, the source is
// exhausted, or the controller was never started. It reports whether a fetch
// was issued; the fetch itself runs before Advance returns.
func (c *Controller) Advance(ctx context.Context) bool {
	err := c.Fetch(ctx)
	return !errors.Is(err, ErrBusy) && !errors.Is(err, ErrExhausted) && !errors.Is(err, ErrNotStarted)
}

// Fetch is Advance with the outcome: nil on success, ErrBusy, ErrExhausted
// or ErrNotStarted when nothing was requested, otherwise the fetch error.
func (c *Controller) Fetch(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.source == "":
		c.mu.Unlock()
		return ErrNotStarted
	case c.status == Fetching:
		c.mu.Unlock()
		return ErrBusy
	case c.status == Exhausted:
		c.mu.Unlock()
		return ErrExhausted
	}
	c.status = Fetching
	gen, source, page := c.gen, c.source, c.cursor
	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return c.fetch(fctx, cancel, gen, source, page)
}

func (c *Controller) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, source catalog.Source, page int) error {
	defer cancel()
	log := c.log.With("source", string(source)).With("page", page)

	start := time.Now()
	result, err := c.pager.FetchPage(ctx, source, page)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		log.Debugf("dropping stale result for generation %d", gen)
		return ErrStale
	}
	c.cancel = nil

	if err != nil {
		c.status = Failed
		c.lastErr = err
		snap := c.snapshotLocked()
		c.mu.Unlock()
		log.Warnf("fetch failed after %s: %v", debuglog.Since(start), err)
		c.notify(snap)
		return err
	}

	c.lastErr = nil
	c.merge(result.Items)
	if !result.Empty() {
		c.cursor++
	}
	c.totalPages = result.TotalPages
	c.status = Idle
	if result.Last() {
		c.status = Exhausted
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	log.Debugf("merged %d items in %s, status %s", len(result.Items), debuglog.Since(start), snap.Status)
	c.notify(snap)
	return nil
}

func (c *Controller) merge(items []catalog.Item) {
	if !c.dedupe {
		c.items = append(c.items, items...)
		return
	}
	if c.seen == nil {
		c.seen = make(map[int]struct{}, len(c.items)+len(items))
		for _, it := range c.items {
			c.seen[it.ID] = struct{}{}
		}
	}
	for _, it := range items {
		if _, dup := c.seen[it.ID]; dup {
			continue
		}
		c.seen[it.ID] = struct{}{}
		c.items = append(c.items, it)
	}
}

// State returns the current snapshot.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// snapshotLocked copies the items so a consumer can neither see later
// appends nor write through to the controller.
func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Source:     c.source,
		Items:      slices.Clone(c.items),
		Cursor:     c.cursor,
		TotalPages: c.totalPages,
		Status:     c.status,
		LastErr:    c.lastErr,
		Generation: c.gen,
	}
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
