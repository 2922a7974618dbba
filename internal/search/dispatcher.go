package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/debuglog"
)

// Querier runs one remote lookup; catalog.Client implements it.
type Querier interface {
	Search(ctx context.Context, text string, page int) (*catalog.Page, error)
}

// Snapshot is the dispatcher state handed to the view. Token grows with
// every lookup or clear; a consumer receiving snapshots out of order keeps
// the one with the highest token.
type Snapshot struct {
	Text    string
	Items   []catalog.Item
	Token   uint64
	Failed  bool
	Loading bool
}

const (
	DefaultDebounce      = 400 * time.Millisecond
	DefaultDropdownLimit = 5
	defaultLookupTimeout = 15 * time.Second
)

// Dispatcher turns keystrokes into at most one relevant lookup. Text changes
// restart a quiet-period timer and only its trailing edge dispatches. Each
// dispatch takes a new token; responses carrying an older token are dropped.
type Dispatcher struct {
	querier  Querier
	debounce time.Duration
	limit    int
	minLen   int
	timeout  time.Duration
	onUpdate func(Snapshot)
	log      *debuglog.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending string
	seq     uint64
	timer   *time.Timer
	closed  bool
	snap    Snapshot
}

type DispatcherOption func(*Dispatcher)

func WithDebounce(d time.Duration) DispatcherOption {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.debounce = d
		}
	}
}

// WithLimit caps the number of results kept per lookup.
func WithLimit(n int) DispatcherOption {
	return func(ds *Dispatcher) {
		if n > 0 {
			ds.limit = n
		}
	}
}

// WithMinLength treats shorter (trimmed) text as blank.
func WithMinLength(n int) DispatcherOption {
	return func(ds *Dispatcher) {
		if n > 0 {
			ds.minLen = n
		}
	}
}

func WithLookupTimeout(d time.Duration) DispatcherOption {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.timeout = d
		}
	}
}

// WithOnUpdate registers fn to receive every new snapshot. fn runs without
// the dispatcher lock, possibly on a timer goroutine.
func WithOnUpdate(fn func(Snapshot)) DispatcherOption {
	return func(ds *Dispatcher) { ds.onUpdate = fn }
}

func NewDispatcher(q Querier, opts ...DispatcherOption) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		querier:  q,
		debounce: DefaultDebounce,
		limit:    DefaultDropdownLimit,
		minLen:   1,
		timeout:  defaultLookupTimeout,
		log:      debuglog.WithFields(map[string]interface{}{"component": "dispatcher"}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetText records raw as the pending text and restarts the quiet period.
func (d *Dispatcher) SetText(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.pending = raw
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, func() { d.fire(seq) })
}

// Submit cancels any pending quiet period and looks raw up immediately in the
// calling goroutine. It returns the snapshot after the lookup settled.
func (d *Dispatcher) Submit(raw string) Snapshot {
	d.mu.Lock()
	if d.closed {
		defer d.mu.Unlock()
		return d.snap
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = raw
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	d.fire(seq)
	return d.Snapshot()
}

// Commit hands raw over to a lookup made elsewhere, such as a results feed.
// It cancels any pending quiet period and takes a new token, so neither a
// late timer nor an in-flight response updates the dropdown afterwards.
// The current results are kept.
func (d *Dispatcher) Commit(raw string) Snapshot {
	d.mu.Lock()
	if d.closed {
		defer d.mu.Unlock()
		return d.snap
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = raw
	d.seq++
	d.snap.Token++
	d.snap.Text = strings.TrimSpace(raw)
	d.snap.Loading = false
	d.snap.Failed = false
	snap := d.snap
	d.mu.Unlock()

	d.log.With("token", snap.Token).Debugf("committed %q", snap.Text)
	d.notify(snap)
	return snap
}

// Snapshot returns the current state.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// Close stops the timer and abandons in-flight lookups. Later calls are no-ops.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.cancel()
}

func (d *Dispatcher) blank(text string) bool {
	return utf8.RuneCountInString(text) < d.minLen
}

func (d *Dispatcher) fire(seq uint64) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}

	text := strings.TrimSpace(d.pending)
	d.snap.Token++
	token := d.snap.Token
	d.snap.Text = text
	d.snap.Failed = false

	if d.blank(text) {
		d.snap.Items = nil
		d.snap.Loading = false
		snap := d.snap
		d.mu.Unlock()
		d.notify(snap)
		return
	}

	d.snap.Loading = true
	snap := d.snap
	d.mu.Unlock()
	d.notify(snap)

	d.lookup(token, text)
}

func (d *Dispatcher) lookup(token uint64, text string) {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	log := d.log.With("token", token)
	start := time.Now()
	page, err := d.querier.Search(ctx, text, 1)

	d.mu.Lock()
	if d.closed || token != d.snap.Token {
		d.mu.Unlock()
		log.Debugf("dropping stale response for %q", text)
		return
	}

	d.snap.Loading = false
	if err != nil {
		// Results stay as they were; the flag lasts until the next settlement.
		d.snap.Failed = true
		log.Warnf("lookup %q failed after %s: %v", text, debuglog.Since(start), err)
	} else {
		items := page.Items
		if len(items) > d.limit {
			items = items[:d.limit]
		}
		d.snap.Items = append([]catalog.Item(nil), items...)
		log.Debugf("lookup %q: %d results in %s", text, len(items), debuglog.Since(start))
	}
	snap := d.snap
	d.mu.Unlock()

	d.notify(snap)
}

func (d *Dispatcher) notify(s Snapshot) {
	if d.onUpdate != nil {
		d.onUpdate(s)
	}
}
