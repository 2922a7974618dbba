package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/reel/internal/catalog"
)

type fakeQuerier struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan struct{}
	fail  map[string]bool
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{gates: make(map[string]chan struct{}), fail: make(map[string]bool)}
}

func (f *fakeQuerier) Search(ctx context.Context, text string, page int) (*catalog.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	gate := f.gates[text]
	fail := f.fail[text]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("upstream down")
	}

	items := make([]catalog.Item, 8)
	for i := range items {
		items[i] = catalog.Item{ID: i + 1, Title: fmt.Sprintf("%s %d", text, i+1)}
	}
	return &catalog.Page{Items: items, Page: page, TotalPages: 3}, nil
}

func (f *fakeQuerier) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// updates collects snapshots pushed by the dispatcher.
type updates struct {
	ch chan Snapshot
}

func newUpdates() *updates { return &updates{ch: make(chan Snapshot, 64)} }

func (u *updates) push(s Snapshot) { u.ch <- s }

// settled waits for a snapshot that is not loading.
func (u *updates) settled(t *testing.T) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-u.ch:
			if !s.Loading {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for dispatcher update")
			return Snapshot{}
		}
	}
}

func TestDispatcher_DebounceCollapsesTyping(t *testing.T) {
	q := newFakeQuerier()
	u := newUpdates()
	d := NewDispatcher(q, WithDebounce(40*time.Millisecond), WithOnUpdate(u.push))
	defer d.Close()

	d.SetText("bat")
	time.Sleep(5 * time.Millisecond)
	d.SetText("batman")

	s := u.settled(t)
	assert.Equal(t, "batman", s.Text)
	assert.Len(t, s.Items, DefaultDropdownLimit)
	assert.Equal(t, "batman 1", s.Items[0].Title)

	// Give a stray timer for "bat" time to fire if it were still armed.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"batman"}, q.callList())
}

func TestDispatcher_TrailingEdgeOnly(t *testing.T) {
	q := newFakeQuerier()
	d := NewDispatcher(q, WithDebounce(50*time.Millisecond))
	defer d.Close()

	for _, s := range []string{"d", "du", "dun", "dune"} {
		d.SetText(s)
		time.Sleep(10 * time.Millisecond)
	}
	assert.Empty(t, q.callList())

	require.Eventually(t, func() bool { return len(q.callList()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"dune"}, q.callList())
}

func TestDispatcher_StaleResponseDropped(t *testing.T) {
	q := newFakeQuerier()
	gate := make(chan struct{})
	q.gates["alien"] = gate

	d := NewDispatcher(q)
	defer d.Close()

	slow := make(chan Snapshot)
	go func() { slow <- d.Submit("alien") }()
	require.Eventually(t, func() bool { return len(q.callList()) == 1 }, time.Second, time.Millisecond)

	fresh := d.Submit("aliens")
	assert.Equal(t, "aliens", fresh.Text)
	assert.Equal(t, "aliens 1", fresh.Items[0].Title)

	close(gate)
	<-slow

	s := d.Snapshot()
	assert.Equal(t, fresh.Token, s.Token)
	assert.Equal(t, "aliens 1", s.Items[0].Title)
}

func TestDispatcher_BlankClears(t *testing.T) {
	q := newFakeQuerier()
	d := NewDispatcher(q)
	defer d.Close()

	first := d.Submit("heat")
	require.NotEmpty(t, first.Items)

	cleared := d.Submit("   ")
	assert.Empty(t, cleared.Items)
	assert.Greater(t, cleared.Token, first.Token)
	assert.False(t, cleared.Loading)
	assert.Equal(t, []string{"heat"}, q.callList())
}

func TestDispatcher_BlankInvalidatesInFlight(t *testing.T) {
	q := newFakeQuerier()
	gate := make(chan struct{})
	q.gates["ronin"] = gate

	d := NewDispatcher(q)
	defer d.Close()

	done := make(chan struct{})
	go func() { d.Submit("ronin"); close(done) }()
	require.Eventually(t, func() bool { return len(q.callList()) == 1 }, time.Second, time.Millisecond)

	d.Submit("")
	close(gate)
	<-done

	assert.Empty(t, d.Snapshot().Items)
}

func TestDispatcher_MinLength(t *testing.T) {
	q := newFakeQuerier()
	d := NewDispatcher(q, WithMinLength(3))
	defer d.Close()

	s := d.Submit("up")
	assert.Empty(t, s.Items)
	assert.Empty(t, q.callList())

	s = d.Submit("up!")
	assert.NotEmpty(t, s.Items)
}

func TestDispatcher_FailureKeepsResults(t *testing.T) {
	q := newFakeQuerier()
	q.fail["broken"] = true

	d := NewDispatcher(q, WithLimit(3))
	defer d.Close()

	ok := d.Submit("jaws")
	require.Len(t, ok.Items, 3)

	failed := d.Submit("broken")
	assert.True(t, failed.Failed)
	assert.False(t, failed.Loading)
	assert.Equal(t, ok.Items, failed.Items)

	recovered := d.Submit("jaws 2")
	assert.False(t, recovered.Failed)
	assert.Equal(t, "jaws 2 1", recovered.Items[0].Title)
}

func TestDispatcher_SubmitCancelsPendingTimer(t *testing.T) {
	q := newFakeQuerier()
	d := NewDispatcher(q, WithDebounce(30*time.Millisecond))
	defer d.Close()

	d.SetText("memento")
	d.Submit("inception")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"inception"}, q.callList())
}

func TestDispatcher_CommitSkipsLookup(t *testing.T) {
	q := newFakeQuerier()
	u := newUpdates()
	d := NewDispatcher(q, WithDebounce(30*time.Millisecond), WithOnUpdate(u.push))
	defer d.Close()

	d.SetText("memento")
	snap := d.Commit("memento")
	assert.Equal(t, "memento", snap.Text)
	assert.False(t, snap.Loading)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, q.callList())
	assert.Len(t, u.ch, 1)
}

func TestDispatcher_CommitDropsInFlight(t *testing.T) {
	q := newFakeQuerier()
	gate := make(chan struct{})
	q.gates["heat"] = gate
	d := NewDispatcher(q)
	defer d.Close()

	done := make(chan Snapshot, 1)
	go func() { done <- d.Submit("heat") }()
	require.Eventually(t, func() bool { return len(q.callList()) == 1 }, time.Second, time.Millisecond)

	committed := d.Commit("heat")
	close(gate)

	got := <-done
	assert.Equal(t, committed.Token, got.Token)
	assert.Empty(t, got.Items)
}

func TestDispatcher_Close(t *testing.T) {
	q := newFakeQuerier()
	d := NewDispatcher(q, WithDebounce(20*time.Millisecond))

	d.SetText("tenet")
	d.Close()
	d.Close()
	d.SetText("tenet")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, q.callList())
	assert.Empty(t, d.Submit("tenet").Items)
}

func TestDispatcher_TokensIncrease(t *testing.T) {
	q := newFakeQuerier()
	u := newUpdates()
	d := NewDispatcher(q, WithOnUpdate(u.push))
	defer d.Close()

	d.Submit("a1")
	d.Submit("a2")
	close(u.ch)

	var last uint64
	for s := range u.ch {
		assert.GreaterOrEqual(t, s.Token, last)
		last = s.Token
	}
	assert.Equal(t, uint64(2), last)
}
