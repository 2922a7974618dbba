package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/reel/internal/catalog"
)

type call struct {
	source catalog.Source
	page   int
}

// fakePager serves scripted pages. When gate is set, every call blocks until
// a value is sent on it (or the context ends).
type fakePager struct {
	mu      sync.Mutex
	pages   map[int]*catalog.Page
	errs    map[int]error
	calls   []call
	gate    chan struct{}
	started chan call
}

func newFakePager() *fakePager {
	return &fakePager{
		pages:   make(map[int]*catalog.Page),
		errs:    make(map[int]error),
		started: make(chan call, 64),
	}
}

func (f *fakePager) FetchPage(ctx context.Context, source catalog.Source, page int) (*catalog.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{source, page})
	gate := f.gate
	f.mu.Unlock()

	f.started <- call{source, page}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[page]; err != nil {
		delete(f.errs, page)
		return nil, err
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &catalog.Page{Page: page, TotalPages: page}, nil
}

func (f *fakePager) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakePager) callList() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func items(start, n int) []catalog.Item {
	out := make([]catalog.Item, n)
	for i := range out {
		out[i] = catalog.Item{ID: start + i, Title: fmt.Sprintf("Item %d", start+i)}
	}
	return out
}

func TestController_ExhaustsOnEmptyPage(t *testing.T) {
	pager := newFakePager()
	pager.pages[1] = &catalog.Page{Items: items(1, 20), Page: 1, TotalPages: 5}
	pager.pages[2] = &catalog.Page{Items: nil, Page: 2, TotalPages: 5}

	c := NewController(pager)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, catalog.Popular))
	st := c.State()
	assert.Equal(t, Idle, st.Status)
	assert.Equal(t, 2, st.Cursor)
	assert.Len(t, st.Items, 20)

	assert.True(t, c.Advance(ctx))
	st = c.State()
	assert.Equal(t, Exhausted, st.Status)
	assert.Len(t, st.Items, 20)

	for i := 0; i < 3; i++ {
		assert.False(t, c.Advance(ctx))
	}
	assert.ErrorIs(t, c.Fetch(ctx), ErrExhausted)
	assert.Equal(t, []call{{catalog.Popular, 1}, {catalog.Popular, 2}}, pager.callList())
}

func TestController_PagesPastFilteredPage(t *testing.T) {
	pager := newFakePager()
	src := catalog.SearchFor("bat")
	pager.pages[1] = &catalog.Page{Items: items(1, 2), Page: 1, TotalPages: 5}
	pager.pages[2] = &catalog.Page{Page: 2, TotalPages: 5, Fetched: 20}
	pager.pages[3] = &catalog.Page{Items: items(3, 2), Page: 3, TotalPages: 5}

	c := NewController(pager)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, src))
	require.True(t, c.Advance(ctx))
	st := c.State()
	assert.Equal(t, Idle, st.Status)
	assert.Equal(t, 3, st.Cursor)
	assert.Len(t, st.Items, 2)

	require.True(t, c.Advance(ctx))
	st = c.State()
	assert.Equal(t, Idle, st.Status)
	assert.Equal(t, 4, st.Cursor)
	assert.Len(t, st.Items, 4)
	assert.Equal(t, []call{{src, 1}, {src, 2}, {src, 3}}, pager.callList())
}

func TestController_ExhaustsOnFinalPage(t *testing.T) {
	pager := newFakePager()
	src := catalog.Similar(603)
	pager.pages[1] = &catalog.Page{Items: items(1, 2), Page: 1, TotalPages: 5}
	pager.pages[2] = &catalog.Page{Page: 2, TotalPages: 5, Fetched: 20, Final: true}

	c := NewController(pager)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, src))
	require.True(t, c.Advance(ctx))
	assert.Equal(t, Exhausted, c.State().Status)
	assert.False(t, c.Advance(ctx))
	assert.Equal(t, 2, pager.callCount())
}

func TestController_ExhaustsOnLastPage(t *testing.T) {
	pager := newFakePager()
	pager.pages[1] = &catalog.Page{Items: items(1, 20), Page: 1, TotalPages: 2}
	pager.pages[2] = &catalog.Page{Items: items(21, 7), Page: 2, TotalPages: 2}

	c := NewController(pager)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, catalog.TopRated))
	require.True(t, c.Advance(ctx))

	st := c.State()
	assert.Equal(t, Exhausted, st.Status)
	assert.Len(t, st.Items, 27)
	assert.Equal(t, 3, st.Cursor)
	assert.Equal(t, 2, st.TotalPages)
	assert.False(t, c.Advance(ctx))
	assert.Equal(t, 2, pager.callCount())
}

func TestController_AppendsInArrivalOrder(t *testing.T) {
	pager := newFakePager()
	for p := 1; p <= 3; p++ {
		pager.pages[p] = &catalog.Page{Items: items((p-1)*3+1, 3), Page: p, TotalPages: 10}
	}

	c := NewController(pager)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, catalog.Upcoming))
	c.Advance(ctx)
	c.Advance(ctx)

	var ids []int
	for _, it := range c.State().Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, ids)
	assert.Equal(t, 4, c.State().Cursor)
}

func TestController_NoOverlappingFetch(t *testing.T) {
	pager := newFakePager()
	pager.pages[1] = &catalog.Page{Items: items(1, 20), Page: 1, TotalPages: 5}
	pager.pages[2] = &catalog.Page{Items: items(21, 20), Page: 2, TotalPages: 5}

	c := NewController(pager)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, catalog.Popular))
	<-pager.started

	gate := make(chan struct{})
	pager.mu.Lock()
	pager.gate = gate
	pager.mu.Unlock()

	done := make(chan bool)
	go func() { done <- c.Advance(ctx) }()
	<-pager.started

	// Every further signal while page 2 is in flight is ignored.
	for i := 0; i < 10; i++ {
		assert.False(t, c.Advance(ctx))
		assert.ErrorIs(t, c.Fetch(ctx), ErrBusy)
	}
	assert.Equal(t, Fetching, c.State().Status)

	close(gate)
	assert.True(t, <-done)
	assert.Equal(t, 2, pager.callCount())
	assert.Len(t, c.State().Items, 40)
}

func TestController_ConcurrentAdvance(t *testing.T) {
	pager := newFakePager()
	for p := 1; p <= 50; p++ {
		pager.pages[p] = &catalog.Page{Items: items(p*100, 2), Page: p, TotalPages: 50}
	}

	c := NewController(pager)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, catalog.Popular))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Advance(ctx)
			}
		}()
	}
	wg.Wait()

	// Every requested page is distinct and contiguous from 1.
	calls := pager.callList()
	for i, cl := range calls {
		assert.Equal(t, i+1, cl.page)
	}
	st := c.State()
	assert.Len(t, st.Items, 2*len(calls))
	assert.Equal(t, len(calls)+1, st.Cursor)
}

func TestController_FailureThenRetrySameCursor(t *testing.T) {
	pager := newFakePager()
	pager.pages[1] = &catalog.Page{Items: items(1, 20), Page: 1, TotalPages: 5}
	pager.pages[2] = &catalog.Page{Items: items(21, 20), Page: 2, TotalPages: 5}
	boom := &catalog.UpstreamError{Status: 503}
	pager.errs[2] = boom

	c := NewController(pager)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, catalog.Popular))

	assert.True(t, c.Advance(ctx))
	st := c.State()
	assert.Equal(t, Failed, st.Status)
	assert.Equal(t, 2, st.Cursor)
	assert.Len(t, st.Items, 20)

	var upstream *catalog.UpstreamError
	require.True(t, errors.As(st.LastErr, &upstream))
	assert.Equal(t, 503, upstream.Status)

	assert.True(t, c.Advance(ctx))
	st = c.State()
	assert.Equal(t, Idle, st.Status)
	assert.Nil(t, st.LastErr)
	assert.Equal(t, 3, st.Cursor)
	assert.Len(t, st.Items, 40)
	assert.Equal(t, []call{{catalog.Popular, 1}, {catalog.Popular, 2}, {catalog.Popular, 2}}, pager.callList())
}

func TestController_FetchTimeout(t *testing.T) {
	pager := newFakePager()
	pager.gate = make(chan struct{})

	c := NewController(pager, WithFetchTimeout(30*time.Millisecond))
	err := c.Start(context.Background(), catalog.Popular)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	st := c.State()
	assert.Equal(t, Failed, st.Status)
	assert.Equal(t, 1, st.Cursor)
}

func TestController_RestartDropsStaleResult(t *testing.T) {
	pager := newFakePager()
	gate := make(chan struct{})
	pager.gate = gate

	c := NewController(pager)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.Start(ctx, catalog.Similar(1)) }()
	<-pager.started

	pager.mu.Lock()
	pager.gate = nil
	pager.pages[1] = &catalog.Page{Items: items(500, 4), Page: 1, TotalPages: 3}
	pager.mu.Unlock()

	require.NoError(t, c.Start(ctx, catalog.Similar(2)))
	<-pager.started

	// The first fetch was cancelled by the restart and its result discarded.
	assert.ErrorIs(t, <-firstDone, ErrStale)

	st := c.State()
	assert.Equal(t, catalog.Similar(2), st.Source)
	assert.Equal(t, uint64(2), st.Generation)
	assert.Len(t, st.Items, 4)
	assert.Equal(t, Idle, st.Status)
}

func TestController_StartResets(t *testing.T) {
	pager := newFakePager()
	pager.pages[1] = &catalog.Page{Items: items(1, 3), Page: 1, TotalPages: 1}

	c := NewController(pager)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, catalog.Popular))
	require.Equal(t, Exhausted, c.State().Status)

	require.NoError(t, c.Start(ctx, catalog.Upcoming))
	st := c.State()
	assert.Equal(t, catalog.Upcoming, st.Source)
	assert.Len(t, st.Items, 3)
	assert.Equal(t, Exhausted, st.Status)
	assert.Equal(t, 2, pager.callCount())
}

func TestController_NotStarted(t *testing.T) {
	c := NewController(newFakePager())
	assert.False(t, c.Advance(context.Background()))
	assert.ErrorIs(t, c.Fetch(context.Background()), ErrNotStarted)
}

func TestController_Dedupe(t *testing.T) {
	tests := []struct {
		name   string
		dedupe bool
		want   int
	}{
		{"append only", false, 6},
		{"dedupe", true, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := newFakePager()
			pager.pages[1] = &catalog.Page{Items: items(1, 3), Page: 1, TotalPages: 3}
			// Upstream ordering shifted: two ids repeat on page 2.
			pager.pages[2] = &catalog.Page{Items: items(2, 3), Page: 2, TotalPages: 3}

			c := NewController(pager, WithDedupe(tt.dedupe))
			ctx := context.Background()
			require.NoError(t, c.Start(ctx, catalog.Popular))
			c.Advance(ctx)

			assert.Len(t, c.State().Items, tt.want)
		})
	}
}

func TestController_OnChange(t *testing.T) {
	pager := newFakePager()
	pager.pages[1] = &catalog.Page{Items: items(1, 2), Page: 1, TotalPages: 2}

	var statuses []Status
	var count atomic.Int32
	c := NewController(pager, WithOnChange(func(s Snapshot) {
		count.Add(1)
		statuses = append(statuses, s.Status)
	}))

	require.NoError(t, c.Start(context.Background(), catalog.Popular))
	assert.Equal(t, []Status{Fetching, Idle}, statuses)
	assert.Equal(t, int32(2), count.Load())
}

func TestSnapshot_IsStable(t *testing.T) {
	pager := newFakePager()
	pager.pages[1] = &catalog.Page{Items: items(1, 2), Page: 1, TotalPages: 3}
	pager.pages[2] = &catalog.Page{Items: items(3, 2), Page: 2, TotalPages: 3}

	c := NewController(pager)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, catalog.Popular))

	before := c.State()
	c.Advance(ctx)

	assert.Len(t, before.Items, 2)
	assert.Len(t, c.State().Items, 4)
}

func TestSnapshot_DoesNotAlias(t *testing.T) {
	pager := newFakePager()
	pager.pages[1] = &catalog.Page{Items: items(1, 2), Page: 1, TotalPages: 3}

	c := NewController(pager)
	require.NoError(t, c.Start(context.Background(), catalog.Popular))

	snap := c.State()
	snap.Items[0].Title = "changed"
	assert.Equal(t, "Item 1", c.State().Items[0].Title)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "fetching", Fetching.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Status(9).String())
}
