package feed

import (
	"strings"
	"sync"

	"github.com/pders01/reel/internal/catalog"
)

// Position is a scroll signal in rows: the first visible row, the number of
// visible rows, and the total rows of rendered content.
type Position struct {
	Offset   int
	Viewport int
	Content  int
}

// Remaining is the number of content rows below the viewport. It is negative
// when the content does not fill the viewport.
func (p Position) Remaining() int {
	return p.Content - (p.Offset + p.Viewport)
}

// Trigger turns a stream of positions into edge-triggered "near the end"
// signals. It fires once per entry into the proximity band and re-arms when
// the position leaves the band or Rearm is called.
type Trigger struct {
	mu        sync.Mutex
	threshold int
	armed     bool
}

func NewTrigger(threshold int) *Trigger {
	if threshold < 0 {
		threshold = 0
	}
	return &Trigger{threshold: threshold, armed: true}
}

func (t *Trigger) Threshold() int {
	return t.threshold
}

// Observe reports whether p should advance the feed.
func (t *Trigger) Observe(p Position) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.Remaining() > t.threshold {
		t.armed = true
		return false
	}
	if !t.armed {
		return false
	}
	t.armed = false
	return true
}

// Rearm allows the next in-band position to fire again, typically once the
// feed settles back to Idle while the view still sits at the end.
func (t *Trigger) Rearm() {
	t.mu.Lock()
	t.armed = true
	t.mu.Unlock()
}

// Proximity bands per surface, in pixels of the graphical client. The list
// surfaces use the reference band of 800.
const (
	homeBand    = 500
	listBand    = 800
	similarBand = 1000
)

// ThresholdFor scales the reference row count to the surface listing source.
// The home surface, which shows a hero item above the list, passes home=true.
func ThresholdFor(source catalog.Source, rows int, home bool) int {
	band := listBand
	switch {
	case home:
		band = homeBand
	case strings.HasPrefix(string(source), "similar/"):
		band = similarBand
	}
	scaled := (rows*band + listBand - 1) / listBand
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}
