package crawl

import (
	"sort"
	"sync"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// Position identifies where a detail link was discovered.
type Position struct {
	Start int // index of the start URL in configuration
	Page  int // listing page number within that start URL, from 0
	Entry int // entry index on the listing page
}

func (p Position) less(o Position) bool {
	if p.Start != o.Start {
		return p.Start < o.Start
	}
	if p.Page != o.Page {
		return p.Page < o.Page
	}
	return p.Entry < o.Entry
}

// Collector accumulates accepted papers from concurrent branches of a run.
// Appends are serialized; ordering is applied only when records are read.
type Collector struct {
	mu      sync.Mutex
	entries []collected
}

type collected struct {
	pos Position
	rec types.PaperRecord
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends rec discovered at pos.
func (c *Collector) Add(pos Position, rec types.PaperRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, collected{pos: pos, rec: rec})
}

// Len returns the number of accumulated records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Records returns a copy of the accumulated records sorted by discovery
// position. It never returns nil.
func (c *Collector) Records() []types.PaperRecord {
	c.mu.Lock()
	entries := append([]collected(nil), c.entries...)
	c.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].pos.less(entries[j].pos)
	})

	out := make([]types.PaperRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.rec)
	}
	return out
}
