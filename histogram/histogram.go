// Package histogram counts how many hops the delivered messages took.
package histogram

import (
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
)

// Row is one line of the histogram.
type Row struct {
	Hops  int    `json:"hops"`
	Count uint64 `json:"count"`
}

// Histogram maps a hop count to the number of messages delivered with that
// hop count. It is safe for concurrent use.
type Histogram struct {
	lock   sync.Mutex
	counts map[int]uint64
	total  uint64
	sum    uint64
	max    int
}

// New creates an empty Histogram.
func New() *Histogram {
	return &Histogram{
		counts: make(map[int]uint64),
	}
}

// Record adds one delivered message that took hops hops.
func (h *Histogram) Record(hops int) {
	if hops < 0 {
		log.Panicf("hop count cannot be negative, got %d", hops)
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	h.counts[hops]++
	h.total++
	h.sum += uint64(hops)

	if hops > h.max {
		h.max = hops
	}
}

// Rows returns one row per distinct hop count, sorted by hop count.
func (h *Histogram) Rows() []Row {
	h.lock.Lock()
	rows := make([]Row, 0, len(h.counts))
	for hops, count := range h.counts {
		rows = append(rows, Row{Hops: hops, Count: count})
	}
	h.lock.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Hops < rows[j].Hops
	})

	return rows
}

// Total returns the number of recorded messages.
func (h *Histogram) Total() uint64 {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.total
}

// Mean returns the average hop count, or 0 if nothing is recorded.
func (h *Histogram) Mean() float64 {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.total == 0 {
		return 0
	}

	return float64(h.sum) / float64(h.total)
}

// Max returns the largest recorded hop count.
func (h *Histogram) Max() int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.max
}

// Render writes rows as "<hops> hops  <count> times" lines.
func Render(w io.Writer, rows []Row) error {
	for _, r := range rows {
		_, err := fmt.Fprintf(w, "%d hops  %d times\n", r.Hops, r.Count)
		if err != nil {
			return err
		}
	}

	return nil
}
