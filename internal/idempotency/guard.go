// Package idempotency implements the in-memory deduplication cache used by the
// reaction write path.
//
// A Guard remembers which (announcement, user, Idempotency-Key) tuples have
// already been accepted and for how long. Reservations are stored in a map for
// O(1) check-and-reserve and mirrored in an expiry-ordered min-heap, so a sweep
// only touches entries that have actually expired. The sweep runs on a fixed
// period from Run and evicts in bounded batches, releasing the lock between
// batches so request traffic is never stalled behind a long scan.
//
// The Guard is a cache, not a ledger: once a reservation expires a retried
// request is treated as new.
package idempotency

import (
	"container/heap"
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTTL is how long a reservation blocks a retried request.
	DefaultTTL = 5 * time.Minute
	// DefaultSweepInterval is the period of the background sweep.
	DefaultSweepInterval = 60 * time.Second
	// DefaultSweepBatch caps evictions per lock acquisition.
	DefaultSweepBatch = 256
)

// Key identifies one reaction write attempt. It is a struct rather than a
// joined string so ids and tokens may contain any character.
type Key struct {
	AnnouncementID string
	UserID         string
	Token          string
}

// Outcome is the result of CheckAndReserve.
type Outcome int

const (
	// Fresh means the key was not reserved (or had expired) and is now reserved.
	Fresh Outcome = iota
	// Duplicate means an unexpired reservation already existed; nothing changed.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Options configures a Guard. Zero values fall back to the package defaults
// and a real clock.
type Options struct {
	TTL           time.Duration
	SweepInterval time.Duration
	SweepBatch    int
	Clock         clockwork.Clock
}

// Guard is safe for concurrent use.
type Guard struct {
	clock    clockwork.Clock
	ttl      time.Duration
	interval time.Duration
	batch    int

	mu       sync.Mutex
	entries  map[Key]time.Time
	byExpiry expiryHeap
}

// New constructs a Guard. Call Run in its own goroutine to start sweeping.
func New(opts Options) *Guard {
	g := &Guard{
		clock:    opts.Clock,
		ttl:      opts.TTL,
		interval: opts.SweepInterval,
		batch:    opts.SweepBatch,
		entries:  make(map[Key]time.Time),
	}
	if g.clock == nil {
		g.clock = clockwork.NewRealClock()
	}
	if g.ttl <= 0 {
		g.ttl = DefaultTTL
	}
	if g.interval <= 0 {
		g.interval = DefaultSweepInterval
	}
	if g.batch <= 0 {
		g.batch = DefaultSweepBatch
	}
	return g
}

// TTL returns the configured reservation lifetime.
func (g *Guard) TTL() time.Duration { return g.ttl }

// Clock returns the clock shared by reservations and sweeps.
func (g *Guard) Clock() clockwork.Clock { return g.clock }

// Reserve is CheckAndReserve with the guard's clock and TTL.
func (g *Guard) Reserve(key Key) Outcome {
	return g.CheckAndReserve(key, g.clock.Now(), g.ttl)
}

// CheckAndReserve atomically reports whether key holds an unexpired
// reservation at now. If it does, Duplicate is returned and nothing changes.
// Otherwise key is reserved until now+ttl and Fresh is returned. An entry whose
// expiry is at or before now counts as absent, matching Sweep.
func (g *Guard) CheckAndReserve(key Key, now time.Time, ttl time.Duration) Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.entries[key]; ok && exp.After(now) {
		reservations.WithLabelValues(Duplicate.String()).Inc()
		return Duplicate
	}

	exp := now.Add(ttl)
	g.entries[key] = exp
	heap.Push(&g.byExpiry, expiryItem{key: key, expiry: exp})
	reservations.WithLabelValues(Fresh.String()).Inc()
	entriesGauge.Set(float64(len(g.entries)))
	return Fresh
}

// Peek reports whether key holds an unexpired reservation at now without
// reserving it.
func (g *Guard) Peek(key Key, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.entries[key]
	return ok && exp.After(now)
}

// Release drops the reservation for key, if any. The stale heap item is
// discarded by the next sweep that reaches it.
func (g *Guard) Release(key Key) {
	g.mu.Lock()
	delete(g.entries, key)
	entriesGauge.Set(float64(len(g.entries)))
	g.mu.Unlock()
}

// Len returns the number of reservations currently held, expired or not.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Sweep evicts every reservation whose expiry is at or before now and returns
// how many were evicted. Work is done in batches of at most SweepBatch heap
// pops per lock acquisition.
//
// A heap item only evicts its key when the map still holds the same expiry; a
// key that was re-reserved after expiring carries a newer expiry and survives.
func (g *Guard) Sweep(now time.Time) int {
	evicted := 0
	for {
		g.mu.Lock()
		for n := 0; n < g.batch && g.byExpiry.Len() > 0; n++ {
			top := g.byExpiry[0]
			if top.expiry.After(now) {
				break
			}
			heap.Pop(&g.byExpiry)
			if cur, ok := g.entries[top.key]; ok && cur.Equal(top.expiry) {
				delete(g.entries, top.key)
				evicted++
			}
		}
		more := g.byExpiry.Len() > 0 && !g.byExpiry[0].expiry.After(now)
		entriesGauge.Set(float64(len(g.entries)))
		g.mu.Unlock()

		if !more {
			break
		}
		runtime.Gosched()
	}
	if evicted > 0 {
		sweepEvictions.Add(float64(evicted))
	}
	return evicted
}

// Run sweeps on every tick of the guard's clock until ctx is cancelled.
func (g *Guard) Run(ctx context.Context) {
	ticker := g.clock.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n := g.Sweep(g.clock.Now())
			log.Debug().
				Int("evicted", n).
				Int("remaining", g.Len()).
				Msg("idempotency sweep")
		}
	}
}

// expiryItem indexes one reservation by its expiry.
type expiryItem struct {
	key    Key
	expiry time.Time
}

// expiryHeap is a min-heap on expiry (container/heap.Interface).
type expiryHeap []expiryItem

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].expiry.Before(h[j].expiry) }
func (h expiryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap) Push(x any) { *h = append(*h, x.(expiryItem)) }

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = expiryItem{}
	*h = old[:n-1]
	return it
}
