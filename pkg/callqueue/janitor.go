package callqueue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultJanitorInterval = 30 * time.Second
	DefaultGraceWindow     = 60 * time.Second
	DefaultCollabTTL       = 5 * time.Minute
)

// Janitor periodically evicts disconnected shoppers past the grace window
// and deletes expired pending collaboration requests.
type Janitor struct {
	store *Store
	bc    Broadcaster

	interval time.Duration
	grace    time.Duration
	ttl      time.Duration

	mu      sync.Mutex
	running bool
}

func NewJanitor(store *Store, bc Broadcaster, interval, grace, ttl time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	if ttl <= 0 {
		ttl = DefaultCollabTTL
	}
	return &Janitor{store: store, bc: bc, interval: interval, grace: grace, ttl: ttl}
}

// Start launches the sweep loop. Repeat calls while running are no-ops.
func (j *Janitor) Start(ctx context.Context) {
	if j == nil {
		return
	}
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	go j.run(ctx)
}

func (j *Janitor) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Info().Str("component", "janitor").Dur("interval", j.interval).Dur("grace", j.grace).Dur("collab_ttl", j.ttl).Msg("janitor started")
	for {
		select {
		case <-ctx.Done():
			j.mu.Lock()
			j.running = false
			j.mu.Unlock()
			log.Info().Str("component", "janitor").Msg("janitor stopped")
			return
		case now := <-ticker.C:
			j.sweepOnce(now)
		}
	}
}

// sweepOnce runs both sweeps and triggers one broadcast if any shopper
// entries were removed. Iterations run to completion.
func (j *Janitor) sweepOnce(now time.Time) (evicted, expired int) {
	if now.IsZero() {
		now = j.store.now()
	}
	removed := j.store.SweepDisconnected(now, j.grace)
	evicted = len(removed)
	for _, e := range removed {
		log.Info().Str("component", "janitor").Str("shopper_id", e.ShopperID).Str("assigned_rep_id", e.AssignedRepID).Msg("evicted stale disconnected shopper")
	}
	expired = j.store.SweepPendingCollabs(now, j.ttl)
	if expired > 0 {
		log.Info().Str("component", "janitor").Int("expired", expired).Msg("expired pending collaboration requests")
	}
	if evicted > 0 {
		j.bc.QueueChanged()
	}
	return evicted, expired
}
