package collab

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/wire"
)

// Room is one shared-document session, keyed by shopper id. Every update
// received from a member is appended to the log and relayed to the other
// members; joiners replay the full log so they converge on the same
// document state regardless of join order.
type Room struct {
	shopperID string
	pool      *wire.Pool

	mu  sync.Mutex
	log [][]byte
}

func newRoom(shopperID string, pool *wire.Pool) *Room {
	return &Room{shopperID: shopperID, pool: pool}
}

func (r *Room) ShopperID() string { return r.shopperID }

// Join adds the member and replays every prior update to it, in order.
// The replay happens under the log mutex so an update arriving
// concurrently is either in the replay or relayed afterwards, never both.
func (r *Room) Join(peer *wire.Peer) {
	r.mu.Lock()
	r.pool.Add(peer)
	for _, update := range r.log {
		_ = peer.SendRaw(update)
	}
	n := len(r.log)
	r.mu.Unlock()
	log.Info().Str("component", "collab").Str("shopper_id", r.shopperID).Int("replayed", n).Msg("member joined collaboration room")
}

func (r *Room) Leave(peer *wire.Peer) {
	r.pool.Remove(peer)
}

// Apply records the update and relays it to every member except the
// sender.
func (r *Room) Apply(sender *wire.Peer, update []byte) {
	buf := make([]byte, len(update))
	copy(buf, update)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, buf)
	r.pool.BroadcastExcept(sender, buf)
}

func (r *Room) MemberCount() int { return r.pool.Count() }

// UpdateCount reports how many updates a joiner would replay.
func (r *Room) UpdateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.log)
}
