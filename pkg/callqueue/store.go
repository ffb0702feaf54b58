package callqueue

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/showroomhq/showroom/pkg/wire"
)

// Shopper is one shopper entry in the registry. Entries outlive
// disconnects: a dropped connection leaves the entry in place (marked
// disconnected) until the shopper returns or the janitor evicts it.
type Shopper struct {
	ShopperID         string
	Conn              *wire.Peer
	ConnectedAt       time.Time
	DisconnectedAt    time.Time
	IsConnected       bool
	AssignedRepID     string
	HasMicrophone     bool
	MediaCapabilities json.RawMessage
}

// Rep is one currently-connected representative.
type Rep struct {
	RepID       string
	Conn        *wire.Peer
	ConnectedAt time.Time
}

// CollabStatus is the collaboration handshake state.
type CollabStatus string

const (
	CollabPending  CollabStatus = "pending"
	CollabAccepted CollabStatus = "accepted"
	CollabRejected CollabStatus = "rejected"
	CollabEnded    CollabStatus = "ended"
)

// CollabSession tracks one (rep, shopper) collaboration handshake.
type CollabSession struct {
	ShopperID   string
	RepID       string
	Status      CollabStatus
	RequestedAt time.Time
	RespondedAt time.Time
}

type collabKey struct {
	shopperID string
	repID     string
}

// Store is the single authority over shopper entries, representative
// connections, and collaboration sessions. One coarse mutex serializes
// every operation; all of them are O(entries) at worst and contention is
// bounded by the representative count, so nothing finer is warranted.
type Store struct {
	mu       sync.Mutex
	shoppers map[string]*Shopper
	reps     map[string]*Rep
	collabs  map[collabKey]*CollabSession

	// Clock is injectable for boundary tests around the janitor windows.
	Clock func() time.Time
}

func NewStore() *Store {
	return &Store{
		shoppers: map[string]*Shopper{},
		reps:     map[string]*Rep{},
		collabs:  map[collabKey]*CollabSession{},
		Clock:    time.Now,
	}
}

func (s *Store) now() time.Time { return s.Clock() }

// UpsertShopper creates or reconnects a shopper entry. ConnectedAt is
// never rewritten after first creation; capabilities are only replaced
// when supplied.
func (s *Store) UpsertShopper(shopperID string, conn *wire.Peer, capabilities json.RawMessage) Shopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.shoppers[shopperID]
	if !ok {
		e = &Shopper{ShopperID: shopperID, ConnectedAt: s.now()}
		s.shoppers[shopperID] = e
	}
	e.Conn = conn
	e.IsConnected = true
	e.DisconnectedAt = time.Time{}
	if capabilities != nil {
		e.MediaCapabilities = capabilities
		e.HasMicrophone = hasAudioInput(capabilities)
	}
	return *e
}

func hasAudioInput(capabilities json.RawMessage) bool {
	var caps struct {
		HasAudioInput bool `json:"hasAudioInput"`
	}
	if err := json.Unmarshal(capabilities, &caps); err != nil {
		return false
	}
	return caps.HasAudioInput
}

// MarkShopperDisconnected flags the entry offline without touching its
// assignment. Release is an explicit, separate operation.
func (s *Store) MarkShopperDisconnected(shopperID string) (Shopper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.shoppers[shopperID]
	if !ok {
		return Shopper{}, false
	}
	e.IsConnected = false
	e.DisconnectedAt = s.now()
	e.Conn = nil
	return *e, true
}

// RemoveShopper deletes the entry and transitions any live collaboration
// session for its assignment to ended.
func (s *Store) RemoveShopper(shopperID string) (Shopper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.shoppers[shopperID]
	if !ok {
		return Shopper{}, false
	}
	delete(s.shoppers, shopperID)
	if e.AssignedRepID != "" {
		s.endCollabLocked(shopperID, e.AssignedRepID)
	}
	return *e, true
}

func (s *Store) Shopper(shopperID string) (Shopper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.shoppers[shopperID]
	if !ok {
		return Shopper{}, false
	}
	return *e, true
}

func (s *Store) RegisterRep(repID string, conn *wire.Peer) Rep {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Rep{RepID: repID, Conn: conn, ConnectedAt: s.now()}
	s.reps[repID] = r
	return *r
}

func (s *Store) UnregisterRep(repID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reps, repID)
}

func (s *Store) Rep(repID string) (Rep, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reps[repID]
	if !ok {
		return Rep{}, false
	}
	return *r, true
}

// RepBusy reports the shopper currently assigned to repID, if any.
// Linear scan; representative counts are small.
func (s *Store) RepBusy(repID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repBusyLocked(repID)
}

func (s *Store) repBusyLocked(repID string) (string, bool) {
	for id, e := range s.shoppers {
		if e.AssignedRepID == repID {
			return id, true
		}
	}
	return "", false
}

// Assign claims a shopper for a representative. It fails when the shopper
// is unknown, already claimed by someone else, or the representative is
// already busy. Re-claiming a shopper already assigned to the same rep is
// a no-op success.
func (s *Store) Assign(shopperID, repID string) (Shopper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.shoppers[shopperID]
	if !ok {
		return Shopper{}, ErrShopperNotFound
	}
	if e.AssignedRepID != "" && e.AssignedRepID != repID {
		return Shopper{}, ErrAlreadyClaimed
	}
	if busy, ok := s.repBusyLocked(repID); ok && busy != shopperID {
		return Shopper{}, ErrRepBusy
	}
	e.AssignedRepID = repID
	return *e, nil
}

// Release clears the assignment and returns the prior representative id so
// the caller can fabricate the downstream notification.
func (s *Store) Release(shopperID string) (Shopper, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.shoppers[shopperID]
	if !ok {
		return Shopper{}, "", false
	}
	prev := e.AssignedRepID
	e.AssignedRepID = ""
	if prev != "" {
		s.endCollabLocked(shopperID, prev)
	}
	return *e, prev, true
}

// SnapshotQueue derives the public projection of every entry, ordered by
// arrival time (shopper id as tiebreaker so snapshots are stable).
func (s *Store) SnapshotQueue() []wire.QueueSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]wire.QueueSummary, 0, len(s.shoppers))
	for _, e := range s.shoppers {
		summary := wire.QueueSummary{
			ShopperID:     e.ShopperID,
			ConnectedAt:   e.ConnectedAt.UnixMilli(),
			IsConnected:   e.IsConnected,
			AssignedRepID: e.AssignedRepID,
			HasMicrophone: e.HasMicrophone,
		}
		if !e.DisconnectedAt.IsZero() {
			at := e.DisconnectedAt.UnixMilli()
			summary.DisconnectedAt = &at
			since := int64(now.Sub(e.DisconnectedAt).Seconds())
			summary.TimeSinceDisconnectedSeconds = &since
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt != out[j].ConnectedAt {
			return out[i].ConnectedAt < out[j].ConnectedAt
		}
		return out[i].ShopperID < out[j].ShopperID
	})
	return out
}

// PositionOf ranks the shopper in the waiting line: connected, unassigned
// entries sorted by arrival. 1-based; 0 when the shopper is not waiting.
func (s *Store) PositionOf(shopperID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.shoppers[shopperID]
	if !ok || !target.IsConnected || target.AssignedRepID != "" {
		return 0
	}
	waiting := make([]*Shopper, 0, len(s.shoppers))
	for _, e := range s.shoppers {
		if e.IsConnected && e.AssignedRepID == "" {
			waiting = append(waiting, e)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		if !waiting[i].ConnectedAt.Equal(waiting[j].ConnectedAt) {
			return waiting[i].ConnectedAt.Before(waiting[j].ConnectedAt)
		}
		return waiting[i].ShopperID < waiting[j].ShopperID
	})
	for i, e := range waiting {
		if e.ShopperID == shopperID {
			return i + 1
		}
	}
	return 0
}

// RequestCollab opens a pending collaboration session for an assigned
// (shopper, rep) pair. A fresh request replaces a prior terminal session
// under the same key.
func (s *Store) RequestCollab(shopperID, repID string) (CollabSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.shoppers[shopperID]
	if !ok {
		return CollabSession{}, ErrShopperNotFound
	}
	if e.AssignedRepID != repID {
		return CollabSession{}, ErrNotAssigned
	}
	key := collabKey{shopperID: shopperID, repID: repID}
	if existing, ok := s.collabs[key]; ok && existing.Status == CollabPending {
		return CollabSession{}, ErrCollabPending
	}
	sess := &CollabSession{
		ShopperID:   shopperID,
		RepID:       repID,
		Status:      CollabPending,
		RequestedAt: s.now(),
	}
	s.collabs[key] = sess
	return *sess, nil
}

// RespondCollab resolves a pending session to accepted or rejected.
func (s *Store) RespondCollab(shopperID, repID string, accepted bool) (CollabSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.collabs[collabKey{shopperID: shopperID, repID: repID}]
	if !ok || sess.Status != CollabPending {
		return CollabSession{}, ErrNoPendingCollab
	}
	if accepted {
		sess.Status = CollabAccepted
	} else {
		sess.Status = CollabRejected
	}
	sess.RespondedAt = s.now()
	return *sess, nil
}

// EndCollab transitions a live (pending or accepted) session to ended.
func (s *Store) EndCollab(shopperID, repID string) (CollabSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endCollabLocked(shopperID, repID)
}

func (s *Store) endCollabLocked(shopperID, repID string) (CollabSession, bool) {
	sess, ok := s.collabs[collabKey{shopperID: shopperID, repID: repID}]
	if !ok {
		return CollabSession{}, false
	}
	if sess.Status == CollabPending || sess.Status == CollabAccepted {
		sess.Status = CollabEnded
		sess.RespondedAt = s.now()
	}
	return *sess, true
}

func (s *Store) GetCollab(shopperID, repID string) (CollabSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.collabs[collabKey{shopperID: shopperID, repID: repID}]
	if !ok {
		return CollabSession{}, false
	}
	return *sess, true
}

// SweepDisconnected removes every entry disconnected for longer than the
// grace window and returns the removed entries.
func (s *Store) SweepDisconnected(now time.Time, grace time.Duration) []Shopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []Shopper
	for id, e := range s.shoppers {
		if e.IsConnected || e.DisconnectedAt.IsZero() {
			continue
		}
		if now.Sub(e.DisconnectedAt) <= grace {
			continue
		}
		delete(s.shoppers, id)
		if e.AssignedRepID != "" {
			s.endCollabLocked(id, e.AssignedRepID)
		}
		removed = append(removed, *e)
	}
	return removed
}

// SweepPendingCollabs deletes pending sessions older than the request TTL.
func (s *Store) SweepPendingCollabs(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for key, sess := range s.collabs {
		if sess.Status != CollabPending {
			continue
		}
		if now.Sub(sess.RequestedAt) <= ttl {
			continue
		}
		delete(s.collabs, key)
		expired++
	}
	return expired
}
