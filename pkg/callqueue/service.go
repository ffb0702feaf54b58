package callqueue

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/wire"
)

// Broadcaster is notified after every store mutation that changes the
// observable queue. The implementation computes and fans out a fresh
// snapshot; the service only triggers it.
type Broadcaster interface {
	QueueChanged()
}

// Service is a thin façade over the store that adds the side effects the
// endpoints would otherwise duplicate: outbound frames to the affected
// shopper and a broadcast trigger per observable change.
//
// All frame sends are best-effort. The store state is authoritative
// whether or not the downstream write lands.
type Service struct {
	store *Store
	bc    Broadcaster
}

func NewService(store *Store, bc Broadcaster) *Service {
	return &Service{store: store, bc: bc}
}

func (s *Service) Store() *Store { return s.store }

// ShopperJoined upserts the entry and acknowledges the shopper with its
// waiting-line position.
func (s *Service) ShopperJoined(shopperID string, conn *wire.Peer, capabilities json.RawMessage) Shopper {
	entry := s.store.UpsertShopper(shopperID, conn, capabilities)
	position := s.store.PositionOf(shopperID)
	if conn != nil {
		_ = conn.Send(wire.QueueJoinedFrame{
			Type:          wire.TypeQueueJoined,
			ShopperID:     shopperID,
			Position:      position,
			HasMicrophone: entry.HasMicrophone,
		})
	}
	log.Info().Str("component", "callqueue").Str("shopper_id", shopperID).Int("position", position).Msg("shopper joined queue")
	s.bc.QueueChanged()
	return entry
}

// ShopperLeft removes the entry. Idempotent: a second call reports not
// found and does not broadcast.
func (s *Service) ShopperLeft(shopperID string) error {
	entry, ok := s.store.RemoveShopper(shopperID)
	if !ok {
		return ErrShopperNotFound
	}
	if entry.Conn != nil {
		_ = entry.Conn.Send(wire.QueueLeftFrame{Type: wire.TypeQueueLeft, ShopperID: shopperID})
	}
	log.Info().Str("component", "callqueue").Str("shopper_id", shopperID).Msg("shopper left queue")
	s.bc.QueueChanged()
	return nil
}

// ShopperDisconnected marks the entry offline. The entry stays in the
// registry so representatives see it as offline until the janitor's grace
// window runs out.
func (s *Service) ShopperDisconnected(shopperID string) {
	if _, ok := s.store.MarkShopperDisconnected(shopperID); !ok {
		return
	}
	log.Info().Str("component", "callqueue").Str("shopper_id", shopperID).Msg("shopper disconnected, holding entry for grace window")
	s.bc.QueueChanged()
}

// Claim assigns the shopper to the representative and delivers the SDP
// offer. A claim against a disconnected shopper succeeds and stores the
// assignment; the offer simply has nowhere to go.
func (s *Service) Claim(shopperID, repID string, sdpOffer json.RawMessage) (Shopper, error) {
	entry, err := s.store.Assign(shopperID, repID)
	if err != nil {
		return Shopper{}, err
	}
	if entry.Conn != nil {
		_ = entry.Conn.Send(wire.CallAnsweredFrame{
			Type:       wire.TypeCallAnswered,
			SalesRepID: repID,
			Message:    fmt.Sprintf("%s has answered your call", RepDisplayName(repID)),
			SDPOffer:   sdpOffer,
		})
	}
	log.Info().Str("component", "callqueue").Str("shopper_id", shopperID).Str("rep_id", repID).Msg("call claimed")
	s.bc.QueueChanged()
	return entry, nil
}

// Release clears the assignment, ends any collaboration session for the
// pair, and tells the shopper its new position.
func (s *Service) Release(shopperID string) (Shopper, string, error) {
	entry, prevRep, ok := s.store.Release(shopperID)
	if !ok {
		return Shopper{}, "", ErrShopperNotFound
	}
	if entry.Conn != nil {
		position := s.store.PositionOf(shopperID)
		_ = entry.Conn.Send(wire.CallReleasedFrame{
			Type:               wire.TypeCallReleased,
			PreviousSalesRepID: prevRep,
			Position:           position,
			Message:            "You are back in the queue",
		})
	}
	log.Info().Str("component", "callqueue").Str("shopper_id", shopperID).Str("prev_rep_id", prevRep).Msg("call released")
	s.bc.QueueChanged()
	return entry, prevRep, nil
}

// RepDisplayName derives the name shown to shoppers from a representative
// id. Identifiers are self-declared; the suffix keeps long opaque ids
// readable.
func RepDisplayName(repID string) string {
	suffix := repID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "Sales Rep " + suffix
}
