package ws

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/callqueue"
	"github.com/showroomhq/showroom/pkg/wire"
)

// ServeRep handles the representative monitor channel. A representative
// must announce itself with a connect frame before any other frame is
// honored; once connected it joins the fan-out pool and receives the
// current queue snapshot followed by every subsequent update.
func (h *Handler) ServeRep(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.upgrade(w, r, "rep")
	if !ok {
		return
	}
	peer := wire.NewPeer(conn)

	var repID string
	defer func() {
		h.reps.Remove(peer)
		if repID != "" {
			h.svc.Store().UnregisterRep(repID)
			log.Info().Str("component", "ws").Str("rep_id", repID).Msg("representative disconnected")
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Str("component", "ws").Str("rep_id", repID).Err(err).Msg("rep channel closed")
			return
		}
		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			_ = peer.Send(wire.NewError("Invalid message format"))
			continue
		}
		h.dispatchRep(peer, &repID, env)
	}
}

func (h *Handler) dispatchRep(peer *wire.Peer, repID *string, env wire.Envelope) {
	if env.Type != wire.TypeConnect && *repID == "" {
		_ = peer.Send(wire.NewError("Must connect before sending commands"))
		return
	}

	switch env.Type {
	case wire.TypeConnect:
		var f wire.ConnectFrame
		if err := env.Decode(&f); err != nil || f.SalesRepID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		*repID = f.SalesRepID
		h.svc.Store().RegisterRep(f.SalesRepID, peer)
		h.reps.Add(peer)
		_ = peer.Send(wire.QueueUpdateFrame{Type: wire.TypeQueueUpdate, Queue: h.svc.Store().SnapshotQueue()})
		_ = peer.Send(wire.ConnectedFrame{Type: wire.TypeConnected, Message: "Connected as " + callqueue.RepDisplayName(f.SalesRepID)})
		log.Info().Str("component", "ws").Str("rep_id", f.SalesRepID).Msg("representative connected")

	case wire.TypeClaimCall:
		var f wire.ClaimCallFrame
		if err := env.Decode(&f); err != nil || f.ShopperID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		h.repClaim(peer, *repID, f)

	case wire.TypeReleaseCall:
		var f wire.ReleaseCallFrame
		if err := env.Decode(&f); err != nil || f.ShopperID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		h.repRelease(peer, *repID, f.ShopperID)

	case wire.TypeICECandidate:
		var f wire.ICECandidateFrame
		if err := env.Decode(&f); err != nil || f.ShopperID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		h.repICE(peer, *repID, f)

	case wire.TypeRequestCollaboration:
		var f wire.RequestCollaborationFrame
		if err := env.Decode(&f); err != nil || f.ShopperID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		h.repRequestCollab(peer, *repID, f.ShopperID)

	default:
		log.Warn().Str("component", "ws").Str("type", env.Type).Msg("unknown frame type on rep channel")
	}
}

func (h *Handler) repClaim(peer *wire.Peer, repID string, f wire.ClaimCallFrame) {
	if _, err := h.svc.Claim(f.ShopperID, repID, f.SDPOffer); err != nil {
		switch {
		case errors.Is(err, callqueue.ErrShopperNotFound):
			_ = peer.Send(wire.NewError("Shopper not found in queue"))
		case errors.Is(err, callqueue.ErrAlreadyClaimed):
			_ = peer.Send(wire.NewError("Call already claimed by another rep"))
		case errors.Is(err, callqueue.ErrRepBusy):
			_ = peer.Send(wire.NewError("You already have an active call"))
		default:
			_ = peer.Send(wire.NewError(err.Error()))
		}
		return
	}
	_ = peer.Send(wire.CallClaimedFrame{Type: wire.TypeCallClaimed, ShopperID: f.ShopperID})
}

func (h *Handler) repRelease(peer *wire.Peer, repID, shopperID string) {
	entry, ok := h.svc.Store().Shopper(shopperID)
	if !ok {
		_ = peer.Send(wire.NewError("Shopper not found in queue"))
		return
	}
	if entry.AssignedRepID != repID {
		_ = peer.Send(wire.NewError("Call is not assigned to you"))
		return
	}
	if _, _, err := h.svc.Release(shopperID); err != nil {
		_ = peer.Send(wire.NewError("Shopper not found in queue"))
		return
	}
	_ = peer.Send(wire.CallReleasedFrame{Type: wire.TypeCallReleased, ShopperID: shopperID})
}

// repICE forwards a representative's ICE candidate to the shopper it is
// assigned to. The assignment check keeps candidates scoped to the call.
func (h *Handler) repICE(peer *wire.Peer, repID string, f wire.ICECandidateFrame) {
	entry, ok := h.svc.Store().Shopper(f.ShopperID)
	if !ok {
		_ = peer.Send(wire.NewError("Shopper not found in queue"))
		return
	}
	if entry.AssignedRepID != repID {
		_ = peer.Send(wire.NewError("Call is not assigned to you"))
		return
	}
	if entry.Conn == nil {
		_ = peer.Send(wire.NewError("Shopper is not connected"))
		return
	}
	err := entry.Conn.Send(wire.ForwardedICECandidateFrame{
		Type:         wire.TypeICECandidate,
		SalesRepID:   repID,
		ICECandidate: f.ICECandidate,
	})
	if err != nil {
		_ = peer.Send(wire.NewError("Shopper is unavailable"))
	}
}

func (h *Handler) repRequestCollab(peer *wire.Peer, repID, shopperID string) {
	_, err := h.svc.Store().RequestCollab(shopperID, repID)
	if err != nil {
		switch {
		case errors.Is(err, callqueue.ErrShopperNotFound):
			_ = peer.Send(wire.NewError("Shopper not found in queue"))
		case errors.Is(err, callqueue.ErrNotAssigned):
			_ = peer.Send(wire.NewError("Call is not assigned to you"))
		case errors.Is(err, callqueue.ErrCollabPending):
			_ = peer.Send(wire.NewError("Collaboration request already pending"))
		default:
			_ = peer.Send(wire.NewError(err.Error()))
		}
		return
	}
	entry, _ := h.svc.Store().Shopper(shopperID)
	if entry.Conn != nil {
		_ = entry.Conn.Send(wire.CollaborationRequestFrame{
			Type:         wire.TypeCollaborationRequest,
			SalesRepID:   repID,
			SalesRepName: callqueue.RepDisplayName(repID),
		})
	}
	_ = peer.Send(wire.CollaborationStatusFrame{
		Type:       wire.TypeCollaborationStatus,
		ShopperID:  shopperID,
		SalesRepID: repID,
		Status:     string(callqueue.CollabPending),
	})
	log.Info().Str("component", "ws").Str("rep_id", repID).Str("shopper_id", shopperID).Msg("collaboration requested")
}
