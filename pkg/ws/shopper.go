package ws

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/callqueue"
	"github.com/showroomhq/showroom/pkg/wire"
)

// ServeShopper handles the shopper call channel. The connection is
// greeted immediately; the shopper only becomes visible to
// representatives after its join_queue frame. The shopper id from the
// latest join sticks to the socket, so the close handler knows which
// entry to mark disconnected.
func (h *Handler) ServeShopper(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.upgrade(w, r, "shopper")
	if !ok {
		return
	}
	peer := wire.NewPeer(conn)
	_ = peer.Send(wire.ConnectedFrame{Type: wire.TypeConnected, Message: "Connected to dealership server"})

	var shopperID string
	defer func() {
		_ = peer.Close()
		if shopperID != "" {
			h.svc.ShopperDisconnected(shopperID)
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Str("component", "ws").Str("shopper_id", shopperID).Err(err).Msg("shopper channel closed")
			return
		}
		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			_ = peer.Send(wire.NewError("Invalid message format"))
			continue
		}
		h.dispatchShopper(peer, &shopperID, env)
	}
}

func (h *Handler) dispatchShopper(peer *wire.Peer, shopperID *string, env wire.Envelope) {
	switch env.Type {
	case wire.TypeJoinQueue:
		var f wire.JoinQueueFrame
		if err := env.Decode(&f); err != nil || f.ShopperID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		*shopperID = f.ShopperID
		h.svc.ShopperJoined(f.ShopperID, peer, f.MediaCapabilities)

	case wire.TypeLeaveQueue:
		var f wire.LeaveQueueFrame
		if err := env.Decode(&f); err != nil || f.ShopperID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		if *shopperID == f.ShopperID {
			*shopperID = ""
		}
		if err := h.svc.ShopperLeft(f.ShopperID); err != nil {
			_ = peer.Send(wire.NewError("Shopper not found in queue"))
		}

	case wire.TypeSDPAnswer:
		var f wire.SDPAnswerFrame
		if err := env.Decode(&f); err != nil {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		h.relayToAssignedRep(peer, f.ShopperID, wire.ForwardedSDPAnswerFrame{
			Type:      wire.TypeSDPAnswer,
			ShopperID: f.ShopperID,
			SDPAnswer: f.SDPAnswer,
		})

	case wire.TypeICECandidate:
		var f wire.ICECandidateFrame
		if err := env.Decode(&f); err != nil {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		h.relayToAssignedRep(peer, f.ShopperID, wire.ForwardedICECandidateFrame{
			Type:         wire.TypeICECandidate,
			ShopperID:    f.ShopperID,
			ICECandidate: f.ICECandidate,
		})

	case wire.TypeEndCall:
		var f wire.EndCallFrame
		if err := env.Decode(&f); err != nil || f.ShopperID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		h.shopperEndedCall(peer, f.ShopperID)

	case wire.TypeCollaborationResponse:
		var f wire.CollaborationResponseFrame
		if err := env.Decode(&f); err != nil || f.ShopperID == "" || f.SalesRepID == "" {
			_ = peer.Send(wire.NewError("Invalid message format"))
			return
		}
		h.shopperCollabResponse(peer, f)

	default:
		log.Warn().Str("component", "ws").Str("type", env.Type).Msg("unknown frame type on shopper channel")
	}
}

// relayToAssignedRep forwards a signaling frame to the representative
// currently assigned to the shopper named in the frame. Frames naming an
// unknown or unassigned shopper are rejected. The named shopper id is not
// compared with the id bound to this socket.
func (h *Handler) relayToAssignedRep(peer *wire.Peer, shopperID string, frame any) {
	entry, ok := h.svc.Store().Shopper(shopperID)
	if !ok || entry.AssignedRepID == "" {
		_ = peer.Send(wire.NewError("No active call for shopper"))
		return
	}
	rep, ok := h.svc.Store().Rep(entry.AssignedRepID)
	if !ok || rep.Conn == nil {
		_ = peer.Send(wire.NewError("Sales rep is not connected"))
		return
	}
	if err := rep.Conn.Send(frame); err != nil {
		_ = peer.Send(wire.NewError("Sales rep is unavailable"))
	}
}

func (h *Handler) shopperEndedCall(peer *wire.Peer, shopperID string) {
	_, prevRep, err := h.svc.Release(shopperID)
	if err != nil {
		_ = peer.Send(wire.NewError("Shopper not found in queue"))
		return
	}
	if prevRep != "" {
		if rep, ok := h.svc.Store().Rep(prevRep); ok && rep.Conn != nil {
			_ = rep.Conn.Send(wire.CallEndedByShopperFrame{Type: wire.TypeCallEndedByShopper, ShopperID: shopperID})
		}
	}
	_ = peer.Send(wire.CallEndedFrame{Type: wire.TypeCallEnded, ShopperID: shopperID})
	log.Info().Str("component", "ws").Str("shopper_id", shopperID).Str("prev_rep_id", prevRep).Msg("shopper ended call")
}

func (h *Handler) shopperCollabResponse(peer *wire.Peer, f wire.CollaborationResponseFrame) {
	sess, err := h.svc.Store().RespondCollab(f.ShopperID, f.SalesRepID, f.Accepted)
	if err != nil {
		switch {
		case errors.Is(err, callqueue.ErrNoPendingCollab):
			_ = peer.Send(wire.NewError("No pending collaboration request"))
		default:
			_ = peer.Send(wire.NewError(err.Error()))
		}
		return
	}
	status := wire.CollaborationStatusFrame{
		Type:       wire.TypeCollaborationStatus,
		ShopperID:  f.ShopperID,
		SalesRepID: f.SalesRepID,
		Status:     string(sess.Status),
	}
	_ = peer.Send(status)
	if rep, ok := h.svc.Store().Rep(f.SalesRepID); ok && rep.Conn != nil {
		_ = rep.Conn.Send(status)
	}
	log.Info().Str("component", "ws").Str("shopper_id", f.ShopperID).Str("rep_id", f.SalesRepID).Str("status", string(sess.Status)).Msg("collaboration response")
}
