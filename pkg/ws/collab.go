package ws

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/collab"
	"github.com/showroomhq/showroom/pkg/wire"
)

// ServeCollab serves the per-shopper document room channel. Room
// membership is keyed only by the shopper id in the path; the handshake
// that gates whether a client should be here happens on the call and
// monitor channels. Every inbound message is treated as one document
// update.
func (h *Handler) ServeCollab(rooms *collab.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopperID := r.PathValue("shopperId")
		if shopperID == "" {
			http.Error(w, "missing shopper id", http.StatusBadRequest)
			return
		}
		conn, ok := h.upgrade(w, r, "collab")
		if !ok {
			return
		}
		peer := wire.NewPeer(conn)
		room := rooms.GetOrCreate(shopperID)
		room.Join(peer)
		defer room.Leave(peer)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Debug().Str("component", "ws").Str("shopper_id", shopperID).Err(err).Msg("collaboration channel closed")
				return
			}
			room.Apply(peer, data)
		}
	}
}
