package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/callqueue"
	"github.com/showroomhq/showroom/pkg/wire"
)

// Handler owns the duplex endpoints: the shopper call channel, the
// representative monitor channel, and (through ServeCollab) the
// collaboration document channel. The call and monitor channels share the
// queue service and the representative fan-out pool.
type Handler struct {
	svc      *callqueue.Service
	reps     *wire.Pool
	upgrader websocket.Upgrader
}

func NewHandler(svc *callqueue.Service, reps *wire.Pool) *Handler {
	return &Handler{
		svc:  svc,
		reps: reps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request, endpoint string) (*websocket.Conn, bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Str("component", "ws").Str("endpoint", endpoint).Err(err).Msg("websocket upgrade failed")
		return nil, false
	}
	return conn, true
}
