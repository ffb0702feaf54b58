package wire

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is the subset of *websocket.Conn the coordination layer writes to.
// Keeping it narrow lets tests substitute stub connections.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Peer wraps a websocket connection with a write mutex so that frames
// emitted by different goroutines (endpoint reply vs. queue service
// notification) never interleave on the wire.
type Peer struct {
	mu   sync.Mutex
	conn Conn
}

func NewPeer(conn Conn) *Peer {
	if conn == nil {
		return nil
	}
	return &Peer{conn: conn}
}

// Send marshals the frame and writes it as a single text message.
// Writes are best-effort: a failed write is logged and reported, the
// caller decides whether anyone needs to hear about it.
func (p *Peer) Send(frame any) error {
	if p == nil {
		return ErrPeerGone
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return p.SendRaw(b)
}

func (p *Peer) SendRaw(data []byte) error {
	if p == nil {
		return ErrPeerGone
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Str("component", "wire").Msg("peer write failed")
		return err
	}
	return nil
}

// WriteMessage makes *Peer itself a Conn, so pools can hold peers and
// every write to the underlying socket goes through one mutex.
func (p *Peer) WriteMessage(messageType int, data []byte) error {
	if p == nil {
		return ErrPeerGone
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(messageType, data)
}

func (p *Peer) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.Close()
}
