package wire

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrPeerGone is returned by the send methods of a nil *Peer (NewPeer
// returns nil for a nil connection). Writes to a closed connection return
// the connection's own error instead.
var ErrPeerGone = errors.New("peer connection is gone")

// Pool manages a set of websocket connections that receive the same
// fan-out traffic (the representative monitor feed, one collaboration
// room). It centralizes broadcasting, dead-connection cleanup, and idle
// detection so endpoint logic stays small.
type Pool struct {
	name        string
	mu          sync.Mutex
	conns       map[Conn]struct{}
	idleTimer   *time.Timer
	idleTimeout time.Duration
	onIdle      func()
}

func NewPool(name string, idleTimeout time.Duration, onIdle func()) *Pool {
	return &Pool{
		name:        name,
		conns:       map[Conn]struct{}{},
		idleTimeout: idleTimeout,
		onIdle:      onIdle,
	}
}

func (p *Pool) Add(conn Conn) {
	if p == nil || conn == nil {
		return
	}
	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.stopIdleTimerLocked()
	p.mu.Unlock()
}

func (p *Pool) Remove(conn Conn) {
	if p == nil || conn == nil {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	p.mu.Lock()
	delete(p.conns, conn)
	p.scheduleIdleTimerLocked()
	p.mu.Unlock()
	_ = conn.Close()
}

// Broadcast writes data to every connection. Connections whose write
// fails are dropped and closed.
func (p *Pool) Broadcast(data []byte) {
	if p == nil || len(data) == 0 {
		return
	}
	p.mu.Lock()
	for conn := range p.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Str("component", "wire").Str("pool", p.name).Msg("broadcast write failed, dropping connection")
			delete(p.conns, conn)
			_ = conn.Close()
		}
	}
	p.scheduleIdleTimerLocked()
	p.mu.Unlock()
}

// BroadcastExcept writes data to every connection other than skip. Used by
// collaboration rooms, where an update must not echo back to its sender.
func (p *Pool) BroadcastExcept(skip Conn, data []byte) {
	if p == nil || len(data) == 0 {
		return
	}
	p.mu.Lock()
	for conn := range p.conns {
		if conn == skip {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Str("component", "wire").Str("pool", p.name).Msg("room relay write failed, dropping connection")
			delete(p.conns, conn)
			_ = conn.Close()
		}
	}
	p.mu.Unlock()
}

// SendToOne writes to a single member connection, dropping it on failure.
func (p *Pool) SendToOne(conn Conn, data []byte) {
	if p == nil || conn == nil || len(data) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.conns[conn]; !ok {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Str("component", "wire").Str("pool", p.name).Msg("pool send failed, dropping connection")
		delete(p.conns, conn)
		_ = conn.Close()
	}
}

func (p *Pool) Count() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *Pool) IsEmpty() bool {
	return p.Count() == 0
}

func (p *Pool) CloseAll() {
	if p == nil {
		return
	}
	p.mu.Lock()
	for conn := range p.conns {
		_ = conn.Close()
		delete(p.conns, conn)
	}
	p.stopIdleTimerLocked()
	p.mu.Unlock()
}

func (p *Pool) stopIdleTimerLocked() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
}

func (p *Pool) scheduleIdleTimerLocked() {
	if len(p.conns) != 0 || p.idleTimeout <= 0 || p.onIdle == nil {
		p.stopIdleTimerLocked()
		return
	}
	p.stopIdleTimerLocked()
	p.idleTimer = time.AfterFunc(p.idleTimeout, p.triggerIdle)
}

func (p *Pool) triggerIdle() {
	if p == nil {
		return
	}
	var callback func()
	p.mu.Lock()
	if len(p.conns) == 0 {
		callback = p.onIdle
	}
	p.idleTimer = nil
	p.mu.Unlock()
	if callback != nil {
		callback()
	}
}
