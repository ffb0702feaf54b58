package wire

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	mu     sync.Mutex
	writes [][]byte
	failed bool
	closed bool
}

func (s *stubConn) WriteMessage(_ int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return errors.New("write failed")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.writes = append(s.writes, buf)
	return nil
}

func (s *stubConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubConn) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func (s *stubConn) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestPoolBroadcastReachesAllMembers(t *testing.T) {
	pool := NewPool("test", 0, nil)
	a, b := &stubConn{}, &stubConn{}
	pool.Add(a)
	pool.Add(b)

	pool.Broadcast([]byte(`{"type":"queue_update"}`))

	require.Equal(t, 1, a.writeCount())
	require.Equal(t, 1, b.writeCount())
	require.Equal(t, 2, pool.Count())
}

func TestPoolBroadcastDropsFailedConnections(t *testing.T) {
	pool := NewPool("test", 0, nil)
	ok, bad := &stubConn{}, &stubConn{failed: true}
	pool.Add(ok)
	pool.Add(bad)

	pool.Broadcast([]byte("x"))

	require.Equal(t, 1, pool.Count())
	require.True(t, bad.isClosed())
	require.False(t, ok.isClosed())
}

func TestPoolBroadcastExceptSkipsSender(t *testing.T) {
	pool := NewPool("test", 0, nil)
	sender, other := &stubConn{}, &stubConn{}
	pool.Add(sender)
	pool.Add(other)

	pool.BroadcastExcept(sender, []byte("update"))

	require.Equal(t, 0, sender.writeCount())
	require.Equal(t, 1, other.writeCount())
}

func TestPoolSendToOneIgnoresNonMembers(t *testing.T) {
	pool := NewPool("test", 0, nil)
	member, outsider := &stubConn{}, &stubConn{}
	pool.Add(member)

	pool.SendToOne(member, []byte("x"))
	pool.SendToOne(outsider, []byte("x"))

	require.Equal(t, 1, member.writeCount())
	require.Equal(t, 0, outsider.writeCount())
}

func TestPoolIdleCallbackFiresAfterLastRemove(t *testing.T) {
	fired := make(chan struct{}, 1)
	pool := NewPool("test", 10*time.Millisecond, func() { fired <- struct{}{} })
	conn := &stubConn{}
	pool.Add(conn)
	pool.Remove(conn)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("idle callback never fired")
	}
}

func TestPoolIdleTimerCancelledByNewMember(t *testing.T) {
	fired := make(chan struct{}, 1)
	pool := NewPool("test", 20*time.Millisecond, func() { fired <- struct{}{} })
	first := &stubConn{}
	pool.Add(first)
	pool.Remove(first)
	pool.Add(&stubConn{})

	select {
	case <-fired:
		t.Fatal("idle callback fired despite live member")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestPoolCloseAllEmptiesPool(t *testing.T) {
	pool := NewPool("test", 0, nil)
	a, b := &stubConn{}, &stubConn{}
	pool.Add(a)
	pool.Add(b)

	pool.CloseAll()

	require.Equal(t, 0, pool.Count())
	require.True(t, a.isClosed())
	require.True(t, b.isClosed())
}

func TestPeerSendMarshalsFrame(t *testing.T) {
	conn := &stubConn{}
	peer := NewPeer(conn)

	require.NoError(t, peer.Send(ErrorFrame{Type: TypeError, Message: "nope"}))
	require.Equal(t, 1, conn.writeCount())
	require.JSONEq(t, `{"type":"error","message":"nope"}`, string(conn.writes[0]))
}

func TestNilPeerIsSafe(t *testing.T) {
	var peer *Peer
	require.ErrorIs(t, peer.Send(ErrorFrame{}), ErrPeerGone)
	require.ErrorIs(t, peer.SendRaw([]byte("x")), ErrPeerGone)
	require.NoError(t, peer.Close())
}
