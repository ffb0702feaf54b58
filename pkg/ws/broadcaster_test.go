package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/showroomhq/showroom/pkg/callqueue"
	"github.com/showroomhq/showroom/pkg/stream"
	"github.com/showroomhq/showroom/pkg/wire"
)

type repConn struct {
	mu     sync.Mutex
	writes [][]byte
}

func (r *repConn) WriteMessage(_ int, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	r.mu.Lock()
	r.writes = append(r.writes, buf)
	r.mu.Unlock()
	return nil
}

func (r *repConn) Close() error { return nil }

func (r *repConn) received() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.writes))
	copy(out, r.writes)
	return out
}

func TestBroadcasterFansOutSnapshotsToReps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := stream.NewBackend(stream.Settings{})
	require.NoError(t, err)
	defer func() { _ = backend.Close() }()

	store := callqueue.NewStore()
	pool := wire.NewPool("monitors", 0, nil)
	bc := NewBroadcaster(store, backend, pool)
	require.NoError(t, bc.Start(ctx))

	conn := &repConn{}
	pool.Add(conn)

	store.UpsertShopper("s1", nil, json.RawMessage(`{"hasAudioInput":true}`))
	bc.QueueChanged()

	require.Eventually(t, func() bool {
		return len(conn.received()) == 1
	}, time.Second, 10*time.Millisecond)

	var frame wire.QueueUpdateFrame
	require.NoError(t, json.Unmarshal(conn.received()[0], &frame))
	require.Equal(t, wire.TypeQueueUpdate, frame.Type)
	require.Len(t, frame.Queue, 1)
	require.Equal(t, "s1", frame.Queue[0].ShopperID)
	require.True(t, frame.Queue[0].HasMicrophone)
	require.True(t, frame.Queue[0].IsConnected)
}

func TestBroadcasterEverySubscriberSeesEveryUpdate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := stream.NewBackend(stream.Settings{})
	require.NoError(t, err)
	defer func() { _ = backend.Close() }()

	store := callqueue.NewStore()
	pool := wire.NewPool("monitors", 0, nil)
	bc := NewBroadcaster(store, backend, pool)
	require.NoError(t, bc.Start(ctx))

	a, b := &repConn{}, &repConn{}
	pool.Add(a)
	pool.Add(b)

	store.UpsertShopper("s1", nil, nil)
	bc.QueueChanged()
	store.UpsertShopper("s2", nil, nil)
	bc.QueueChanged()

	require.Eventually(t, func() bool {
		return len(a.received()) == 2 && len(b.received()) == 2
	}, time.Second, 10*time.Millisecond)

	// the final snapshot carries the full current set for both reps
	for _, conn := range []*repConn{a, b} {
		var frame wire.QueueUpdateFrame
		require.NoError(t, json.Unmarshal(conn.received()[1], &frame))
		require.Len(t, frame.Queue, 2)
	}
}
