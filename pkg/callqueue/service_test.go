package callqueue

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/showroomhq/showroom/pkg/wire"
)

type frameConn struct {
	mu     sync.Mutex
	frames []map[string]any
}

func (c *frameConn) WriteMessage(_ int, data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, m)
	c.mu.Unlock()
	return nil
}

func (c *frameConn) Close() error { return nil }

func (c *frameConn) typed(frameType string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.frames {
		if f["type"] == frameType {
			out = append(out, f)
		}
	}
	return out
}

type countingBroadcaster struct {
	mu    sync.Mutex
	count int
}

func (b *countingBroadcaster) QueueChanged() {
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
}

func (b *countingBroadcaster) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func newTestService() (*Service, *countingBroadcaster) {
	bc := &countingBroadcaster{}
	return NewService(NewStore(), bc), bc
}

func TestShopperJoinedAcknowledgesPosition(t *testing.T) {
	svc, bc := newTestService()
	conn := &frameConn{}

	svc.ShopperJoined("s1", wire.NewPeer(conn), json.RawMessage(`{"hasAudioInput":true}`))

	joined := conn.typed("queue_joined")
	require.Len(t, joined, 1)
	require.Equal(t, "s1", joined[0]["shopperId"])
	require.EqualValues(t, 1, joined[0]["position"])
	require.Equal(t, true, joined[0]["hasMicrophone"])
	require.Equal(t, 1, bc.calls())
}

func TestShopperLeftIsIdempotent(t *testing.T) {
	svc, bc := newTestService()
	svc.ShopperJoined("s1", nil, nil)
	require.Equal(t, 1, bc.calls())

	require.NoError(t, svc.ShopperLeft("s1"))
	require.Equal(t, 2, bc.calls())

	require.ErrorIs(t, svc.ShopperLeft("s1"), ErrShopperNotFound)
	require.Equal(t, 2, bc.calls())
}

func TestShopperDisconnectedKeepsEntry(t *testing.T) {
	svc, bc := newTestService()
	svc.ShopperJoined("s1", nil, nil)

	svc.ShopperDisconnected("s1")
	e, ok := svc.Store().Shopper("s1")
	require.True(t, ok)
	require.False(t, e.IsConnected)
	require.Equal(t, 2, bc.calls())

	// unknown shopper does not broadcast
	svc.ShopperDisconnected("missing")
	require.Equal(t, 2, bc.calls())
}

func TestClaimDeliversOfferToShopper(t *testing.T) {
	svc, _ := newTestService()
	conn := &frameConn{}
	svc.ShopperJoined("s1", wire.NewPeer(conn), nil)

	offer := json.RawMessage(`{"sdp":"v=0"}`)
	entry, err := svc.Claim("s1", "rep-1234", offer)
	require.NoError(t, err)
	require.Equal(t, "rep-1234", entry.AssignedRepID)

	answered := conn.typed("call_answered")
	require.Len(t, answered, 1)
	require.Equal(t, "rep-1234", answered[0]["salesRepId"])
	require.Equal(t, "Sales Rep 1234 has answered your call", answered[0]["message"])
	require.Equal(t, map[string]any{"sdp": "v=0"}, answered[0]["sdpOffer"])
}

func TestClaimDisconnectedShopperStoresAssignment(t *testing.T) {
	svc, _ := newTestService()
	svc.ShopperJoined("s1", nil, nil)
	svc.ShopperDisconnected("s1")

	_, err := svc.Claim("s1", "r1", nil)
	require.NoError(t, err)
	e, _ := svc.Store().Shopper("s1")
	require.Equal(t, "r1", e.AssignedRepID)
}

func TestReleaseNotifiesShopperWithNewPosition(t *testing.T) {
	svc, _ := newTestService()
	conn := &frameConn{}
	svc.ShopperJoined("s1", wire.NewPeer(conn), nil)
	_, err := svc.Claim("s1", "r1", nil)
	require.NoError(t, err)

	_, prevRep, err := svc.Release("s1")
	require.NoError(t, err)
	require.Equal(t, "r1", prevRep)

	released := conn.typed("call_released")
	require.Len(t, released, 1)
	require.Equal(t, "r1", released[0]["previousSalesRepId"])
	require.EqualValues(t, 1, released[0]["position"])

	_, _, err = svc.Release("missing")
	require.ErrorIs(t, err, ErrShopperNotFound)
}

func TestRepDisplayName(t *testing.T) {
	require.Equal(t, "Sales Rep 1234", RepDisplayName("rep-1234"))
	require.Equal(t, "Sales Rep r7", RepDisplayName("r7"))
}
