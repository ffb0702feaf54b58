package ws

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/callqueue"
	"github.com/showroomhq/showroom/pkg/stream"
	"github.com/showroomhq/showroom/pkg/wire"
)

// QueueUpdatesTopic carries one message per observable queue change. The
// payload is the fully encoded queue_update frame, so subscribers forward
// bytes without re-marshalling.
const QueueUpdatesTopic = "queue.updates"

// Broadcaster turns store mutations into queue_update frames on the
// stream backend and forwards them to every monitoring representative.
// Publishing and fan-out are decoupled so a second process can subscribe
// to the same topic when the Redis transport is enabled.
type Broadcaster struct {
	store   *callqueue.Store
	backend stream.Backend
	reps    *wire.Pool
}

func NewBroadcaster(store *callqueue.Store, backend stream.Backend, reps *wire.Pool) *Broadcaster {
	return &Broadcaster{store: store, backend: backend, reps: reps}
}

func (b *Broadcaster) RepPool() *wire.Pool { return b.reps }

// QueueChanged snapshots the queue once and publishes the encoded frame.
// Errors are logged and swallowed: a missed update is corrected by the
// next one, and callers hold no useful recovery path.
func (b *Broadcaster) QueueChanged() {
	frame := wire.QueueUpdateFrame{
		Type:  wire.TypeQueueUpdate,
		Queue: b.store.SnapshotQueue(),
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Error().Str("component", "broadcaster").Err(err).Msg("failed to encode queue update")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.backend.Publisher().Publish(QueueUpdatesTopic, msg); err != nil {
		log.Error().Str("component", "broadcaster").Err(err).Msg("failed to publish queue update")
	}
}

// Start subscribes to the queue-update topic and fans each payload out to
// the representative pool. Returns after the subscription is established;
// forwarding runs until ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) error {
	msgs, err := b.backend.Subscriber().Subscribe(ctx, QueueUpdatesTopic)
	if err != nil {
		return err
	}
	go b.forward(ctx, msgs)
	log.Info().Str("component", "broadcaster").Str("topic", QueueUpdatesTopic).Msg("queue update forwarder started")
	return nil
}

func (b *Broadcaster) forward(ctx context.Context, msgs <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Info().Str("component", "broadcaster").Msg("queue update stream closed")
				return
			}
			b.reps.Broadcast(msg.Payload)
			msg.Ack()
		}
	}
}
