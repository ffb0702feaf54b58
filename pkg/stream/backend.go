package stream

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Settings selects the transport for queue-update fan-out. The in-memory
// gochannel transport is the default; Redis Streams is an opt-in for
// deployments that want the feed observable outside the process.
type Settings struct {
	RedisEnabled  bool
	RedisAddr     string
	RedisGroup    string
	RedisConsumer string
}

// Backend wraps publisher/subscriber construction for the queue-update
// stream so the broadcaster does not care which transport is underneath.
type Backend interface {
	Publisher() message.Publisher
	Subscriber() message.Subscriber
	Close() error
}

type goChannelBackend struct {
	pubsub *gochannel.GoChannel
}

type redisBackend struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewBackend builds the configured transport.
func NewBackend(s Settings) (Backend, error) {
	logger := NewWatermillLogger(log.Logger)
	if !s.RedisEnabled {
		return &goChannelBackend{
			pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger),
		}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		return nil, err
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.RedisGroup,
		Consumer:      s.RedisConsumer,
	}, logger)
	if err != nil {
		return nil, err
	}
	log.Info().Str("component", "stream").Str("addr", s.RedisAddr).Str("group", s.RedisGroup).Msg("using redis streams transport")
	return &redisBackend{pub: pub, sub: sub}, nil
}

func (b *goChannelBackend) Publisher() message.Publisher   { return b.pubsub }
func (b *goChannelBackend) Subscriber() message.Subscriber { return b.pubsub }
func (b *goChannelBackend) Close() error                   { return b.pubsub.Close() }

func (b *redisBackend) Publisher() message.Publisher   { return b.pub }
func (b *redisBackend) Subscriber() message.Subscriber { return b.sub }

func (b *redisBackend) Close() error {
	if err := b.pub.Close(); err != nil {
		return err
	}
	return b.sub.Close()
}
