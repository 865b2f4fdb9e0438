package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const relayPublishTimeout = 5 * time.Second

// Relay mirrors a topic's events onto a Redis channel and injects events
// published by other instances into the local topic, so subscribers connected
// to any instance observe every mutation. Events carry an origin id to keep
// an instance from re-consuming its own publishes.
type Relay[T any] struct {
	rc      *redis.Client
	channel string
	topic   *Topic[T]
	log     *log.Logger
	origin  string
}

type relayEnvelope[T any] struct {
	Origin string `json:"origin"`
	Event  T      `json:"event"`
}

func NewRelay[T any](rc *redis.Client, channel string, topic *Topic[T], logger *log.Logger) *Relay[T] {
	r := &Relay[T]{rc: rc, channel: channel, topic: topic, log: logger, origin: uuid.NewString()}
	topic.SetMirror(r.mirror)
	return r
}

func (r *Relay[T]) mirror(ev T) {
	data, err := json.Marshal(relayEnvelope[T]{Origin: r.origin, Event: ev})
	if err != nil {
		r.log.Errorf("relay: marshal event: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()
	if err := r.rc.Publish(ctx, r.channel, data).Err(); err != nil {
		r.log.Errorf("relay: publish to %s: %v", r.channel, err)
	}
}

// Run consumes the Redis channel until ctx is cancelled, re-subscribing if
// the connection drops.
func (r *Relay[T]) Run(ctx context.Context) {
	for {
		sub := r.rc.Subscribe(ctx, r.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var env relayEnvelope[T]
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.log.Errorf("relay: parse event from %s: %v", r.channel, err)
					continue
				}
				if env.Origin == r.origin {
					continue
				}
				r.topic.Inject(env.Event)
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		r.log.Errorf("relay: channel %s closed, reconnecting", r.channel)
		time.Sleep(time.Second)
	}
}
