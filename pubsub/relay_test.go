package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
)

type relayTestEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func TestRelayMirrorsPublishesToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	logger, _ := test.NewNullLogger()

	topic := NewTopic[relayTestEvent](8)
	relay := NewRelay(rc, "events", topic, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sub := rc.Subscribe(ctx, "events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	topic.Publish(relayTestEvent{Type: "ADDED", ID: "t1"})

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var env relayEnvelope[relayTestEvent]
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Origin != relay.origin {
		t.Fatalf("expected origin %q, got %q", relay.origin, env.Origin)
	}
	if env.Event.Type != "ADDED" || env.Event.ID != "t1" {
		t.Fatalf("unexpected event %+v", env.Event)
	}
}

func TestRelayInjectsForeignEventsOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	logger, _ := test.NewNullLogger()

	rcA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rcA.Close()
	rcB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rcB.Close()

	topicA := NewTopic[relayTestEvent](8)
	topicB := NewTopic[relayTestEvent](8)
	relayA := NewRelay(rcA, "events", topicA, logger)
	relayB := NewRelay(rcB, "events", topicB, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relayA.Run(ctx)
	go relayB.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	localA := topicA.Subscribe(ctx)
	localB := topicB.Subscribe(ctx)

	topicA.Publish(relayTestEvent{Type: "ADDED", ID: "t1"})

	select {
	case ev := <-localB:
		if ev.ID != "t1" {
			t.Fatalf("unexpected relayed event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relayed event never reached the other instance")
	}

	// The publishing instance delivers locally exactly once: its own relayed
	// copy is skipped by origin.
	select {
	case ev := <-localA:
		if ev.ID != "t1" {
			t.Fatalf("unexpected local event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("local delivery missing")
	}
	select {
	case ev := <-localA:
		t.Fatalf("event echoed back to its origin: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
