package pubsub

import (
	"context"
	"testing"
	"time"
)

func TestPublishFanOutPreservesOrder(t *testing.T) {
	topic := NewTopic[int](8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := topic.Subscribe(ctx)
	b := topic.Subscribe(ctx)

	topic.Publish(1)
	topic.Publish(2)
	topic.Publish(3)

	for name, ch := range map[string]<-chan int{"a": a, "b": b} {
		for want := 1; want <= 3; want++ {
			got := <-ch
			if got != want {
				t.Fatalf("subscriber %s: expected %d, got %d", name, want, got)
			}
		}
	}
}

func TestSubscribeCancelDeregisters(t *testing.T) {
	topic := NewTopic[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := topic.Subscribe(ctx)
	if topic.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", topic.Subscribers())
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for topic.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not deregistered after cancel")
		}
		time.Sleep(time.Millisecond)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after cancel")
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	topic := NewTopic[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := topic.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		topic.Publish(1)
		topic.Publish(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if got := <-ch; got != 1 {
		t.Fatalf("expected first event kept, got %d", got)
	}
	select {
	case got := <-ch:
		t.Fatalf("expected overflow event dropped, got %d", got)
	default:
	}
}

func TestPublishRunsMirrorInjectDoesNot(t *testing.T) {
	topic := NewTopic[int](4)
	var mirrored []int
	topic.SetMirror(func(ev int) { mirrored = append(mirrored, ev) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := topic.Subscribe(ctx)

	topic.Publish(1)
	topic.Inject(2)

	if len(mirrored) != 1 || mirrored[0] != 1 {
		t.Fatalf("expected only published events mirrored, got %v", mirrored)
	}
	if got := <-ch; got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := <-ch; got != 2 {
		t.Fatalf("expected injected event delivered locally, got %d", got)
	}
}

func TestFilterDropsNonMatching(t *testing.T) {
	topic := NewTopic[int](8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	evens := Filter(ctx, topic.Subscribe(ctx), func(n int) bool { return n%2 == 0 })

	for n := 1; n <= 4; n++ {
		topic.Publish(n)
	}

	for _, want := range []int{2, 4} {
		select {
		case got := <-evens:
			if got != want {
				t.Fatalf("expected %d, got %d", want, got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for filtered event")
		}
	}
	select {
	case got := <-evens:
		t.Fatalf("unexpected event %d", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFilterClosesWithContext(t *testing.T) {
	topic := NewTopic[int](8)
	ctx, cancel := context.WithCancel(context.Background())
	out := Filter(ctx, topic.Subscribe(ctx), func(int) bool { return true })

	cancel()
	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("filtered channel not closed after cancel")
	}
}
