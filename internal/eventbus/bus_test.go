package eventbus

import (
	"testing"
	"time"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()

	ch1, unsub1 := b.Subscribe(4)
	defer unsub1()
	ch2, unsub2 := b.Subscribe(4)
	defer unsub2()

	b.Publish(Event{Type: "greet.delivered", Data: "hi"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != "greet.delivered" {
				t.Fatalf("subscriber %d got type %q", i, e.Type)
			}
			if e.Time.IsZero() {
				t.Fatalf("subscriber %d got zero time", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received", i)
		}
	}
}

func TestSubscribeTypeFilter(t *testing.T) {
	t.Parallel()
	b := New()

	ch, unsub := b.Subscribe(4, "greet.failed")
	defer unsub()

	b.Publish(Event{Type: "greet.delivered"})
	b.Publish(Event{Type: "greet.failed"})

	select {
	case e := <-ch:
		if e.Type != "greet.failed" {
			t.Fatalf("filter let through %q", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("filtered subscriber never received its type")
	}

	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event %q", e.Type)
	default:
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	t.Parallel()
	b := New()

	_, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		// Buffer of 1, ten publishes: extras must drop, not block.
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: "greet.delivered"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()
	b := New()

	ch, unsub := b.Subscribe(1)
	_ = ch
	unsub()
	unsub()

	// Channel is closed now; Publish must survive it.
	b.Publish(Event{Type: "greet.delivered"})
}
