package eventbus

import (
	"testing"
	"time"
)

func TestTopicDeliversToSubscriber(t *testing.T) {
	topic := NewTopic[int]()
	ch, cancel := topic.Subscribe()
	defer cancel()

	topic.Publish(42)

	select {
	case v := <-ch:
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published value")
	}
}

func TestTopicLatestWinsOnSlowConsumer(t *testing.T) {
	topic := NewTopic[int]()
	ch, cancel := topic.Subscribe()
	defer cancel()

	for i := 0; i < 100; i++ {
		topic.Publish(i)
	}

	select {
	case v := <-ch:
		if v != 99 {
			t.Fatalf("expected latest value 99, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published value")
	}

	select {
	case v := <-ch:
		t.Fatalf("expected no further buffered values, got %d", v)
	default:
	}
}

func TestTopicDisposingOneSubscriberDoesNotAffectAnother(t *testing.T) {
	topic := NewTopic[int]()
	ch1, cancel1 := topic.Subscribe()
	ch2, cancel2 := topic.Subscribe()
	defer cancel2()

	cancel1()
	topic.Publish(7)

	select {
	case v := <-ch2:
		if v != 7 {
			t.Fatalf("got %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second subscriber")
	}

	select {
	case _, ok := <-ch1:
		if ok {
			t.Fatal("cancelled subscriber should not receive further values")
		}
	default:
	}

	if topic.SubscriberCount() != 1 {
		t.Fatalf("expected 1 remaining subscriber, got %d", topic.SubscriberCount())
	}
}

func TestFilteredOnlyForwardsMatching(t *testing.T) {
	topic := NewTopic[int]()
	out, cancel := Filtered(topic, func(v int) bool { return v%2 == 0 })
	defer cancel()

	topic.Publish(1)
	topic.Publish(2)

	select {
	case v := <-out:
		if v != 2 {
			t.Fatalf("got %d, want 2", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered value")
	}
}
