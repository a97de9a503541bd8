package events

import (
	"testing"
	"time"
)

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBus(0)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.PhaseStart("analyze")

	select {
	case ev := <-sub.Events():
		if ev.Kind != KindPhaseStart || ev.Phase != "analyze" {
			t.Errorf("got %+v, want phase-start/analyze", ev)
		}
		if ev.ID == "" {
			t.Errorf("event ID is empty")
		}
		if ev.Timestamp.Location() != time.UTC {
			t.Errorf("event timestamp not UTC")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_SlowSubscriberDroppedAfterBacklog(t *testing.T) {
	b := NewBus(2)
	sub := b.Subscribe()

	for i := 0; i < 5; i++ {
		b.ChapterStart("analyze", i+1)
	}

	b.mu.Lock()
	_, stillSubscribed := b.subs[sub.id]
	b.mu.Unlock()
	if stillSubscribed {
		t.Errorf("subscriber with full backlog should have been dropped")
	}

	// Channel should be closed; draining it should not block.
	drained := 0
	for range sub.Events() {
		drained++
	}
	if drained != 2 {
		t.Errorf("drained = %d, want 2 (backlog capacity)", drained)
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(0)
	sub := b.Subscribe()
	sub.Unsubscribe()

	b.PhaseComplete("extract") // must not panic or block despite no subscribers

	if _, ok := <-sub.Events(); ok {
		t.Errorf("expected closed channel after Unsubscribe")
	}
}

func TestBus_MultipleSubscribersEachGetEvent(t *testing.T) {
	b := NewBus(0)
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Unsubscribe()
	defer s2.Unsubscribe()

	b.ProgressLog("illustrate", "rendering scene 3")

	for _, sub := range []*Subscription{s1, s2} {
		select {
		case ev := <-sub.Events():
			if ev.Kind != KindProgressLog {
				t.Errorf("got kind %v, want progress-log", ev.Kind)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event on one subscriber")
		}
	}
}
