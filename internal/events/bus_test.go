package events_test

import (
	"context"
	"testing"
	"time"

	"whittle/internal/events"
)

func TestPublishAssignsSequences(t *testing.T) {
	bus := events.NewBus(8)
	bus.Publish(events.Event{Kind: events.KindDirectoryAdded, Name: "$CarvedFiles"})
	bus.Publish(events.Event{Kind: events.KindItemsAdded, ContentID: 4})

	got, next := bus.Tail(10)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Sequence != 1 || got[1].Sequence != 2 || next != 2 {
		t.Fatalf("unexpected sequencing: %+v next=%d", got, next)
	}
	if got[0].Timestamp.IsZero() {
		t.Fatal("expected timestamp to be stamped")
	}
}

func TestBufferDropsOldest(t *testing.T) {
	bus := events.NewBus(2)
	for i := 0; i < 3; i++ {
		bus.Publish(events.Event{Kind: events.KindItemsAdded})
	}
	got, _ := bus.Tail(10)
	if len(got) != 2 {
		t.Fatalf("expected capacity-bounded buffer, got %d events", len(got))
	}
	if got[0].Sequence != 2 || got[1].Sequence != 3 {
		t.Fatalf("expected oldest event dropped, got %+v", got)
	}
}

func TestFetchWaitsForPublish(t *testing.T) {
	bus := events.NewBus(8)

	done := make(chan []events.Event, 1)
	go func() {
		got, _, err := bus.Fetch(context.Background(), 0, 10, true)
		if err != nil {
			t.Errorf("fetch: %v", err)
		}
		done <- got
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.Event{Kind: events.KindDirectoryAdded, Name: "recup_dir.1"})

	select {
	case got := <-done:
		if len(got) != 1 || got[0].Name != "recup_dir.1" {
			t.Fatalf("unexpected events: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake on publish")
	}
}

func TestFetchHonoursContext(t *testing.T) {
	bus := events.NewBus(8)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := bus.Fetch(ctx, 0, 10, true)
	if err == nil {
		t.Fatal("expected context error")
	}
}
