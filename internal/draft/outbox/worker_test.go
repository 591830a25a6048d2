package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu     sync.Mutex
	unsent []Event
	sent   []uuid.UUID
}

func (s *fakeStore) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int(limit)
	if n > len(s.unsent) {
		n = len(s.unsent)
	}
	return append([]Event(nil), s.unsent[:n]...), nil
}

func (s *fakeStore) MarkSent(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	marked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	var remaining []Event
	for _, e := range s.unsent {
		if !marked[e.ID] {
			remaining = append(remaining, e)
		}
	}
	s.unsent = remaining
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []Event
	failFor   map[uuid.UUID]int // remaining failures per event
}

func (p *fakePublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if remaining := p.failFor[event.ID]; remaining > 0 {
		p.failFor[event.ID] = remaining - 1
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func stagedEvent(eventType string) Event {
	return Event{
		ID:        uuid.New(),
		RoomID:    uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{}`),
		CreatedAt: time.Now(),
	}
}

func testWorkerConfig() Config {
	return Config{
		PollInterval: time.Minute, // irrelevant, tests drive ProcessOnce
		BatchSize:    100,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
	}
}

func TestProcessOncePublishesAndMarksSent(t *testing.T) {
	a := stagedEvent("PickMade")
	b := stagedEvent("PickStarted")
	store := &fakeStore{unsent: []Event{a, b}}
	pub := &fakePublisher{}

	w := NewWorker(store, pub, testWorkerConfig())
	w.ProcessOnce(context.Background())

	if len(pub.published) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.published))
	}
	// Events staged together publish in staging order.
	if pub.published[0].ID != a.ID || pub.published[1].ID != b.ID {
		t.Errorf("publish order = [%s, %s], want [%s, %s]",
			pub.published[0].EventType, pub.published[1].EventType, a.EventType, b.EventType)
	}
	if len(store.sent) != 2 {
		t.Fatalf("marked %d sent, want 2", len(store.sent))
	}
	if len(store.unsent) != 0 {
		t.Errorf("%d events left unsent", len(store.unsent))
	}
}

func TestProcessOnceRetriesTransientFailure(t *testing.T) {
	e := stagedEvent("PickMade")
	store := &fakeStore{unsent: []Event{e}}
	pub := &fakePublisher{failFor: map[uuid.UUID]int{e.ID: 2}}

	w := NewWorker(store, pub, testWorkerConfig())
	w.ProcessOnce(context.Background())

	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1 after retries", len(pub.published))
	}
	if len(store.sent) != 1 {
		t.Errorf("event not marked sent after successful retry")
	}
}

func TestProcessOnceKeepsFailedEventUnsent(t *testing.T) {
	failing := stagedEvent("PickMade")
	healthy := stagedEvent("PickStarted")
	store := &fakeStore{unsent: []Event{failing, healthy}}
	pub := &fakePublisher{failFor: map[uuid.UUID]int{failing.ID: 10}} // beyond retries

	w := NewWorker(store, pub, testWorkerConfig())
	w.ProcessOnce(context.Background())

	// The healthy event goes out; the failing one stays for the next pass.
	if len(pub.published) != 1 || pub.published[0].ID != healthy.ID {
		t.Fatalf("published = %v", pub.published)
	}
	if len(store.unsent) != 1 || store.unsent[0].ID != failing.ID {
		t.Errorf("unsent = %v, want only the failing event", store.unsent)
	}
}

func TestWorkerStartStop(t *testing.T) {
	store := &fakeStore{}
	w := NewWorker(store, &fakePublisher{}, testWorkerConfig())

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := w.Stop(); err == nil {
		t.Error("second Stop should fail")
	}
}
