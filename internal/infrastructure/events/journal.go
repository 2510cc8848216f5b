package events

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/exportrun/internal/ports"
)

const defaultJournalLimit = 1000

// Entry is one event captured by a Journal.
type Entry struct {
	Type          string
	CorrelationID string
	Payload       interface{}
}

// Journal keeps the most recent run events in memory. Once limit entries
// are held, the oldest one is dropped for every new event.
type Journal struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

// NewJournal creates a journal with the provided capacity (defaults to 1000).
func NewJournal(limit int) *Journal {
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	return &Journal{
		limit:   limit,
		entries: make([]Entry, 0, limit),
	}
}

// Handle records event. It satisfies ports.EventHandler.
func (j *Journal) Handle(ctx context.Context, event ports.DomainEvent) error {
	if event == nil {
		return nil
	}
	j.add(Entry{
		Type:          event.EventType(),
		CorrelationID: ports.GetCorrelationID(ctx),
		Payload:       event.Payload(),
	})
	return nil
}

// Attach subscribes the journal to every given event type on publisher.
// The returned func removes all subscriptions.
func (j *Journal) Attach(publisher ports.EventPublisher, eventTypes ...string) (func(), error) {
	subs := make([]ports.Subscription, 0, len(eventTypes))
	detach := func() {
		for _, sub := range subs {
			if sub != nil {
				sub.Unsubscribe()
			}
		}
	}
	for _, eventType := range eventTypes {
		sub, err := publisher.Subscribe(eventType, j.Handle)
		if err != nil {
			detach()
			return nil, err
		}
		subs = append(subs, sub)
	}
	return detach, nil
}

func (j *Journal) add(entry Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.entries) == j.limit {
		copy(j.entries, j.entries[1:])
		j.entries[len(j.entries)-1] = entry
		return
	}
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of the recorded events, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Drain returns the recorded events and empties the journal.
func (j *Journal) Drain() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.entries
	j.entries = make([]Entry, 0, j.limit)
	return out
}
