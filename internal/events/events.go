package events

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	TypeEventsCreated        = "calendar.events_created"
	TypeConfirmationRequired = "tags.confirmation_required"
)

// AssistantEvent notifies an owner's open streams about a planning outcome.
type AssistantEvent struct {
	OwnerID string         `json:"owner_id"`
	Seq     int64          `json:"seq"`
	Type    string         `json:"type"`
	Ts      string         `json:"ts"`
	Payload map[string]any `json:"payload"`
}

type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan AssistantEvent]struct{}
	seq         map[string]int64
	now         func() time.Time
}

func NormalizeType(eventType string) string {
	return strings.TrimSpace(strings.ToLower(eventType))
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: map[string]map[chan AssistantEvent]struct{}{},
		seq:         map[string]int64{},
		now:         time.Now,
	}
}

// Subscribe streams events for ownerID until ctx is done, then closes the channel.
func (b *Broker) Subscribe(ctx context.Context, ownerID string) <-chan AssistantEvent {
	ch := make(chan AssistantEvent, 16)

	b.mu.Lock()
	if b.subscribers[ownerID] == nil {
		b.subscribers[ownerID] = map[chan AssistantEvent]struct{}{}
	}
	b.subscribers[ownerID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if b.subscribers[ownerID] != nil {
			delete(b.subscribers[ownerID], ch)
			if len(b.subscribers[ownerID]) == 0 {
				delete(b.subscribers, ownerID)
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish stamps the event with the owner's next sequence number and fans it
// out. Slow subscribers miss events rather than block the publisher.
func (b *Broker) Publish(event AssistantEvent) AssistantEvent {
	event.Type = NormalizeType(event.Type)

	b.mu.Lock()
	b.seq[event.OwnerID]++
	event.Seq = b.seq[event.OwnerID]
	if event.Ts == "" {
		event.Ts = b.now().UTC().Format(time.RFC3339Nano)
	}
	for ch := range b.subscribers[event.OwnerID] {
		select {
		case ch <- event:
		default:
		}
	}
	b.mu.Unlock()
	return event
}
