package player

import (
	"sync"
	"time"
)

// EventType tags an event on the session feed.
type EventType string

const (
	EventSkip    EventType = "skip"
	EventMuteOn  EventType = "mute_on"
	EventMuteOff EventType = "mute_off"
	EventToast   EventType = "toast"
	EventCommand EventType = "command"
	EventState   EventType = "state"
)

// Event is one discrete item on the session feed. Delivery is at-least-once
// for attached subscribers with small per-subscriber buffers; late
// subscribers miss events emitted before they attached.
type Event struct {
	Type        EventType `json:"type"`
	VideoID     string    `json:"video_id,omitempty"`
	SegmentUUID string    `json:"segment_uuid,omitempty"`
	Category    string    `json:"category,omitempty"`
	SeekTo      float64   `json:"seek_to,omitempty"`
	Command     string    `json:"command,omitempty"`
	Message     string    `json:"message,omitempty"`
	At          time.Time `json:"at"`
}

const subscriberBuffer = 16

// Bus fans session events out to subscribers. Publishing never blocks the
// session actor: a subscriber that falls more than its buffer behind loses
// the oldest pending events.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a receive channel and a cancel func. Cancel must be
// called exactly once; the channel is closed by it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		for {
			select {
			case ch <- ev:
			default:
				// Drop the oldest pending event and retry once.
				select {
				case <-ch:
					continue
				default:
				}
			}
			break
		}
	}
}

// SubscriberCount reports how many subscribers are attached.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
