package pubsub

import (
	"context"
	"sync"
)

// Message is an in-process pub/sub message.
type Message struct {
	Channel string
	Payload string
}

type subscriber struct {
	ch chan *Message
}

// Bus is an in-process fan-out pub/sub implementation. Encounter event
// streams are published here and picked up by the WS and SSE handlers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	bufSize     int
}

// NewBus creates a new Bus with the given per-subscriber buffer size.
func NewBus(bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		subscribers: make(map[string][]*subscriber),
		bufSize:     bufSize,
	}
}

// Publish sends a message to all subscribers of the given channel.
func (b *Bus) Publish(_ context.Context, channel, message string) error {
	msg := &Message{Channel: channel, Payload: message}
	b.mu.RLock()
	subs := b.subscribers[channel]
	b.mu.RUnlock()
	for _, s := range subs {
		select {
		case s.ch <- msg:
		default:
			// Drop message if buffer is full (non-blocking)
		}
	}
	return nil
}

// Subscribe returns a channel of messages for the given channels, and a cancel function.
func (b *Bus) Subscribe(_ context.Context, channels ...string) (<-chan *Message, func(), error) {
	ch := make(chan *Message, b.bufSize)
	subs := make([]*subscriber, len(channels))

	b.mu.Lock()
	for i, c := range channels {
		s := &subscriber{ch: ch}
		b.subscribers[c] = append(b.subscribers[c], s)
		subs[i] = s
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range channels {
			list := b.subscribers[c]
			for j, sub := range list {
				if sub == subs[i] {
					b.subscribers[c] = append(list[:j], list[j+1:]...)
					break
				}
			}
		}
		close(ch)
	}

	return ch, cancel, nil
}

// SubscriberCount returns how many subscribers a channel currently has.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}
