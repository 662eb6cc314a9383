// Package events fans out completed conversions to live subscribers.
package events

import (
	"sync"

	"github.com/vadiminshakov/fxconv/internal/domain"
)

const defaultBuffer = 64

// ConversionBroadcaster delivers every published conversion to all subscribers
// through buffered channels.
type ConversionBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan domain.ConversionResult]struct{}
	buffer int
}

// NewConversionBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewConversionBroadcaster(buffer int) *ConversionBroadcaster {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	return &ConversionBroadcaster{
		subs:   make(map[chan domain.ConversionResult]struct{}),
		buffer: buffer,
	}
}

// Publish sends r to all subscribers, dropping it for readers whose buffer is full.
func (b *ConversionBroadcaster) Publish(r domain.ConversionResult) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

// Subscribe returns a channel of conversions and the func that ends the subscription.
func (b *ConversionBroadcaster) Subscribe() (<-chan domain.ConversionResult, func()) {
	ch := make(chan domain.ConversionResult, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() { b.unsubscribe(ch) }
}

// Subscribers number of active subscriptions.
func (b *ConversionBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *ConversionBroadcaster) unsubscribe(ch chan domain.ConversionResult) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
