// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transport delivers frames to downstream consumers.
//
// MemoryBus is an in-process pub/sub keyed by topic. Publishing never blocks:
// a subscriber whose queue is full misses the message and the drop is
// counted. Subscribing and unsubscribing raise a topology change that the
// stream controller observes as consumer demand.
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/camstream/internal/log"
	"github.com/ManuGH/camstream/internal/metrics"
)

const (
	dropLogEvery      = 100
	defaultQueueDepth = 8
)

var ErrClosed = errors.New("bus closed")

// Message is one published frame. Payload is shared between subscribers and
// must be treated as read-only.
type Message struct {
	Topic     string
	FrameID   int64
	Timestamp time.Time
	Payload   []byte
}

// Subscriber receives messages of one topic until closed.
type Subscriber interface {
	C() <-chan Message
	// Dropped is the number of messages this subscriber missed.
	Dropped() uint64
	Close() error
}

// MemoryBus is an in-memory, non-durable frame bus.
type MemoryBus struct {
	queue int

	mu     sync.RWMutex
	subs   map[string][]*memSub
	closed bool

	// changed holds at most one pending topology notification.
	changed   chan struct{}
	dropCount atomic.Uint64
}

// NewMemoryBus creates a bus whose subscribers buffer up to queue messages.
func NewMemoryBus(queue int) *MemoryBus {
	if queue <= 0 {
		queue = defaultQueueDepth
	}
	return &MemoryBus{
		queue:   queue,
		subs:    make(map[string][]*memSub),
		changed: make(chan struct{}, 1),
	}
}

// Publish offers msg to every subscriber of topic without blocking.
func (b *MemoryBus) Publish(topic string, msg Message) {
	msg.Topic = topic
	metrics.IncBusPublished(topic)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs[topic] {
		select {
		case s.ch <- msg:
		default:
			s.dropped.Add(1)
			b.recordDrop(topic)
		}
	}
}

func (b *MemoryBus) recordDrop(topic string) {
	metrics.IncBusDropReason(topic, "full")
	count := b.dropCount.Add(1)
	if count%dropLogEvery == 0 {
		xglog.L().Warn().
			Str(xglog.FieldTopic, topic).
			Str("reason", "full").
			Uint64("dropped", count).
			Msg("frame bus dropped messages for slow consumers")
	}
}

// Subscribe registers a consumer of topic. The subscription ends when Close
// is called or ctx is done.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	s := &memSub{b: b, topic: topic, ch: make(chan Message, b.queue)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.subs[topic] = append(b.subs[topic], s)
	n := len(b.subs[topic])
	b.mu.Unlock()

	b.notify(topic, n)
	s.setStop(context.AfterFunc(ctx, func() { _ = s.Close() }))
	return s, nil
}

// Subscribers reports the number of active consumers of topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// WaitForChange waits up to timeout for a topology change. It returns true
// and consumes the pending notification if one arrived.
func (b *MemoryBus) WaitForChange(ctx context.Context, timeout time.Duration) bool {
	select {
	case <-b.changed:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.changed:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close ends every subscription and rejects new ones.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*memSub
	for _, lst := range b.subs {
		all = append(all, lst...)
	}
	b.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
	return nil
}

func (b *MemoryBus) notify(topic string, n int) {
	metrics.SetConsumers(topic, n)
	metrics.IncTopologyChange()
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

func (b *MemoryBus) remove(s *memSub) {
	b.mu.Lock()
	lst := b.subs[s.topic]
	out := lst[:0]
	for _, c := range lst {
		if c != s {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		delete(b.subs, s.topic)
	} else {
		b.subs[s.topic] = out
	}
	// Closed under the write lock so no publisher can still be sending.
	close(s.ch)
	b.mu.Unlock()

	b.notify(s.topic, len(out))
}

type memSub struct {
	b       *MemoryBus
	topic   string
	ch      chan Message
	dropped atomic.Uint64
	once    sync.Once

	mu   sync.Mutex
	stop func() bool
}

func (s *memSub) setStop(stop func() bool) {
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()
}

func (s *memSub) C() <-chan Message { return s.ch }

func (s *memSub) Dropped() uint64 { return s.dropped.Load() }

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.b.remove(s)
	})
	return nil
}
