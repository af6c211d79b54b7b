// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

import (
	"github.com/ManuGH/camstream/internal/device"
)

// FrameSink publishes delivered frames on a bus topic.
type FrameSink struct {
	bus   *MemoryBus
	topic string
}

// NewFrameSink binds a sink to topic.
func NewFrameSink(bus *MemoryBus, topic string) *FrameSink {
	return &FrameSink{bus: bus, topic: topic}
}

// Deliver copies the frame payload once and fans it out. The device buffer
// is not referenced after Deliver returns.
func (s *FrameSink) Deliver(f device.Frame) {
	if s.bus.Subscribers(s.topic) == 0 {
		return
	}
	payload := append([]byte(nil), f.Payload()...)
	s.bus.Publish(s.topic, Message{
		FrameID:   f.ID(),
		Timestamp: f.Timestamp(),
		Payload:   payload,
	})
}
