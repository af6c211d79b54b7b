// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"github.com/ManuGH/camstream/internal/stream/fsm"
)

// State is the streaming lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateStreaming State = "streaming"
	StateStopping  State = "stopping"
)

type event string

const (
	evStart       event = "start"
	evStarted     event = "started"
	evStartFailed event = "start_failed"
	evStop        event = "stop"
	evStopped     event = "stopped"
)

// Trigger tells who asked for a lifecycle change.
type Trigger string

const (
	TriggerCommand  Trigger = "command"
	TriggerDemand   Trigger = "demand"
	TriggerShutdown Trigger = "shutdown"
)

func newLifecycle() *fsm.Machine[State, event] {
	m, err := fsm.New[State, event](StateIdle, []fsm.Transition[State, event]{
		{From: StateIdle, Event: evStart, To: StateStarting},
		{From: StateStarting, Event: evStarted, To: StateStreaming},
		{From: StateStarting, Event: evStartFailed, To: StateIdle},
		{From: StateStreaming, Event: evStop, To: StateStopping},
		{From: StateStopping, Event: evStopped, To: StateIdle},
	})
	if err != nil {
		panic(err)
	}
	return m
}
