// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string
type event string

func TestMachineFire(t *testing.T) {
	m, err := New[state, event]("off", []Transition[state, event]{
		{From: "off", Event: "toggle", To: "on"},
		{From: "on", Event: "toggle", To: "off"},
	})
	require.NoError(t, err)

	var seen []state
	m.OnEnter(func(_, to state, _ event) { seen = append(seen, to) })

	got, err := m.Fire(context.Background(), "toggle")
	require.NoError(t, err)
	assert.Equal(t, state("on"), got)
	assert.True(t, m.Can("toggle"))
	assert.False(t, m.Can("explode"))

	_, err = m.Fire(context.Background(), "explode")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, state("on"), m.State())
	assert.Equal(t, []state{"on"}, seen)
}

func TestMachineDuplicateTransition(t *testing.T) {
	_, err := New[state, event]("a", []Transition[state, event]{
		{From: "a", Event: "go", To: "b"},
		{From: "a", Event: "go", To: "c"},
	})
	require.Error(t, err)
}

func TestMachineGuardAndAction(t *testing.T) {
	blocked := errors.New("blocked")
	allow := false
	actions := 0
	m, err := New[state, event]("a", []Transition[state, event]{
		{
			From: "a", Event: "go", To: "b",
			Guard: func(context.Context, state, event) error {
				if !allow {
					return blocked
				}
				return nil
			},
			Action: func(context.Context, state, state, event) error {
				actions++
				return nil
			},
		},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), "go")
	assert.ErrorIs(t, err, blocked)
	assert.Equal(t, state("a"), m.State())
	assert.Zero(t, actions)

	allow = true
	_, err = m.Fire(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, state("b"), m.State())
	assert.Equal(t, 1, actions)
}

func TestMachineDetectsConcurrentTransition(t *testing.T) {
	var m *Machine[state, event]
	m, err := New[state, event]("a", []Transition[state, event]{
		{
			From: "a", Event: "slow", To: "b",
			Action: func(ctx context.Context, _, _ state, _ event) error {
				_, err := m.Fire(ctx, "fast")
				return err
			},
		},
		{From: "a", Event: "fast", To: "c"},
	})
	require.NoError(t, err)

	cur, err := m.Fire(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrConcurrentTransition)
	assert.Equal(t, state("c"), cur)
}
