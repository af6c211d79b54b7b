// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dispatch partitions device operations into concurrency domains.
//
// A Domain admits callers according to its Policy. Exclusive domains run at
// most one operation at a time; Reentrant domains run callers in parallel,
// optionally bounded. Admission order inside a domain is unspecified.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/camstream/internal/metrics"
)

// Policy is the mutual exclusion policy of a domain.
type Policy int

const (
	Reentrant Policy = iota
	Exclusive
)

func (p Policy) String() string {
	switch p {
	case Reentrant:
		return "reentrant"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Domain is a named execution context with a declared policy.
type Domain struct {
	name   string
	policy Policy
	// sem is nil for an unbounded reentrant domain.
	sem chan struct{}
}

// NewDomain creates a domain. maxConcurrent bounds a Reentrant domain;
// zero means unbounded. It is ignored for Exclusive domains.
func NewDomain(name string, policy Policy, maxConcurrent int) *Domain {
	d := &Domain{name: name, policy: policy}
	switch {
	case policy == Exclusive:
		d.sem = make(chan struct{}, 1)
	case maxConcurrent > 0:
		d.sem = make(chan struct{}, maxConcurrent)
	}
	return d
}

func (d *Domain) Name() string   { return d.name }
func (d *Domain) Policy() Policy { return d.policy }

// Do runs fn inside the domain. It blocks until admitted or ctx is done;
// fn itself is never interrupted.
func (d *Domain) Do(ctx context.Context, fn func(context.Context) error) error {
	if d.sem != nil {
		start := time.Now()
		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			return fmt.Errorf("enter domain %s: %w", d.name, ctx.Err())
		}
		defer func() { <-d.sem }()
		metrics.ObserveDispatchWait(d.name, time.Since(start))
	}

	inflight := metrics.DispatchInflight.WithLabelValues(d.name)
	inflight.Inc()
	defer inflight.Dec()

	return fn(ctx)
}
