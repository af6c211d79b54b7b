// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/camstream/internal/metrics"
	"github.com/ManuGH/camstream/internal/telemetry"
)

var (
	ErrUnpinned      = errors.New("operation is not pinned to a domain")
	ErrAlreadyPinned = errors.New("operation already pinned")
	ErrSealed        = errors.New("partition is sealed")
	ErrUnknownDomain = errors.New("unknown domain")
)

// Op names an externally invocable operation.
type Op string

// Partition pins every operation to exactly one domain. Pins are made once
// at setup; after Seal the mapping is read-only.
type Partition struct {
	mu      sync.RWMutex
	domains map[string]*Domain
	pins    map[Op]*Domain
	sealed  bool
	tracer  trace.Tracer
}

// NewPartition creates a partition over the given domains.
func NewPartition(domains ...*Domain) *Partition {
	p := &Partition{
		domains: make(map[string]*Domain, len(domains)),
		pins:    make(map[Op]*Domain),
		tracer:  telemetry.Tracer("camstream/dispatch"),
	}
	for _, d := range domains {
		p.domains[d.name] = d
	}
	return p
}

// Pin assigns op to the named domain.
func (p *Partition) Pin(op Op, domain string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed {
		return fmt.Errorf("pin %s: %w", op, ErrSealed)
	}
	d, ok := p.domains[domain]
	if !ok {
		return fmt.Errorf("pin %s to %s: %w", op, domain, ErrUnknownDomain)
	}
	if cur, ok := p.pins[op]; ok {
		return fmt.Errorf("pin %s to %s (pinned to %s): %w", op, domain, cur.name, ErrAlreadyPinned)
	}
	p.pins[op] = d
	return nil
}

// Seal freezes the pin table.
func (p *Partition) Seal() {
	p.mu.Lock()
	p.sealed = true
	p.mu.Unlock()
}

// DomainOf returns the domain op is pinned to.
func (p *Partition) DomainOf(op Op) (*Domain, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.pins[op]
	return d, ok
}

// Ops returns every pinned operation.
func (p *Partition) Ops() map[Op]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[Op]string, len(p.pins))
	for op, d := range p.pins {
		out[op] = d.name
	}
	return out
}

// Run executes fn in the domain op is pinned to.
func (p *Partition) Run(ctx context.Context, op Op, fn func(context.Context) error) error {
	d, ok := p.DomainOf(op)
	if !ok {
		return fmt.Errorf("run %s: %w", op, ErrUnpinned)
	}

	ctx, span := p.tracer.Start(ctx, "dispatch "+string(op),
		trace.WithAttributes(telemetry.DispatchAttributes(string(op), d.name, d.policy.String())...))
	defer span.End()

	err := d.Do(ctx, fn)
	metrics.IncDispatchOp(string(op), d.name, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool(telemetry.ErrorKey, true))
	}
	return err
}
