// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camstream/internal/device"
	xglog "github.com/ManuGH/camstream/internal/log"
)

// fakeDevice records every call and lets tests emit frames synchronously.
type fakeDevice struct {
	mu          sync.Mutex
	calls       []string
	streaming   bool
	handler     device.FrameHandler
	bufferCount int
	startErr    error
	stopErr     error
	delay       time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32

	// onClose runs when the handle is released.
	onClose func()
	// onStart runs before a start is recorded.
	onStart func()
	// sessionID is the correlation ID seen by the last start.
	sessionID string
}

func (d *fakeDevice) enter() func() {
	n := d.inflight.Add(1)
	for {
		m := d.maxInflight.Load()
		if n <= m || d.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return func() { d.inflight.Add(-1) }
}

func (d *fakeDevice) StartStreaming(ctx context.Context, bufferCount int, onFrame device.FrameHandler) error {
	defer d.enter()()
	if d.onStart != nil {
		d.onStart()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "start")
	d.sessionID = xglog.SessionIDFromContext(ctx)
	if d.startErr != nil {
		return d.startErr
	}
	d.streaming = true
	d.handler = onFrame
	d.bufferCount = bufferCount
	return nil
}

func (d *fakeDevice) StopStreaming(context.Context) error {
	defer d.enter()()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "stop")
	d.streaming = false
	d.handler = nil
	return d.stopErr
}

func (d *fakeDevice) IsStreaming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streaming
}

func (d *fakeDevice) Close() error {
	if d.onClose != nil {
		d.onClose()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "close")
	return nil
}

func (d *fakeDevice) setStartErr(err error) {
	d.mu.Lock()
	d.startErr = err
	d.mu.Unlock()
}

func (d *fakeDevice) count(call string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (d *fakeDevice) callLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// emit delivers frames the way an acquisition goroutine would.
func (d *fakeDevice) emit(frames ...*fakeFrame) {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()
	for _, f := range frames {
		h(f)
	}
}

type fakeFrame struct {
	id         int64
	requeueErr error
	requeued   atomic.Bool
}

func frames(ids ...int64) []*fakeFrame {
	out := make([]*fakeFrame, len(ids))
	for i, id := range ids {
		out[i] = &fakeFrame{id: id}
	}
	return out
}

func (f *fakeFrame) ID() int64            { return f.id }
func (f *fakeFrame) Timestamp() time.Time { return time.Time{} }
func (f *fakeFrame) Payload() []byte      { return []byte{byte(f.id)} }
func (f *fakeFrame) Requeue() error {
	f.requeued.Store(true)
	return f.requeueErr
}

type recordingSink struct {
	mu  sync.Mutex
	ids []int64
	// early counts frames that were already requeued when delivered.
	early int
}

func (s *recordingSink) Deliver(f device.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, f.ID())
	if ff, ok := f.(*fakeFrame); ok && ff.requeued.Load() {
		s.early++
	}
}

// fakeTopology tracks whether the monitor is inside a topology call.
type fakeTopology struct {
	subscribers atomic.Int32
	changed     chan struct{}
	active      atomic.Int32
}

func newFakeTopology() *fakeTopology {
	return &fakeTopology{changed: make(chan struct{}, 1)}
}

func (t *fakeTopology) set(n int, notify bool) {
	t.subscribers.Store(int32(n))
	if notify {
		select {
		case t.changed <- struct{}{}:
		default:
		}
	}
}

func (t *fakeTopology) Subscribers(string) int {
	t.active.Add(1)
	defer t.active.Add(-1)
	return int(t.subscribers.Load())
}

func (t *fakeTopology) WaitForChange(ctx context.Context, timeout time.Duration) bool {
	t.active.Add(1)
	defer t.active.Add(-1)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.changed:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

type memJournal struct {
	mu       sync.Mutex
	sessions []SessionStats
}

func (j *memJournal) Record(_ context.Context, s SessionStats) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sessions = append(j.sessions, s)
	return nil
}

func (j *memJournal) all() []SessionStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]SessionStats(nil), j.sessions...)
}

// syncBuffer is a log sink safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// events returns the decoded log lines whose event field equals name.
func (b *syncBuffer) events(t *testing.T, name string) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var line map[string]any
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("decode log line %q: %v", sc.Text(), err)
		}
		if line["event"] == name {
			out = append(out, line)
		}
	}
	return out
}

type harness struct {
	ctrl     *Controller
	dev      *fakeDevice
	topology *fakeTopology
	sink     *recordingSink
	journal  *memJournal
	logs     *syncBuffer
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		dev:      &fakeDevice{},
		topology: newFakeTopology(),
		sink:     &recordingSink{},
		journal:  &memJournal{},
		logs:     &syncBuffer{},
	}
	logger := zerolog.New(h.logs).Level(zerolog.DebugLevel)
	opts := Options{
		Device:         h.dev,
		Topology:       h.topology,
		Sink:           h.sink,
		Journal:        h.journal,
		PollInterval:   10 * time.Millisecond,
		ResyncInterval: time.Hour,
		Logger:         &logger,
	}
	if mutate != nil {
		mutate(&opts)
	}
	ctrl, err := New(opts)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	t.Cleanup(func() { _ = ctrl.Close() })
	return h
}
