package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(metric); err != nil {
		t.Fatalf("write counter metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func getCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("write counter metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func getGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := g.Write(metric); err != nil {
		t.Fatalf("write gauge metric: %v", err)
	}
	return metric.GetGauge().GetValue()
}

func TestHandlerExposure(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStreamLifecycleCounters(t *testing.T) {
	before := getCounterVecValue(t, StreamStartTotal, "failure", "auto")
	IncStreamStart(false, "auto")
	if after := getCounterVecValue(t, StreamStartTotal, "failure", "auto"); after != before+1 {
		t.Fatalf("expected start failure +1, got before=%v after=%v", before, after)
	}

	SetStreamActive(true)
	if v := getGaugeValue(t, StreamActive); v != 1 {
		t.Fatalf("expected active gauge 1, got %v", v)
	}
	SetStreamActive(false)
	if v := getGaugeValue(t, StreamActive); v != 0 {
		t.Fatalf("expected active gauge 0, got %v", v)
	}

	ObserveStreamStartLatency(10 * time.Millisecond)
}

func TestFrameLossCountsEventsAndFrames(t *testing.T) {
	events := getCounterValue(t, FrameLossEventsTotal)
	missing := getCounterValue(t, FramesMissingTotal)

	AddFramesMissing(3)

	if got := getCounterValue(t, FrameLossEventsTotal); got != events+1 {
		t.Fatalf("expected one loss event, got before=%v after=%v", events, got)
	}
	if got := getCounterValue(t, FramesMissingTotal); got != missing+3 {
		t.Fatalf("expected three missing frames, got before=%v after=%v", missing, got)
	}
}

func TestRequeueFailureLabelsByCode(t *testing.T) {
	before := getCounterVecValue(t, FrameRequeueFailuresTotal, "-24")
	IncFrameRequeueFailure(-24)
	if after := getCounterVecValue(t, FrameRequeueFailuresTotal, "-24"); after != before+1 {
		t.Fatalf("expected code -24 +1, got before=%v after=%v", before, after)
	}
}

func TestBusDropNormalizesLabels(t *testing.T) {
	before := getCounterVecValue(t, BusDroppedTotal, "unknown", "unknown")
	IncBusDropReason("", "")
	if after := getCounterVecValue(t, BusDroppedTotal, "unknown", "unknown"); after != before+1 {
		t.Fatalf("expected unknown/unknown +1, got before=%v after=%v", before, after)
	}
}
