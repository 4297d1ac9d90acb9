package core

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"opstrack/pkg/domain"
)

type recordingMetrics struct {
	mu           sync.Mutex
	observations []struct {
		operation string
		success   bool
	}
}

func (m *recordingMetrics) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	m.mu.Lock()
	m.observations = append(m.observations, struct {
		operation string
		success   bool
	}{operation, success})
	m.mu.Unlock()
}

func TestInstrumentationObservesOperations(t *testing.T) {
	metrics := &recordingMetrics{}
	logger := &captureLogger{}
	svc, _ := newTestService(t, WithMetrics(metrics), WithLogger(logger))
	ctx := context.Background()

	if _, _, err := svc.CreateLead(ctx, 1, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew}); err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if _, _, err := svc.UpdateLead(ctx, 1, 999, func(*Lead) error { return nil }); err == nil {
		t.Fatalf("update of missing lead should fail")
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(metrics.observations))
	}
	if metrics.observations[0].operation != "create_lead" || !metrics.observations[0].success {
		t.Fatalf("unexpected first observation: %+v", metrics.observations[0])
	}
	if metrics.observations[1].operation != "update_lead" || metrics.observations[1].success {
		t.Fatalf("unexpected second observation: %+v", metrics.observations[1])
	}
	if len(logger.errors) != 1 {
		t.Fatalf("failed operation should log an error, got %d", len(logger.errors))
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatalf("recorder should generate a name")
	}

	ctx := context.Background()
	rec.Observe(ctx, "create_lead", true, 20*time.Millisecond)
	rec.Observe(ctx, "create_lead", true, 30*time.Millisecond)
	rec.Observe(ctx, "create_lead", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["create_lead"]; got != 55 {
		t.Fatalf("expected 55ms total, got %v", got)
	}
	if snap.Results["create_lead"]["success"] != 2 || snap.Results["create_lead"]["error"] != 1 {
		t.Fatalf("unexpected result counters: %+v", snap.Results["create_lead"])
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation names must be ignored")
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc, _ := newTestService(t, WithTracer(tracer))
	ctx := context.Background()

	if _, _, err := svc.CreateLead(ctx, 1, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew}); err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if _, err := svc.DeleteLead(ctx, 1, 404); err != nil {
		t.Fatalf("idempotent delete: %v", err)
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(entries))
	}
	if entries[0].Operation != "create_lead" || entries[0].Status != "success" {
		t.Fatalf("unexpected first span: %+v", entries[0])
	}
	if !strings.Contains(buf.String(), `"operation":"create_lead"`) {
		t.Fatalf("spans should be encoded to the writer: %s", buf.String())
	}
}

func TestWithClockDrivesDurations(t *testing.T) {
	metrics := &recordingMetrics{}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	clock := ClockFunc(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	svc, _ := newTestService(t, WithMetrics(metrics), WithClock(clock))

	if _, _, err := svc.CreateLead(context.Background(), 1, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew}); err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if tick < 2 {
		t.Fatalf("instrumentation should consult the injected clock, ticks=%d", tick)
	}
}
