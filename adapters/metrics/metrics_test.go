package metrics_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/artpar/envguard/adapters/clock"
	"github.com/artpar/envguard/adapters/metrics"
	"github.com/artpar/envguard/core/destruct"
	"github.com/artpar/envguard/core/events"
	"github.com/artpar/envguard/core/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.FieldsApplied == nil {
		t.Error("FieldsApplied is nil")
	}
	if m.FieldErrors == nil {
		t.Error("FieldErrors is nil")
	}
	if m.CellsDestroyed == nil {
		t.Error("CellsDestroyed is nil")
	}
	if m.Reloads == nil || m.ReloadErrors == nil {
		t.Error("reload counters are nil")
	}
}

func TestCollector_SchemaObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	opts := append(m.SchemaOptions(), schema.WithClock(clock.NewFake(time.Unix(0, 0))))
	s, err := schema.New([]schema.Entry{
		schema.F("PORT", "number"),
		schema.F("HOST", "string"),
		schema.F("NAME", "string"),
	}, opts...)
	if err != nil {
		t.Fatalf("schema.New error: %v", err)
	}

	if _, err := s.Apply(map[string]string{"PORT": "80", "HOST": "h", "NAME": "n"}); err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	if got := testutil.ToFloat64(m.FieldsApplied.WithLabelValues("number")); got != 1 {
		t.Errorf("fields_applied{type=number} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FieldsApplied.WithLabelValues("string")); got != 2 {
		t.Errorf("fields_applied{type=string} = %v, want 2", got)
	}

	if _, err := s.Apply(map[string]string{"PORT": "x", "HOST": "h", "NAME": "n"}); err == nil {
		t.Fatal("expected cast error")
	}
	if _, err := s.Apply(map[string]string{"PORT": "80"}); err == nil {
		t.Fatal("expected required error")
	}

	if got := testutil.ToFloat64(m.FieldErrors.WithLabelValues("cast")); got != 1 {
		t.Errorf("field_errors{kind=cast} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FieldErrors.WithLabelValues("required")); got != 1 {
		t.Errorf("field_errors{kind=required} = %v, want 1", got)
	}
}

func TestCollector_CellDestroyed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	fake := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	opts := append(m.SchemaOptions(), schema.WithClock(fake))
	s, err := schema.New([]schema.Entry{
		schema.F("A", schema.Field{Type: "string", Destruct: "1s"}),
		schema.F("B", schema.Field{Type: "string", Destruct: "1s"}),
	}, opts...)
	if err != nil {
		t.Fatalf("schema.New error: %v", err)
	}

	values, err := s.Apply(map[string]string{"A": "a", "B": "b"})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	values["B"].(*destruct.Cell).Destroy()
	fake.Advance(time.Second)
	if _, err := values["A"].(*destruct.Cell).Read(); !errors.Is(err, destruct.ErrDestroyed) {
		t.Fatalf("Read error = %v, want ErrDestroyed", err)
	}

	if got := testutil.ToFloat64(m.CellsDestroyed.WithLabelValues("read")); got != 1 {
		t.Errorf("cells_destroyed{trigger=read} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CellsDestroyed.WithLabelValues("manual")); got != 1 {
		t.Errorf("cells_destroyed{trigger=manual} = %v, want 1", got)
	}
}

func TestCollector_Reloads(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.Loaded(3)
	if got := testutil.ToFloat64(m.Keys); got != 3 {
		t.Errorf("keys = %v, want 3", got)
	}

	m.ReloadSucceeded(5)
	m.ReloadSucceeded(6)
	m.ReloadFailed(errors.New("boom"))

	if got := testutil.ToFloat64(m.Reloads); got != 2 {
		t.Errorf("reloads_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ReloadErrors); got != 1 {
		t.Errorf("reload_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Keys); got != 6 {
		t.Errorf("keys = %v, want 6", got)
	}
	if got := testutil.ToFloat64(m.LastReload); got <= 0 {
		t.Errorf("last_reload_timestamp = %v, want > 0", got)
	}
}

func TestCollector_Subscribe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	bus := events.NewBus(zerolog.Nop())
	if err := m.Subscribe(bus); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	ctx := context.Background()
	bus.Publish(ctx, events.Event{Name: events.EnvLoaded, Data: map[string]any{"keys": 4}})
	bus.Publish(ctx, events.Event{Name: events.EnvReloaded, Data: map[string]any{"keys": 2}})
	bus.Publish(ctx, events.Event{Name: events.EnvReloadFailed, Err: errors.New("boom")})
	bus.Publish(ctx, events.Event{Name: events.CellDestroyed, Key: "TOKEN", Data: map[string]any{"trigger": "timer"}})
	bus.Publish(ctx, events.Event{Name: "unrelated"})

	if got := testutil.ToFloat64(m.Reloads); got != 1 {
		t.Errorf("reloads_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ReloadErrors); got != 1 {
		t.Errorf("reload_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Keys); got != 2 {
		t.Errorf("keys = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CellsDestroyed.WithLabelValues("timer")); got != 1 {
		t.Errorf("cells_destroyed{trigger=timer} = %v, want 1", got)
	}
}

func TestTypeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "any"},
		{"number", "number"},
	}
	for _, tt := range tests {
		if got := metrics.TypeLabel(tt.in); got != tt.want {
			t.Errorf("TypeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	m.ReloadFailed(nil)

	var buf bytes.Buffer
	if err := metrics.WriteText(&buf, reg); err != nil {
		t.Fatalf("WriteText error: %v", err)
	}
	if !strings.Contains(buf.String(), "envguard_reload_errors_total 1") {
		t.Errorf("output missing reload errors:\n%s", buf.String())
	}
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewWithRegistry(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic registering the collector twice")
		}
	}()
	metrics.NewWithRegistry(reg)
}
