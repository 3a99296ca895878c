// Package metrics provides Prometheus metrics collection for envguard.
package metrics

import (
	"context"
	"fmt"
	"io"

	"github.com/artpar/envguard/core/destruct"
	"github.com/artpar/envguard/core/events"
	"github.com/artpar/envguard/core/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Collector holds all Prometheus metrics for envguard.
type Collector struct {
	// Schema metrics
	FieldsApplied *prometheus.CounterVec
	FieldErrors   *prometheus.CounterVec

	// Destruct metrics
	CellsDestroyed *prometheus.CounterVec

	// Reload metrics
	Reloads      prometheus.Counter
	ReloadErrors prometheus.Counter
	LastReload   prometheus.Gauge
	Keys         prometheus.Gauge
}

var _ schema.Observer = (*Collector)(nil)

// New creates a collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		FieldsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "envguard",
				Name:      "fields_applied_total",
				Help:      "Total number of schema fields applied successfully",
			},
			[]string{"type"},
		),
		FieldErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "envguard",
				Name:      "field_errors_total",
				Help:      "Total number of schema field failures by kind",
			},
			[]string{"kind"},
		),
		CellsDestroyed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "envguard",
				Name:      "cells_destroyed_total",
				Help:      "Total number of self-destructing values destroyed",
			},
			[]string{"trigger"},
		),
		Reloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "envguard",
				Name:      "reloads_total",
				Help:      "Total number of successful env reloads",
			},
		),
		ReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "envguard",
				Name:      "reload_errors_total",
				Help:      "Total number of env reload errors",
			},
		),
		LastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "envguard",
				Name:      "last_reload_timestamp",
				Help:      "Unix timestamp of last successful env reload",
			},
		),
		Keys: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "envguard",
				Name:      "keys",
				Help:      "Number of keys in the current env",
			},
		),
	}
}

// FieldApplied implements schema.Observer.
func (c *Collector) FieldApplied(d *schema.Descriptor) {
	c.FieldsApplied.WithLabelValues(TypeLabel(d.Type)).Inc()
}

// FieldFailed implements schema.Observer.
func (c *Collector) FieldFailed(_ string, err error) {
	c.FieldErrors.WithLabelValues(schema.Kind(err)).Inc()
}

// CellDestroyed counts a destroyed cell. It matches the schema destroy hook.
func (c *Collector) CellDestroyed(_ *destruct.Cell, trigger destruct.Trigger) {
	c.CellsDestroyed.WithLabelValues(string(trigger)).Inc()
}

// Loaded records the size of a freshly applied env.
func (c *Collector) Loaded(keys int) {
	c.Keys.Set(float64(keys))
}

// ReloadSucceeded records a successful reload.
func (c *Collector) ReloadSucceeded(keys int) {
	c.Reloads.Inc()
	c.LastReload.SetToCurrentTime()
	c.Loaded(keys)
}

// ReloadFailed records a failed reload.
func (c *Collector) ReloadFailed(error) {
	c.ReloadErrors.Inc()
}

// SchemaOptions hooks the collector into every schema built with them.
func (c *Collector) SchemaOptions() []schema.Option {
	return []schema.Option{
		schema.WithObserver(c),
		schema.WithDestroyHook(c.CellDestroyed),
	}
}

// Subscribe feeds lifecycle events from bus into the collector.
func (c *Collector) Subscribe(bus *events.Bus) error {
	return bus.Subscribe("*", func(_ context.Context, e events.Event) error {
		switch e.Name {
		case events.EnvLoaded:
			c.Loaded(intData(e, "keys"))
		case events.EnvReloaded:
			c.ReloadSucceeded(intData(e, "keys"))
		case events.EnvReloadFailed:
			c.ReloadFailed(e.Err)
		case events.CellDestroyed:
			trigger, _ := e.Data["trigger"].(string)
			c.CellsDestroyed.WithLabelValues(trigger).Inc()
		}
		return nil
	})
}

func intData(e events.Event, key string) int {
	n, _ := e.Data[key].(int)
	return n
}

// TypeLabel keeps the type label bounded for untyped fields.
func TypeLabel(name string) string {
	if name == "" {
		return "any"
	}
	return name
}

// WriteText writes every metric family gathered from g in the Prometheus
// text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
