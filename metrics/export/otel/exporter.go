package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

// Constructor errors.
var (
	ErrNilMeter  = errors.New("otel: nil meter")
	ErrNilSource = errors.New("otel: nil metrics source")
)

type histogramInstruments struct {
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Bridge publishes engine metrics on an OpenTelemetry meter. Every
// collection reads one snapshot through internaldefs.Collect.
type Bridge struct {
	source       internaldefs.Source
	registration metric.Registration
	counters     map[string]metric.Int64ObservableCounter
	histograms   map[string]histogramInstruments
	bucketAttrs  []metric.ObserveOption
}

// NewBridge registers one observable counter per engine counter, and a
// bucket gauge (labelled by "le") plus a count gauge per histogram.
// *authcore.Engine satisfies source.
func NewBridge(meter metric.Meter, source internaldefs.Source) (*Bridge, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	b := &Bridge{
		source:     source,
		counters:   make(map[string]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)+1),
		histograms: make(map[string]histogramInstruments, len(internaldefs.HistogramDefs)),
	}
	for _, le := range internaldefs.HistogramBounds {
		b.bucketAttrs = append(b.bucketAttrs, metric.WithAttributes(attribute.String("le", le)))
	}

	var observables []metric.Observable
	addCounter := func(name, help string) error {
		ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
		if err != nil {
			return fmt.Errorf("otel: counter %s: %w", name, err)
		}
		b.counters[name] = ins
		observables = append(observables, ins)
		return nil
	}

	for _, def := range internaldefs.CounterDefs {
		if err := addCounter(def.Name, def.Help); err != nil {
			return nil, err
		}
	}
	if err := addCounter(internaldefs.AuditDroppedName, "Audit events the async dispatcher could not deliver."); err != nil {
		return nil, err
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		b.histograms[def.Name] = histogramInstruments{buckets: buckets, count: count}
		observables = append(observables, buckets, count)
	}

	reg, err := meter.RegisterCallback(b.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	b.registration = reg
	return b, nil
}

func (b *Bridge) observe(_ context.Context, o metric.Observer) error {
	for _, f := range internaldefs.Collect(b.source) {
		switch f.Kind {
		case internaldefs.KindHistogram:
			h, ok := b.histograms[f.Name]
			if !ok {
				continue
			}
			for i, opt := range b.bucketAttrs {
				o.ObserveInt64(h.buckets, int64(f.Buckets[i]), opt)
			}
			o.ObserveInt64(h.count, int64(f.Count()))
		default:
			if c, ok := b.counters[f.Name]; ok {
				o.ObserveInt64(c, int64(f.Value))
			}
		}
	}
	return nil
}

// Close unregisters the collection callback.
func (b *Bridge) Close() error {
	if b == nil || b.registration == nil {
		return nil
	}
	return b.registration.Unregister()
}
