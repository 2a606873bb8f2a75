package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ajitpratap0/lendpool/pkg/errors"
)

// RegisterObservable reports src's stats through meter as observable
// instruments named lendpool.pool.*, tagged with the pool name. Call
// Unregister on the result to stop reporting.
func RegisterObservable(meter metric.Meter, src StatsSource) (metric.Registration, error) {
	attrs := metric.WithAttributes(attribute.String("pool", src.Name()))

	counter := func(name, desc string) (metric.Int64ObservableCounter, error) {
		return meter.Int64ObservableCounter("lendpool.pool."+name,
			metric.WithDescription(desc),
			metric.WithUnit("{value}"))
	}
	gauge := func(name, desc string) (metric.Int64ObservableGauge, error) {
		return meter.Int64ObservableGauge("lendpool.pool."+name,
			metric.WithDescription(desc),
			metric.WithUnit("{value}"))
	}

	var (
		counters [5]metric.Int64ObservableCounter
		gauges   [2]metric.Int64ObservableGauge
		err      error
	)
	counterSpecs := [5][2]string{
		{"allocated", "Values built by the pool factory"},
		{"hits", "Lends served from the free list"},
		{"misses", "Lends that found the free list empty"},
		{"returned", "Values pushed back onto the free list"},
		{"discarded", "Values dropped instead of recycled"},
	}
	for i, spec := range counterSpecs {
		if counters[i], err = counter(spec[0], spec[1]); err != nil {
			return nil, wrapInstrument(err, spec[0])
		}
	}
	if gauges[0], err = gauge("in_use", "Values currently lent out"); err != nil {
		return nil, wrapInstrument(err, "in_use")
	}
	if gauges[1], err = gauge("idle", "Values waiting on the free list"); err != nil {
		return nil, wrapInstrument(err, "idle")
	}

	observables := make([]metric.Observable, 0, len(counters)+len(gauges))
	for _, c := range counters {
		observables = append(observables, c)
	}
	for _, g := range gauges {
		observables = append(observables, g)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Stats()
		o.ObserveInt64(counters[0], int64(s.Allocated), attrs)
		o.ObserveInt64(counters[1], int64(s.Hits), attrs)
		o.ObserveInt64(counters[2], int64(s.Misses), attrs)
		o.ObserveInt64(counters[3], int64(s.Returned), attrs)
		o.ObserveInt64(counters[4], int64(s.Discarded), attrs)
		o.ObserveInt64(gauges[0], s.InUse, attrs)
		o.ObserveInt64(gauges[1], s.Idle, attrs)
		return nil
	}, observables...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to register pool callback").
			WithDetail("pool", src.Name())
	}
	return reg, nil
}

func wrapInstrument(err error, name string) error {
	return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create instrument").
		WithDetail("instrument", name)
}
