/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// MetricOptions describes a favourites instrument. Name is expected to come
// from BuildMetricName so every instrument carries the favourites_ prefix.
type MetricOptions struct {
	Name        string
	Description string
	Unit        string
}

// Counter is a monotonic count of favourites events. A nil *Counter drops
// every observation.
type Counter struct {
	counter otelmetric.Int64Counter
}

func NewCounter(meter otelmetric.Meter, opts MetricOptions) (*Counter, error) {
	counter, err := meter.Int64Counter(
		opts.Name,
		otelmetric.WithDescription(opts.Description),
		otelmetric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}

	return &Counter{counter: counter}, nil
}

func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	if c == nil || value <= 0 {
		return
	}
	c.counter.Add(ctx, value, otelmetric.WithAttributes(attrs...))
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Timer records operation latency in seconds
type Timer struct {
	histogram otelmetric.Float64Histogram
}

func NewTimer(meter otelmetric.Meter, opts MetricOptions) (*Timer, error) {
	if opts.Unit == "" {
		opts.Unit = "s"
	}
	histogram, err := meter.Float64Histogram(
		opts.Name,
		otelmetric.WithDescription(opts.Description),
		otelmetric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}

	return &Timer{histogram: histogram}, nil
}

// ObserveSince records the time elapsed since start
func (t *Timer) ObserveSince(ctx context.Context, start time.Time, attrs ...attribute.KeyValue) {
	if t == nil {
		return
	}
	t.histogram.Record(ctx, time.Since(start).Seconds(), otelmetric.WithAttributes(attrs...))
}

// SizeFunc reports a current size, such as the number of cached id lists
type SizeFunc func() int

// NewSizeGauge registers an observable gauge sampled from size on every
// collection.
func NewSizeGauge(meter otelmetric.Meter, opts MetricOptions, size SizeFunc) error {
	_, err := meter.Int64ObservableGauge(
		opts.Name,
		otelmetric.WithDescription(opts.Description),
		otelmetric.WithUnit(opts.Unit),
		otelmetric.WithInt64Callback(func(_ context.Context, observer otelmetric.Int64Observer) error {
			observer.Observe(int64(size()))
			return nil
		}),
	)
	return err
}

// InFlight tracks work that is currently running, such as periodic jobs
type InFlight struct {
	counter otelmetric.Int64UpDownCounter
}

func NewInFlight(meter otelmetric.Meter, opts MetricOptions) (*InFlight, error) {
	counter, err := meter.Int64UpDownCounter(
		opts.Name,
		otelmetric.WithDescription(opts.Description),
		otelmetric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}

	return &InFlight{counter: counter}, nil
}

// Start marks one unit of work as running and returns the func that marks
// it done.
func (f *InFlight) Start(ctx context.Context, attrs ...attribute.KeyValue) func() {
	if f == nil {
		return func() {}
	}
	opt := otelmetric.WithAttributes(attrs...)
	f.counter.Add(ctx, 1, opt)
	return func() { f.counter.Add(ctx, -1, opt) }
}
