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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCounter_IgnoresNonPositive(t *testing.T) {
	ctx := context.Background()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	c, err := NewCounter(provider.Meter("test"), MetricOptions{Name: BuildMetricName("moves", MetricNameSuffixTotal)})
	require.NoError(t, err)

	c.Add(ctx, 2)
	c.Add(ctx, 0)
	c.Add(ctx, -1)
	c.Inc(ctx)

	assert.Equal(t, int64(3), collectSums(t, reader)["favourites_moves_total"])
}

func TestSizeGauge_SamplesOnCollect(t *testing.T) {
	ctx := context.Background()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	size := 4
	require.NoError(t, InitCacheSizeGauge(provider.Meter("test"), func() int { return size }))

	read := func() int64 {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if g, ok := m.Data.(metricdata.Gauge[int64]); ok && m.Name == "favourites_cache_entries" {
					require.Len(t, g.DataPoints, 1)
					return g.DataPoints[0].Value
				}
			}
		}
		t.Fatal("favourites_cache_entries not collected")
		return 0
	}

	assert.Equal(t, int64(4), read())
	size = 7
	assert.Equal(t, int64(7), read())
}

func TestInstruments_NilSafe(t *testing.T) {
	ctx := context.Background()
	var (
		c *Counter
		d *Timer
		r *InFlight
	)

	assert.NotPanics(t, func() {
		c.Inc(ctx)
		d.ObserveSince(ctx, time.Now())
		r.Start(ctx)()
	})
}
