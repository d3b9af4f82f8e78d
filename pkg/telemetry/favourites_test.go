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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMetrics(t *testing.T) (*FavouritesMetrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	fm, err := newFavouritesMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return fm, reader
}

func collectSums(t *testing.T, reader *metric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestFavouritesMetrics_RecordOperation(t *testing.T) {
	ctx := context.Background()
	fm, reader := setupMetrics(t)

	fm.RecordOperation(ctx, "add", time.Now(), nil)
	fm.RecordOperation(ctx, "add", time.Now(), errors.New("boom"))

	sums := collectSums(t, reader)
	assert.Equal(t, int64(2), sums["favourites_operation_total"])
	assert.Equal(t, int64(1), sums["favourites_operation_error_total"])
}

func TestFavouritesMetrics_Cache(t *testing.T) {
	ctx := context.Background()
	fm, reader := setupMetrics(t)

	fm.RecordCacheHit(ctx, "SearchRequest")
	fm.RecordCacheMiss(ctx, "SearchRequest")
	fm.RecordCacheMiss(ctx, "PortalPage")
	fm.RecordCacheInvalidation(ctx, ScopeAll)
	fm.RecordDeadEntriesRemoved(ctx, "SearchRequest", 3)
	fm.RecordDeadEntriesRemoved(ctx, "SearchRequest", 0)

	sums := collectSums(t, reader)
	assert.Equal(t, int64(1), sums["favourites_cache_hit_total"])
	assert.Equal(t, int64(2), sums["favourites_cache_miss_total"])
	assert.Equal(t, int64(1), sums["favourites_cache_invalidation_total"])
	assert.Equal(t, int64(3), sums["favourites_dead_entries_removed_total"])
}

func TestFavouritesMetrics_TrackJob(t *testing.T) {
	ctx := context.Background()
	fm, reader := setupMetrics(t)

	done := fm.TrackJob(ctx, "compaction")
	assert.Equal(t, int64(1), collectSums(t, reader)["favourites_jobs_running"])

	done()
	assert.Equal(t, int64(0), collectSums(t, reader)["favourites_jobs_running"])
}

func TestFavouritesMetrics_NilSafe(t *testing.T) {
	var fm *FavouritesMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		fm.RecordOperation(ctx, "add", time.Now(), nil)
		fm.RecordCacheHit(ctx, "SearchRequest")
		fm.RecordCacheMiss(ctx, "SearchRequest")
		fm.RecordCacheInvalidation(ctx, ScopePartition)
		fm.RecordDeadEntriesRemoved(ctx, "SearchRequest", 1)
		fm.TrackJob(ctx, "compaction")()
	})
}

func TestBuildMetricName(t *testing.T) {
	assert.Equal(t, "favourites_operation_total", BuildMetricName("operation", MetricNameSuffixTotal))
	assert.Equal(t, "favourites_jobs_running", BuildMetricName("jobs_running", ""))
}
