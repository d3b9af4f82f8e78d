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
	"sync"
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"
)

const (
	ScopePartition = "partition"
	ScopeAll       = "all"
)

var (
	favouritesMetrics     *FavouritesMetrics
	favouritesMetricsOnce sync.Once
)

type FavouritesMetrics struct {
	OperationTotal         *Counter
	ErrorTotal             *Counter
	OperationDuration      *Timer
	CacheHitTotal          *Counter
	CacheMissTotal         *Counter
	CacheInvalidationTotal *Counter
	DeadEntriesRemoved     *Counter
	JobsRunning            *InFlight
}

func InitFavouritesMetrics(meter otelmetric.Meter) error {
	var initErr error
	favouritesMetricsOnce.Do(func() {
		favouritesMetrics, initErr = newFavouritesMetrics(meter)
	})

	return initErr
}

func newFavouritesMetrics(meter otelmetric.Meter) (*FavouritesMetrics, error) {
	m := &FavouritesMetrics{}
	counters := []struct {
		target **Counter
		opts   MetricOptions
	}{
		{&m.OperationTotal, MetricOptions{
			Name:        BuildMetricName("operation", MetricNameSuffixTotal),
			Description: "total number of favourites manager operations",
			Unit:        "1",
		}},
		{&m.ErrorTotal, MetricOptions{
			Name: BuildMetricName("operation_error", MetricNameSuffixTotal),
			Description: "total number of failed favourites manager operations. " +
				"error% = favourites_operation_error_total / favourites_operation_total",
			Unit: "1",
		}},
		{&m.CacheHitTotal, MetricOptions{
			Name:        BuildMetricName("cache_hit", MetricNameSuffixTotal),
			Description: "favourite id lists served from cache",
			Unit:        "1",
		}},
		{&m.CacheMissTotal, MetricOptions{
			Name:        BuildMetricName("cache_miss", MetricNameSuffixTotal),
			Description: "favourite id lists loaded from the persistent store",
			Unit:        "1",
		}},
		{&m.CacheInvalidationTotal, MetricOptions{
			Name:        BuildMetricName("cache_invalidation", MetricNameSuffixTotal),
			Description: "cache invalidations by scope",
			Unit:        "1",
		}},
		{&m.DeadEntriesRemoved, MetricOptions{
			Name:        BuildMetricName("dead_entries_removed", MetricNameSuffixTotal),
			Description: "favourites removed because the entity no longer exists",
			Unit:        "1",
		}},
	}

	for _, c := range counters {
		counter, err := NewCounter(meter, c.opts)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	duration, err := NewTimer(meter, MetricOptions{
		Name:        BuildMetricName("operation", MetricNameSuffixDuration),
		Description: "duration of favourites manager operations",
		Unit:        "s",
	})
	if err != nil {
		return nil, err
	}
	m.OperationDuration = duration

	running, err := NewInFlight(meter, MetricOptions{
		Name:        BuildMetricName("jobs_running", ""),
		Description: "periodic jobs currently executing",
		Unit:        "1",
	})
	if err != nil {
		return nil, err
	}
	m.JobsRunning = running

	return m, nil
}

func GetFavouritesMetrics() *FavouritesMetrics {
	return favouritesMetrics
}

// InitCacheSizeGauge reports the number of cached entries on every collection
func InitCacheSizeGauge(meter otelmetric.Meter, size func() int) error {
	return NewSizeGauge(meter, MetricOptions{
		Name:        BuildMetricName("cache_entries", ""),
		Description: "number of entries held by the in-memory cache",
		Unit:        "1",
	}, size)
}

func (fm *FavouritesMetrics) RecordOperation(ctx context.Context, operation string, start time.Time, err error) {
	if fm == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
		fm.ErrorTotal.Inc(ctx, WithOperation(operation))
	}
	fm.OperationTotal.Inc(ctx, WithOperation(operation))
	fm.OperationDuration.ObserveSince(ctx, start, WithOperation(operation), WithStatus(status))
}

func (fm *FavouritesMetrics) RecordCacheHit(ctx context.Context, entityType string) {
	if fm == nil {
		return
	}
	fm.CacheHitTotal.Inc(ctx, WithEntityType(entityType))
}

func (fm *FavouritesMetrics) RecordCacheMiss(ctx context.Context, entityType string) {
	if fm == nil {
		return
	}
	fm.CacheMissTotal.Inc(ctx, WithEntityType(entityType))
}

func (fm *FavouritesMetrics) RecordCacheInvalidation(ctx context.Context, scope string) {
	if fm == nil {
		return
	}
	fm.CacheInvalidationTotal.Inc(ctx, WithScope(scope))
}

func (fm *FavouritesMetrics) RecordDeadEntriesRemoved(ctx context.Context, entityType string, n int) {
	if fm == nil || n == 0 {
		return
	}
	fm.DeadEntriesRemoved.Add(ctx, int64(n), WithEntityType(entityType))
}

// TrackJob marks a job as running and returns the func that marks it done
func (fm *FavouritesMetrics) TrackJob(ctx context.Context, job string) func() {
	if fm == nil {
		return func() {}
	}
	return fm.JobsRunning.Start(ctx, WithJob(job))
}
