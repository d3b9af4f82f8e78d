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

package periodicjobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/redhat-data-and-ai/favourites/pkg/telemetry"
)

const (
	// FavouritesCompactionJobName identifies the compaction job in logs and metrics
	FavouritesCompactionJobName = "favourites_compaction"

	DefaultFavouritesCompactionInterval = 6 * time.Hour
)

// FavouritesCompactionJob walks every (user, entity type) partition and drops
// favourites whose entity was deleted, the same cleanup a reorder performs
type FavouritesCompactionJob struct {
	lister   favourites.PartitionLister
	manager  favourites.Manager
	interval time.Duration
}

func NewFavouritesCompactionJob(lister favourites.PartitionLister, manager favourites.Manager, interval time.Duration) *FavouritesCompactionJob {
	if interval <= 0 {
		interval = DefaultFavouritesCompactionInterval
	}
	return &FavouritesCompactionJob{
		lister:   lister,
		manager:  manager,
		interval: interval,
	}
}

func (j *FavouritesCompactionJob) AddToPeriodicTaskManager(mgr *PeriodicTaskManager) {
	mgr.AddTask(j)
}

func (j *FavouritesCompactionJob) GetInterval() time.Duration {
	return j.interval
}

func (j *FavouritesCompactionJob) GetName() string {
	return FavouritesCompactionJobName
}

// Run compacts every partition. Partitions of entity types without an accessor
// are skipped, other failures are collected and returned together
func (j *FavouritesCompactionJob) Run(ctx context.Context) error {
	defer telemetry.GetFavouritesMetrics().TrackJob(ctx, FavouritesCompactionJobName)()

	log := logger.Logger(ctx).WithField("job", FavouritesCompactionJobName)
	log.Info("starting favourites compaction")

	partitions, err := j.lister.ListPartitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list favourites partitions: %w", err)
	}

	var errs []error
	compacted, skipped := 0, 0
	for _, p := range partitions {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := j.manager.CompactFavourites(ctx, &favourites.User{Key: p.UserKey}, p.EntityType)
		switch {
		case err == nil:
			compacted++
		case errors.Is(err, favourites.ErrNoAccessor):
			skipped++
			log.WithField("entityType", p.EntityType.String()).Debug("no accessor for partition, skipping")
		default:
			errs = append(errs, fmt.Errorf("%s/%s: %w", p.UserKey, p.EntityType, err))
		}
	}

	log.WithField("partitions", len(partitions)).
		WithField("compacted", compacted).
		WithField("skipped", skipped).
		WithField("errors", len(errs)).
		Info("favourites compaction completed")

	if len(errs) > 0 {
		return fmt.Errorf("favourites compaction completed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
