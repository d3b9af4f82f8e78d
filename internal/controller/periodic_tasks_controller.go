package controller

import (
	"context"
	"time"

	"github.com/redhat-data-and-ai/favourites/internal/controller/periodicjobs"
	"github.com/redhat-data-and-ai/favourites/pkg/config"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
)

const defaultInitialDelay = 10 * time.Second

type PeriodicTasksController struct {
	taskManager  *periodicjobs.PeriodicTaskManager
	initialDelay time.Duration
}

// NewPeriodicTasksController registers the jobs enabled in cfg. lister may be
// nil when the backend cannot enumerate partitions, compaction is then skipped
func NewPeriodicTasksController(
	cfg config.JobsConfig,
	lister favourites.PartitionLister,
	manager favourites.Manager,
) *PeriodicTasksController {
	periodicTaskManager := periodicjobs.NewPeriodicTaskManager()

	if cfg.Compaction.Enabled && lister != nil {
		compactionJob := periodicjobs.NewFavouritesCompactionJob(lister, manager, cfg.Compaction.Interval)
		compactionJob.AddToPeriodicTaskManager(periodicTaskManager)
	}

	return &PeriodicTasksController{
		taskManager:  periodicTaskManager,
		initialDelay: defaultInitialDelay,
	}
}

// WithInitialDelay overrides how long Start waits before the first run
func (ptc *PeriodicTasksController) WithInitialDelay(d time.Duration) *PeriodicTasksController {
	ptc.initialDelay = d
	return ptc
}

func (ptc *PeriodicTasksController) TaskCount() int {
	return len(ptc.taskManager.Tasks())
}

// Start blocks running the periodic tasks until ctx is cancelled.
// It does not react to requests, jobs only follow their own schedule
func (ptc *PeriodicTasksController) Start(ctx context.Context) error {
	log := logger.Logger(ctx)
	if ptc.TaskCount() == 0 {
		log.Info("No periodic tasks enabled")
		<-ctx.Done()
		return nil
	}

	log.Info("Starting periodic tasks controller")
	defer log.Info("Finishing periodic tasks controller")

	select {
	case <-ctx.Done():
		log.Info("Context canceled during initialization")
		return nil
	case <-time.After(ptc.initialDelay):
		log.Info("Periodic tasks ready to start after initialization delay")
	}

	if err := ptc.taskManager.RunAll(ctx); err != nil {
		log.WithError(err).Error("Error occurred while running periodic tasks")
		return err
	}
	return nil
}
