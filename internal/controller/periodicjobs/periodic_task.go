package periodicjobs

import (
	"context"
	"errors"
	"time"

	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PeriodicTask is a job run on a fixed interval
type PeriodicTask interface {
	GetName() string
	GetInterval() time.Duration
	Run(ctx context.Context) error
}

// PeriodicTaskManager runs every registered task on its own ticker
type PeriodicTaskManager struct {
	tasks []PeriodicTask
}

func NewPeriodicTaskManager() *PeriodicTaskManager {
	return &PeriodicTaskManager{}
}

func (m *PeriodicTaskManager) AddTask(task PeriodicTask) {
	m.tasks = append(m.tasks, task)
}

func (m *PeriodicTaskManager) Tasks() []PeriodicTask {
	return m.tasks
}

// RunAll runs each task once right away and then on every interval tick until
// ctx is cancelled. A failed run is logged and the task keeps its schedule
func (m *PeriodicTaskManager) RunAll(ctx context.Context) error {
	for _, task := range m.tasks {
		if task.GetInterval() <= 0 {
			return errors.New("periodic task " + task.GetName() + " has no interval")
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, task := range m.tasks {
		g.Go(func() error {
			runTask(ctx, task)
			return nil
		})
	}
	return g.Wait()
}

func runTask(ctx context.Context, task PeriodicTask) {
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"task":     task.GetName(),
		"interval": task.GetInterval().String(),
	})
	log.Info("scheduling periodic task")

	ticker := time.NewTicker(task.GetInterval())
	defer ticker.Stop()

	for {
		start := time.Now()
		if err := task.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("periodic task failed")
		} else {
			log.WithField("duration", time.Since(start).String()).Debug("periodic task finished")
		}

		select {
		case <-ctx.Done():
			log.Info("stopping periodic task")
			return
		case <-ticker.C:
		}
	}
}
