package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/redhat-data-and-ai/favourites/pkg/config"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
)

type emptyLister struct{}

func (emptyLister) ListPartitions(context.Context) ([]favourites.Partition, error) {
	return nil, nil
}

func TestNewPeriodicTasksController(t *testing.T) {
	enabled := config.JobsConfig{Compaction: config.PeriodicJobConfig{Enabled: true, Interval: time.Minute}}

	assert.Equal(t, 1, NewPeriodicTasksController(enabled, emptyLister{}, nil).TaskCount())
	assert.Equal(t, 0, NewPeriodicTasksController(enabled, nil, nil).TaskCount())
	assert.Equal(t, 0, NewPeriodicTasksController(config.JobsConfig{}, emptyLister{}, nil).TaskCount())
}

func TestPeriodicTasksController_StartStopsOnCancel(t *testing.T) {
	cfg := config.JobsConfig{Compaction: config.PeriodicJobConfig{Enabled: true, Interval: time.Hour}}

	for _, ptc := range []*PeriodicTasksController{
		NewPeriodicTasksController(cfg, emptyLister{}, nil).WithInitialDelay(time.Millisecond),
		NewPeriodicTasksController(config.JobsConfig{}, nil, nil),
	} {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- ptc.Start(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Start did not return after cancel")
		}
	}
}
