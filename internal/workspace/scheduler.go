package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs Registry.Tick on a fixed interval
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
}

// NewScheduler schedules registry ticks every interval
func NewScheduler(registry *Registry, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid tick interval: %s", interval)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		registry.Tick(ctx)
	}))

	return &Scheduler{cron: c, interval: interval}, nil
}

// Start begins ticking in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Dur("interval", s.interval).Msg("workspace scheduler started")
}

// Stop halts ticking and waits for a running tick to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("workspace scheduler stop timed out")
	}
}
