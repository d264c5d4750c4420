package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the periodic background jobs
type Scheduler struct {
	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// Job is one periodic task
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// NewScheduler registers jobs without starting them. Jobs never overlap with
// themselves; a run that is still going when the next one is due skips it.
func NewScheduler(jobs ...Job) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{s: s, ctx: ctx, cancel: cancel}

	for _, job := range jobs {
		if job.Interval <= 0 {
			log.Info().Str("job", job.Name).Msg("Job disabled")
			continue
		}
		_, err := s.NewJob(
			gocron.DurationJob(job.Interval),
			gocron.NewTask(sched.wrap(job)),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("scheduling %s: %w", job.Name, err)
		}
		log.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("Job scheduled")
	}

	return sched, nil
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		start := time.Now()
		if err := job.Run(s.ctx); err != nil {
			log.Error().Err(err).Str("job", job.Name).Dur("took", time.Since(start)).Msg("Job failed")
			return
		}
		log.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("Job finished")
	}
}

func (s *Scheduler) Start() {
	s.s.Start()
}

// Shutdown cancels running jobs and waits for them to return
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.s.Shutdown()
}

// EventSyncJob syncs every connected social network
func EventSyncJob(events *EventService, interval time.Duration) Job {
	return Job{
		Name:     "event-sync",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := events.SyncAll(ctx)
			return err
		},
	}
}

// DevicePurgeJob removes devices that have not been seen within ttl. It runs daily.
func DevicePurgeJob(push *PushService, ttl time.Duration) Job {
	return Job{
		Name:     "device-purge",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			if ttl <= 0 {
				return nil
			}
			_, err := push.PurgeStaleDevices(ctx, ttl)
			return err
		},
	}
}
