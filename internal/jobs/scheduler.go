package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/cache"
	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/tasks"
)

// lockTTL outlives any clock skew between replicas firing the same tick.
const lockTTL = 5 * time.Minute

type Reaper interface {
	Run(ctx context.Context) (int64, error)
}

// Scheduler fires the session cleanup on cfg.ReaperSchedule. With a redis client the
// run is enqueued for the worker; without one the reaper runs in-process.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	reaper Reaper
	cfg    config.JobsConfig
	log    zerolog.Logger
	now    func() time.Time
}

func NewScheduler(queue *redis.Client, reaper Reaper, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:   c,
		queue:  queue,
		reaper: reaper,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReaperSchedule, s.runCleanup); err != nil {
		return fmt.Errorf("schedule session cleanup %q: %w", s.cfg.ReaperSchedule, err)
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.cfg.ReaperSchedule).Bool("queued", s.queue != nil).Msg("scheduler started")
	return nil
}

// Stop halts the cron and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.DispatchCleanup(ctx); err != nil {
		s.log.Error().Err(err).Msg("session cleanup dispatch failed")
	}
}

// DispatchCleanup enqueues one session cleanup for the current minute. Replicas that
// fire the same tick share a lock so only one message lands on the stream.
func (s *Scheduler) DispatchCleanup(ctx context.Context) error {
	if s.queue == nil {
		_, err := s.reaper.Run(ctx)
		return err
	}

	tick := s.now().UTC().Truncate(time.Minute)
	lockKey := fmt.Sprintf("%s:lock:%s:%d", s.cfg.Stream, tasks.TypeSessionCleanup, tick.Unix())
	acquired, err := cache.AcquireOnce(ctx, s.queue, lockKey, lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		s.log.Debug().Str("lock", lockKey).Msg("session cleanup already enqueued for this tick")
		return nil
	}

	id, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.Stream,
		Values: map[string]any{"type": tasks.TypeSessionCleanup},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue session cleanup: %w", err)
	}
	s.log.Info().Str("message_id", id).Msg("session cleanup enqueued")
	return nil
}
