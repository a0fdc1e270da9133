package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/tasks"
)

type countingReaper struct{ calls int }

func (r *countingReaper) Run(context.Context) (int64, error) {
	r.calls++
	return 0, nil
}

func testJobsConfig() config.JobsConfig {
	return config.JobsConfig{
		ReaperSchedule: "0 0 */6 * * *",
		Stream:         "auth:jobs",
		Group:          "auth-workers",
		Consumer:       "worker-1",
		ClaimInterval:  30 * time.Second,
	}
}

func TestDispatchCleanupEnqueuesOncePerTick(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	reaper := &countingReaper{}
	tick := time.Date(2025, 4, 7, 6, 0, 0, 0, time.UTC)

	first := NewScheduler(client, reaper, testJobsConfig(), zerolog.Nop())
	first.now = func() time.Time { return tick }
	second := NewScheduler(client, reaper, testJobsConfig(), zerolog.Nop())
	second.now = func() time.Time { return tick.Add(2 * time.Second) }

	ctx := context.Background()
	if err := first.DispatchCleanup(ctx); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := second.DispatchCleanup(ctx); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	msgs, err := client.XRange(ctx, "auth:jobs", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages=%d want 1", len(msgs))
	}
	if msgs[0].Values["type"] != tasks.TypeSessionCleanup {
		t.Fatalf("payload=%v", msgs[0].Values)
	}
	if reaper.calls != 0 {
		t.Fatal("reaper ran in-process despite a queue")
	}

	second.now = func() time.Time { return tick.Add(6 * time.Hour) }
	if err := second.DispatchCleanup(ctx); err != nil {
		t.Fatalf("next tick dispatch: %v", err)
	}
	if n, _ := client.XLen(ctx, "auth:jobs").Result(); n != 2 {
		t.Fatalf("stream length=%d want 2", n)
	}
}

func TestDispatchCleanupWithoutQueueRunsReaper(t *testing.T) {
	reaper := &countingReaper{}
	s := NewScheduler(nil, reaper, testJobsConfig(), zerolog.Nop())

	if err := s.DispatchCleanup(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if reaper.calls != 1 {
		t.Fatalf("reaper calls=%d want 1", reaper.calls)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testJobsConfig()
	cfg.ReaperSchedule = "every now and then"
	s := NewScheduler(nil, &countingReaper{}, cfg, zerolog.Nop())

	if err := s.Start(); err == nil {
		t.Fatal("expected schedule parse error")
	}

	cfg = testJobsConfig()
	s = NewScheduler(nil, &countingReaper{}, cfg, zerolog.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-s.Stop().Done()
}
