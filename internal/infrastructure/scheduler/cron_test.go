package scheduler

import (
	"context"
	"testing"
	"time"

	"NewsCrawler/internal/logging"
)

func TestCronSchedulerRunsJob(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("@every 1s", time.UTC, logging.Discard())
	fired := make(chan time.Time, 1)

	if err := s.Start(context.Background(), func(at time.Time) {
		select {
		case fired <- at:
		default:
		}
	}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatalf("job was not triggered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("every day at noon", time.UTC, logging.Discard())
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on idle scheduler: %v", err)
	}
}
