package server

import (
	"context"
	"testing"
	"time"
)

type countingRefresher struct {
	calls int
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context) error {
	c.calls++
	return c.err
}

func TestIsDue(t *testing.T) {
	hourAgo := time.Now().Add(-61 * time.Minute)
	justNow := time.Now().Add(-time.Minute)
	dayAgo := time.Now().Add(-25 * time.Hour)

	cases := []struct {
		name string
		cron string
		last *time.Time
		want bool
	}{
		{"never ran", "@hourly", nil, true},
		{"hourly due", "@hourly", &hourAgo, true},
		{"hourly not due", "@hourly", &justNow, false},
		{"daily due", "@daily", &dayAgo, true},
		{"daily not due", "@daily", &hourAgo, false},
		{"cron expr due", "0 * * * *", &hourAgo, true},
		{"cron expr not due", "0 0 1 1 *", &justNow, false},
		{"bad expr falls back to daily", "not-a-cron", &dayAgo, true},
		{"bad expr not due", "not-a-cron", &hourAgo, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDue(tc.cron, tc.last); got != tc.want {
				t.Fatalf("isDue(%q) = %v, want %v", tc.cron, got, tc.want)
			}
		})
	}
}

func TestSchedulerTickRunsWhenDue(t *testing.T) {
	ref := &countingRefresher{}
	s := &Scheduler{Refresher: ref, Cron: "@hourly"}

	s.tick()
	if ref.calls != 1 {
		t.Fatalf("expected one refresh, got %d", ref.calls)
	}
	if s.lastRun == nil {
		t.Fatal("expected lastRun to be recorded")
	}

	// immediately after a successful run the next hourly tick is a no-op
	s.tick()
	if ref.calls != 1 {
		t.Fatalf("expected refresh to be skipped, got %d calls", ref.calls)
	}
}

func TestSchedulerTickKeepsRetryingOnError(t *testing.T) {
	ref := &countingRefresher{err: context.DeadlineExceeded}
	s := &Scheduler{Refresher: ref, Cron: "@hourly"}

	s.tick()
	s.tick()
	if ref.calls != 2 {
		t.Fatalf("expected failed refresh to stay due, got %d calls", ref.calls)
	}
	if s.lastRun != nil {
		t.Fatal("failed refresh must not record lastRun")
	}
}
