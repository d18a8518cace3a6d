package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"
)

const refreshLockKey = "hrdesk:sched:knowledge-refresh"

type refreshRunner interface {
	Refresh(ctx context.Context) error
}

// Scheduler periodically refreshes the knowledge index so documents added
// out of band (seed jobs, direct SQL) become searchable. A Redis SetNX lock
// keeps replicas from refreshing in parallel.
type Scheduler struct {
	Refresher refreshRunner
	Rdb       *redis.Client
	Cron      string
	Stop      chan struct{}
	Logger    *log.Logger

	mu      sync.Mutex
	lastRun *time.Time
}

func (s *Scheduler) Start() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()
	if !isDue(s.Cron, last) {
		return
	}

	// distributed lock to avoid duplicate refreshes
	if s.Rdb != nil {
		ok, _ := s.Rdb.SetNX(ctx, refreshLockKey, "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, refreshLockKey)
	}

	if err := s.Refresher.Refresh(ctx); err != nil {
		if s.Logger != nil {
			s.Logger.Printf("scheduled refresh failed: %v", err)
		}
		return
	}
	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()
}

// isDue determines whether the refresh with cronSpec should run now given
// the last run time. Supports "@daily", "@hourly", and standard 5-field cron
// expressions; invalid expressions fall back to @daily.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
