// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	creditRetryDelay  = time.Minute
	creditBatchSize   = 100
	limiterIdleAfter  = 30 * time.Minute
	eventRetention    = 7 * 24 * time.Hour
	maintenanceBudget = 50 * time.Second
)

// MaintenanceJobs are the periodic chores of the session service. Nil members are skipped.
type MaintenanceJobs struct {
	Fallback    *MemorySessionStore
	FallbackTTL time.Duration
	Limiters    []*MemoryRateLimiter
	Crediter    *RewardCrediter
	Events      *GormAnomalyStore
}

var newScheduler = func() (gocron.Scheduler, error) {
	return gocron.NewScheduler()
}

// StartMaintenanceScheduler registers the jobs and starts a gocron scheduler.
// The caller shuts it down; on error nothing is left running.
func StartMaintenanceScheduler(jobs MaintenanceJobs) (gocron.Scheduler, error) {
	sched, err := newScheduler()
	if err != nil {
		return nil, err
	}
	if err := registerMaintenanceJobs(sched, jobs); err != nil {
		if shutdownErr := sched.Shutdown(); shutdownErr != nil {
			log.Printf("[Scheduler] Shutdown after failed registration: %v", shutdownErr)
		}
		return nil, err
	}
	sched.Start()
	return sched, nil
}

func registerMaintenanceJobs(sched gocron.Scheduler, jobs MaintenanceJobs) error {
	singleton := gocron.WithSingletonMode(gocron.LimitModeReschedule)

	// Every 10 minutes: drop expired degrade-mode sessions
	if jobs.Fallback != nil && jobs.FallbackTTL > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(10*time.Minute),
			gocron.NewTask(func() {
				if n := jobs.Fallback.Prune(time.Now().UTC(), jobs.FallbackTTL); n > 0 {
					log.Printf("[Scheduler] Pruned %d fallback session(s)", n)
				}
			}),
			singleton,
		); err != nil {
			return fmt.Errorf("register fallback prune job: %w", err)
		}
	}

	// Every 5 minutes: forget idle in-process limiter buckets
	if len(jobs.Limiters) > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(5*time.Minute),
			gocron.NewTask(func() {
				for _, l := range jobs.Limiters {
					l.Sweep(limiterIdleAfter)
				}
			}),
			singleton,
		); err != nil {
			return fmt.Errorf("register limiter sweep job: %w", err)
		}
	}

	// Every minute: retry rewards the ledger has not accepted yet
	if jobs.Crediter != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(1*time.Minute),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), maintenanceBudget)
				defer cancel()
				n, err := jobs.Crediter.CreditPending(ctx, time.Now().UTC().Add(-creditRetryDelay), creditBatchSize)
				if err != nil {
					log.Printf("[Scheduler] Credit retry DB error: %v", err)
					return
				}
				if n > 0 {
					log.Printf("✅ Credited %d pending reward(s)", n)
				}
			}),
			singleton,
		); err != nil {
			return fmt.Errorf("register credit retry job: %w", err)
		}
	}

	// Hourly: session events only matter to rolling-window rules
	if jobs.Events != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(1*time.Hour),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), maintenanceBudget)
				defer cancel()
				n, err := jobs.Events.PruneEvents(ctx, time.Now().UTC().Add(-eventRetention))
				if err != nil {
					log.Printf("[Scheduler] Event prune DB error: %v", err)
					return
				}
				if n > 0 {
					log.Printf("[Scheduler] Pruned %d session event(s)", n)
				}
			}),
			singleton,
		); err != nil {
			return fmt.Errorf("register event prune job: %w", err)
		}
	}

	return nil
}
