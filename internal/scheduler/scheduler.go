// Package scheduler is a small named-job runner: repeating interval jobs,
// daily wall-clock jobs and keyed one-shot jobs. Every job is single-flight
// per name, so a slow run coalesces with the next trigger instead of
// stacking.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one unit of scheduled work. The context is cancelled on shutdown.
type Job func(ctx context.Context)

// Scheduler owns all background timing for the engine. It carries no global
// state: construct one, Start it, register jobs, Stop it on shutdown.
type Scheduler struct {
	loc *time.Location

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	running  map[string]bool
	oneShots map[string]*time.Timer

	wg sync.WaitGroup
}

// New creates a stopped scheduler. Daily jobs fire on wall-clock time in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		loc:      loc,
		running:  make(map[string]bool),
		oneShots: make(map[string]*time.Timer),
	}
}

// Start arms the scheduler under ctx. Jobs registered before Start are not
// supported: register after.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(ctx)
}

// Stop cancels every job and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	for key, timer := range s.oneShots {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.oneShots, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Every registers a repeating job. When runNow is set the first run happens
// immediately instead of waiting a full interval.
func (s *Scheduler) Every(name string, interval time.Duration, runNow bool, job Job) {
	ctx := s.context()
	if ctx == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if runNow {
			s.run(ctx, name, job)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx, name, job)
			}
		}
	}()
}

// DailyAt registers a job that fires once a day at hour:minute in the
// scheduler's location.
func (s *Scheduler) DailyAt(name string, hour, minute int, job Job) {
	ctx := s.context()
	if ctx == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			wait := time.Until(s.nextDaily(time.Now(), hour, minute))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.run(ctx, name, job)
			}
		}
	}()
}

// Once schedules a keyed one-shot job. Scheduling the same key again
// replaces the pending run, so per-game jobs survive re-registration after a
// restart without firing twice. A time in the past fires immediately.
func (s *Scheduler) Once(key string, when time.Time, job Job) {
	ctx := s.context()
	if ctx == nil {
		return
	}
	delay := time.Until(when)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if prev, ok := s.oneShots[key]; ok {
		if prev.Stop() {
			s.wg.Done()
		}
	}
	s.wg.Add(1)
	s.oneShots[key] = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.oneShots, key)
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, key, job)
	})
	s.mu.Unlock()
}

// CancelOnce drops a pending one-shot job, if any.
func (s *Scheduler) CancelOnce(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.oneShots[key]; ok {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.oneShots, key)
	}
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) {
	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		log.Debug().Str("job", name).Msg("Job still running, trigger coalesced")
		return
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	job(ctx)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		log.Error().Msg("Job registered before scheduler start")
		return nil
	}
	return s.ctx
}

func (s *Scheduler) nextDaily(now time.Time, hour, minute int) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, s.loc)
	if !next.After(local) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
