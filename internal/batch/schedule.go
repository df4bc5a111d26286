package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Target is a named, invokable unit of work a Schedule can point at (e.g.
// "nightly_rescoring", "csv_refresh").
type Target func(ctx context.Context, input json.RawMessage) error

// Schedule binds a cron expression to a registered Target and its input.
type Schedule struct {
	Name     string          `json:"name"`
	CronExpr string          `json:"cronExpr"`
	Target   string          `json:"target"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// ExecutionHandle is returned by an on-demand trigger.
type ExecutionHandle struct {
	ScheduleName string
	TriggeredAt  time.Time
	Err          error
}

// Scheduler runs named schedules against registered targets using
// robfig/cron/v3, and supports triggering a schedule's target on demand
// outside its cron cadence.
type Scheduler struct {
	cron      *cron.Cron
	now       func() time.Time
	mu        sync.Mutex
	targets   map[string]Target
	entries   map[string]cron.EntryID
	schedules map[string]Schedule
}

// NewScheduler returns a Scheduler with no registered targets or schedules.
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		now:       time.Now,
		targets:   make(map[string]Target),
		entries:   make(map[string]cron.EntryID),
		schedules: make(map[string]Schedule),
	}
}

// RegisterTarget makes name available to Upsert and TriggerNow.
func (s *Scheduler) RegisterTarget(name string, target Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[name] = target
}

// Start begins running the cron loop in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the cron loop, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

// Upsert creates or replaces a named schedule. Replacing removes the prior
// cron entry before adding the new one.
func (s *Scheduler) Upsert(sched Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.targets[sched.Target]
	if !ok {
		return fmt.Errorf("batch: unknown schedule target %q", sched.Target)
	}
	if id, exists := s.entries[sched.Name]; exists {
		s.cron.Remove(id)
	}

	id, err := s.cron.AddFunc(sched.CronExpr, func() {
		_ = target(context.Background(), sched.Input)
	})
	if err != nil {
		return fmt.Errorf("batch: invalid cron expression %q: %w", sched.CronExpr, err)
	}
	s.entries[sched.Name] = id
	s.schedules[sched.Name] = sched
	return nil
}

// Remove deletes a named schedule, if present.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
		delete(s.schedules, name)
	}
}

// List returns every registered schedule.
func (s *Scheduler) List() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, sched)
	}
	return out
}

// TriggerNow invokes a schedule's target immediately, outside its cron
// cadence, and returns a handle recording when it ran and whether it
// errored.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) (ExecutionHandle, error) {
	s.mu.Lock()
	sched, ok := s.schedules[name]
	target := s.targets[sched.Target]
	s.mu.Unlock()
	if !ok {
		return ExecutionHandle{}, fmt.Errorf("batch: no schedule named %q", name)
	}

	handle := ExecutionHandle{ScheduleName: name, TriggeredAt: s.now()}
	handle.Err = target(ctx, sched.Input)
	return handle, nil
}
