package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the daily update task on a cron schedule.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context

	mu      sync.Mutex
	running bool
	task    func(context.Context) error
}

// New creates a scheduler around the update task.
func New(ctx context.Context, task func(context.Context) error) *Scheduler {
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds()),
		Ctx:  ctx,
		task: task,
	}
}

// Register registers the update task at the given cron spec.
func (s *Scheduler) Register(updateCron string) error {
	if _, err := s.Cron.AddFunc(updateCron, s.runTask); err != nil {
		return fmt.Errorf("register update task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the update task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.runTask()
}

// runTask serializes executions: a tick that fires while an update is
// still running is dropped instead of stacking a second run.
func (s *Scheduler) runTask() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("[WARN] update already in progress, skipping this tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Println("[INFO] running scheduled update")
	if err := s.task(s.Ctx); err != nil {
		log.Printf("[ERROR] scheduled update: %v", err)
	}
}
