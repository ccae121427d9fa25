// Package autosched schedules time-triggered automations on cron.
package autosched

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"homeglow/internal/models"
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	AutomationByID(ctx context.Context, id string) (*models.Automation, error)
	ActiveAutomationsByTrigger(ctx context.Context, triggerType string) ([]models.Automation, error)
}

// Executor fires one automation.
type Executor interface {
	Execute(ctx context.Context, a models.Automation)
}

type jobPair struct {
	start  cron.EntryID
	end    cron.EntryID
	hasEnd bool
}

// Scheduler owns the cron runner and the per-automation job registry.
type Scheduler struct {
	store  Store
	exec   Executor
	logger *zap.Logger
	cron   *cron.Cron

	mu   sync.RWMutex
	jobs map[string]jobPair
}

// New creates a scheduler whose cron expressions evaluate in the given
// location.
func New(store Store, exec Executor, loc *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		exec:   exec,
		logger: logger,
		cron:   cron.New(cron.WithLocation(loc)),
		jobs:   make(map[string]jobPair),
	}
}

// Start loads all active time automations, schedules them, and starts the
// cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	automations, err := s.store.ActiveAutomationsByTrigger(ctx, models.TriggerTime)
	if err != nil {
		return fmt.Errorf("load time automations: %w", err)
	}
	for _, a := range automations {
		if err := s.Schedule(a); err != nil {
			s.logger.Warn("skipping unschedulable automation",
				zap.String("automation_id", a.ID), zap.Error(err))
		}
	}
	s.cron.Start()
	s.logger.Info("automation scheduler started", zap.Int("jobs", len(automations)))
	return nil
}

// Stop halts the cron runner without waiting for running jobs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("automation scheduler stopped")
}

// Schedule registers cron jobs for one time automation, replacing any
// existing jobs for the same ID.
func (s *Scheduler) Schedule(a models.Automation) error {
	if a.TriggerType != models.TriggerTime || a.TimeTrigger == nil {
		return fmt.Errorf("automation %s is not time-triggered", a.ID)
	}
	trigger := *a.TimeTrigger

	startSpec, err := cronSpec(trigger.StartTime, trigger)
	if err != nil {
		return fmt.Errorf("start time: %w", err)
	}

	s.Unschedule(a.ID)

	id := a.ID
	startID, err := s.cron.AddFunc(startSpec, func() { s.fire(id) })
	if err != nil {
		return fmt.Errorf("schedule start: %w", err)
	}

	pair := jobPair{start: startID}
	if trigger.EndTime != "" {
		endSpec, err := cronSpec(trigger.EndTime, trigger)
		if err != nil {
			s.cron.Remove(startID)
			return fmt.Errorf("end time: %w", err)
		}
		endID, err := s.cron.AddFunc(endSpec, func() { s.windowEnd(id) })
		if err != nil {
			s.cron.Remove(startID)
			return fmt.Errorf("schedule end: %w", err)
		}
		pair.end = endID
		pair.hasEnd = true
	}

	s.mu.Lock()
	s.jobs[a.ID] = pair
	s.mu.Unlock()

	s.logger.Info("automation scheduled",
		zap.String("automation_id", a.ID),
		zap.String("start", startSpec),
		zap.String("end", trigger.EndTime),
	)
	return nil
}

// Unschedule removes the cron jobs for one automation. Unknown IDs are a
// no-op.
func (s *Scheduler) Unschedule(automationID string) {
	s.mu.Lock()
	pair, ok := s.jobs[automationID]
	if ok {
		delete(s.jobs, automationID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.cron.Remove(pair.start)
	if pair.hasEnd {
		s.cron.Remove(pair.end)
	}
	s.logger.Info("automation unscheduled", zap.String("automation_id", automationID))
}

// Reschedule refreshes one automation from the store after a lifecycle
// notification. A deleted, deactivated, or sensor-triggered automation ends
// up unscheduled; an active time automation gets fresh jobs.
func (s *Scheduler) Reschedule(ctx context.Context, automationID string) error {
	s.Unschedule(automationID)

	a, err := s.store.AutomationByID(ctx, automationID)
	if err != nil || a == nil {
		// Gone from the store: unscheduling was the whole job.
		return nil
	}
	if !a.IsActive || a.TriggerType != models.TriggerTime {
		return nil
	}
	return s.Schedule(*a)
}

// JobStatus describes one scheduled automation.
type JobStatus struct {
	AutomationID string     `json:"automationId"`
	NextStart    time.Time  `json:"nextStart"`
	NextEnd      *time.Time `json:"nextEnd,omitempty"`
}

// Jobs returns the scheduled automations with their next fire times.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for id, pair := range s.jobs {
		status := JobStatus{
			AutomationID: id,
			NextStart:    s.cron.Entry(pair.start).Next,
		}
		if pair.hasEnd {
			next := s.cron.Entry(pair.end).Next
			status.NextEnd = &next
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// fire runs at an automation's start time. The automation is re-fetched so
// a fire always sees the latest settings.
func (s *Scheduler) fire(automationID string) {
	ctx := context.Background()
	a, err := s.store.AutomationByID(ctx, automationID)
	if err != nil || a == nil {
		s.logger.Warn("scheduled automation missing at fire time",
			zap.String("automation_id", automationID), zap.Error(err))
		return
	}
	if !a.IsActive {
		s.logger.Info("scheduled automation inactive, skipping",
			zap.String("automation_id", automationID))
		return
	}
	s.exec.Execute(ctx, *a)
}

// windowEnd runs at an automation's end time. There is no reverse action to
// apply, so the window close is only recorded.
func (s *Scheduler) windowEnd(automationID string) {
	s.logger.Info("automation window ended", zap.String("automation_id", automationID))
}

// dayNumbers maps lowercase day names to cron day-of-week digits.
var dayNumbers = map[string]string{
	"sunday":    "0",
	"monday":    "1",
	"tuesday":   "2",
	"wednesday": "3",
	"thursday":  "4",
	"friday":    "5",
	"saturday":  "6",
}

// cronSpec builds a five-field cron expression firing at clock ("HH:MM") on
// the trigger's days. Non-recurring triggers and empty day lists fire
// daily.
func cronSpec(clock string, trigger models.TimeTrigger) (string, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(clock, "%d:%d", &hour, &minute); err != nil {
		return "", fmt.Errorf("parse clock %q: %w", clock, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("clock %q out of range", clock)
	}

	days := "*"
	if trigger.IsRecurring && len(trigger.DaysOfWeek) > 0 {
		nums := make([]string, 0, len(trigger.DaysOfWeek))
		for _, name := range trigger.DaysOfWeek {
			num, ok := dayNumbers[strings.ToLower(name)]
			if !ok {
				return "", fmt.Errorf("unknown day %q", name)
			}
			nums = append(nums, num)
		}
		days = strings.Join(nums, ",")
	}

	return fmt.Sprintf("%d %d * * %s", minute, hour, days), nil
}
