package workflow

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler fires scheduled-trigger workflows on their cron expressions
type Scheduler struct {
	cron    *cron.Cron
	entries map[uuid.UUID]cron.EntryID
	mu      sync.Mutex
}

// NewScheduler creates a scheduler using standard 5-field cron expressions
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[uuid.UUID]cron.EntryID),
	}
}

// Start begins firing scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("workflow scheduler started")
}

// Stop halts the scheduler; running jobs finish
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("workflow scheduler stopped")
}

// Schedule registers (or replaces) the cron job for a workflow
func (s *Scheduler) Schedule(workflowID uuid.UUID, spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[workflowID]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, workflowID)
	}

	entryID, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("failed to schedule workflow %s: %w", workflowID, err)
	}

	s.entries[workflowID] = entryID
	log.Info().
		Str("workflow_id", workflowID.String()).
		Str("schedule", spec).
		Msg("workflow scheduled")
	return nil
}

// Unschedule removes a workflow's cron job if present
func (s *Scheduler) Unschedule(workflowID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[workflowID]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, workflowID)
		log.Info().
			Str("workflow_id", workflowID.String()).
			Msg("workflow unscheduled")
	}
}

// ScheduledIDs returns the workflow ids currently registered
func (s *Scheduler) ScheduledIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
