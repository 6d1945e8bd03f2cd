// Package storage provides ScheduleStore implementations: an in-memory store
// for tests and development and a PostgreSQL store for production.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
)

// MemoryStore is a mutex-guarded in-memory ScheduleStore. Updates replace
// whole records under the lock, which gives the per-schedule atomicity the
// scheduler's read-modify-write contract requires within a single process.
type MemoryStore struct {
	mu        sync.RWMutex
	schedules map[string]*screening.ScreeningSchedule // keyed by party id
}

var _ screening.ScheduleStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{schedules: make(map[string]*screening.ScreeningSchedule)}
}

func (m *MemoryStore) Create(ctx context.Context, schedule *screening.ScreeningSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.schedules[schedule.PartyID]; ok &&
		existing.Status != screening.ScheduleStatusCancelled &&
		existing.Status != screening.ScheduleStatusFailed {
		return fmt.Errorf("active schedule already exists for party %s", schedule.PartyID)
	}
	m.schedules[schedule.PartyID] = cloneSchedule(schedule)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, partyID string) (*screening.ScreeningSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schedule, ok := m.schedules[partyID]
	if !ok {
		return nil, fmt.Errorf("no schedule found for party %s", partyID)
	}
	return cloneSchedule(schedule), nil
}

func (m *MemoryStore) Update(ctx context.Context, schedule *screening.ScreeningSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[schedule.PartyID]; !ok {
		return fmt.Errorf("no schedule found for party %s", schedule.PartyID)
	}
	m.schedules[schedule.PartyID] = cloneSchedule(schedule)
	return nil
}

func (m *MemoryStore) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*screening.ScreeningSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []*screening.ScreeningSchedule
	for _, schedule := range m.schedules {
		if !runnable(schedule.Status) {
			continue
		}
		if schedule.NextScreeningAt.After(asOf) {
			continue
		}
		due = append(due, cloneSchedule(schedule))
	}
	// Immediate schedules first, then oldest due date.
	sort.Slice(due, func(i, j int) bool {
		if (due[i].Status == screening.ScheduleStatusPendingImmediate) != (due[j].Status == screening.ScheduleStatusPendingImmediate) {
			return due[i].Status == screening.ScheduleStatusPendingImmediate
		}
		return due[i].NextScreeningAt.Before(due[j].NextScreeningAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MemoryStore) ListRetryable(ctx context.Context) ([]*screening.ScreeningSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var retryable []*screening.ScreeningSchedule
	for _, schedule := range m.schedules {
		if !runnable(schedule.Status) || schedule.FailedAttempts == 0 {
			continue
		}
		retryable = append(retryable, cloneSchedule(schedule))
	}
	sort.Slice(retryable, func(i, j int) bool {
		return retryable[i].PartyID < retryable[j].PartyID
	})
	return retryable, nil
}

func (m *MemoryStore) Stats(ctx context.Context, since time.Time) (*screening.ExecutionStatistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &screening.ExecutionStatistics{}
	for _, schedule := range m.schedules {
		stats.TotalSchedules++
		switch schedule.Status {
		case screening.ScheduleStatusActive:
			stats.ActiveSchedules++
		case screening.ScheduleStatusPendingImmediate:
			stats.PendingImmediate++
		case screening.ScheduleStatusCancelled:
			stats.CancelledSchedules++
		case screening.ScheduleStatusFailed:
			stats.FailedSchedules++
		}
		stats.TotalExecutions += schedule.ExecutionCount
		stats.FailedAttempts += schedule.FailedAttempts
		if schedule.LastExecutedAt != nil {
			if !schedule.LastExecutedAt.Before(since) {
				stats.ExecutedSince++
			}
			if stats.LastExecutionAt == nil || schedule.LastExecutedAt.After(*stats.LastExecutionAt) {
				last := *schedule.LastExecutedAt
				stats.LastExecutionAt = &last
			}
		}
	}
	return stats, nil
}

func runnable(status screening.ScheduleStatus) bool {
	return status == screening.ScheduleStatusActive || status == screening.ScheduleStatusPendingImmediate
}

func cloneSchedule(schedule *screening.ScreeningSchedule) *screening.ScreeningSchedule {
	clone := *schedule
	if schedule.Lists != nil {
		clone.Lists = append([]string(nil), schedule.Lists...)
	}
	if schedule.Options != nil {
		clone.Options = make(map[string]interface{}, len(schedule.Options))
		for k, v := range schedule.Options {
			clone.Options[k] = v
		}
	}
	if schedule.LastExecutedAt != nil {
		last := *schedule.LastExecutedAt
		clone.LastExecutedAt = &last
	}
	return &clone
}
