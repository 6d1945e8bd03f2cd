package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBatchSize bounds how many due schedules one execution sweep picks up
// when the caller does not say otherwise.
const DefaultBatchSize = 50

// RetryDelay is the fixed delay between retry attempts. It is a scheduling
// hint surfaced to the caller's execution loop, never a blocking sleep inside
// the scheduler.
const RetryDelay = 5 * time.Minute

// Retry attempt and query-limit bounds.
const (
	minRetryAttempts = 1
	maxRetryAttempts = 10
	maxQueryLimit    = 1000
)

// CalculateNextScreeningDate computes the next screening date for a
// frequency from a reference date. Pure function of (frequency, reference).
func CalculateNextScreeningDate(frequency ScreeningFrequency, reference time.Time) time.Time {
	return frequency.NextDate(reference)
}

// ScheduleOptions control schedule creation.
type ScheduleOptions struct {
	// StartDate anchors the first screening date; zero means now.
	StartDate time.Time
	// Lists scopes the screening to the given list sources.
	Lists []string
	// Metadata is carried opaquely on the schedule record.
	Metadata map[string]interface{}
}

// ExecuteOptions control one execution sweep.
type ExecuteOptions struct {
	// BatchSize bounds how many due schedules are picked up; 0 means the
	// default of 50.
	BatchSize int
	// ContinueOnError keeps processing remaining parties after an individual
	// failure.
	ContinueOnError bool
	// Lists overrides the per-schedule list scope when non-empty.
	Lists []string
	// IncludePep runs PEP screening alongside sanctions screening and
	// attaches the profiles to the result.
	IncludePep bool
	// Screen and Pep tune the underlying screening calls.
	Screen ScreenOptions
	Pep    PepScreenOptions
}

// DefaultExecuteOptions returns the standard sweep options.
func DefaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{
		BatchSize:       DefaultBatchSize,
		ContinueOnError: true,
		IncludePep:      true,
		Screen:          DefaultScreenOptions(),
		Pep:             DefaultPepScreenOptions(),
	}
}

// Scheduler drives recurring sanctions and PEP screening per party. All
// schedule state lives in the ScheduleStore; the scheduler itself holds no
// mutable cross-call state.
type Scheduler struct {
	logger    *zap.SugaredLogger
	store     ScheduleStore
	parties   PartyProvider
	sanctions *SanctionsScreener
	pep       *PEPScreener
	cfg       SchedulerConfig
}

// NewScheduler creates a scheduler over the given store, party provider, and
// screeners.
func NewScheduler(store ScheduleStore, parties PartyProvider, sanctions *SanctionsScreener, pep *PEPScreener, cfg *Config, logger *zap.SugaredLogger) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scheduler{
		logger:    logger,
		store:     store,
		parties:   parties,
		sanctions: sanctions,
		pep:       pep,
		cfg:       cfg.Scheduler,
	}
}

// ScheduleScreening creates (or re-schedules) the recurring screening for a
// party. An existing non-terminal schedule is re-anchored rather than
// duplicated: a party has at most one active schedule.
func (s *Scheduler) ScheduleScreening(ctx context.Context, partyID string, frequency ScreeningFrequency, opts ScheduleOptions) (*ScreeningSchedule, error) {
	if !frequency.Valid() {
		return nil, s.failScheduling(partyID, "schedule", fmt.Errorf("unrecognized screening frequency %q", frequency))
	}

	start := opts.StartDate
	if start.IsZero() {
		start = time.Now()
	}
	next := CalculateNextScreeningDate(frequency, start)

	existing, err := s.store.Get(ctx, partyID)
	if err == nil && existing != nil && existing.Status != ScheduleStatusCancelled && existing.Status != ScheduleStatusFailed {
		existing.Frequency = frequency
		existing.NextScreeningAt = next
		existing.Status = ScheduleStatusActive
		if opts.Lists != nil {
			existing.Lists = opts.Lists
		}
		if opts.Metadata != nil {
			existing.Options = opts.Metadata
		}
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, s.failScheduling(partyID, "reschedule", err)
		}
		s.logger.Infow("screening rescheduled",
			"party_id", partyID,
			"frequency", frequency,
			"next_screening_at", next,
		)
		return existing, nil
	}

	schedule := &ScreeningSchedule{
		ID:              uuid.New().String(),
		PartyID:         partyID,
		Frequency:       frequency,
		NextScreeningAt: next,
		CreatedAt:       time.Now(),
		Lists:           opts.Lists,
		Options:         opts.Metadata,
		Status:          ScheduleStatusActive,
	}
	if err := s.store.Create(ctx, schedule); err != nil {
		return nil, s.failScheduling(partyID, "schedule", err)
	}

	s.logger.Infow("screening scheduled",
		"party_id", partyID,
		"schedule_id", schedule.ID,
		"frequency", frequency,
		"next_screening_at", next,
	)
	return schedule, nil
}

// ScheduleImmediateScreening creates a high-priority schedule due now,
// independent of the party's regular cadence. Used for event-triggered
// re-screening such as a fresh adverse-media hit.
func (s *Scheduler) ScheduleImmediateScreening(ctx context.Context, partyID string, opts ScheduleOptions) (*ScreeningSchedule, error) {
	now := time.Now()

	existing, err := s.store.Get(ctx, partyID)
	if err == nil && existing != nil && existing.Status != ScheduleStatusCancelled {
		existing.NextScreeningAt = now
		existing.Status = ScheduleStatusPendingImmediate
		if opts.Lists != nil {
			existing.Lists = opts.Lists
		}
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, s.failScheduling(partyID, "schedule_immediate", err)
		}
		s.logger.Infow("immediate screening scheduled",
			"party_id", partyID,
			"schedule_id", existing.ID,
		)
		return existing, nil
	}

	schedule := &ScreeningSchedule{
		ID:              uuid.New().String(),
		PartyID:         partyID,
		Frequency:       FrequencyQuarterly,
		NextScreeningAt: now,
		CreatedAt:       now,
		Lists:           opts.Lists,
		Options:         opts.Metadata,
		Status:          ScheduleStatusPendingImmediate,
	}
	if err := s.store.Create(ctx, schedule); err != nil {
		return nil, s.failScheduling(partyID, "schedule_immediate", err)
	}

	s.logger.Infow("immediate screening scheduled",
		"party_id", partyID,
		"schedule_id", schedule.ID,
	)
	return schedule, nil
}

// BulkScheduleScreening applies ScheduleScreening per id. Per-id failures go
// into the summary's error map and never abort the batch.
func (s *Scheduler) BulkScheduleScreening(ctx context.Context, partyIDs []string, frequency ScreeningFrequency, opts ScheduleOptions) (*BulkScheduleSummary, error) {
	summary := &BulkScheduleSummary{Errors: make(map[string]string)}
	for _, partyID := range partyIDs {
		if _, err := s.ScheduleScreening(ctx, partyID, frequency, opts); err != nil {
			summary.Failed++
			summary.Errors[partyID] = err.Error()
			continue
		}
		summary.Scheduled++
	}
	s.logger.Infow("bulk scheduling completed",
		"requested", len(partyIDs),
		"scheduled", summary.Scheduled,
		"failed", summary.Failed,
	)
	return summary, nil
}

// ExecuteScheduledScreenings runs every schedule due at or before asOfDate,
// bounded by the batch size. An individual failure is recorded and, unless
// ContinueOnError is disabled, never stops the remaining parties.
func (s *Scheduler) ExecuteScheduledScreenings(ctx context.Context, asOfDate time.Time, opts ExecuteOptions) (*ExecutionSummary, error) {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = s.cfg.DefaultBatchSize
	}
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize < 1 || batchSize > maxQueryLimit {
		return nil, &ArgumentOutOfRangeError{Param: "batchSize", Value: batchSize, Min: 1, Max: maxQueryLimit}
	}

	started := time.Now()
	due, err := s.store.ListDue(ctx, asOfDate, batchSize)
	if err != nil {
		failure := &ScreeningFailedError{Subject: "batch", Stage: "list_due", Err: err}
		s.logger.Errorw("failed to fetch due schedules", "error", failure)
		return nil, failure
	}

	summary := &ExecutionSummary{Errors: make(map[string]string)}
	for _, schedule := range due {
		summary.Executed++
		matches, err := s.executeOne(ctx, schedule, asOfDate, opts)
		if err != nil {
			summary.Failed++
			summary.Errors[schedule.PartyID] = err.Error()
			schedulerExecutionsTotal.WithLabelValues("failed").Inc()
			if !opts.ContinueOnError {
				break
			}
			continue
		}
		summary.Succeeded++
		summary.MatchesFound += matches
		schedulerExecutionsTotal.WithLabelValues("succeeded").Inc()
	}
	summary.Duration = time.Since(started)

	s.logger.Infow("scheduled screenings executed",
		"as_of", asOfDate,
		"executed", summary.Executed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"matches_found", summary.MatchesFound,
		"duration", summary.Duration,
	)
	return summary, nil
}

// executeOne screens one due party and records the outcome on its schedule.
// The read-modify-write of the schedule relies on the store's own locking
// discipline.
func (s *Scheduler) executeOne(ctx context.Context, schedule *ScreeningSchedule, asOfDate time.Time, opts ExecuteOptions) (int, error) {
	lists := schedule.Lists
	if len(opts.Lists) > 0 {
		lists = opts.Lists
	}

	party, err := s.parties.GetParty(ctx, schedule.PartyID)
	if err != nil {
		return 0, s.recordFailure(ctx, schedule, "party_lookup", err)
	}

	result, err := s.sanctions.Screen(ctx, party, lists, opts.Screen)
	if err != nil {
		return 0, s.recordFailure(ctx, schedule, "screen", err)
	}

	if opts.IncludePep {
		profiles, err := s.pep.ScreenForPep(ctx, party, opts.Pep)
		if err != nil {
			return 0, s.recordFailure(ctx, schedule, "pep_screen", err)
		}
		result.PepProfiles = profiles
	}

	now := time.Now()
	schedule.ExecutionCount++
	schedule.LastExecutedAt = &now
	schedule.FailedAttempts = 0
	schedule.LastError = ""
	schedule.Status = ScheduleStatusActive
	schedule.NextScreeningAt = CalculateNextScreeningDate(schedule.Frequency, asOfDate)
	if result.HasMatches {
		schedule.LastOutcome = "matches_found"
	} else {
		schedule.LastOutcome = "clear"
	}
	if err := s.store.Update(ctx, schedule); err != nil {
		return 0, s.recordFailure(ctx, schedule, "persist", err)
	}

	return len(result.Matches), nil
}

// recordFailure increments the schedule's failed-attempt counter and wraps
// the cause. The wrapped error is always logged before being surfaced.
func (s *Scheduler) recordFailure(ctx context.Context, schedule *ScreeningSchedule, stage string, cause error) error {
	schedule.FailedAttempts++
	schedule.LastOutcome = "failed"
	schedule.LastError = cause.Error()
	if err := s.store.Update(ctx, schedule); err != nil {
		s.logger.Errorw("failed to persist failure state",
			"party_id", schedule.PartyID,
			"error", err,
		)
	}

	failure := &ScreeningFailedError{Subject: schedule.PartyID, Stage: stage, Err: cause}
	s.logger.Errorw("scheduled screening failed",
		"party_id", schedule.PartyID,
		"stage", stage,
		"failed_attempts", schedule.FailedAttempts,
		"error", failure,
	)
	return failure
}

// RetryFailedScreenings re-executes schedules whose failed-attempt count is
// below maxAttempts. Schedules at or beyond the bound are marked failed and
// left for manual intervention, never silently dropped. The returned
// summary's RetryAfter carries the fixed retry delay as a hint for the
// caller's loop.
func (s *Scheduler) RetryFailedScreenings(ctx context.Context, maxAttempts int) (*ExecutionSummary, error) {
	if maxAttempts < minRetryAttempts || maxAttempts > maxRetryAttempts {
		return nil, &ArgumentOutOfRangeError{Param: "maxAttempts", Value: maxAttempts, Min: minRetryAttempts, Max: maxRetryAttempts}
	}

	started := time.Now()
	retryable, err := s.store.ListRetryable(ctx)
	if err != nil {
		failure := &ScreeningFailedError{Subject: "batch", Stage: "list_retryable", Err: err}
		s.logger.Errorw("failed to fetch retryable schedules", "error", failure)
		return nil, failure
	}

	retryDelay := s.cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = RetryDelay
	}

	opts := DefaultExecuteOptions()
	summary := &ExecutionSummary{Errors: make(map[string]string), RetryAfter: retryDelay}
	for _, schedule := range retryable {
		if schedule.FailedAttempts >= maxAttempts {
			schedule.Status = ScheduleStatusFailed
			if err := s.store.Update(ctx, schedule); err != nil {
				s.logger.Errorw("failed to mark schedule failed",
					"party_id", schedule.PartyID,
					"error", err,
				)
			}
			s.logger.Errorw("retry attempts exhausted, manual intervention required",
				"party_id", schedule.PartyID,
				"failed_attempts", schedule.FailedAttempts,
				"max_attempts", maxAttempts,
			)
			summary.Errors[schedule.PartyID] = "retry attempts exhausted"
			summary.Failed++
			continue
		}

		summary.Executed++
		matches, err := s.executeOne(ctx, schedule, time.Now(), opts)
		if err != nil {
			summary.Failed++
			summary.Errors[schedule.PartyID] = err.Error()
			schedulerExecutionsTotal.WithLabelValues("retry_failed").Inc()
			continue
		}
		summary.Succeeded++
		summary.MatchesFound += matches
		schedulerExecutionsTotal.WithLabelValues("retry_succeeded").Inc()
	}
	summary.Duration = time.Since(started)

	s.logger.Infow("failed screenings retried",
		"retried", summary.Executed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"retry_after", summary.RetryAfter,
	)
	return summary, nil
}

// UpdateScreeningFrequency changes the cadence of an existing schedule and
// re-anchors its next screening date from now.
func (s *Scheduler) UpdateScreeningFrequency(ctx context.Context, partyID string, frequency ScreeningFrequency) (*ScreeningSchedule, error) {
	if !frequency.Valid() {
		return nil, s.failScheduling(partyID, "update_frequency", fmt.Errorf("unrecognized screening frequency %q", frequency))
	}
	schedule, err := s.store.Get(ctx, partyID)
	if err != nil {
		return nil, s.failScheduling(partyID, "update_frequency", err)
	}
	if schedule.Status == ScheduleStatusCancelled {
		return nil, s.failScheduling(partyID, "update_frequency", errUpdateCancelled)
	}

	schedule.Frequency = frequency
	schedule.NextScreeningAt = CalculateNextScreeningDate(frequency, time.Now())
	if err := s.store.Update(ctx, schedule); err != nil {
		return nil, s.failScheduling(partyID, "update_frequency", err)
	}

	s.logger.Infow("screening frequency updated",
		"party_id", partyID,
		"frequency", frequency,
		"next_screening_at", schedule.NextScreeningAt,
	)
	return schedule, nil
}

// CancelScheduledScreening transitions a schedule to cancelled. The record
// is kept; retention is the persistence layer's decision. Cancelling an
// already cancelled schedule is a no-op.
func (s *Scheduler) CancelScheduledScreening(ctx context.Context, partyID string) error {
	schedule, err := s.store.Get(ctx, partyID)
	if err != nil {
		return s.failScheduling(partyID, "cancel", err)
	}
	if schedule.Status == ScheduleStatusCancelled {
		return nil
	}

	schedule.Status = ScheduleStatusCancelled
	if err := s.store.Update(ctx, schedule); err != nil {
		return s.failScheduling(partyID, "cancel", err)
	}

	s.logger.Infow("scheduled screening cancelled", "party_id", partyID)
	return nil
}

// GetScheduleDetails returns the persisted schedule for a party.
func (s *Scheduler) GetScheduleDetails(ctx context.Context, partyID string) (*ScreeningSchedule, error) {
	schedule, err := s.store.Get(ctx, partyID)
	if err != nil {
		return nil, s.failScheduling(partyID, "get_schedule", err)
	}
	return schedule, nil
}

// GetNextScreeningDate returns the next screening date for a party.
func (s *Scheduler) GetNextScreeningDate(ctx context.Context, partyID string) (time.Time, error) {
	schedule, err := s.store.Get(ctx, partyID)
	if err != nil {
		return time.Time{}, s.failScheduling(partyID, "get_next_date", err)
	}
	return schedule.NextScreeningAt, nil
}

// GetPartiesDueForScreening returns ids of parties due at or before
// asOfDate, bounded by limit (1..1000).
func (s *Scheduler) GetPartiesDueForScreening(ctx context.Context, asOfDate time.Time, limit int) ([]string, error) {
	if limit < 1 || limit > maxQueryLimit {
		return nil, &ArgumentOutOfRangeError{Param: "limit", Value: limit, Min: 1, Max: maxQueryLimit}
	}
	due, err := s.store.ListDue(ctx, asOfDate, limit)
	if err != nil {
		return nil, s.failScheduling("batch", "list_due", err)
	}
	partyIDs := make([]string, 0, len(due))
	for _, schedule := range due {
		partyIDs = append(partyIDs, schedule.PartyID)
	}
	return partyIDs, nil
}

// GetExecutionStatistics aggregates schedule execution history since the
// given time.
func (s *Scheduler) GetExecutionStatistics(ctx context.Context, since time.Time) (*ExecutionStatistics, error) {
	stats, err := s.store.Stats(ctx, since)
	if err != nil {
		return nil, s.failScheduling("batch", "stats", err)
	}
	return stats, nil
}

// Run drives execution sweeps on a fixed interval until the context is
// cancelled. The interval defaults to the configured sweep interval.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.cfg.SweepInterval
	}
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Infow("scheduler started", "sweep_interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case now := <-ticker.C:
			if _, err := s.ExecuteScheduledScreenings(ctx, now, DefaultExecuteOptions()); err != nil {
				s.logger.Errorw("execution sweep failed", "error", err)
			}
		}
	}
}

// failScheduling wraps and logs a scheduling failure with its subject id.
func (s *Scheduler) failScheduling(subject, stage string, cause error) error {
	failure := &ScreeningFailedError{Subject: subject, Stage: stage, Err: cause}
	s.logger.Errorw("scheduling operation failed",
		"party_id", subject,
		"stage", stage,
		"error", failure,
	)
	return failure
}
