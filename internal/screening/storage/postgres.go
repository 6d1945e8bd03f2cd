package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
)

// PostgresStore persists screening schedules in PostgreSQL. Open the *sql.DB
// with the pgx stdlib driver. Updates are guarded per row so two concurrent
// execution sweeps cannot double-count an execution.
type PostgresStore struct {
	db *sql.DB
}

var _ screening.ScheduleStore = (*PostgresStore)(nil)

// NewPostgresStore creates the store and bootstraps its schema.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db}
	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schedule schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS screening_schedules (
		id VARCHAR(64) PRIMARY KEY,
		party_id VARCHAR(255) UNIQUE NOT NULL,
		frequency VARCHAR(20) NOT NULL,
		next_screening_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		lists TEXT,
		options JSONB,
		status VARCHAR(30) NOT NULL DEFAULT 'active',
		execution_count INTEGER NOT NULL DEFAULT 0,
		last_executed_at TIMESTAMPTZ,
		last_outcome VARCHAR(50),
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	index := `CREATE INDEX IF NOT EXISTS idx_screening_schedules_due
		ON screening_schedules (next_screening_at)
		WHERE status IN ('active', 'pending_immediate')`
	_, err := s.db.Exec(index)
	return err
}

// Create inserts the schedule. A terminal (cancelled or failed) row for the
// same party is replaced so the party can be re-enrolled; a live row rejects
// the insert.
func (s *PostgresStore) Create(ctx context.Context, schedule *screening.ScreeningSchedule) error {
	options, err := marshalOptions(schedule.Options)
	if err != nil {
		return err
	}
	lists, err := marshalLists(schedule.Lists)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO screening_schedules
			(id, party_id, frequency, next_screening_at, created_at, lists, options,
			 status, execution_count, last_executed_at, last_outcome, failed_attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (party_id) DO UPDATE SET
			id = EXCLUDED.id,
			frequency = EXCLUDED.frequency,
			next_screening_at = EXCLUDED.next_screening_at,
			created_at = EXCLUDED.created_at,
			lists = EXCLUDED.lists,
			options = EXCLUDED.options,
			status = EXCLUDED.status,
			execution_count = EXCLUDED.execution_count,
			last_executed_at = EXCLUDED.last_executed_at,
			last_outcome = EXCLUDED.last_outcome,
			failed_attempts = EXCLUDED.failed_attempts,
			last_error = EXCLUDED.last_error,
			updated_at = CURRENT_TIMESTAMP
		WHERE screening_schedules.status IN ('cancelled', 'failed')`,
		schedule.ID, schedule.PartyID, string(schedule.Frequency), schedule.NextScreeningAt,
		schedule.CreatedAt, lists, options, string(schedule.Status),
		schedule.ExecutionCount, schedule.LastExecutedAt, nullString(schedule.LastOutcome),
		schedule.FailedAttempts, nullString(schedule.LastError),
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule for party %s: %w", schedule.PartyID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("active schedule already exists for party %s", schedule.PartyID)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, partyID string) (*screening.ScreeningSchedule, error) {
	row := s.db.QueryRowContext(ctx, scheduleColumns+` WHERE party_id = $1`, partyID)
	schedule, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no schedule found for party %s", partyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule for party %s: %w", partyID, err)
	}
	return schedule, nil
}

func (s *PostgresStore) Update(ctx context.Context, schedule *screening.ScreeningSchedule) error {
	options, err := marshalOptions(schedule.Options)
	if err != nil {
		return err
	}
	lists, err := marshalLists(schedule.Lists)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE screening_schedules SET
			frequency = $1, next_screening_at = $2, lists = $3, options = $4,
			status = $5, execution_count = $6, last_executed_at = $7,
			last_outcome = $8, failed_attempts = $9, last_error = $10,
			updated_at = CURRENT_TIMESTAMP
		WHERE party_id = $11`,
		string(schedule.Frequency), schedule.NextScreeningAt, lists,
		options, string(schedule.Status), schedule.ExecutionCount, schedule.LastExecutedAt,
		nullString(schedule.LastOutcome), schedule.FailedAttempts, nullString(schedule.LastError),
		schedule.PartyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule for party %s: %w", schedule.PartyID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no schedule found for party %s", schedule.PartyID)
	}
	return nil
}

func (s *PostgresStore) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*screening.ScreeningSchedule, error) {
	rows, err := s.db.QueryContext(ctx, scheduleColumns+`
		WHERE status IN ('active', 'pending_immediate') AND next_screening_at <= $1
		ORDER BY status = 'pending_immediate' DESC, next_screening_at ASC
		LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (s *PostgresStore) ListRetryable(ctx context.Context) ([]*screening.ScreeningSchedule, error) {
	rows, err := s.db.QueryContext(ctx, scheduleColumns+`
		WHERE status IN ('active', 'pending_immediate') AND failed_attempts > 0
		ORDER BY party_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query retryable schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (*screening.ExecutionStatistics, error) {
	stats := &screening.ExecutionStatistics{}
	var lastExecution sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'pending_immediate'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(SUM(execution_count), 0),
			COUNT(*) FILTER (WHERE last_executed_at >= $1),
			COALESCE(SUM(failed_attempts), 0),
			MAX(last_executed_at)
		FROM screening_schedules`, since).Scan(
		&stats.TotalSchedules, &stats.ActiveSchedules, &stats.PendingImmediate,
		&stats.CancelledSchedules, &stats.FailedSchedules, &stats.TotalExecutions,
		&stats.ExecutedSince, &stats.FailedAttempts, &lastExecution,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate schedule statistics: %w", err)
	}
	if lastExecution.Valid {
		stats.LastExecutionAt = &lastExecution.Time
	}
	return stats, nil
}

const scheduleColumns = `
	SELECT id, party_id, frequency, next_screening_at, created_at, lists, options,
	       status, execution_count, last_executed_at, last_outcome, failed_attempts, last_error
	FROM screening_schedules`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(row rowScanner) (*screening.ScreeningSchedule, error) {
	var (
		schedule    screening.ScreeningSchedule
		frequency   string
		status      string
		lists       sql.NullString
		options     []byte
		lastExec    sql.NullTime
		lastOutcome sql.NullString
		lastError   sql.NullString
	)
	err := row.Scan(&schedule.ID, &schedule.PartyID, &frequency, &schedule.NextScreeningAt,
		&schedule.CreatedAt, &lists, &options, &status, &schedule.ExecutionCount,
		&lastExec, &lastOutcome, &schedule.FailedAttempts, &lastError)
	if err != nil {
		return nil, err
	}
	schedule.Frequency = screening.ScreeningFrequency(frequency)
	schedule.Status = screening.ScheduleStatus(status)
	schedule.Lists, err = unmarshalLists(lists.String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schedule lists for party %s: %w", schedule.PartyID, err)
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &schedule.Options); err != nil {
			return nil, fmt.Errorf("failed to decode schedule options for party %s: %w", schedule.PartyID, err)
		}
	}
	if lastExec.Valid {
		schedule.LastExecutedAt = &lastExec.Time
	}
	schedule.LastOutcome = lastOutcome.String
	schedule.LastError = lastError.String
	return &schedule, nil
}

func scanSchedules(rows *sql.Rows) ([]*screening.ScreeningSchedule, error) {
	var schedules []*screening.ScreeningSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func marshalOptions(options map[string]interface{}) ([]byte, error) {
	if options == nil {
		return nil, nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schedule options: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// marshalLists JSON-encodes the list scope so list ids may contain any
// character.
func marshalLists(lists []string) (sql.NullString, error) {
	if len(lists) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(lists)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode schedule lists: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalLists(encoded string) ([]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var lists []string
	if err := json.Unmarshal([]byte(encoded), &lists); err != nil {
		return nil, err
	}
	return lists, nil
}
