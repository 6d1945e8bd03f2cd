package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
)

// stubRow feeds canned column values to scanSchedule without a database.
type stubRow struct {
	values []interface{}
}

func (r stubRow) Scan(dest ...interface{}) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d columns, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func TestMarshalListsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		lists []string
	}{
		{"single list", []string{"ofac_sdn"}},
		{"multiple lists", []string{"ofac_sdn", "eu_consolidated", "un_sc"}},
		{"list id containing a comma", []string{"ofac_sdn", "local,regional"}},
		{"list id containing quotes", []string{`watch "priority"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := marshalLists(tt.lists)
			require.NoError(t, err)
			require.True(t, encoded.Valid)

			decoded, err := unmarshalLists(encoded.String)
			require.NoError(t, err)
			assert.Equal(t, tt.lists, decoded)
		})
	}
}

func TestMarshalListsEmpty(t *testing.T) {
	encoded, err := marshalLists(nil)
	require.NoError(t, err)
	assert.False(t, encoded.Valid)

	decoded, err := unmarshalLists("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestUnmarshalListsRejectsGarbage(t *testing.T) {
	_, err := unmarshalLists("ofac_sdn,eu_consolidated")
	assert.Error(t, err)
}

func TestNullString(t *testing.T) {
	assert.Equal(t, sql.NullString{}, nullString(""))
	assert.Equal(t, sql.NullString{String: "clear", Valid: true}, nullString("clear"))
}

func TestMarshalOptions(t *testing.T) {
	data, err := marshalOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = marshalOptions(map[string]interface{}{"reason": "onboarding", "priority": 2})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "onboarding", decoded["reason"])
	assert.Equal(t, float64(2), decoded["priority"])
}

func TestScanSchedule(t *testing.T) {
	next := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	executed := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	lists, err := marshalLists([]string{"ofac_sdn", "eu_consolidated"})
	require.NoError(t, err)
	options, err := marshalOptions(map[string]interface{}{"reason": "onboarding"})
	require.NoError(t, err)

	schedule, err := scanSchedule(stubRow{values: []interface{}{
		"sched-1", "p1", "WEEKLY", next, created, lists, options,
		"active", 3, sql.NullTime{Time: executed, Valid: true},
		sql.NullString{String: "clear", Valid: true}, 1,
		sql.NullString{String: "timeout", Valid: true},
	}})
	require.NoError(t, err)

	assert.Equal(t, "sched-1", schedule.ID)
	assert.Equal(t, "p1", schedule.PartyID)
	assert.Equal(t, screening.FrequencyWeekly, schedule.Frequency)
	assert.Equal(t, next, schedule.NextScreeningAt)
	assert.Equal(t, []string{"ofac_sdn", "eu_consolidated"}, schedule.Lists)
	assert.Equal(t, map[string]interface{}{"reason": "onboarding"}, schedule.Options)
	assert.Equal(t, screening.ScheduleStatusActive, schedule.Status)
	assert.Equal(t, 3, schedule.ExecutionCount)
	require.NotNil(t, schedule.LastExecutedAt)
	assert.Equal(t, executed, *schedule.LastExecutedAt)
	assert.Equal(t, "clear", schedule.LastOutcome)
	assert.Equal(t, 1, schedule.FailedAttempts)
	assert.Equal(t, "timeout", schedule.LastError)
}

func TestScanScheduleMinimalRow(t *testing.T) {
	next := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	schedule, err := scanSchedule(stubRow{values: []interface{}{
		"sched-2", "p2", "MONTHLY", next, created, sql.NullString{}, []byte(nil),
		"active", 0, sql.NullTime{}, sql.NullString{}, 0, sql.NullString{},
	}})
	require.NoError(t, err)

	assert.Nil(t, schedule.Lists)
	assert.Nil(t, schedule.Options)
	assert.Nil(t, schedule.LastExecutedAt)
	assert.Empty(t, schedule.LastOutcome)
	assert.Empty(t, schedule.LastError)
}

func TestScanScheduleRejectsCorruptLists(t *testing.T) {
	next := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	_, err := scanSchedule(stubRow{values: []interface{}{
		"sched-3", "p3", "WEEKLY", next, created,
		sql.NullString{String: "not-json", Valid: true}, []byte(nil),
		"active", 0, sql.NullTime{}, sql.NullString{}, 0, sql.NullString{},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p3")
}
