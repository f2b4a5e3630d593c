package models_test

import (
	"testing"
	"time"

	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduleExpression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		expression string
		want       models.ScheduleState
	}{
		{
			name:       "empty input defaults to hourly at minute zero",
			expression: "",
			want:       models.ScheduleState{Mode: models.ScheduleModeHourly, Minute: 0},
		},
		{
			name:       "all wildcards is every minute",
			expression: "* * * * *",
			want:       models.ScheduleState{Mode: models.ScheduleModeEvery, EveryMinutes: 1},
		},
		{
			name:       "minute interval",
			expression: "*/15 * * * *",
			want:       models.ScheduleState{Mode: models.ScheduleModeEvery, EveryMinutes: 15},
		},
		{
			name:       "interval above range clamps to 59",
			expression: "*/90 * * * *",
			want:       models.ScheduleState{Mode: models.ScheduleModeEvery, EveryMinutes: 59},
		},
		{
			name:       "fixed minute is hourly",
			expression: "30 * * * *",
			want:       models.ScheduleState{Mode: models.ScheduleModeHourly, Minute: 30},
		},
		{
			name:       "fixed minute and hour is daily",
			expression: "0 6 * * *",
			want:       models.ScheduleState{Mode: models.ScheduleModeDaily, Minute: 0, Hour: 6},
		},
		{
			name:       "weekday list is weekly",
			expression: "30 9 * * 1,3,5",
			want:       models.ScheduleState{Mode: models.ScheduleModeWeekly, Minute: 30, Hour: 9, Days: []int{1, 3, 5}},
		},
		{
			name:       "weekday list is de-duplicated and sorted",
			expression: "30 9 * * 5,1,5,3",
			want:       models.ScheduleState{Mode: models.ScheduleModeWeekly, Minute: 30, Hour: 9, Days: []int{1, 3, 5}},
		},
		{
			name:       "day of month is monthly",
			expression: "0 0 15 * *",
			want:       models.ScheduleState{Mode: models.ScheduleModeMonthly, Minute: 0, Hour: 0, DayOfMonth: 15},
		},
		{
			name:       "six field expression drops leading seconds",
			expression: "0 30 9 * * *",
			want:       models.ScheduleState{Mode: models.ScheduleModeDaily, Minute: 30, Hour: 9},
		},
		{
			name:       "month field other than wildcard falls back to cron verbatim",
			expression: "*/7 3 2 1 *",
			want:       models.ScheduleState{Mode: models.ScheduleModeCron, Cron: "*/7 3 2 1 *"},
		},
		{
			name:       "day of month plus weekday falls back to cron",
			expression: "0 9 1 * 1",
			want:       models.ScheduleState{Mode: models.ScheduleModeCron, Cron: "0 9 1 * 1"},
		},
		{
			name:       "wrong field count falls back to cron",
			expression: "0 9 *",
			want:       models.ScheduleState{Mode: models.ScheduleModeCron, Cron: "0 9 *"},
		},
		{
			name:       "out of range minute falls back to cron",
			expression: "75 * * * *",
			want:       models.ScheduleState{Mode: models.ScheduleModeCron, Cron: "75 * * * *"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := models.ParseScheduleExpression(tt.expression)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleState_Expression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state models.ScheduleState
		want  string
	}{
		{
			name:  "every one minute canonicalizes to all wildcards",
			state: models.ScheduleState{Mode: models.ScheduleModeEvery, EveryMinutes: 1},
			want:  "* * * * *",
		},
		{
			name:  "every n minutes",
			state: models.ScheduleState{Mode: models.ScheduleModeEvery, EveryMinutes: 10},
			want:  "*/10 * * * *",
		},
		{
			name:  "hourly clamps minute",
			state: models.ScheduleState{Mode: models.ScheduleModeHourly, Minute: 99},
			want:  "59 * * * *",
		},
		{
			name:  "daily",
			state: models.ScheduleState{Mode: models.ScheduleModeDaily, Minute: 15, Hour: 22},
			want:  "15 22 * * *",
		},
		{
			name:  "weekly joins sorted weekday list",
			state: models.ScheduleState{Mode: models.ScheduleModeWeekly, Minute: 30, Hour: 9, Days: []int{5, 1, 3}},
			want:  "30 9 * * 1,3,5",
		},
		{
			name:  "weekly with no days defaults to monday",
			state: models.ScheduleState{Mode: models.ScheduleModeWeekly, Minute: 0, Hour: 8},
			want:  "0 8 * * 1",
		},
		{
			name:  "monthly clamps day of month",
			state: models.ScheduleState{Mode: models.ScheduleModeMonthly, Minute: 0, Hour: 0, DayOfMonth: 40},
			want:  "0 0 31 * *",
		},
		{
			name:  "cron mode passes through verbatim",
			state: models.ScheduleState{Mode: models.ScheduleModeCron, Cron: "*/7 3 2 1 *"},
			want:  "*/7 3 2 1 *",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.state.Expression())
		})
	}
}

func TestScheduleRoundTrip_StructuredModes(t *testing.T) {
	t.Parallel()

	states := []models.ScheduleState{
		{Mode: models.ScheduleModeEvery, EveryMinutes: 1},
		{Mode: models.ScheduleModeEvery, EveryMinutes: 30},
		{Mode: models.ScheduleModeHourly, Minute: 45},
		{Mode: models.ScheduleModeDaily, Minute: 0, Hour: 12},
		{Mode: models.ScheduleModeWeekly, Minute: 30, Hour: 9, Days: []int{1, 3, 5}},
		{Mode: models.ScheduleModeMonthly, Minute: 30, Hour: 9, DayOfMonth: 1},
	}

	for _, state := range states {
		parsed := models.ParseScheduleExpression(state.Expression())
		assert.Equal(t, state, parsed, "round trip for %q", state.Expression())
	}
}

func TestScheduleState_NextRun(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)

	state := models.ScheduleState{Mode: models.ScheduleModeDaily, Minute: 0, Hour: 12}
	next := state.NextRun(from)
	require.False(t, next.IsZero())
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), next)

	invalid := models.ScheduleState{Mode: models.ScheduleModeCron, Cron: "not a cron"}
	assert.True(t, invalid.NextRun(from).IsZero())
}
