package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleMode selects how a schedule trigger is edited: as one of the
// structured modes or as a raw cron expression.
type ScheduleMode string

const (
	ScheduleModeEvery   ScheduleMode = "every"   // Every N minutes
	ScheduleModeHourly  ScheduleMode = "hourly"  // Fixed minute, every hour
	ScheduleModeDaily   ScheduleMode = "daily"   // Fixed minute and hour
	ScheduleModeWeekly  ScheduleMode = "weekly"  // Fixed time on a weekday set
	ScheduleModeMonthly ScheduleMode = "monthly" // Fixed time on a day of month
	ScheduleModeCron    ScheduleMode = "cron"    // Verbatim cron passthrough
)

// ScheduleState is the structured view of a schedule trigger's cron
// expression. The persisted truth is the expression string; this state is a
// lossy projection recomputed on load and re-serialized on every edit.
type ScheduleState struct {
	Mode         ScheduleMode `json:"mode"`
	Minute       int          `json:"minute"`
	Hour         int          `json:"hour"`
	Days         []int        `json:"days,omitempty"`
	DayOfMonth   int          `json:"day_of_month"`
	EveryMinutes int          `json:"every_minutes"`
	Cron         string       `json:"cron,omitempty"`
}

// DefaultScheduleState is the state a new schedule trigger starts with.
func DefaultScheduleState() ScheduleState {
	return ScheduleState{Mode: ScheduleModeHourly, Minute: 0}
}

// ParseScheduleExpression maps a cron string onto a structured schedule
// state. It accepts 5-field or 6-field (leading seconds dropped) syntax.
// Anything that does not match a structured pattern, including any
// expression with a non-wildcard month field, falls back to cron mode with
// the original string preserved verbatim.
func ParseScheduleExpression(expression string) ScheduleState {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return DefaultScheduleState()
	}

	fallback := ScheduleState{Mode: ScheduleModeCron, Cron: trimmed}

	fields := strings.Fields(trimmed)
	if len(fields) == 6 {
		fields = fields[1:]
	}

	if len(fields) != 5 {
		return fallback
	}

	minuteField, hourField, domField, monthField, dowField :=
		fields[0], fields[1], fields[2], fields[3], fields[4]

	if monthField != "*" {
		return fallback
	}

	restWild := hourField == "*" && domField == "*" && dowField == "*"

	if minuteField == "*" && restWild {
		return ScheduleState{Mode: ScheduleModeEvery, EveryMinutes: 1}
	}

	if interval, ok := strings.CutPrefix(minuteField, "*/"); ok {
		if !restWild {
			return fallback
		}

		n, err := strconv.Atoi(interval)
		if err != nil {
			return fallback
		}

		return ScheduleState{Mode: ScheduleModeEvery, EveryMinutes: clamp(n, 1, 59)}
	}

	minute, err := strconv.Atoi(minuteField)
	if err != nil || minute < 0 || minute > 59 {
		return fallback
	}

	if restWild {
		return ScheduleState{Mode: ScheduleModeHourly, Minute: minute}
	}

	hour, err := strconv.Atoi(hourField)
	if err != nil || hour < 0 || hour > 23 {
		return fallback
	}

	if domField == "*" && dowField == "*" {
		return ScheduleState{Mode: ScheduleModeDaily, Minute: minute, Hour: hour}
	}

	if domField == "*" {
		days, ok := parseWeekdayList(dowField)
		if !ok {
			return fallback
		}

		return ScheduleState{Mode: ScheduleModeWeekly, Minute: minute, Hour: hour, Days: days}
	}

	if dowField == "*" {
		dayOfMonth, err := strconv.Atoi(domField)
		if err != nil || dayOfMonth < 1 || dayOfMonth > 31 {
			return fallback
		}

		return ScheduleState{Mode: ScheduleModeMonthly, Minute: minute, Hour: hour, DayOfMonth: dayOfMonth}
	}

	return fallback
}

// Expression serializes the state back to a canonical 5-field cron string.
// Field values are clamped into their legal ranges; "every 1 minute" always
// serializes as "* * * * *", never "*/1 * * * *".
func (s ScheduleState) Expression() string {
	switch s.Mode {
	case ScheduleModeEvery:
		n := clamp(s.EveryMinutes, 1, 59)
		if n == 1 {
			return "* * * * *"
		}

		return fmt.Sprintf("*/%d * * * *", n)
	case ScheduleModeDaily:
		return fmt.Sprintf("%d %d * * *", clamp(s.Minute, 0, 59), clamp(s.Hour, 0, 23))
	case ScheduleModeWeekly:
		days := canonicalWeekdays(s.Days)

		return fmt.Sprintf("%d %d * * %s", clamp(s.Minute, 0, 59), clamp(s.Hour, 0, 23), days)
	case ScheduleModeMonthly:
		return fmt.Sprintf("%d %d %d * *",
			clamp(s.Minute, 0, 59), clamp(s.Hour, 0, 23), clamp(s.DayOfMonth, 1, 31))
	case ScheduleModeCron:
		return s.Cron
	case ScheduleModeHourly:
		fallthrough
	default:
		return fmt.Sprintf("%d * * * *", clamp(s.Minute, 0, 59))
	}
}

// NextRun computes the next fire time after the reference time, or the zero
// time when the expression does not parse. Invalid stored expressions degrade
// silently; the builder simply shows no "next run" hint.
func (s ScheduleState) NextRun(after time.Time) time.Time {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	schedule, err := parser.Parse(s.Expression())
	if err != nil {
		return time.Time{}
	}

	return schedule.Next(after)
}

// parseWeekdayList parses a comma-separated 0-6 weekday list, de-duplicated
// and sorted.
func parseWeekdayList(field string) ([]int, bool) {
	seen := make(map[int]bool)

	for _, part := range strings.Split(field, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || day < 0 || day > 6 {
			return nil, false
		}

		seen[day] = true
	}

	if len(seen) == 0 {
		return nil, false
	}

	days := make([]int, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}

	sort.Ints(days)

	return days, true
}

// canonicalWeekdays renders a weekday set as a sorted, de-duplicated,
// comma-joined list, defaulting to Monday when empty.
func canonicalWeekdays(days []int) string {
	seen := make(map[int]bool)

	for _, day := range days {
		if day >= 0 && day <= 6 {
			seen[day] = true
		}
	}

	if len(seen) == 0 {
		return "1"
	}

	sorted := make([]int, 0, len(seen))
	for day := range seen {
		sorted = append(sorted, day)
	}

	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, day := range sorted {
		parts[i] = strconv.Itoa(day)
	}

	return strings.Join(parts, ",")
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}

	if value > high {
		return high
	}

	return value
}
