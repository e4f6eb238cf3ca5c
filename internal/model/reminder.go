package model

import (
	"errors"
	"fmt"
	"time"
)

const ReminderTypeRelative = "relative"

var ErrUnsupportedReminder = errors.New("model: only relative reminders are supported")

// Reminder is a relative offset from a task's due instant.
type Reminder struct {
	Type          string
	OffsetMinutes int
}

func (r Reminder) Validate() error {
	if r.Type != ReminderTypeRelative {
		return fmt.Errorf("%w: %q", ErrUnsupportedReminder, r.Type)
	}
	return nil
}

// Normalized clamps negative offsets to zero.
func (r Reminder) Normalized() Reminder {
	offset := r.OffsetMinutes
	if offset < 0 {
		offset = 0
	}
	return Reminder{Type: ReminderTypeRelative, OffsetMinutes: offset}
}

// RemindInstant derives the absolute remind instant (epoch milliseconds) for a
// due date/time interpreted in loc, minus the reminder offset.
//
// Returns false when the date or time is malformed, or when the local wall
// time falls in a DST spring-forward gap and therefore does not exist. An
// ambiguous wall time (DST fold) resolves to the earlier of the two instants.
func RemindInstant(dueDate, dueTime string, offsetMinutes int, loc *time.Location) (int64, bool) {
	if loc == nil {
		loc = time.Local
	}
	date, err := time.Parse(DateLayout, dueDate)
	if err != nil {
		return 0, false
	}
	clock, err := time.Parse(TimeLayout, dueTime)
	if err != nil {
		return 0, false
	}

	due := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	// time.Date normalizes nonexistent wall times forward past the gap.
	if due.Hour() != clock.Hour() || due.Minute() != clock.Minute() || due.Day() != date.Day() {
		return 0, false
	}

	if offsetMinutes < 0 {
		offsetMinutes = 0
	}
	return due.Add(-time.Duration(offsetMinutes) * time.Minute).UnixMilli(), true
}

// RemindAt computes the task's remind instant, if one exists. A remind instant
// requires a due date, a due time, and a relative reminder.
func (t Task) RemindAt(loc *time.Location) (int64, bool) {
	if t.DueDate == "" || t.DueTime == "" || t.Reminder == nil {
		return 0, false
	}
	if t.Reminder.Type != ReminderTypeRelative {
		return 0, false
	}
	return RemindInstant(t.DueDate, t.DueTime, t.Reminder.OffsetMinutes, loc)
}
