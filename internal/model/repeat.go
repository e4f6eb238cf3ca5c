package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// monthScanBound caps the monthly forward scan so a rule whose days never form
// a valid date cannot loop forever.
const monthScanBound = 24

var (
	ErrInvalidRepeatType = errors.New("model: unsupported repeat type")
	ErrEmptyWeekdays     = errors.New("model: weekly repeat must contain at least one weekday")
	ErrInvalidWeekday    = errors.New("model: weekly repeat day must be between 0 and 6")
	ErrEmptyMonthDays    = errors.New("model: monthly repeat must contain at least one day")
	ErrInvalidMonthDay   = errors.New("model: monthly repeat day must be between 1 and 31")
)

// RepeatRule describes how a task recurs. Weekdays use 0=Sunday..6=Saturday.
type RepeatRule struct {
	Type        string
	DaysOfWeek  []int
	DaysOfMonth []int
}

func (r RepeatRule) Validate() error {
	switch r.Type {
	case RepeatDaily:
		return nil
	case RepeatWeekly:
		if len(r.DaysOfWeek) == 0 {
			return ErrEmptyWeekdays
		}
		for _, day := range r.DaysOfWeek {
			if day < 0 || day > 6 {
				return fmt.Errorf("%w: %d", ErrInvalidWeekday, day)
			}
		}
		return nil
	case RepeatMonthly:
		if len(r.DaysOfMonth) == 0 {
			return ErrEmptyMonthDays
		}
		for _, day := range r.DaysOfMonth {
			if day < 1 || day > 31 {
				return fmt.Errorf("%w: %d", ErrInvalidMonthDay, day)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRepeatType, r.Type)
	}
}

// NextDueDate computes the due date following current under the rule. Returns
// false when the rule type is unknown, current is malformed, or no valid date
// exists within the monthly scan bound.
func (r RepeatRule) NextDueDate(current string) (string, bool) {
	cur, err := time.Parse(DateLayout, current)
	if err != nil {
		return "", false
	}

	switch r.Type {
	case RepeatDaily:
		return cur.AddDate(0, 0, 1).Format(DateLayout), true
	case RepeatWeekly:
		return r.nextWeekly(cur)
	case RepeatMonthly:
		return r.nextMonthly(cur)
	default:
		return "", false
	}
}

func (r RepeatRule) nextWeekly(cur time.Time) (string, bool) {
	days := sortedDistinct(r.DaysOfWeek)
	if len(days) == 0 {
		return "", false
	}
	today := int(cur.Weekday())

	for _, day := range days {
		if day > today {
			return cur.AddDate(0, 0, day-today).Format(DateLayout), true
		}
	}
	// Wrap to the smallest rule day in the next week.
	delta := (7 - today) + days[0]
	if delta <= 0 {
		delta = 7
	}
	return cur.AddDate(0, 0, delta).Format(DateLayout), true
}

func (r RepeatRule) nextMonthly(cur time.Time) (string, bool) {
	days := sortedDistinct(r.DaysOfMonth)
	if len(days) == 0 {
		return "", false
	}

	year, month := cur.Year(), int(cur.Month())
	for _, day := range days {
		if day > cur.Day() {
			if date, ok := civilDate(year, month, day); ok {
				return date, true
			}
		}
	}

	for i := 0; i < monthScanBound; i++ {
		if month == 12 {
			month = 1
			year++
		} else {
			month++
		}
		for _, day := range days {
			if date, ok := civilDate(year, month, day); ok {
				return date, true
			}
		}
	}
	return "", false
}

// civilDate reports whether year/month/day is a real calendar date. Invalid
// days (e.g. February 31) are skipped, not clamped.
func civilDate(year, month, day int) (string, bool) {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return "", false
	}
	return date.Format(DateLayout), true
}

func sortedDistinct(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[i-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
