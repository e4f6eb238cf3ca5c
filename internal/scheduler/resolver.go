package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Lickton/LinkFlow/internal/model"
	"github.com/Lickton/LinkFlow/internal/storage"
)

const (
	// Grace bounds how far past its remind instant a reminder may still
	// fire. Anything older is treated as missed and skipped.
	Grace = 10 * time.Minute

	// FiredRetention bounds how long ledger rows are kept before the lazy
	// purge removes them.
	FiredRetention = 30 * 24 * time.Hour
)

// Candidate is the single next reminder to fire, as resolved at some instant.
type Candidate struct {
	TaskID   string
	Title    string
	Detail   string
	ListName string
	DueDate  string
	DueTime  string
	RemindAt int64
}

// Resolver computes the soonest not-yet-fired, not-too-stale reminder across
// all tasks. It is stateless between calls; every pass re-reads the store.
type Resolver struct {
	repo storage.Repository
	loc  *time.Location
}

func NewResolver(repo storage.Repository, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{repo: repo, loc: loc}
}

// Next returns the next candidate relative to now (epoch milliseconds), or
// nil when nothing qualifies. Ledger rows past retention are purged first so
// cleanup piggybacks on every scheduling pass.
func (r *Resolver) Next(ctx context.Context, now int64) (*Candidate, error) {
	if err := r.repo.PurgeFiredReminders(ctx, now-FiredRetention.Milliseconds()); err != nil {
		return nil, fmt.Errorf("purge fired reminders: %w", err)
	}

	rows, err := r.repo.ListReminderCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminder candidates: %w", err)
	}

	var next *Candidate
	for _, row := range rows {
		remindAt, ok := model.RemindInstant(row.DueDate, row.DueTime, row.OffsetMinutes, r.loc)
		if !ok {
			continue
		}
		if remindAt < now-Grace.Milliseconds() {
			continue
		}
		fired, err := r.repo.IsReminderFired(ctx, row.TaskID, remindAt)
		if err != nil {
			return nil, fmt.Errorf("check fired reminder: %w", err)
		}
		if fired {
			continue
		}
		// Strictly-less keeps the first row on ties; rows arrive in
		// creation order, so the earliest-created task wins.
		if next == nil || remindAt < next.RemindAt {
			next = &Candidate{
				TaskID:   row.TaskID,
				Title:    row.Title,
				Detail:   row.Detail,
				ListName: row.ListName,
				DueDate:  row.DueDate,
				DueTime:  row.DueTime,
				RemindAt: remindAt,
			}
		}
	}
	return next, nil
}
