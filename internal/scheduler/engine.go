package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lickton/LinkFlow/internal/notify"
	"github.com/Lickton/LinkFlow/internal/storage"
)

const retryBackoff = 5 * time.Second

// Engine is the long-lived scheduling loop. It resolves the next reminder,
// sleeps until it is due while racing the wakeup signal, then claims the
// firing through the ledger and dispatches a notification.
type Engine struct {
	resolver   *Resolver
	repo       storage.Repository
	dispatcher notify.Dispatcher
	log        zerolog.Logger

	// wakeup is single-slot and coalescing: raises before the loop consumes
	// the pending signal collapse into one wake, and a raise concurrent with
	// the loop entering a wait is never lost.
	wakeup chan struct{}

	now     func() time.Time
	backoff time.Duration
}

func NewEngine(repo storage.Repository, dispatcher notify.Dispatcher, log zerolog.Logger, loc *time.Location) *Engine {
	return &Engine{
		resolver:   NewResolver(repo, loc),
		repo:       repo,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "scheduler").Logger(),
		wakeup:     make(chan struct{}, 1),
		now:        time.Now,
		backoff:    retryBackoff,
	}
}

// Wakeup forces the loop to abandon its current sleep and re-resolve. Every
// task-mutating command raises it after committing.
func (e *Engine) Wakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is cancelled. No iteration failure is fatal:
// transient store errors back off and retry.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info().Msg("scheduler started")
	var timer *time.Timer
	defer func() {
		if timer != nil {
			stopTimer(timer)
		}
		e.log.Info().Msg("scheduler stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		candidate, err := e.resolver.Next(ctx, e.now().UnixMilli())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.Error().Err(err).Dur("backoff", e.backoff).Msg("resolve next reminder failed")
			timer = resetTimer(timer, e.backoff)
			select {
			case <-e.wakeup:
			case <-timer.C:
			case <-ctx.Done():
				return
			}
			continue
		}

		if candidate == nil {
			// Idle: nothing to arm, wait for a data change.
			select {
			case <-e.wakeup:
				continue
			case <-ctx.Done():
				return
			}
		}

		delay := time.Duration(candidate.RemindAt-e.now().UnixMilli()) * time.Millisecond
		if delay > 0 {
			timer = resetTimer(timer, delay)
			select {
			case <-e.wakeup:
				// Data changed under us; the candidate may be stale.
				continue
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}

		e.fire(ctx, candidate)
	}
}

// fire claims the (task, remind instant) pair in the ledger and dispatches
// the notification. Losing the claim means another path already fired it;
// dispatch failure after a won claim is logged and never retried.
func (e *Engine) fire(ctx context.Context, candidate *Candidate) {
	firedAt := e.now().UnixMilli()
	claimed, err := e.repo.MarkReminderFired(ctx, candidate.TaskID, candidate.RemindAt, firedAt)
	if err != nil {
		e.log.Error().Err(err).Str("task_id", candidate.TaskID).Msg("claim reminder failed")
		return
	}
	if !claimed {
		e.log.Debug().Str("task_id", candidate.TaskID).Int64("remind_at", candidate.RemindAt).Msg("reminder already claimed")
		return
	}

	title := "任务提醒：" + candidate.Title
	if err := e.dispatcher.Show(title, notificationBody(candidate)); err != nil {
		e.log.Error().Err(err).Str("task_id", candidate.TaskID).Msg("dispatch notification failed")
		return
	}
	e.log.Info().
		Str("task_id", candidate.TaskID).
		Int64("remind_at", candidate.RemindAt).
		Int64("fired_at", firedAt).
		Msg("reminder fired")
}

// notificationBody prefers the task detail; otherwise it falls back to
// "{listName} · {dueDate} {dueTime}", dropping the list prefix for unlisted
// tasks.
func notificationBody(candidate *Candidate) string {
	if candidate.Detail != "" {
		return candidate.Detail
	}
	prefix := ""
	if candidate.ListName != "" {
		prefix = candidate.ListName + " · "
	}
	return prefix + candidate.DueDate + " " + candidate.DueTime
}

// NextReminder is the diagnostic view of the currently-resolved candidate.
type NextReminder struct {
	TaskID   string
	Title    string
	RemindAt int64
	DueDate  string
	DueTime  string
	Now      int64
	Delay    time.Duration
}

// DebugNext resolves the next candidate without arming or firing anything.
func (e *Engine) DebugNext(ctx context.Context) (*NextReminder, error) {
	now := e.now().UnixMilli()
	candidate, err := e.resolver.Next(ctx, now)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, nil
	}
	delay := time.Duration(candidate.RemindAt-now) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	return &NextReminder{
		TaskID:   candidate.TaskID,
		Title:    candidate.Title,
		RemindAt: candidate.RemindAt,
		DueDate:  candidate.DueDate,
		DueTime:  candidate.DueTime,
		Now:      now,
		Delay:    delay,
	}, nil
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
