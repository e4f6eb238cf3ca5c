// Package commands is the mutation boundary in front of the store. Handlers
// validate input, commit, and then raise the scheduler wakeup so the loop
// never sleeps past a data change.
package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Lickton/LinkFlow/internal/scheduler"
	"github.com/Lickton/LinkFlow/internal/storage"
)

type Scheduler interface {
	Wakeup()
	DebugNext(ctx context.Context) (*scheduler.NextReminder, error)
}

type Service struct {
	repo  storage.Repository
	sched Scheduler
	log   zerolog.Logger

	now   func() time.Time
	newID func(prefix string) string
}

func NewService(repo storage.Repository, sched Scheduler, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		sched: sched,
		log:   log.With().Str("component", "commands").Logger(),
		now:   time.Now,
		newID: func(prefix string) string { return prefix + "_" + uuid.NewString() },
	}
}

func (s *Service) wake() {
	s.sched.Wakeup()
}

// DebugNextReminder exposes the currently-resolved candidate and its delay
// for operational visibility. Nil means no pending reminder.
func (s *Service) DebugNextReminder(ctx context.Context) (*scheduler.NextReminder, error) {
	return s.sched.DebugNext(ctx)
}
