package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)

	// SetTaskCompleted flips completion and, when successor is non-nil,
	// inserts it (action bindings included) in the same transaction. This is
	// how recurrence advancement stays atomic with the completing write.
	SetTaskCompleted(ctx context.Context, id string, completed bool, successor *Task) error

	CreateList(ctx context.Context, in List) error
	UpdateList(ctx context.Context, in List) error
	DeleteList(ctx context.Context, id string) error
	ListLists(ctx context.Context) ([]List, error)

	CreateScheme(ctx context.Context, in Scheme) error
	UpdateScheme(ctx context.Context, in Scheme) error
	DeleteScheme(ctx context.Context, id string) error
	ListSchemes(ctx context.Context) ([]Scheme, error)

	ListReminderCandidates(ctx context.Context) ([]ReminderCandidate, error)
	IsReminderFired(ctx context.Context, taskID string, remindAt int64) (bool, error)
	// MarkReminderFired is insert-if-absent; it reports whether this call
	// performed the insert, i.e. whether the caller owns the firing.
	MarkReminderFired(ctx context.Context, taskID string, remindAt, firedAt int64) (bool, error)
	PurgeFiredReminders(ctx context.Context, threshold int64) error

	LoadSnapshot(ctx context.Context) (Snapshot, error)
	ImportSnapshot(ctx context.Context, in Snapshot) error
}
