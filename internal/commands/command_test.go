package commands

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Lickton/LinkFlow/internal/model"
	"github.com/Lickton/LinkFlow/internal/scheduler"
	"github.com/Lickton/LinkFlow/internal/storage"
)

type fakeScheduler struct {
	wakes atomic.Int32
}

func (f *fakeScheduler) Wakeup() { f.wakes.Add(1) }

func (f *fakeScheduler) DebugNext(context.Context) (*scheduler.NextReminder, error) {
	return nil, nil
}

func setupService(t *testing.T) (*Service, *storage.SQLiteRepository, *fakeScheduler) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "commands-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := storage.MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	sched := &fakeScheduler{}
	svc := NewService(repo, sched, zerolog.Nop())
	return svc, repo, sched
}

func commandCode(t *testing.T, err error) ErrorCode {
	t.Helper()
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	return cmdErr.Code
}

func TestCreateTaskValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   TaskInput
	}{
		{name: "empty title", in: TaskInput{Title: "   "}},
		{name: "bad due date", in: TaskInput{Title: "x", DueDate: "03/02/2026"}},
		{name: "weekly without days", in: TaskInput{Title: "x", Repeat: &model.RepeatRule{Type: model.RepeatWeekly}}},
		{name: "unsupported reminder", in: TaskInput{Title: "x", Reminder: &model.Reminder{Type: "absolute"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, tc.in)
			if code := commandCode(t, err); code != ErrCodeInvalidArgument {
				t.Fatalf("got code %q", code)
			}
		})
	}
}

func TestCreateTaskPersistsAndWakes(t *testing.T) {
	svc, repo, sched := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskInput{
		Title:    "  Review PR  ",
		DueDate:  "2026-03-02",
		DueTime:  "13:00",
		Reminder: &model.Reminder{Type: model.ReminderTypeRelative, OffsetMinutes: -5},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if !strings.HasPrefix(created.ID, "task_") {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if created.Title != "Review PR" {
		t.Fatalf("title not trimmed: %q", created.Title)
	}

	stored, err := repo.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !stored.ReminderEnabled || stored.ReminderOffsetMinutes != 0 {
		t.Fatalf("negative offset must be clamped to zero, got %d", stored.ReminderOffsetMinutes)
	}
	if sched.wakes.Load() == 0 {
		t.Fatalf("create must raise the scheduler wakeup")
	}
}

func TestToggleCompletedSpawnsNextOccurrence(t *testing.T) {
	svc, repo, sched := setupService(t)
	ctx := context.Background()
	if err := repo.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	created, err := svc.CreateTask(ctx, TaskInput{
		Title:    "Daily standup",
		DueDate:  "2026-03-02",
		DueTime:  "09:30",
		Reminder: &model.Reminder{Type: model.ReminderTypeRelative, OffsetMinutes: 10},
		Repeat:   &model.RepeatRule{Type: model.RepeatDaily},
		Actions:  []model.ActionBinding{{SchemeID: "scheme_wemeet", Params: []string{"42"}}},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	sched.wakes.Store(0)

	toggled, err := svc.ToggleTaskCompleted(ctx, created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Completed {
		t.Fatalf("expected toggled task to be completed")
	}
	if sched.wakes.Load() == 0 {
		t.Fatalf("toggle must raise the scheduler wakeup")
	}

	tasks, err := repo.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected original plus successor, got %d tasks", len(tasks))
	}

	var successor *storage.Task
	for i := range tasks {
		if tasks[i].ID != created.ID {
			successor = &tasks[i]
		}
	}
	if successor == nil {
		t.Fatalf("successor not found")
	}
	if successor.Completed {
		t.Fatalf("successor must start incomplete")
	}
	if got := *successor.DueDate; got != "2026-03-03" {
		t.Fatalf("successor due date %q", got)
	}
	if successor.Title != "Daily standup" || !successor.ReminderEnabled || successor.ReminderOffsetMinutes != 10 {
		t.Fatalf("successor must carry title and reminder: %#v", successor)
	}
	if len(successor.Actions) != 1 || successor.Actions[0].SchemeID != "scheme_wemeet" {
		t.Fatalf("successor must carry action bindings: %#v", successor.Actions)
	}
}

func TestToggleWithoutRepeatDoesNotSpawn(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskInput{Title: "One-off", DueDate: "2026-03-02"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := svc.ToggleTaskCompleted(ctx, created.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	// Un-completing must not spawn either.
	if _, err := svc.ToggleTaskCompleted(ctx, created.ID); err != nil {
		t.Fatalf("toggle back: %v", err)
	}

	tasks, err := repo.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected a single task, got %d", len(tasks))
	}
}

func TestUncompletingRepeatTaskDoesNotSpawn(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskInput{
		Title:   "Weekly review",
		DueDate: "2026-03-02",
		Repeat:  &model.RepeatRule{Type: model.RepeatDaily},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := svc.ToggleTaskCompleted(ctx, created.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.ToggleTaskCompleted(ctx, created.ID); err != nil {
		t.Fatalf("uncomplete: %v", err)
	}

	tasks, err := repo.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	// One spawn from the completing toggle, none from the un-completing one.
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	svc, _, _ := setupService(t)
	err := svc.DeleteTask(context.Background(), "task_missing")
	if code := commandCode(t, err); code != ErrCodeNotFound {
		t.Fatalf("got code %q", code)
	}
}

func TestDefaultListCannotBeDeleted(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()
	if err := repo.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := svc.DeleteList(ctx, storage.DefaultListID)
	if code := commandCode(t, err); code != ErrCodeInvalidArgument {
		t.Fatalf("got code %q", code)
	}

	if err := svc.DeleteList(ctx, "list_work"); err != nil {
		t.Fatalf("deleting a regular list: %v", err)
	}
}

func TestCreateListDefaults(t *testing.T) {
	svc, _, _ := setupService(t)
	list, err := svc.CreateList(context.Background(), ListInput{Name: " 阅读 "})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if list.Name != "阅读" || list.Icon != defaultListIcon {
		t.Fatalf("unexpected list %#v", list)
	}
	if !strings.HasPrefix(list.ID, "list_") {
		t.Fatalf("unexpected id %q", list.ID)
	}
}

func TestCreateSchemeDefaults(t *testing.T) {
	svc, _, _ := setupService(t)
	scheme, err := svc.CreateScheme(context.Background(), SchemeInput{
		Name:      "搜索",
		Template:  "zhihu://search?q={param}",
		ParamType: "boolean",
	})
	if err != nil {
		t.Fatalf("create scheme: %v", err)
	}
	if scheme.Icon != defaultSchemeIcon || scheme.Kind != defaultSchemeKind {
		t.Fatalf("defaults not applied: %#v", scheme)
	}
	if scheme.ParamType != "string" {
		t.Fatalf("unknown param type must normalize to string, got %q", scheme.ParamType)
	}
}
