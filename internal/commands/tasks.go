package commands

import (
	"context"
	"strings"

	"github.com/Lickton/LinkFlow/internal/model"
	"github.com/Lickton/LinkFlow/internal/storage"
)

type TaskInput struct {
	ListID   string
	Title    string
	Detail   string
	DueDate  string
	DueTime  string
	Reminder *model.Reminder
	Repeat   *model.RepeatRule
	Actions  []model.ActionBinding
}

func (in TaskInput) toModel(id string) model.Task {
	return model.Task{
		ID:       id,
		ListID:   strings.TrimSpace(in.ListID),
		Title:    strings.TrimSpace(in.Title),
		Detail:   strings.TrimSpace(in.Detail),
		DueDate:  strings.TrimSpace(in.DueDate),
		DueTime:  strings.TrimSpace(in.DueTime),
		Reminder: in.Reminder,
		Repeat:   in.Repeat,
		Actions:  in.Actions,
	}
}

func (s *Service) CreateTask(ctx context.Context, in TaskInput) (model.Task, error) {
	task := in.toModel(s.newID("task"))
	task.CreatedAt = s.now()
	if err := task.Validate(); err != nil {
		return model.Task{}, invalidArg("create task: %v", err)
	}
	if err := s.repo.CreateTask(ctx, fromModelTask(task, s.now())); err != nil {
		return model.Task{}, storeErr("create task", err)
	}
	s.log.Debug().Str("task_id", task.ID).Msg("task created")
	s.wake()
	return task, nil
}

// SaveTask replaces the full task row; the creation timestamp and completion
// flag survive from the stored row.
func (s *Service) SaveTask(ctx context.Context, id string, in TaskInput) (model.Task, error) {
	existing, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, storeErr("save task", err)
	}
	task := in.toModel(id)
	task.Completed = existing.Completed
	task.CreatedAt = existing.CreatedAt
	if err := task.Validate(); err != nil {
		return model.Task{}, invalidArg("save task: %v", err)
	}
	if err := s.repo.UpdateTask(ctx, fromModelTask(task, s.now())); err != nil {
		return model.Task{}, storeErr("save task", err)
	}
	s.log.Debug().Str("task_id", id).Msg("task saved")
	s.wake()
	return task, nil
}

// ToggleTaskCompleted flips completion. Completing a repeating task with a
// due date spawns the next occurrence as a new task in the same transaction;
// a rule that yields no valid next date simply ends the chain.
func (s *Service) ToggleTaskCompleted(ctx context.Context, id string) (model.Task, error) {
	stored, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, storeErr("toggle task", err)
	}
	current := toModelTask(stored)
	completed := !current.Completed

	successor := s.nextOccurrence(current, completed)
	if err := s.repo.SetTaskCompleted(ctx, id, completed, successor); err != nil {
		return model.Task{}, storeErr("toggle task", err)
	}
	s.wake()

	current.Completed = completed
	return current, nil
}

func (s *Service) nextOccurrence(current model.Task, completed bool) *storage.Task {
	if !completed || current.Repeat == nil || current.DueDate == "" {
		return nil
	}
	nextDate, ok := current.Repeat.NextDueDate(current.DueDate)
	if !ok {
		s.log.Debug().Str("task_id", current.ID).Msg("repeat rule yields no next occurrence")
		return nil
	}
	sibling := current
	sibling.ID = s.newID("task")
	sibling.Completed = false
	sibling.DueDate = nextDate
	sibling.CreatedAt = s.now()
	out := fromModelTask(sibling, s.now())
	return &out
}

func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return storeErr("delete task", err)
	}
	s.log.Debug().Str("task_id", id).Msg("task deleted")
	s.wake()
	return nil
}
