package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Lickton/LinkFlow/internal/model"
	"github.com/Lickton/LinkFlow/internal/storage"
)

const backupVersion = 1

// BackupPayload is the on-disk backup format. Version gates imports so a
// future layout change cannot be read silently as the wrong shape.
type BackupPayload struct {
	Version    int         `json:"version"`
	ExportedAt string      `json:"exportedAt"`
	Snapshot   AppSnapshot `json:"snapshot"`
}

type AppSnapshot struct {
	Lists   []ListPayload   `json:"lists"`
	Tasks   []TaskPayload   `json:"tasks"`
	Schemes []SchemePayload `json:"schemes"`
}

type ListPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type SchemePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Template  string `json:"template"`
	Kind      string `json:"kind"`
	ParamType string `json:"paramType"`
}

type TaskPayload struct {
	ID        string           `json:"id"`
	ListID    *string          `json:"listId"`
	Title     string           `json:"title"`
	Detail    *string          `json:"detail"`
	Completed bool             `json:"completed"`
	DueDate   *string          `json:"dueDate"`
	DueTime   *string          `json:"time"`
	Reminder  *ReminderPayload `json:"reminder"`
	Repeat    *RepeatPayload   `json:"repeat"`
	Actions   []ActionPayload  `json:"actions,omitempty"`
}

type ReminderPayload struct {
	Type          string `json:"type"`
	OffsetMinutes int    `json:"offsetMinutes"`
}

type RepeatPayload struct {
	Type        string `json:"type"`
	DaysOfWeek  []int  `json:"daysOfWeek,omitempty"`
	DaysOfMonth []int  `json:"daysOfMonth,omitempty"`
}

type ActionPayload struct {
	SchemeID string   `json:"schemeId"`
	Params   []string `json:"params"`
}

// Snapshot returns the full durable state in backup shape.
func (s *Service) Snapshot(ctx context.Context) (AppSnapshot, error) {
	stored, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return AppSnapshot{}, storeErr("snapshot", err)
	}
	return snapshotPayload(stored), nil
}

func (s *Service) ExportBackup(ctx context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", invalidArg("export backup: path is required")
	}
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	payload := BackupPayload{
		Version:    backupVersion,
		ExportedAt: s.now().UTC().Format(time.RFC3339),
		Snapshot:   snapshot,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", &CommandError{Code: ErrCodeInternal, Message: fmt.Sprintf("export backup: %v", err)}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &CommandError{Code: ErrCodeInternal, Message: fmt.Sprintf("export backup: %v", err)}
	}
	s.log.Info().Str("path", path).Int("tasks", len(snapshot.Tasks)).Msg("backup exported")
	return path, nil
}

// ImportBackup replaces all durable state with the file's snapshot in one
// transaction. The fired-reminder ledger is cleared alongside, so imported
// reminders are eligible to fire fresh.
func (s *Service) ImportBackup(ctx context.Context, path string) (AppSnapshot, error) {
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return AppSnapshot{}, invalidArg("import backup: %v", err)
	}
	var payload BackupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return AppSnapshot{}, invalidArg("import backup: malformed payload: %v", err)
	}
	if payload.Version != backupVersion {
		return AppSnapshot{}, invalidArg("import backup: unsupported version %d", payload.Version)
	}
	if len(payload.Snapshot.Lists) == 0 {
		return AppSnapshot{}, invalidArg("import backup: snapshot has no lists")
	}

	snapshot, err := s.snapshotFromPayload(payload.Snapshot)
	if err != nil {
		return AppSnapshot{}, err
	}
	if err := s.repo.ImportSnapshot(ctx, snapshot); err != nil {
		return AppSnapshot{}, storeErr("import backup", err)
	}
	s.log.Info().Str("path", path).Int("tasks", len(snapshot.Tasks)).Msg("backup imported")
	s.wake()
	return payload.Snapshot, nil
}

func snapshotPayload(in storage.Snapshot) AppSnapshot {
	out := AppSnapshot{
		Lists:   make([]ListPayload, 0, len(in.Lists)),
		Tasks:   make([]TaskPayload, 0, len(in.Tasks)),
		Schemes: make([]SchemePayload, 0, len(in.Schemes)),
	}
	for _, list := range in.Lists {
		out.Lists = append(out.Lists, ListPayload(list))
	}
	for _, scheme := range in.Schemes {
		out.Schemes = append(out.Schemes, SchemePayload(scheme))
	}
	for _, task := range in.Tasks {
		payload := TaskPayload{
			ID:        task.ID,
			ListID:    task.ListID,
			Title:     task.Title,
			Detail:    task.Detail,
			Completed: task.Completed,
			DueDate:   task.DueDate,
			DueTime:   task.DueTime,
		}
		if task.ReminderEnabled {
			payload.Reminder = &ReminderPayload{Type: model.ReminderTypeRelative, OffsetMinutes: task.ReminderOffsetMinutes}
		}
		if task.RepeatType != nil {
			payload.Repeat = &RepeatPayload{Type: *task.RepeatType, DaysOfWeek: task.RepeatDaysOfWeek, DaysOfMonth: task.RepeatDaysOfMonth}
		}
		for _, action := range task.Actions {
			payload.Actions = append(payload.Actions, ActionPayload(action))
		}
		out.Tasks = append(out.Tasks, payload)
	}
	return out
}

func (s *Service) snapshotFromPayload(in AppSnapshot) (storage.Snapshot, error) {
	now := s.now()
	out := storage.Snapshot{
		Lists:   make([]storage.List, 0, len(in.Lists)),
		Tasks:   make([]storage.Task, 0, len(in.Tasks)),
		Schemes: make([]storage.Scheme, 0, len(in.Schemes)),
	}
	for _, list := range in.Lists {
		if list.ID == "" || list.Name == "" {
			return storage.Snapshot{}, invalidArg("import backup: list with empty id or name")
		}
		out.Lists = append(out.Lists, storage.List(list))
	}
	for _, scheme := range in.Schemes {
		out.Schemes = append(out.Schemes, storage.Scheme(scheme))
	}
	for i, payload := range in.Tasks {
		task := model.Task{
			ID:        payload.ID,
			ListID:    deref(payload.ListID),
			Title:     payload.Title,
			Detail:    deref(payload.Detail),
			Completed: payload.Completed,
			DueDate:   deref(payload.DueDate),
			DueTime:   deref(payload.DueTime),
		}
		if payload.Reminder != nil {
			task.Reminder = &model.Reminder{Type: payload.Reminder.Type, OffsetMinutes: payload.Reminder.OffsetMinutes}
		}
		if payload.Repeat != nil {
			task.Repeat = &model.RepeatRule{Type: payload.Repeat.Type, DaysOfWeek: payload.Repeat.DaysOfWeek, DaysOfMonth: payload.Repeat.DaysOfMonth}
		}
		for _, action := range payload.Actions {
			task.Actions = append(task.Actions, model.ActionBinding(action))
		}
		if err := task.Validate(); err != nil {
			return storage.Snapshot{}, invalidArg("import backup: task %q: %v", payload.ID, err)
		}
		// Insertion order stands in for the lost creation timestamps, so
		// tie-breaks stay stable after a restore.
		task.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		out.Tasks = append(out.Tasks, fromModelTask(task, now))
	}
	return out, nil
}
