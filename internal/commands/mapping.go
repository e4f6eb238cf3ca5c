package commands

import (
	"strings"
	"time"

	"github.com/Lickton/LinkFlow/internal/model"
	"github.com/Lickton/LinkFlow/internal/storage"
)

func toModelTask(in storage.Task) model.Task {
	out := model.Task{
		ID:        in.ID,
		ListID:    deref(in.ListID),
		Title:     in.Title,
		Detail:    deref(in.Detail),
		Completed: in.Completed,
		DueDate:   deref(in.DueDate),
		DueTime:   deref(in.DueTime),
		CreatedAt: in.CreatedAt,
	}
	if in.ReminderEnabled {
		out.Reminder = &model.Reminder{Type: model.ReminderTypeRelative, OffsetMinutes: in.ReminderOffsetMinutes}
	}
	if in.RepeatType != nil {
		out.Repeat = &model.RepeatRule{
			Type:        *in.RepeatType,
			DaysOfWeek:  in.RepeatDaysOfWeek,
			DaysOfMonth: in.RepeatDaysOfMonth,
		}
	}
	for _, action := range in.Actions {
		out.Actions = append(out.Actions, model.ActionBinding{SchemeID: action.SchemeID, Params: action.Params})
	}
	return out
}

func fromModelTask(in model.Task, updatedAt time.Time) storage.Task {
	out := storage.Task{
		ID:        in.ID,
		ListID:    optional(in.ListID),
		Title:     in.Title,
		Detail:    optional(strings.TrimSpace(in.Detail)),
		Completed: in.Completed,
		DueDate:   optional(in.DueDate),
		DueTime:   optional(in.DueTime),
		CreatedAt: in.CreatedAt,
		UpdatedAt: updatedAt,
	}
	if in.Reminder != nil {
		normalized := in.Reminder.Normalized()
		out.ReminderEnabled = true
		out.ReminderOffsetMinutes = normalized.OffsetMinutes
	}
	if in.Repeat != nil {
		ruleType := in.Repeat.Type
		out.RepeatType = &ruleType
		out.RepeatDaysOfWeek = in.Repeat.DaysOfWeek
		out.RepeatDaysOfMonth = in.Repeat.DaysOfMonth
	}
	for _, action := range in.Actions {
		out.Actions = append(out.Actions, storage.TaskAction{SchemeID: action.SchemeID, Params: action.Params})
	}
	return out
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
