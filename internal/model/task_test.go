package model

import (
	"errors"
	"testing"
	"time"
)

func validTask() Task {
	return Task{
		ID:        "task-1",
		Title:     "Prepare launch checklist",
		DueDate:   "2024-06-15",
		DueTime:   "09:30",
		Reminder:  &Reminder{Type: ReminderTypeRelative, OffsetMinutes: 10},
		Repeat:    &RepeatRule{Type: RepeatWeekly, DaysOfWeek: []int{1}},
		CreatedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestTaskValidate(t *testing.T) {
	if err := validTask().Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Task)
		wantErr error
	}{
		{name: "empty title", mutate: func(task *Task) { task.Title = "   " }, wantErr: ErrEmptyTitle},
		{name: "bad due date", mutate: func(task *Task) { task.DueDate = "15/06/2024" }, wantErr: ErrInvalidDueDate},
		{name: "bad due time", mutate: func(task *Task) { task.DueTime = "9am" }, wantErr: ErrInvalidDueTime},
		{name: "absolute reminder", mutate: func(task *Task) { task.Reminder = &Reminder{Type: "absolute"} }, wantErr: ErrUnsupportedReminder},
		{name: "weekly repeat without days", mutate: func(task *Task) { task.Repeat = &RepeatRule{Type: RepeatWeekly} }, wantErr: ErrEmptyWeekdays},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := validTask()
			tc.mutate(&task)
			if err := task.Validate(); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTaskValidateAllowsBareTask(t *testing.T) {
	task := Task{ID: "task-2", Title: "Buy milk", CreatedAt: time.Now()}
	if err := task.Validate(); err != nil {
		t.Fatalf("bare task rejected: %v", err)
	}
}

func TestNormalizeParamType(t *testing.T) {
	if got := NormalizeParamType("number"); got != "number" {
		t.Fatalf("number mapped to %q", got)
	}
	for _, in := range []string{"", "string", "bool", "anything"} {
		if got := NormalizeParamType(in); got != "string" {
			t.Fatalf("%q mapped to %q, want string", in, got)
		}
	}
}
