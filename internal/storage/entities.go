package storage

import "time"

type Task struct {
	ID                    string
	ListID                *string
	Title                 string
	Detail                *string
	Completed             bool
	DueDate               *string
	DueTime               *string
	ReminderEnabled       bool
	ReminderOffsetMinutes int
	RepeatType            *string
	RepeatDaysOfWeek      []int
	RepeatDaysOfMonth     []int
	Actions               []TaskAction
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type List struct {
	ID   string
	Name string
	Icon string
}

type Scheme struct {
	ID        string
	Name      string
	Icon      string
	Template  string
	Kind      string
	ParamType string
}

type TaskAction struct {
	SchemeID string
	Params   []string
}

type FiredReminder struct {
	TaskID   string
	RemindAt int64
	FiredAt  int64
}

// ReminderCandidate is the projection the scheduler resolves over: incomplete
// tasks that carry a due date, a due time, and an enabled reminder.
type ReminderCandidate struct {
	TaskID        string
	Title         string
	Detail        string
	ListName      string
	DueDate       string
	DueTime       string
	OffsetMinutes int
}

type TaskListFilter struct {
	ListID    string
	Completed *bool
	Limit     int
	Offset    int
}

// Snapshot is the full durable state, used by backup export/import.
type Snapshot struct {
	Lists   []List
	Tasks   []Task
	Schemes []Scheme
}
