package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrEmptyTitle     = errors.New("model: task title is required")
	ErrInvalidDueDate = errors.New("model: invalid due date")
	ErrInvalidDueTime = errors.New("model: invalid due time")
)

type ActionBinding struct {
	SchemeID string
	Params   []string
}

type Task struct {
	ID        string
	ListID    string
	Title     string
	Detail    string
	Completed bool
	DueDate   string
	DueTime   string
	Reminder  *Reminder
	Repeat    *RepeatRule
	Actions   []ActionBinding
	CreatedAt time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DateLayout, t.DueDate); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDueDate, t.DueDate)
		}
	}
	if t.DueTime != "" {
		if _, err := time.Parse(TimeLayout, t.DueTime); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDueTime, t.DueTime)
		}
	}
	if t.Reminder != nil {
		if err := t.Reminder.Validate(); err != nil {
			return err
		}
	}
	if t.Repeat != nil {
		if err := t.Repeat.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type List struct {
	ID   string
	Name string
	Icon string
}

func (l List) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return errors.New("model: list id is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("model: list name is required")
	}
	return nil
}

type Scheme struct {
	ID        string
	Name      string
	Icon      string
	Template  string
	Kind      string
	ParamType string
}

func (s Scheme) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("model: scheme id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("model: scheme name is required")
	}
	if strings.TrimSpace(s.Template) == "" {
		return errors.New("model: scheme template is required")
	}
	return nil
}

// NormalizeParamType collapses unknown parameter types to "string".
func NormalizeParamType(value string) string {
	if strings.TrimSpace(value) == "number" {
		return "number"
	}
	return "string"
}
