// Package model defines the entities persisted by the sync engine: tasks,
// task groups, and the small scalar settings stored alongside them.
//
// The structures are wire-compatible with the remote document store: flat
// fields, last-write-wins semantics, and an updated_at timestamp that acts
// as the sole conflict signal across devices.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates (due dates).
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for times of day (due times).
const TimeLayout = "15:04"

// Task represents a single to-do item.
//
// Urgent and Important form a pair: both nil means the task has not been
// prioritized yet (the Uncategorized quadrant), both non-nil means it has.
// A mix of one set and one unset is invalid; Validate rejects it and the
// CRUD layer never produces it.
type Task struct {
	// ===== Identity =====
	ID string `json:"id"`

	// ===== Content =====
	Title    string `json:"title"`
	Notes    string `json:"notes,omitempty"`
	Location string `json:"location,omitempty"`

	// ===== Prioritization (Eisenhower quadrant) =====
	Urgent    *bool `json:"urgent"`
	Important *bool `json:"important"`

	// ===== Scheduling =====
	DueDate          string `json:"due_date,omitempty"` // YYYY-MM-DD, empty = no due date
	DueTime          string `json:"due_time,omitempty"` // HH:MM, empty = no due time
	AutoEscalateDays *int   `json:"auto_escalate_days,omitempty"`

	// ===== Organization =====
	GroupID string `json:"group_id,omitempty"` // empty = ungrouped
	Done    bool   `json:"done"`
	Order   int    `json:"order"`

	// ===== Sync bookkeeping =====
	// Pending marks an entity whose last cloud-mode write did not reach the
	// remote store. It is cleared by the next successful flush.
	Pending bool `json:"pending,omitempty"`

	// ===== Timestamps (conflict resolution) =====
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the Task has valid field values.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if (t.Urgent == nil) != (t.Important == nil) {
		return fmt.Errorf("urgent and important must be set together")
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DateLayout, t.DueDate); err != nil {
			return fmt.Errorf("invalid due_date %q: %w", t.DueDate, err)
		}
	}
	if t.DueTime != "" {
		if _, err := time.Parse(TimeLayout, t.DueTime); err != nil {
			return fmt.Errorf("invalid due_time %q: %w", t.DueTime, err)
		}
	}
	if t.AutoEscalateDays != nil && *t.AutoEscalateDays < 0 {
		return fmt.Errorf("auto_escalate_days must be non-negative (got %d)", *t.AutoEscalateDays)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if t.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

// Quadrant returns the Eisenhower quadrant derived from the urgent/important
// pair. Tasks with the pair unset are Uncategorized.
func (t *Task) Quadrant() Quadrant {
	return QuadrantOf(t.Urgent, t.Important)
}

// SetQuadrant rewrites the urgent/important pair from a quadrant value,
// keeping the both-set-or-both-unset invariant by construction.
func (t *Task) SetQuadrant(q Quadrant) {
	t.Urgent, t.Important = q.Flags()
}

// Touch bumps UpdatedAt to now, guaranteeing a strict increase even when
// the clock has not advanced since the previous mutation.
func (t *Task) Touch(now time.Time) {
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Millisecond)
	}
	t.UpdatedAt = now
}

// ContentKey returns the equality key used to decide whether a local task
// and a remote task are the same record: title plus updated timestamp
// truncated to the second (the wire format's resolution).
func (t *Task) ContentKey() string {
	return fmt.Sprintf("%s|%d", t.Title, t.UpdatedAt.Unix())
}

// DueAt resolves the due date and time into a single instant in the given
// location. Returns the zero time if the task has no due date. A missing
// due time resolves to end of day so the task stays "due today" all day.
func (t *Task) DueAt(loc *time.Location) time.Time {
	if t.DueDate == "" {
		return time.Time{}
	}
	d, err := time.ParseInLocation(DateLayout, t.DueDate, loc)
	if err != nil {
		return time.Time{}
	}
	if t.DueTime == "" {
		return d.Add(24*time.Hour - time.Second)
	}
	tod, err := time.Parse(TimeLayout, t.DueTime)
	if err != nil {
		return d
	}
	return d.Add(time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.Urgent != nil {
		v := *t.Urgent
		c.Urgent = &v
	}
	if t.Important != nil {
		v := *t.Important
		c.Important = &v
	}
	if t.AutoEscalateDays != nil {
		v := *t.AutoEscalateDays
		c.AutoEscalateDays = &v
	}
	return &c
}

// TaskGroup is a named, colored bucket that tasks optionally belong to.
//
// Deleting a group does not cascade to its tasks; they keep a dangling
// GroupID that readers treat as ungrouped.
type TaskGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	Order     int       `json:"order"`
	Pending   bool      `json:"pending,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the TaskGroup has valid field values.
func (g *TaskGroup) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("id is required")
	}
	if g.Name == "" {
		return fmt.Errorf("name is required")
	}
	if g.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	return nil
}

// Clone returns a copy of the group.
func (g *TaskGroup) Clone() *TaskGroup {
	c := *g
	return &c
}
