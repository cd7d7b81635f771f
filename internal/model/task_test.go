package model

import (
	"testing"
	"time"
)

func validTask() *Task {
	now := time.Now()
	return &Task{
		ID:        "t-1",
		Title:     "Buy groceries",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTaskValidate(t *testing.T) {
	task := validTask()
	if err := task.Validate(); err != nil {
		t.Fatalf("valid task failed validation: %v", err)
	}
}

func TestTaskValidateRejectsMixedFlags(t *testing.T) {
	task := validTask()
	urgent := true
	task.Urgent = &urgent
	// Important left nil: one set, one unset.
	if err := task.Validate(); err == nil {
		t.Fatal("expected validation error for mixed urgent/important pair")
	}
}

func TestTaskValidateRejectsBadDueDate(t *testing.T) {
	task := validTask()
	task.DueDate = "2026-13-99"
	if err := task.Validate(); err == nil {
		t.Fatal("expected validation error for malformed due date")
	}
}

func TestQuadrantRoundTrip(t *testing.T) {
	quadrants := []Quadrant{Uncategorized, Do, Schedule, Delegate, Eliminate}
	for _, q := range quadrants {
		urgent, important := q.Flags()
		if got := QuadrantOf(urgent, important); got != q {
			t.Errorf("QuadrantOf(Flags(%v)) = %v, want %v", q, got, q)
		}
	}
}

func TestQuadrantOfPartialPairIsUncategorized(t *testing.T) {
	v := true
	if got := QuadrantOf(&v, nil); got != Uncategorized {
		t.Errorf("QuadrantOf(&true, nil) = %v, want Uncategorized", got)
	}
	if got := QuadrantOf(nil, &v); got != Uncategorized {
		t.Errorf("QuadrantOf(nil, &true) = %v, want Uncategorized", got)
	}
}

func TestSetQuadrantKeepsPairInvariant(t *testing.T) {
	task := validTask()
	task.SetQuadrant(Delegate)
	if task.Urgent == nil || task.Important == nil {
		t.Fatal("SetQuadrant(Delegate) left flags unset")
	}
	if !*task.Urgent || *task.Important {
		t.Errorf("Delegate flags = (%v, %v), want (true, false)", *task.Urgent, *task.Important)
	}

	task.SetQuadrant(Uncategorized)
	if task.Urgent != nil || task.Important != nil {
		t.Fatal("SetQuadrant(Uncategorized) should clear both flags")
	}
}

func TestTouchStrictlyIncreases(t *testing.T) {
	task := validTask()
	prev := task.UpdatedAt

	// Simulate a stalled clock: Touch with a time not after the current
	// timestamp must still move the timestamp forward.
	for i := 0; i < 5; i++ {
		task.Touch(prev)
		if !task.UpdatedAt.After(prev) {
			t.Fatalf("iteration %d: UpdatedAt %v not after previous %v", i, task.UpdatedAt, prev)
		}
		prev = task.UpdatedAt
	}
}

func TestContentKeyIgnoresSubSecond(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	a := validTask()
	a.UpdatedAt = base
	b := validTask()
	b.UpdatedAt = base.Add(300 * time.Millisecond)

	if a.ContentKey() != b.ContentKey() {
		t.Errorf("keys differ across sub-second timestamps: %q vs %q", a.ContentKey(), b.ContentKey())
	}

	b.UpdatedAt = base.Add(2 * time.Second)
	if a.ContentKey() == b.ContentKey() {
		t.Error("keys equal across distinct seconds")
	}
}

func TestDueAt(t *testing.T) {
	task := validTask()
	if !task.DueAt(time.UTC).IsZero() {
		t.Error("task without due date should have zero DueAt")
	}

	task.DueDate = "2026-09-01"
	task.DueTime = "17:30"
	got := task.DueAt(time.UTC)
	want := time.Date(2026, 9, 1, 17, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DueAt = %v, want %v", got, want)
	}

	task.DueTime = ""
	got = task.DueAt(time.UTC)
	if got.Day() != 1 || got.Hour() != 23 {
		t.Errorf("dateless-time DueAt = %v, want end of Sep 1", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	task := validTask()
	task.SetQuadrant(Do)
	days := 3
	task.AutoEscalateDays = &days

	c := task.Clone()
	*c.Urgent = false
	*c.AutoEscalateDays = 9

	if !*task.Urgent {
		t.Error("mutating clone's Urgent changed the original")
	}
	if *task.AutoEscalateDays != 3 {
		t.Error("mutating clone's AutoEscalateDays changed the original")
	}
}
