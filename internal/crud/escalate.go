package crud

import (
	"context"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

// EscalateDueTasks promotes tasks whose due date is within their
// auto-escalate threshold to the urgent side of the matrix.
//
// Only open tasks with a due date and an AutoEscalateDays threshold are
// considered; tasks already marked urgent are left alone. Importance is
// preserved: Schedule becomes Do, Eliminate becomes Delegate, and an
// unprioritized task becomes Do. Returns the number of tasks promoted.
//
// The daemon runs this sweep on a timer; it can also be invoked manually.
func (s *Service) EscalateDueTasks(ctx context.Context, session *model.AuthSession, now time.Time) (int, error) {
	s.tasksMu.Lock()
	tasks, err := s.local.ReadAllTasks(ctx)
	s.tasksMu.Unlock()
	if err != nil {
		return 0, err
	}

	var promote []string
	quadrants := make(map[string]model.Quadrant)
	for _, task := range tasks {
		if task.Done || task.AutoEscalateDays == nil || task.DueDate == "" {
			continue
		}
		if task.Urgent != nil && *task.Urgent {
			continue
		}

		dueAt := task.DueAt(now.Location())
		if dueAt.IsZero() {
			continue
		}
		threshold := time.Duration(*task.AutoEscalateDays) * 24 * time.Hour
		if dueAt.Sub(now) > threshold {
			continue
		}

		switch task.Quadrant() {
		case model.Eliminate:
			quadrants[task.ID] = model.Delegate
		default:
			// Schedule and Uncategorized both land in Do.
			quadrants[task.ID] = model.Do
		}
		promote = append(promote, task.ID)
	}

	// Each promotion goes through UpdateTask so timestamps, pending
	// handling, and the remote mirror behave exactly like a user edit.
	promoted := 0
	for _, id := range promote {
		q := quadrants[id]
		if _, err := s.UpdateTask(ctx, session, id, TaskPatch{Quadrant: &q}); err != nil {
			return promoted, err
		}
		promoted++
	}

	if promoted > 0 {
		s.logger.Printf("Auto-escalated %d tasks", promoted)
	}
	return promoted, nil
}
