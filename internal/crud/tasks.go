package crud

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
)

// TaskInput carries the caller-supplied fields for a new task.
type TaskInput struct {
	Title            string
	Notes            string
	Location         string
	Quadrant         model.Quadrant
	DueDate          string // YYYY-MM-DD, empty = none
	DueTime          string // HH:MM, empty = none
	GroupID          string
	AutoEscalateDays *int
}

// TaskPatch is a field-mask update: nil pointers leave the field alone.
//
// Quadrant covers the urgent/important pair as a unit so a patch can never
// produce a half-set pair.
type TaskPatch struct {
	Title             *string
	Notes             *string
	Location          *string
	Quadrant          *model.Quadrant
	DueDate           *string
	DueTime           *string
	GroupID           *string
	Done              *bool
	AutoEscalateDays  *int
	ClearAutoEscalate bool
}

// CreateTask creates a task and returns the stored entity.
//
// Local-only mode assigns a client-side UUID and device timestamps. Cloud
// mode asks the remote store to create the document first and mirrors the
// server-assigned identity locally; if the remote is unreachable the task
// is committed locally with Pending set.
func (s *Service) CreateTask(ctx context.Context, session *model.AuthSession, input TaskInput) (*model.Task, error) {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	tasks, err := s.local.ReadAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &model.Task{
		ID:               uuid.NewString(),
		Title:            input.Title,
		Notes:            input.Notes,
		Location:         input.Location,
		DueDate:          input.DueDate,
		DueTime:          input.DueTime,
		GroupID:          input.GroupID,
		AutoEscalateDays: input.AutoEscalateDays,
		Order:            nextTaskOrder(tasks),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	task.SetQuadrant(input.Quadrant)

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	if cloudMode(session) {
		created, err := s.remote.CreateTask(ctx, session, task)
		switch {
		case err == nil:
			created.Order = task.Order
			task = created
		case softRemoteFailure(err):
			s.logger.Printf("Remote create failed, keeping task %s pending: %v", task.ID, err)
			task.Pending = true
		default:
			return nil, err
		}
	}

	tasks = append(tasks, task)
	if err := s.local.WriteAllTasks(ctx, tasks); err != nil {
		return nil, err
	}

	s.logger.Printf("Created task: %s (%s)", task.ID, task.Title)
	return task.Clone(), nil
}

// UpdateTask applies a field-mask update to an existing task.
//
// The updated timestamp strictly increases on every call. A remote
// NotFound is surfaced to the caller; a remote outage degrades to a
// pending local write.
func (s *Service) UpdateTask(ctx context.Context, session *model.AuthSession, id string, patch TaskPatch) (*model.Task, error) {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	tasks, err := s.local.ReadAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	task := findTask(tasks, id)
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	fields := applyTaskPatch(task, patch)
	task.Touch(s.now())
	fields["updated_at"] = task.UpdatedAt

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid update for task %s: %w", id, err)
	}

	switch {
	case !cloudMode(session):
	case task.Pending:
		// The server has never seen this id; FlushPending pushes the full
		// field set later, so the edit just rides along locally.
		s.logger.Printf("Task %s is still pending upload, keeping update local", id)
	default:
		err := s.remote.UpdateTask(ctx, session, id, fields)
		switch {
		case err == nil:
		case softRemoteFailure(err):
			s.logger.Printf("Remote update failed, keeping task %s pending: %v", id, err)
			task.Pending = true
		default:
			// NotFound and hard errors surface: the remote copy genuinely
			// did not change, and guessing would hide it.
			return nil, err
		}
	}

	if err := s.local.WriteAllTasks(ctx, tasks); err != nil {
		return nil, err
	}

	s.logger.Printf("Updated task: %s", id)
	return task.Clone(), nil
}

// DeleteTask removes a task. Hard delete, no tombstone; deleting an id
// that is already gone is a no-op.
func (s *Service) DeleteTask(ctx context.Context, session *model.AuthSession, id string) error {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	tasks, err := s.local.ReadAllTasks(ctx)
	if err != nil {
		return err
	}

	kept := tasks[:0]
	found := false
	for _, task := range tasks {
		if task.ID == id {
			found = true
			continue
		}
		kept = append(kept, task)
	}
	if !found {
		return nil
	}

	if cloudMode(session) {
		if err := s.remote.DeleteTask(ctx, session, id); err != nil {
			if !softRemoteFailure(err) {
				return err
			}
			s.logger.Printf("Remote delete failed, queueing task %s for later: %v", id, err)
			if err := s.queuePendingDelete(ctx, remotestore.KindTasks, id); err != nil {
				return err
			}
		}
	}

	if err := s.local.WriteAllTasks(ctx, kept); err != nil {
		return err
	}

	s.logger.Printf("Deleted task: %s", id)
	return nil
}

// ReorderTasks persists the supplied final ordering.
//
// orderedIDs must be a permutation of the current collection. Internally
// only tasks whose position changed are touched, and the remote rewrite
// happens in one atomic batch.
func (s *Service) ReorderTasks(ctx context.Context, session *model.AuthSession, orderedIDs []string) error {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	tasks, err := s.local.ReadAllTasks(ctx)
	if err != nil {
		return err
	}

	changed, err := applyOrdering(len(tasks), orderedIDs, func(id string) *int {
		if t := findTask(tasks, id); t != nil {
			return &t.Order
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	now := s.now()
	for _, id := range changed {
		findTask(tasks, id).Touch(now)
	}

	if cloudMode(session) {
		if err := s.remote.BatchReorder(ctx, session, remotestore.KindTasks, orderedIDs); err != nil {
			if !softRemoteFailure(err) {
				return err
			}
			s.logger.Printf("Remote reorder failed, marking tasks pending: %v", err)
			for _, task := range tasks {
				task.Pending = true
			}
		}
	}

	if err := s.local.WriteAllTasks(ctx, tasks); err != nil {
		return err
	}

	s.logger.Printf("Reordered %d of %d tasks", len(changed), len(tasks))
	return nil
}

// findTask returns the task with the given id, or nil.
func findTask(tasks []*model.Task, id string) *model.Task {
	for _, task := range tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}

// nextTaskOrder returns an order value placing a new task at the end.
func nextTaskOrder(tasks []*model.Task) int {
	max := -1
	for _, task := range tasks {
		if task.Order > max {
			max = task.Order
		}
	}
	return max + 1
}

// applyTaskPatch merges the patch into the task and returns the partial
// field map sent to the remote store.
func applyTaskPatch(task *model.Task, patch TaskPatch) map[string]any {
	fields := make(map[string]any)

	if patch.Title != nil {
		task.Title = *patch.Title
		fields["title"] = task.Title
	}
	if patch.Notes != nil {
		task.Notes = *patch.Notes
		fields["notes"] = task.Notes
	}
	if patch.Location != nil {
		task.Location = *patch.Location
		fields["location"] = task.Location
	}
	if patch.Quadrant != nil {
		task.SetQuadrant(*patch.Quadrant)
		fields["urgent"] = task.Urgent
		fields["important"] = task.Important
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
		fields["due_date"] = task.DueDate
	}
	if patch.DueTime != nil {
		task.DueTime = *patch.DueTime
		fields["due_time"] = task.DueTime
	}
	if patch.GroupID != nil {
		task.GroupID = *patch.GroupID
		fields["group_id"] = task.GroupID
	}
	if patch.Done != nil {
		task.Done = *patch.Done
		fields["done"] = task.Done
	}
	if patch.ClearAutoEscalate {
		task.AutoEscalateDays = nil
		fields["auto_escalate_days"] = nil
	} else if patch.AutoEscalateDays != nil {
		v := *patch.AutoEscalateDays
		task.AutoEscalateDays = &v
		fields["auto_escalate_days"] = v
	}

	return fields
}

// applyOrdering rewrites order fields to match the index of each id in
// orderedIDs. It returns the ids that actually moved, and fails when the
// ids are not a permutation of the collection.
func applyOrdering(collectionSize int, orderedIDs []string, orderOf func(id string) *int) ([]string, error) {
	if len(orderedIDs) != collectionSize {
		return nil, fmt.Errorf("%w: got %d ids for %d entities", ErrBadReorder, len(orderedIDs), collectionSize)
	}

	seen := make(map[string]bool, len(orderedIDs))
	var changed []string
	for index, id := range orderedIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrBadReorder, id)
		}
		seen[id] = true

		slot := orderOf(id)
		if slot == nil {
			return nil, fmt.Errorf("%w: unknown id %s", ErrBadReorder, id)
		}
		if *slot != index {
			*slot = index
			changed = append(changed, id)
		}
	}
	return changed, nil
}
