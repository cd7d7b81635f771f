package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
)

// settingPendingDeletes stores ids deleted locally while the remote was
// unreachable, so the remote copies can be removed on a later pass.
const settingPendingDeletes = "pending_deletes"

// pendingDeletes is the JSON shape of the queued remote deletions.
type pendingDeletes struct {
	Tasks  []string `json:"tasks,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// queuePendingDelete records a remote deletion to replay later.
func (s *Service) queuePendingDelete(ctx context.Context, kind remotestore.EntityKind, id string) error {
	queue, err := s.readPendingDeletes(ctx)
	if err != nil {
		return err
	}

	switch kind {
	case remotestore.KindTasks:
		queue.Tasks = appendUnique(queue.Tasks, id)
	case remotestore.KindGroups:
		queue.Groups = appendUnique(queue.Groups, id)
	}

	return s.writePendingDeletes(ctx, queue)
}

// FlushPending pushes every entity and queued deletion that missed the
// remote store on its original write.
//
// The pass is additive and resumable: entities that still can't reach the
// remote stay pending, and a remote outage ends the pass without error
// (the next pass picks up where this one stopped). Returns the number of
// records that were caught up.
func (s *Service) FlushPending(ctx context.Context, session *model.AuthSession) (int, error) {
	if !cloudMode(session) {
		return 0, nil
	}

	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	flushed := 0

	// Queued deletions first: they reference ids that no longer exist
	// locally, so nothing below can conflict with them.
	queue, err := s.readPendingDeletes(ctx)
	if err != nil {
		return flushed, err
	}
	remaining := pendingDeletes{}
	for _, id := range queue.Groups {
		if err := s.remote.DeleteGroup(ctx, session, id); err != nil {
			if softRemoteFailure(err) {
				remaining.Groups = append(remaining.Groups, id)
				continue
			}
			return flushed, err
		}
		flushed++
	}
	for _, id := range queue.Tasks {
		if err := s.remote.DeleteTask(ctx, session, id); err != nil {
			if softRemoteFailure(err) {
				remaining.Tasks = append(remaining.Tasks, id)
				continue
			}
			return flushed, err
		}
		flushed++
	}
	if err := s.writePendingDeletes(ctx, remaining); err != nil {
		return flushed, err
	}

	// Groups before tasks so re-created groups can remap task references.
	groups, err := s.local.ReadAllGroups(ctx)
	if err != nil {
		return flushed, err
	}
	tasks, err := s.local.ReadAllTasks(ctx)
	if err != nil {
		return flushed, err
	}

	groupsDirty := false
	tasksDirty := false

	for _, group := range groups {
		if !group.Pending {
			continue
		}
		newID, err := s.pushGroup(ctx, session, group)
		if err != nil {
			if softRemoteFailure(err) {
				s.logger.Printf("Flush: group %s still unreachable: %v", group.ID, err)
				continue
			}
			return flushed, err
		}
		if newID != group.ID {
			for _, task := range tasks {
				if task.GroupID == group.ID {
					task.GroupID = newID
					tasksDirty = true
				}
			}
			group.ID = newID
		}
		group.Pending = false
		groupsDirty = true
		flushed++
	}

	for _, task := range tasks {
		if !task.Pending {
			continue
		}
		if err := s.pushTask(ctx, session, task); err != nil {
			if softRemoteFailure(err) {
				s.logger.Printf("Flush: task %s still unreachable: %v", task.ID, err)
				continue
			}
			return flushed, err
		}
		task.Pending = false
		tasksDirty = true
		flushed++
	}

	if groupsDirty {
		if err := s.local.WriteAllGroups(ctx, groups); err != nil {
			return flushed, err
		}
	}
	if tasksDirty {
		if err := s.local.WriteAllTasks(ctx, tasks); err != nil {
			return flushed, err
		}
	}

	if flushed > 0 {
		s.logger.Printf("Flushed %d pending records", flushed)
	}
	return flushed, nil
}

// PendingCount reports how many local records are still waiting to reach
// the remote store, including queued deletions.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	tasks, err := s.local.ReadAllTasks(ctx)
	if err != nil {
		return 0, err
	}
	groups, err := s.local.ReadAllGroups(ctx)
	if err != nil {
		return 0, err
	}
	queue, err := s.readPendingDeletes(ctx)
	if err != nil {
		return 0, err
	}

	count := len(queue.Tasks) + len(queue.Groups)
	for _, task := range tasks {
		if task.Pending {
			count++
		}
	}
	for _, group := range groups {
		if group.Pending {
			count++
		}
	}
	return count, nil
}

// pushGroup updates the remote copy of a pending group, creating it when
// the remote has never seen this id. Returns the id the group ends up
// with (a fresh server id after a create).
func (s *Service) pushGroup(ctx context.Context, session *model.AuthSession, group *model.TaskGroup) (string, error) {
	fields := map[string]any{
		"name":  group.Name,
		"color": group.Color,
		"order": group.Order,
	}
	err := s.remote.UpdateGroup(ctx, session, group.ID, fields)
	if err == nil {
		return group.ID, nil
	}
	if !errors.Is(err, remotestore.ErrNotFound) {
		return "", err
	}

	created, err := s.remote.CreateGroup(ctx, session, group)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// pushTask updates the remote copy of a pending task, creating it when the
// remote has never seen this id. On create the task adopts the server
// identity and timestamps in place.
func (s *Service) pushTask(ctx context.Context, session *model.AuthSession, task *model.Task) error {
	fields := map[string]any{
		"title":      task.Title,
		"notes":      task.Notes,
		"location":   task.Location,
		"urgent":     task.Urgent,
		"important":  task.Important,
		"due_date":   task.DueDate,
		"due_time":   task.DueTime,
		"group_id":   task.GroupID,
		"done":       task.Done,
		"order":      task.Order,
		"updated_at": task.UpdatedAt,
	}
	if task.AutoEscalateDays != nil {
		fields["auto_escalate_days"] = *task.AutoEscalateDays
	} else {
		fields["auto_escalate_days"] = nil
	}

	err := s.remote.UpdateTask(ctx, session, task.ID, fields)
	if err == nil {
		return nil
	}
	if !errors.Is(err, remotestore.ErrNotFound) {
		return err
	}

	created, err := s.remote.CreateTask(ctx, session, task)
	if err != nil {
		return err
	}
	order := task.Order
	*task = *created
	task.Order = order
	return nil
}

// readPendingDeletes loads the queued deletions from settings.
func (s *Service) readPendingDeletes(ctx context.Context) (pendingDeletes, error) {
	var queue pendingDeletes
	raw, ok, err := s.local.GetSetting(ctx, settingPendingDeletes)
	if err != nil {
		return queue, err
	}
	if !ok {
		return queue, nil
	}
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		return queue, fmt.Errorf("corrupt pending-delete queue: %w", err)
	}
	return queue, nil
}

// writePendingDeletes stores the queued deletions, removing the setting
// entirely when the queue is empty.
func (s *Service) writePendingDeletes(ctx context.Context, queue pendingDeletes) error {
	if len(queue.Tasks) == 0 && len(queue.Groups) == 0 {
		return s.local.DeleteSetting(ctx, settingPendingDeletes)
	}
	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("failed to marshal pending-delete queue: %w", err)
	}
	return s.local.SetSetting(ctx, settingPendingDeletes, string(data))
}

// appendUnique appends id unless it is already present.
func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
