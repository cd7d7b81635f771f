package crud

import (
	"context"
	"fmt"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

// UploadState tracks which entities a bulk upload has already created
// remotely. A retry after a partial failure passes the same state back
// in so nothing is created twice.
type UploadState struct {
	// GroupIDs maps local group ids to the server ids already assigned.
	GroupIDs map[string]string

	// Tasks holds the local ids of tasks already created remotely.
	Tasks map[string]bool
}

// NewUploadState returns an empty upload progress tracker.
func NewUploadState() *UploadState {
	return &UploadState{
		GroupIDs: make(map[string]string),
		Tasks:    make(map[string]bool),
	}
}

// UploadLocal re-creates local entities in the remote store under the
// session's user.
//
// All local groups are uploaded, then the tasks whose ids appear in
// taskIDs (nil means every local task), with group references remapped to
// the server-assigned group ids. The upload is strictly additive: it
// never guesses remote identity, so entities that already exist remotely
// under a different id become distinct records rather than overwrites.
//
// state records progress. Passing nil starts fresh; passing the state
// from a failed attempt resumes it, skipping entities already created.
//
// The sync engine uses this for the first-login upload and for the
// user-confirmed merge. Returns the number of entities created remotely
// by this call.
func (s *Service) UploadLocal(ctx context.Context, session *model.AuthSession, taskIDs []string, state *UploadState) (int, error) {
	if !cloudMode(session) {
		return 0, fmt.Errorf("upload requires an authenticated session")
	}
	if state == nil {
		state = NewUploadState()
	}

	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	groups, err := s.local.ReadAllGroups(ctx)
	if err != nil {
		return 0, err
	}
	tasks, err := s.local.ReadAllTasks(ctx)
	if err != nil {
		return 0, err
	}

	var selected map[string]bool
	if taskIDs != nil {
		selected = make(map[string]bool, len(taskIDs))
		for _, id := range taskIDs {
			selected[id] = true
		}
	}

	uploaded := 0

	for _, group := range groups {
		if _, done := state.GroupIDs[group.ID]; done {
			continue
		}
		created, err := s.remote.CreateGroup(ctx, session, group)
		if err != nil {
			return uploaded, fmt.Errorf("failed to upload group %s: %w", group.ID, err)
		}
		state.GroupIDs[group.ID] = created.ID
		uploaded++
	}

	for _, task := range tasks {
		if selected != nil && !selected[task.ID] {
			continue
		}
		if state.Tasks[task.ID] {
			continue
		}
		upload := task.Clone()
		if mapped, ok := state.GroupIDs[upload.GroupID]; ok {
			upload.GroupID = mapped
		}
		if _, err := s.remote.CreateTask(ctx, session, upload); err != nil {
			return uploaded, fmt.Errorf("failed to upload task %s: %w", task.ID, err)
		}
		state.Tasks[task.ID] = true
		uploaded++
	}

	s.logger.Printf("Uploaded %d local entities to remote", uploaded)
	return uploaded, nil
}
