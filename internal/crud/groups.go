package crud

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
)

// GroupInput carries the caller-supplied fields for a new group.
type GroupInput struct {
	Name  string
	Color string
}

// GroupPatch is a field-mask update for a group.
type GroupPatch struct {
	Name  *string
	Color *string
}

// CreateGroup creates a task group and returns the stored entity.
func (s *Service) CreateGroup(ctx context.Context, session *model.AuthSession, input GroupInput) (*model.TaskGroup, error) {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	groups, err := s.local.ReadAllGroups(ctx)
	if err != nil {
		return nil, err
	}

	group := &model.TaskGroup{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Color:     input.Color,
		Order:     nextGroupOrder(groups),
		CreatedAt: s.now(),
	}

	if err := group.Validate(); err != nil {
		return nil, fmt.Errorf("invalid group: %w", err)
	}

	if cloudMode(session) {
		created, err := s.remote.CreateGroup(ctx, session, group)
		switch {
		case err == nil:
			created.Order = group.Order
			group = created
		case softRemoteFailure(err):
			s.logger.Printf("Remote create failed, keeping group %s pending: %v", group.ID, err)
			group.Pending = true
		default:
			return nil, err
		}
	}

	groups = append(groups, group)
	if err := s.local.WriteAllGroups(ctx, groups); err != nil {
		return nil, err
	}

	s.logger.Printf("Created group: %s (%s)", group.ID, group.Name)
	return group.Clone(), nil
}

// UpdateGroup renames or recolors an existing group.
func (s *Service) UpdateGroup(ctx context.Context, session *model.AuthSession, id string, patch GroupPatch) (*model.TaskGroup, error) {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	groups, err := s.local.ReadAllGroups(ctx)
	if err != nil {
		return nil, err
	}

	group := findGroup(groups, id)
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}

	fields := make(map[string]any)
	if patch.Name != nil {
		group.Name = *patch.Name
		fields["name"] = group.Name
	}
	if patch.Color != nil {
		group.Color = *patch.Color
		fields["color"] = group.Color
	}

	if err := group.Validate(); err != nil {
		return nil, fmt.Errorf("invalid update for group %s: %w", id, err)
	}

	switch {
	case !cloudMode(session) || len(fields) == 0:
	case group.Pending:
		// Never uploaded; the flush carries the full state later.
		s.logger.Printf("Group %s is still pending upload, keeping update local", id)
	default:
		err := s.remote.UpdateGroup(ctx, session, id, fields)
		switch {
		case err == nil:
		case softRemoteFailure(err):
			s.logger.Printf("Remote update failed, keeping group %s pending: %v", id, err)
			group.Pending = true
		default:
			return nil, err
		}
	}

	if err := s.local.WriteAllGroups(ctx, groups); err != nil {
		return nil, err
	}

	s.logger.Printf("Updated group: %s", id)
	return group.Clone(), nil
}

// DeleteGroup removes a group.
//
// Tasks in the group are left untouched: they keep the dangling GroupID,
// which readers treat as ungrouped. Deleting an id that is already gone
// is a no-op.
func (s *Service) DeleteGroup(ctx context.Context, session *model.AuthSession, id string) error {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	groups, err := s.local.ReadAllGroups(ctx)
	if err != nil {
		return err
	}

	kept := groups[:0]
	found := false
	for _, group := range groups {
		if group.ID == id {
			found = true
			continue
		}
		kept = append(kept, group)
	}
	if !found {
		return nil
	}

	if cloudMode(session) {
		if err := s.remote.DeleteGroup(ctx, session, id); err != nil {
			if !softRemoteFailure(err) {
				return err
			}
			s.logger.Printf("Remote delete failed, queueing group %s for later: %v", id, err)
			if err := s.queuePendingDelete(ctx, remotestore.KindGroups, id); err != nil {
				return err
			}
		}
	}

	if err := s.local.WriteAllGroups(ctx, kept); err != nil {
		return err
	}

	s.logger.Printf("Deleted group: %s", id)
	return nil
}

// ReorderGroups persists the supplied final ordering for the full group
// collection. After it returns, every group's order equals its index in
// orderedIDs and is therefore unique.
func (s *Service) ReorderGroups(ctx context.Context, session *model.AuthSession, orderedIDs []string) error {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	groups, err := s.local.ReadAllGroups(ctx)
	if err != nil {
		return err
	}

	changed, err := applyOrdering(len(groups), orderedIDs, func(id string) *int {
		if g := findGroup(groups, id); g != nil {
			return &g.Order
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	if cloudMode(session) {
		if err := s.remote.BatchReorder(ctx, session, remotestore.KindGroups, orderedIDs); err != nil {
			if !softRemoteFailure(err) {
				return err
			}
			s.logger.Printf("Remote reorder failed, marking groups pending: %v", err)
			for _, id := range changed {
				findGroup(groups, id).Pending = true
			}
		}
	}

	if err := s.local.WriteAllGroups(ctx, groups); err != nil {
		return err
	}

	s.logger.Printf("Reordered %d of %d groups", len(changed), len(groups))
	return nil
}

// findGroup returns the group with the given id, or nil.
func findGroup(groups []*model.TaskGroup, id string) *model.TaskGroup {
	for _, group := range groups {
		if group.ID == id {
			return group
		}
	}
	return nil
}

// nextGroupOrder returns an order value placing a new group at the end.
func nextGroupOrder(groups []*model.TaskGroup) int {
	max := -1
	for _, group := range groups {
		if group.Order > max {
			max = group.Order
		}
	}
	return max + 1
}
