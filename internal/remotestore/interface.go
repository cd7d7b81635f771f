// Package remotestore provides the client for the per-user cloud document
// store that backs multi-device sync.
//
// The store is reachable only with an authenticated session. The server
// owns identity: it assigns document ids and the created/updated
// timestamps, and update calls merge partial fields into the existing
// document. Reads come in two forms, a one-shot snapshot (ListTasks /
// ListGroups, used by sync-scenario classification) and a live
// subscription (Subscribe, used by the query hooks).
package remotestore

import (
	"context"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

// EntityKind names a synced collection.
type EntityKind string

const (
	// KindTasks is the task collection.
	KindTasks EntityKind = "tasks"
	// KindGroups is the task-group collection.
	KindGroups EntityKind = "groups"
)

// Store is the remote persistence contract used by the CRUD layer and the
// sync engine.
//
// All calls require a valid session; they fail with an *UnavailableError
// when the network or the credential is not usable. Delete calls are
// idempotent: deleting an id that does not exist is not an error.
type Store interface {
	// CreateTask stores a new task document under the session's user.
	//
	// The server assigns the id and both timestamps; the returned task
	// carries them. Client-side id and timestamps on the input are
	// ignored.
	CreateTask(ctx context.Context, session *model.AuthSession, task *model.Task) (*model.Task, error)

	// UpdateTask merges the given fields into an existing task document
	// and bumps its updated timestamp.
	//
	// Returns ErrNotFound if no document with this id exists under the
	// session's user.
	UpdateTask(ctx context.Context, session *model.AuthSession, id string, fields map[string]any) error

	// DeleteTask removes a task document. Idempotent.
	DeleteTask(ctx context.Context, session *model.AuthSession, id string) error

	// ListTasks returns a one-shot snapshot of the user's task collection.
	ListTasks(ctx context.Context, session *model.AuthSession) ([]*model.Task, error)

	// CreateGroup stores a new group document; server assigns identity.
	CreateGroup(ctx context.Context, session *model.AuthSession, group *model.TaskGroup) (*model.TaskGroup, error)

	// UpdateGroup merges the given fields into an existing group document.
	// Returns ErrNotFound if the id does not exist under this user.
	UpdateGroup(ctx context.Context, session *model.AuthSession, id string, fields map[string]any) error

	// DeleteGroup removes a group document. Idempotent.
	DeleteGroup(ctx context.Context, session *model.AuthSession, id string) error

	// ListGroups returns a one-shot snapshot of the user's groups.
	ListGroups(ctx context.Context, session *model.AuthSession) ([]*model.TaskGroup, error)

	// BatchReorder atomically rewrites the sort-order field for every id
	// in the given sequence: position in the slice becomes the stored
	// order. Either all updates apply or none do.
	BatchReorder(ctx context.Context, session *model.AuthSession, kind EntityKind, orderedIDs []string) error

	// Subscribe opens a live change feed for the session's collections.
	// The subscription emits one Event per server-side change until
	// Close is called or the context is cancelled.
	Subscribe(ctx context.Context, session *model.AuthSession) (*Subscription, error)
}

// Event describes a single server-side change observed on the live feed.
type Event struct {
	// Kind is the collection that changed.
	Kind EntityKind `json:"kind"`

	// Action is one of "created", "updated", "deleted", "reordered".
	Action string `json:"action"`

	// ID is the affected document id; empty for collection-wide actions.
	ID string `json:"id,omitempty"`
}
