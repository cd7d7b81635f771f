// Package crud is the single entry point for every mutation of tasks and
// task groups.
//
// Each mutator takes an optional *model.AuthSession. Without a session the
// call runs in local-only mode: the entity gets a client-side UUID, device
// timestamps, and lands in the local store only. With a session the call
// runs in cloud mode: the remote store is written first, and the resulting
// entity (server id, server timestamps) is mirrored into the local store so
// offline reads stay consistent. A remote failure never fails the
// user-visible action; the entity is committed locally with the Pending
// flag set and FlushPending catches it up on a later pass.
//
// The service is the sole writer of entity identity and timestamps. The
// sync engine re-issues CRUD calls during merge resolution instead of
// writing to either store directly.
package crud

import (
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/localstore"
	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
)

// ErrNotFound is returned when a mutation references an id that is not in
// the local collection.
var ErrNotFound = errors.New("crud: entity not found")

// ErrBadReorder is returned when a reorder call does not supply a
// permutation of the current collection's ids.
var ErrBadReorder = errors.New("crud: reorder ids must be a permutation of the collection")

// Service coordinates the local and remote stores behind one API.
//
// Writes to the same entity kind are serialized by a per-kind mutex, so
// the local store's whole-collection read-modify-write can never race.
type Service struct {
	local  *localstore.Store
	remote remotestore.Store
	logger *log.Logger

	tasksMu  sync.Mutex
	groupsMu sync.Mutex

	now func() time.Time
}

// New creates a CRUD service over the given stores.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	store, err := localstore.Open(path)
//	if err != nil {
//	    return err
//	}
//	svc := crud.New(store, remotestore.NewClient(endpoint, nil), nil)
func New(local *localstore.Store, remote remotestore.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[crud] ", log.LstdFlags)
	}
	return &Service{
		local:  local,
		remote: remote,
		logger: logger,
		now:    time.Now,
	}
}

// Local exposes the underlying local store for read paths (query hooks,
// export). Mutations must go through the service.
func (s *Service) Local() *localstore.Store {
	return s.local
}

// cloudMode reports whether the call should touch the remote store.
func cloudMode(session *model.AuthSession) bool {
	return session.Valid()
}

// softRemoteFailure reports whether a remote error should degrade the call
// to local-only-with-pending instead of failing it.
func softRemoteFailure(err error) bool {
	return err != nil && remotestore.IsUnavailable(err)
}
