// Package livequery provides the reactive read surface the UI subscribes
// to: one hook for tasks, one for groups.
//
// Mode follows auth state. Without a session the hook reads the local
// store and watches the database file for changes; with a session it
// consumes the remote store's live subscription and re-lists on every
// change event. Either way the hook exposes a cached snapshot, a change
// notification channel, and an explicit Reload for callers that just
// completed a mutation in local-only mode.
package livequery

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonahr4/taskapp-sync/internal/localstore"
	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
)

// debounceInterval batches rapid database-file events into one reload.
const debounceInterval = 150 * time.Millisecond

// feed is the shared runtime behind both hooks: it owns the change
// source (fsnotify or remote subscription) and calls reload when the
// underlying collection may have changed.
type feed struct {
	local   *localstore.Store
	remote  remotestore.Store
	session *model.AuthSession
	kind    remotestore.EntityKind
	reload  func(ctx context.Context) error
	logger  *log.Logger

	changes chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	watcher *fsnotify.Watcher
	sub     *remotestore.Subscription
}

// start performs the initial load and begins the change source.
func (f *feed) start(ctx context.Context) error {
	if err := f.reload(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	if f.session.Valid() {
		sub, err := f.remote.Subscribe(runCtx, f.session)
		if err != nil {
			// Degrade to a static snapshot; explicit Reload still works.
			f.logger.Printf("Live subscription unavailable, falling back to manual reloads: %v", err)
			return nil
		}
		f.sub = sub
		f.wg.Add(1)
		go f.consumeRemote(runCtx)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.logger.Printf("File watcher unavailable, falling back to manual reloads: %v", err)
		return nil
	}
	if err := watcher.Add(filepath.Dir(f.local.Path())); err != nil {
		_ = watcher.Close()
		f.logger.Printf("Failed to watch database directory: %v", err)
		return nil
	}
	f.watcher = watcher
	f.wg.Add(1)
	go f.consumeLocal(runCtx)
	return nil
}

// close tears down the change source.
func (f *feed) close() {
	if f.cancel != nil {
		f.cancel()
	}
	if f.sub != nil {
		_ = f.sub.Close()
	}
	if f.watcher != nil {
		_ = f.watcher.Close()
	}
	f.wg.Wait()
}

// notify signals subscribers without blocking.
func (f *feed) notify() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// consumeRemote turns remote change events into reloads.
func (f *feed) consumeRemote(ctx context.Context) {
	defer f.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-f.sub.Events():
			if !ok {
				if err := f.sub.Err(); err != nil {
					f.logger.Printf("Subscription ended: %v", err)
				}
				return
			}
			if event.Kind != f.kind {
				continue
			}
			if err := f.reload(ctx); err != nil {
				f.logger.Printf("Reload after remote event failed: %v", err)
				continue
			}
			f.notify()
		}
	}
}

// consumeLocal turns database-file events into debounced reloads.
func (f *feed) consumeLocal(ctx context.Context) {
	defer f.wg.Done()

	base := filepath.Base(f.local.Path())
	dirty := false
	ticker := time.NewTicker(debounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			// The database writes through the main file plus -wal/-shm.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
				continue
			}
			dirty = true

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Printf("Watcher error: %v", err)

		case <-ticker.C:
			if !dirty {
				continue
			}
			dirty = false
			if err := f.reload(ctx); err != nil {
				f.logger.Printf("Reload after file change failed: %v", err)
				continue
			}
			f.notify()
		}
	}
}

// TaskQuery is the live task collection hook.
type TaskQuery struct {
	feed  *feed
	mu    sync.RWMutex
	tasks []*model.Task
}

// NewTaskQuery creates and starts a task hook for the given mode.
//
// If logger is nil, a default logger writing to stderr is used.
func NewTaskQuery(ctx context.Context, local *localstore.Store, remote remotestore.Store, session *model.AuthSession, logger *log.Logger) (*TaskQuery, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[livequery] ", log.LstdFlags)
	}

	q := &TaskQuery{}
	q.feed = &feed{
		local:   local,
		remote:  remote,
		session: session,
		kind:    remotestore.KindTasks,
		reload:  q.load,
		logger:  logger,
		changes: make(chan struct{}, 1),
	}
	if err := q.feed.start(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// load refreshes the snapshot from the mode-appropriate source.
func (q *TaskQuery) load(ctx context.Context) error {
	var tasks []*model.Task
	var err error
	if q.feed.session.Valid() {
		tasks, err = q.feed.remote.ListTasks(ctx, q.feed.session)
	} else {
		tasks, err = q.feed.local.ReadAllTasks(ctx)
	}
	if err != nil {
		return err
	}

	q.mu.Lock()
	q.tasks = tasks
	q.mu.Unlock()
	return nil
}

// Snapshot returns the current cached task collection.
func (q *TaskQuery) Snapshot() []*model.Task {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*model.Task, len(q.tasks))
	for i, task := range q.tasks {
		out[i] = task.Clone()
	}
	return out
}

// Changes returns a channel that receives a signal whenever the snapshot
// has been refreshed behind the caller's back.
func (q *TaskQuery) Changes() <-chan struct{} {
	return q.feed.changes
}

// Reload forces a fresh read. Local-only callers use this right after a
// mutation, since there is no live subscription to lean on.
func (q *TaskQuery) Reload(ctx context.Context) error {
	if err := q.load(ctx); err != nil {
		return err
	}
	q.feed.notify()
	return nil
}

// Close stops the hook's change source.
func (q *TaskQuery) Close() {
	q.feed.close()
}

// GroupQuery is the live task-group collection hook.
type GroupQuery struct {
	mu     sync.RWMutex
	feed   *feed
	groups []*model.TaskGroup
}

// NewGroupQuery creates and starts a group hook for the given mode.
func NewGroupQuery(ctx context.Context, local *localstore.Store, remote remotestore.Store, session *model.AuthSession, logger *log.Logger) (*GroupQuery, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[livequery] ", log.LstdFlags)
	}

	q := &GroupQuery{}
	q.feed = &feed{
		local:   local,
		remote:  remote,
		session: session,
		kind:    remotestore.KindGroups,
		reload:  q.load,
		logger:  logger,
		changes: make(chan struct{}, 1),
	}
	if err := q.feed.start(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// load refreshes the snapshot from the mode-appropriate source.
func (q *GroupQuery) load(ctx context.Context) error {
	var groups []*model.TaskGroup
	var err error
	if q.feed.session.Valid() {
		groups, err = q.feed.remote.ListGroups(ctx, q.feed.session)
	} else {
		groups, err = q.feed.local.ReadAllGroups(ctx)
	}
	if err != nil {
		return err
	}

	q.mu.Lock()
	q.groups = groups
	q.mu.Unlock()
	return nil
}

// Snapshot returns the current cached group collection.
func (q *GroupQuery) Snapshot() []*model.TaskGroup {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*model.TaskGroup, len(q.groups))
	for i, group := range q.groups {
		out[i] = group.Clone()
	}
	return out
}

// Changes returns a channel that receives a signal whenever the snapshot
// has been refreshed behind the caller's back.
func (q *GroupQuery) Changes() <-chan struct{} {
	return q.feed.changes
}

// Reload forces a fresh read.
func (q *GroupQuery) Reload(ctx context.Context) error {
	if err := q.load(ctx); err != nil {
		return err
	}
	q.feed.notify()
	return nil
}

// Close stops the hook's change source.
func (q *GroupQuery) Close() {
	q.feed.close()
}
