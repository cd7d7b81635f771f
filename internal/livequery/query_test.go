package livequery

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/localstore"
	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
)

// setupLocal creates a temp local store with the given task titles.
func setupLocal(t *testing.T, titles ...string) *localstore.Store {
	t.Helper()

	store, err := localstore.Open(filepath.Join(t.TempDir(), "live.db"))
	if err != nil {
		t.Fatalf("failed to open local store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	var tasks []*model.Task
	for i, title := range titles {
		tasks = append(tasks, &model.Task{
			ID:        title,
			Title:     title,
			Order:     i,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := store.WriteAllTasks(context.Background(), tasks); err != nil {
		t.Fatalf("seed tasks: %v", err)
	}
	return store
}

func waitForChange(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change notification")
	}
}

func TestLocalModeInitialSnapshot(t *testing.T) {
	store := setupLocal(t, "alpha", "beta")

	q, err := NewTaskQuery(context.Background(), store, remotestore.NewFake(), nil, nil)
	if err != nil {
		t.Fatalf("NewTaskQuery: %v", err)
	}
	defer q.Close()

	snap := q.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d tasks, want 2", len(snap))
	}
	if snap[0].Title != "alpha" || snap[1].Title != "beta" {
		t.Errorf("snapshot order wrong: %q, %q", snap[0].Title, snap[1].Title)
	}
}

func TestSnapshotReturnsClones(t *testing.T) {
	store := setupLocal(t, "immutable")

	q, err := NewTaskQuery(context.Background(), store, remotestore.NewFake(), nil, nil)
	if err != nil {
		t.Fatalf("NewTaskQuery: %v", err)
	}
	defer q.Close()

	q.Snapshot()[0].Title = "mutated"
	if got := q.Snapshot()[0].Title; got != "immutable" {
		t.Errorf("snapshot mutation leaked into the cache: %q", got)
	}
}

func TestLocalModeReloadPicksUpWrites(t *testing.T) {
	store := setupLocal(t, "first")
	ctx := context.Background()

	q, err := NewTaskQuery(ctx, store, remotestore.NewFake(), nil, nil)
	if err != nil {
		t.Fatalf("NewTaskQuery: %v", err)
	}
	defer q.Close()

	now := time.Now().UTC()
	tasks := append(q.Snapshot(), &model.Task{
		ID: "second", Title: "second", Order: 1, CreatedAt: now, UpdatedAt: now,
	})
	if err := store.WriteAllTasks(ctx, tasks); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := q.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	waitForChange(t, q.Changes())

	if got := len(q.Snapshot()); got != 2 {
		t.Errorf("snapshot has %d tasks after reload, want 2", got)
	}
}

func TestLocalModeFileWatchTriggersReload(t *testing.T) {
	store := setupLocal(t, "watched")
	ctx := context.Background()

	q, err := NewTaskQuery(ctx, store, remotestore.NewFake(), nil, nil)
	if err != nil {
		t.Fatalf("NewTaskQuery: %v", err)
	}
	defer q.Close()

	// A write from "another process": the watcher should notice the
	// database file change and refresh without an explicit Reload.
	now := time.Now().UTC()
	tasks := append(q.Snapshot(), &model.Task{
		ID: "external", Title: "external", Order: 1, CreatedAt: now, UpdatedAt: now,
	})
	if err := store.WriteAllTasks(ctx, tasks); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitForChange(t, q.Changes())
	if got := len(q.Snapshot()); got != 2 {
		t.Errorf("snapshot has %d tasks after watched write, want 2", got)
	}
}

func TestCloudModeReadsRemote(t *testing.T) {
	store := setupLocal(t, "stale-local")
	fake := remotestore.NewFake()
	fake.SeedTask(&model.Task{ID: "r1", Title: "remote-only"})
	session := &model.AuthSession{UserID: "u1", Token: "tok"}

	q, err := NewTaskQuery(context.Background(), store, fake, session, nil)
	if err != nil {
		t.Fatalf("NewTaskQuery: %v", err)
	}
	defer q.Close()

	snap := q.Snapshot()
	if len(snap) != 1 || snap[0].Title != "remote-only" {
		t.Fatalf("cloud snapshot = %+v, want the single remote task", snap)
	}
}

func TestCloudModeSubscriptionRefreshesSnapshot(t *testing.T) {
	store := setupLocal(t)
	fake := remotestore.NewFake()
	session := &model.AuthSession{UserID: "u1", Token: "tok"}
	ctx := context.Background()

	q, err := NewTaskQuery(ctx, store, fake, session, nil)
	if err != nil {
		t.Fatalf("NewTaskQuery: %v", err)
	}
	defer q.Close()

	if _, err := fake.CreateTask(ctx, session, &model.Task{Title: "pushed"}); err != nil {
		t.Fatalf("remote create: %v", err)
	}

	waitForChange(t, q.Changes())
	snap := q.Snapshot()
	if len(snap) != 1 || snap[0].Title != "pushed" {
		t.Fatalf("snapshot = %+v, want the pushed task", snap)
	}
}

func TestCloudModeIgnoresOtherKinds(t *testing.T) {
	store := setupLocal(t)
	fake := remotestore.NewFake()
	session := &model.AuthSession{UserID: "u1", Token: "tok"}
	ctx := context.Background()

	q, err := NewGroupQuery(ctx, store, fake, session, nil)
	if err != nil {
		t.Fatalf("NewGroupQuery: %v", err)
	}
	defer q.Close()

	// Task events must not wake a group hook.
	if _, err := fake.CreateTask(ctx, session, &model.Task{Title: "noise"}); err != nil {
		t.Fatalf("remote create: %v", err)
	}
	select {
	case <-q.Changes():
		t.Error("group hook notified on a task event")
	case <-time.After(300 * time.Millisecond):
	}

	if _, err := fake.CreateGroup(ctx, session, &model.TaskGroup{Name: "work"}); err != nil {
		t.Fatalf("remote group create: %v", err)
	}
	waitForChange(t, q.Changes())
	groups := q.Snapshot()
	if len(groups) != 1 || groups[0].Name != "work" {
		t.Fatalf("groups = %+v, want the created group", groups)
	}
}

func TestCloseStopsFeed(t *testing.T) {
	store := setupLocal(t, "x")
	q, err := NewTaskQuery(context.Background(), store, remotestore.NewFake(), nil, nil)
	if err != nil {
		t.Fatalf("NewTaskQuery: %v", err)
	}
	q.Close()
	// Closing twice must not panic or hang.
	q.Close()
}
