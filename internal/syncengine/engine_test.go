package syncengine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/crud"
	"github.com/jonahr4/taskapp-sync/internal/localstore"
	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
)

// setupEngine creates an engine over a temp local store and fake remote.
func setupEngine(t *testing.T) (*Engine, *crud.Service, *remotestore.Fake) {
	t.Helper()

	store, err := localstore.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open local store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fake := remotestore.NewFake()
	service := crud.New(store, fake, nil)
	return New(service, fake, nil), service, fake
}

func session() *model.AuthSession {
	return &model.AuthSession{UserID: "u1", Token: "tok"}
}

// seedLocal creates n local-only tasks through the CRUD layer.
func seedLocal(t *testing.T, service *crud.Service, titles ...string) []*model.Task {
	t.Helper()
	var tasks []*model.Task
	for _, title := range titles {
		task, err := service.CreateTask(context.Background(), nil, crud.TaskInput{Title: title})
		if err != nil {
			t.Fatalf("seed task %q: %v", title, err)
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// seedRemote plants n tasks directly in the fake remote.
func seedRemote(fake *remotestore.Fake, titles ...string) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range titles {
		fake.SeedTask(&model.Task{
			ID:        "pre-" + title,
			Title:     title,
			Order:     i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestScenarioNoRemoteData(t *testing.T) {
	engine, service, fake := setupEngine(t)
	ctx := context.Background()

	seedLocal(t, service, "one", "two", "three")

	scenario, err := engine.OnSignIn(ctx, session())
	if err != nil {
		t.Fatalf("OnSignIn: %v", err)
	}
	if scenario != ScenarioNoRemoteData {
		t.Fatalf("scenario = %v, want no-remote-data", scenario)
	}
	if engine.State() != StateIdle {
		t.Errorf("state = %v, want idle after resolution", engine.State())
	}

	remote, _ := fake.ListTasks(ctx, session())
	if len(remote) != 3 {
		t.Fatalf("remote has %d tasks after upload, want 3", len(remote))
	}
	titles := map[string]bool{}
	for _, task := range remote {
		titles[task.Title] = true
	}
	for _, want := range []string{"one", "two", "three"} {
		if !titles[want] {
			t.Errorf("remote missing uploaded task %q", want)
		}
	}

	// Local mirror now carries server identities.
	local, _ := service.Local().ReadAllTasks(ctx)
	for _, task := range local {
		if task.ID == "" || task.Pending {
			t.Errorf("local task %+v not a clean server mirror", task)
		}
	}
}

func TestScenarioNoLocalData(t *testing.T) {
	engine, service, fake := setupEngine(t)
	ctx := context.Background()

	seedRemote(fake, "a", "b", "c", "d", "e")

	scenario, err := engine.OnSignIn(ctx, session())
	if err != nil {
		t.Fatalf("OnSignIn: %v", err)
	}
	if scenario != ScenarioNoLocalData {
		t.Fatalf("scenario = %v, want no-local-data", scenario)
	}

	local, _ := service.Local().ReadAllTasks(ctx)
	if len(local) != 5 {
		t.Fatalf("local has %d tasks after adoption, want 5", len(local))
	}
}

func TestScenarioBothEmpty(t *testing.T) {
	engine, _, fake := setupEngine(t)

	scenario, err := engine.OnSignIn(context.Background(), session())
	if err != nil {
		t.Fatalf("OnSignIn: %v", err)
	}
	if scenario != ScenarioBothEmpty {
		t.Fatalf("scenario = %v, want both-empty", scenario)
	}
	if n := fake.WriteCalls(); n != 0 {
		t.Errorf("both-empty made %d remote writes, want 0", n)
	}
}

func TestScenarioAlreadySynced(t *testing.T) {
	engine, service, fake := setupEngine(t)
	ctx := context.Background()

	// Local mirrors remote exactly: same titles, same timestamps.
	ts := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	for i, title := range []string{"same-1", "same-2"} {
		task := &model.Task{
			ID:        "srv-x" + title,
			Title:     title,
			Order:     i,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		fake.SeedTask(task)
	}
	remote, _ := fake.ListTasks(ctx, session())
	if err := service.Local().WriteAllTasks(ctx, remote); err != nil {
		t.Fatalf("mirror seed: %v", err)
	}
	writesBefore := fake.WriteCalls()

	scenario, err := engine.OnSignIn(ctx, session())
	if err != nil {
		t.Fatalf("OnSignIn: %v", err)
	}
	if scenario != ScenarioAlreadySynced {
		t.Fatalf("scenario = %v, want already-synced", scenario)
	}
	if n := fake.WriteCalls(); n != writesBefore {
		t.Errorf("already-synced made %d remote writes, want 0", n-writesBefore)
	}
}

func TestScenarioBothPopulatedConfirmMerge(t *testing.T) {
	engine, service, fake := setupEngine(t)
	ctx := context.Background()

	localTasks := seedLocal(t, service, "local-1", "local-2")
	seedRemote(fake, "remote-1", "remote-2")

	scenario, err := engine.OnSignIn(ctx, session())
	if err != nil {
		t.Fatalf("OnSignIn: %v", err)
	}
	if scenario != ScenarioBothPopulated {
		t.Fatalf("scenario = %v, want both-populated", scenario)
	}
	if engine.State() != StateAwaitingChoice {
		t.Fatalf("state = %v, want awaiting-choice", engine.State())
	}
	if !engine.Syncing() {
		t.Error("Syncing() should report true while suspended")
	}

	staged := engine.LocalTasks()
	if len(staged) != 2 {
		t.Fatalf("staged %d tasks, want 2", len(staged))
	}

	if err := engine.ConfirmMerge(ctx, session(), localTasks[0].ID, localTasks[1].ID); err != nil {
		t.Fatalf("ConfirmMerge: %v", err)
	}

	// Additive merge: remote keeps its 2 and gains 2 fresh-id uploads.
	remote, _ := fake.ListTasks(ctx, session())
	if len(remote) != 4 {
		t.Fatalf("remote has %d tasks after merge, want 4", len(remote))
	}
	for _, task := range remote {
		if task.ID == localTasks[0].ID || task.ID == localTasks[1].ID {
			t.Errorf("uploaded task kept client id %s instead of a fresh server id", task.ID)
		}
	}

	// Local mirrors the merged remote set.
	local, _ := service.Local().ReadAllTasks(ctx)
	if len(local) != 4 {
		t.Errorf("local has %d tasks after merge, want 4", len(local))
	}
	if engine.State() != StateIdle {
		t.Errorf("state = %v, want idle after merge", engine.State())
	}
	if len(engine.LocalTasks()) != 0 {
		t.Error("staging buffer should be cleared after merge")
	}
}

func TestConfirmMergeRetryDoesNotDuplicateGroups(t *testing.T) {
	engine, service, fake := setupEngine(t)
	ctx := context.Background()

	group, err := service.CreateGroup(ctx, nil, crud.GroupInput{Name: "errands"})
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}
	for _, title := range []string{"local-1", "local-2"} {
		if _, err := service.CreateTask(ctx, nil, crud.TaskInput{Title: title, GroupID: group.ID}); err != nil {
			t.Fatalf("seed task %q: %v", title, err)
		}
	}
	seedRemote(fake, "remote-1")

	if _, err := engine.OnSignIn(ctx, session()); err != nil {
		t.Fatalf("OnSignIn: %v", err)
	}
	if engine.State() != StateAwaitingChoice {
		t.Fatalf("state = %v, want awaiting-choice", engine.State())
	}

	// First attempt: the group upload lands, then the remote drops.
	fake.FailAfterWrites = 1
	if err := engine.ConfirmMerge(ctx, session()); err == nil {
		t.Fatal("ConfirmMerge should fail when the remote drops mid-upload")
	}
	if engine.State() != StateAwaitingChoice {
		t.Fatalf("state = %v, want awaiting-choice after failed merge", engine.State())
	}

	fake.FailAfterWrites = 0
	if err := engine.ConfirmMerge(ctx, session()); err != nil {
		t.Fatalf("ConfirmMerge retry: %v", err)
	}

	groups, _ := fake.ListGroups(ctx, session())
	if len(groups) != 1 {
		t.Fatalf("remote has %d groups after retry, want 1", len(groups))
	}
	if n := fake.Calls["create group"]; n != 1 {
		t.Errorf("group created remotely %d times across both attempts, want 1", n)
	}

	remote, _ := fake.ListTasks(ctx, session())
	if len(remote) != 3 {
		t.Fatalf("remote has %d tasks after retry, want 3", len(remote))
	}
	for _, task := range remote {
		if task.Title != "remote-1" && task.GroupID != groups[0].ID {
			t.Errorf("uploaded task %q has group id %q, want %q", task.Title, task.GroupID, groups[0].ID)
		}
	}

	local, _ := service.Local().ReadAllTasks(ctx)
	if len(local) != 3 {
		t.Errorf("local has %d tasks after merge, want 3", len(local))
	}
	if engine.State() != StateIdle {
		t.Errorf("state = %v, want idle after successful retry", engine.State())
	}
}

func TestScenarioBothPopulatedDiscardLocal(t *testing.T) {
	engine, service, fake := setupEngine(t)
	ctx := context.Background()

	seedLocal(t, service, "mine-1", "mine-2")
	seedRemote(fake, "theirs-1", "theirs-2")

	if _, err := engine.OnSignIn(ctx, session()); err != nil {
		t.Fatalf("OnSignIn: %v", err)
	}
	if err := engine.DiscardLocal(ctx); err != nil {
		t.Fatalf("DiscardLocal: %v", err)
	}

	local, _ := service.Local().ReadAllTasks(ctx)
	if len(local) != 2 {
		t.Fatalf("local has %d tasks, want the 2 remote ones", len(local))
	}
	for _, task := range local {
		if task.Title != "theirs-1" && task.Title != "theirs-2" {
			t.Errorf("unexpected surviving local task %q", task.Title)
		}
	}

	remote, _ := fake.ListTasks(ctx, session())
	if len(remote) != 2 {
		t.Errorf("remote changed during discard: %d tasks", len(remote))
	}
}

func TestResolutionRequiresSuspendedState(t *testing.T) {
	engine, _, _ := setupEngine(t)
	ctx := context.Background()

	if err := engine.ConfirmMerge(ctx, session()); !errors.Is(err, ErrNotAwaitingChoice) {
		t.Errorf("ConfirmMerge error = %v, want ErrNotAwaitingChoice", err)
	}
	if err := engine.DiscardLocal(ctx); !errors.Is(err, ErrNotAwaitingChoice) {
		t.Errorf("DiscardLocal error = %v, want ErrNotAwaitingChoice", err)
	}
}

func TestClassificationFailureLeavesEverythingUntouched(t *testing.T) {
	engine, service, fake := setupEngine(t)
	ctx := context.Background()

	seedLocal(t, service, "precious")
	fake.Unavailable = true

	_, err := engine.OnSignIn(ctx, session())
	var cerr *ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *ClassificationError", err)
	}
	if engine.State() != StateIdle {
		t.Errorf("state = %v, want idle after failed classification", engine.State())
	}

	local, _ := service.Local().ReadAllTasks(ctx)
	if len(local) != 1 || local[0].Title != "precious" {
		t.Error("local data changed by a failed classification")
	}
}

func TestReentrantSignInDiscardsStaleStaging(t *testing.T) {
	engine, service, fake := setupEngine(t)
	ctx := context.Background()

	seedLocal(t, service, "stale-local")
	seedRemote(fake, "remote-a")

	if _, err := engine.OnSignIn(ctx, session()); err != nil {
		t.Fatalf("first OnSignIn: %v", err)
	}
	if engine.State() != StateAwaitingChoice {
		t.Fatalf("expected suspended engine, state = %v", engine.State())
	}

	// Second sign-in starts a fresh pass; the unconfirmed buffer from the
	// first session must not leak into it.
	scenario, err := engine.OnSignIn(ctx, &model.AuthSession{UserID: "u2", Token: "tok2"})
	if err != nil {
		t.Fatalf("second OnSignIn: %v", err)
	}
	if scenario != ScenarioBothPopulated {
		t.Fatalf("scenario = %v, want both-populated", scenario)
	}

	staged := engine.LocalTasks()
	if len(staged) != 1 || staged[0].Title != "stale-local" {
		t.Fatalf("staging buffer should hold the freshly classified local set")
	}

	// Nothing from the abandoned first pass was ever written remotely.
	remote, _ := fake.ListTasks(ctx, session())
	if len(remote) != 1 {
		t.Errorf("remote has %d tasks, want the original 1", len(remote))
	}
}
