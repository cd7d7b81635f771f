// Package syncengine reconciles the local store with the remote store
// exactly once per sign-in transition.
//
// On sign-in the engine reads both full collections, classifies the
// situation into a Scenario, and resolves the unambiguous ones silently:
// an empty device adopts the remote data, a fresh account receives the
// local data, and matching collections are left alone. The one ambiguous
// case, diverging data on both sides, suspends the engine: nothing is
// written until an external collaborator (the merge-prompt UI) calls
// ConfirmMerge or DiscardLocal.
//
// Merging is additive only. The engine never attempts a field-level merge
// of a task that exists on both sides with different content; titles are
// not a stable join key, and guessing risks silent data loss. Confirmed
// local tasks are re-created remotely under fresh server ids, so
// duplicate titles become two distinct tasks rather than one clobbered
// one.
//
// The engine never writes entity identity itself: uploads go through the
// CRUD layer, and the only direct local-store writes are verbatim mirrors
// of server-assigned state.
package syncengine

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/jonahr4/taskapp-sync/internal/crud"
	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
)

// ClassificationError wraps a failure to read one or both collections
// during sign-in. The sync attempt is aborted, the engine returns to
// Idle, and no data is touched.
type ClassificationError struct {
	Err error
}

// Error implements the error interface.
func (e *ClassificationError) Error() string {
	return fmt.Sprintf("sync classification failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// ErrNotAwaitingChoice is returned by ConfirmMerge and DiscardLocal when
// there is no suspended merge decision to resolve.
var ErrNotAwaitingChoice = fmt.Errorf("sync engine: no merge decision pending")

// Engine is the per-session reconciliation service.
//
// It is owned by the auth session lifecycle, not a process-wide
// singleton, so tests construct as many independent engines as they
// need. All methods are safe for concurrent use; the state machine
// serializes sign-in passes internally.
type Engine struct {
	crud   *crud.Service
	remote remotestore.Store
	logger *log.Logger

	mu           sync.Mutex
	state        State
	scenario     Scenario
	session      *model.AuthSession
	stagedTasks  []*model.Task
	stagedGroups []*model.TaskGroup
	uploadState  *crud.UploadState
}

// New creates a sync engine over the given CRUD service and remote store.
//
// If logger is nil, a default logger writing to stderr is used.
func New(service *crud.Service, remote remotestore.Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{
		crud:   service,
		remote: remote,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Scenario returns the most recently computed scenario, or ScenarioNone.
func (e *Engine) Scenario() Scenario {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenario
}

// Syncing reports whether a classification or resolution pass is running
// or suspended on a user decision.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != StateIdle
}

// LocalTasks returns the staged local candidate set awaiting a merge
// decision. Empty unless the engine is in StateAwaitingChoice. The
// merge-prompt UI reads this to render the choice.
func (e *Engine) LocalTasks() []*model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*model.Task, len(e.stagedTasks))
	for i, task := range e.stagedTasks {
		out[i] = task.Clone()
	}
	return out
}

// OnSignIn runs one classification pass for the newly authenticated
// session and resolves it when unambiguous.
//
// A sign-in that arrives while a previous session's merge decision is
// still suspended discards that session's staging buffer (it was never
// committed anywhere) and classifies fresh. Returns the computed
// scenario; for ScenarioBothPopulated the engine stays suspended until
// ConfirmMerge or DiscardLocal.
func (e *Engine) OnSignIn(ctx context.Context, session *model.AuthSession) (Scenario, error) {
	if !session.Valid() {
		return ScenarioNone, &ClassificationError{Err: fmt.Errorf("invalid session")}
	}

	e.mu.Lock()
	if e.state == StateClassifying || e.state == StateResolving {
		e.mu.Unlock()
		return ScenarioNone, &ClassificationError{Err: fmt.Errorf("sync already in progress")}
	}
	if e.state == StateAwaitingChoice {
		e.logger.Printf("New sign-in while a merge decision was pending; discarding stale staging buffer")
		e.stagedTasks = nil
		e.stagedGroups = nil
	}
	// Upload progress never carries across classification passes.
	e.uploadState = nil
	e.state = StateClassifying
	e.scenario = ScenarioNone
	e.session = session
	e.mu.Unlock()

	scenario, err := e.classify(ctx, session)
	if err != nil {
		e.setIdle(ScenarioNone)
		return ScenarioNone, err
	}

	e.logger.Printf("Sign-in classified as %s", scenario)

	switch scenario {
	case ScenarioBothEmpty, ScenarioAlreadySynced:
		// No writes.
		e.finish(ctx, scenario)
		return scenario, nil

	case ScenarioNoLocalData:
		e.setState(StateResolving)
		if err := e.adoptRemote(ctx, session); err != nil {
			e.setIdle(ScenarioNone)
			return ScenarioNone, err
		}
		e.finish(ctx, scenario)
		return scenario, nil

	case ScenarioNoRemoteData:
		e.setState(StateResolving)
		if _, err := e.crud.UploadLocal(ctx, session, nil, nil); err != nil {
			e.setIdle(ScenarioNone)
			return ScenarioNone, err
		}
		// Re-read so the local mirror carries the server identities.
		if err := e.adoptRemote(ctx, session); err != nil {
			e.setIdle(ScenarioNone)
			return ScenarioNone, err
		}
		e.finish(ctx, scenario)
		return scenario, nil

	default: // ScenarioBothPopulated
		e.mu.Lock()
		e.state = StateAwaitingChoice
		e.scenario = scenario
		staged := len(e.stagedTasks)
		e.mu.Unlock()
		e.logger.Printf("Suspended: %d local tasks await a merge decision", staged)
		return scenario, nil
	}
}

// ConfirmMerge resolves a suspended merge by re-creating the selected
// staged local tasks (all of them when selectedIDs is empty) in the
// remote store, then adopting the remote collections locally.
func (e *Engine) ConfirmMerge(ctx context.Context, session *model.AuthSession, selectedIDs ...string) error {
	e.mu.Lock()
	if e.state != StateAwaitingChoice {
		e.mu.Unlock()
		return ErrNotAwaitingChoice
	}
	if !session.Valid() {
		session = e.session
	}
	staged := e.stagedTasks
	if e.uploadState == nil {
		e.uploadState = crud.NewUploadState()
	}
	state := e.uploadState
	e.state = StateResolving
	e.mu.Unlock()

	ids := selectedIDs
	if len(ids) == 0 {
		ids = make([]string, len(staged))
		for i, task := range staged {
			ids[i] = task.ID
		}
	}

	// The shared state survives a failed attempt, so a retry skips the
	// groups and tasks the first pass already created remotely.
	if _, err := e.crud.UploadLocal(ctx, session, ids, state); err != nil {
		// The upload is additive; a partial upload leaves nothing
		// half-overwritten. Surface the error and let the caller retry.
		e.mu.Lock()
		e.state = StateAwaitingChoice
		e.mu.Unlock()
		return err
	}

	if err := e.adoptRemote(ctx, session); err != nil {
		e.setIdle(ScenarioNone)
		return err
	}

	e.mu.Lock()
	e.stagedTasks = nil
	e.stagedGroups = nil
	e.uploadState = nil
	e.mu.Unlock()
	e.finish(ctx, ScenarioBothPopulated)
	e.logger.Printf("Merge confirmed: %d local tasks uploaded", len(ids))
	return nil
}

// DiscardLocal resolves a suspended merge by dropping the local
// collections entirely and adopting the remote ones.
func (e *Engine) DiscardLocal(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateAwaitingChoice {
		e.mu.Unlock()
		return ErrNotAwaitingChoice
	}
	session := e.session
	e.state = StateResolving
	e.mu.Unlock()

	local := e.crud.Local()
	if err := local.ClearTasks(ctx); err != nil {
		e.setIdle(ScenarioNone)
		return err
	}
	if err := local.ClearGroups(ctx); err != nil {
		e.setIdle(ScenarioNone)
		return err
	}

	if err := e.adoptRemote(ctx, session); err != nil {
		e.setIdle(ScenarioNone)
		return err
	}

	e.mu.Lock()
	e.stagedTasks = nil
	e.stagedGroups = nil
	e.uploadState = nil
	e.mu.Unlock()
	e.finish(ctx, ScenarioBothPopulated)
	e.logger.Printf("Local data discarded in favor of remote")
	return nil
}

// classify reads both collections and computes the scenario. On a
// both-populated result the local collections are staged for the merge
// prompt. No writes happen here.
func (e *Engine) classify(ctx context.Context, session *model.AuthSession) (Scenario, error) {
	local := e.crud.Local()

	localTasks, err := local.ReadAllTasks(ctx)
	if err != nil {
		return ScenarioNone, &ClassificationError{Err: err}
	}
	localGroups, err := local.ReadAllGroups(ctx)
	if err != nil {
		return ScenarioNone, &ClassificationError{Err: err}
	}

	remoteTasks, err := e.remote.ListTasks(ctx, session)
	if err != nil {
		return ScenarioNone, &ClassificationError{Err: err}
	}
	remoteGroups, err := e.remote.ListGroups(ctx, session)
	if err != nil {
		return ScenarioNone, &ClassificationError{Err: err}
	}

	localEmpty := len(localTasks) == 0 && len(localGroups) == 0
	remoteEmpty := len(remoteTasks) == 0 && len(remoteGroups) == 0

	switch {
	case localEmpty && remoteEmpty:
		return ScenarioBothEmpty, nil
	case localEmpty:
		return ScenarioNoLocalData, nil
	case remoteEmpty:
		return ScenarioNoRemoteData, nil
	}

	if sameTaskSet(localTasks, remoteTasks) {
		return ScenarioAlreadySynced, nil
	}

	e.mu.Lock()
	e.stagedTasks = localTasks
	e.stagedGroups = localGroups
	e.mu.Unlock()
	return ScenarioBothPopulated, nil
}

// adoptRemote overwrites the local collections with the remote ones,
// verbatim. Server identity and timestamps are copied, not re-assigned.
func (e *Engine) adoptRemote(ctx context.Context, session *model.AuthSession) error {
	remoteTasks, err := e.remote.ListTasks(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to read remote tasks: %w", err)
	}
	remoteGroups, err := e.remote.ListGroups(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to read remote groups: %w", err)
	}

	local := e.crud.Local()
	if err := local.WriteAllGroups(ctx, remoteGroups); err != nil {
		return err
	}
	if err := local.WriteAllTasks(ctx, remoteTasks); err != nil {
		return err
	}

	e.logger.Printf("Adopted remote state: %d tasks, %d groups", len(remoteTasks), len(remoteGroups))
	return nil
}

// sameTaskSet compares the two collections by content key (title plus
// updated timestamp at second resolution).
func sameTaskSet(a, b []*model.Task) bool {
	if len(a) != len(b) {
		return false
	}
	keys := make(map[string]int, len(a))
	for _, task := range a {
		keys[task.ContentKey()]++
	}
	for _, task := range b {
		keys[task.ContentKey()]--
		if keys[task.ContentKey()] < 0 {
			return false
		}
	}
	return true
}

// setState transitions the state under lock.
func (e *Engine) setState(state State) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
}

// setIdle returns the engine to Idle with the given scenario recorded.
func (e *Engine) setIdle(scenario Scenario) {
	e.mu.Lock()
	e.state = StateIdle
	e.scenario = scenario
	e.mu.Unlock()
}

// finish records the terminal scenario for the pass, returns to Idle, and
// remembers the outcome in settings for the status surface.
func (e *Engine) finish(ctx context.Context, scenario Scenario) {
	e.setIdle(scenario)
	if err := e.crud.Local().SetSetting(ctx, model.SettingLastScenario, scenario.String()); err != nil {
		e.logger.Printf("Warning: failed to record sync scenario: %v", err)
	}
}
