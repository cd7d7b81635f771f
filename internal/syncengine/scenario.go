package syncengine

// Scenario classifies the relationship between the local and remote
// collections at sign-in. It is computed once per sign-in transition and
// never persisted; it exists to decide whether reconciliation can run
// automatically or must wait for the user.
type Scenario int

const (
	// ScenarioNone means no classification has run yet.
	ScenarioNone Scenario = iota

	// ScenarioNoLocalData means the device holds nothing: adopt the
	// remote collections as-is.
	ScenarioNoLocalData

	// ScenarioNoRemoteData means the account holds nothing (first
	// login): upload the local collections as-is.
	ScenarioNoRemoteData

	// ScenarioBothEmpty means there is nothing on either side.
	ScenarioBothEmpty

	// ScenarioBothPopulated means both sides hold diverging data. This
	// is the one ambiguous case: the engine suspends and waits for the
	// user to choose keep-remote, keep-local-too, or a task subset.
	ScenarioBothPopulated

	// ScenarioAlreadySynced means the local collection already mirrors
	// the remote one (same task titles and updated timestamps).
	ScenarioAlreadySynced
)

// String returns a human-readable representation of the scenario.
func (s Scenario) String() string {
	switch s {
	case ScenarioNone:
		return "none"
	case ScenarioNoLocalData:
		return "no-local-data"
	case ScenarioNoRemoteData:
		return "no-remote-data"
	case ScenarioBothEmpty:
		return "both-empty"
	case ScenarioBothPopulated:
		return "both-populated"
	case ScenarioAlreadySynced:
		return "already-synced"
	default:
		return "unknown"
	}
}

// State is the engine's position in the per-sign-in state machine.
type State int

const (
	// StateIdle means no sync is in progress.
	StateIdle State = iota

	// StateClassifying means the engine is reading both collections.
	StateClassifying

	// StateResolving means an unambiguous scenario is being applied.
	StateResolving

	// StateAwaitingChoice means classification found diverging data on
	// both sides and the engine is suspended until ConfirmMerge or
	// DiscardLocal is called.
	StateAwaitingChoice
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClassifying:
		return "classifying"
	case StateResolving:
		return "resolving"
	case StateAwaitingChoice:
		return "awaiting-choice"
	default:
		return "unknown"
	}
}
