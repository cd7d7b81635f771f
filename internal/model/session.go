package model

// AuthSession identifies a signed-in user for cloud-mode operations.
//
// A nil *AuthSession means local-only mode: the CRUD layer writes to the
// local store only and never touches the network. Sessions are plain
// values passed down explicitly so tests can construct several
// independent ones.
type AuthSession struct {
	// UserID is the remote store's stable identifier for the user.
	UserID string

	// Token is the bearer credential presented to the remote store.
	Token string
}

// Valid reports whether the session carries enough to authenticate.
func (s *AuthSession) Valid() bool {
	return s != nil && s.UserID != "" && s.Token != ""
}

// Setting keys for the scalar records stored next to the collections.
const (
	// SettingNotificationPrefs holds the notification preferences blob.
	SettingNotificationPrefs = "notification_prefs"

	// SettingCalendarToken holds the calendar subscription feed token.
	SettingCalendarToken = "calendar_token"

	// SettingLastScenario records the most recent sign-in sync scenario,
	// for the status command only; it is never read by the engine.
	SettingLastScenario = "last_scenario"

	// SettingAuthSession persists the signed-in session between runs.
	SettingAuthSession = "auth_session"
)
