package crud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

// storedSession is the settings-table representation of a session.
type storedSession struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// SaveSession persists the session so later processes (the CLI, the
// daemon) start in cloud mode without a fresh sign-in.
func (s *Service) SaveSession(ctx context.Context, session *model.AuthSession) error {
	if !session.Valid() {
		return fmt.Errorf("refusing to save an invalid session")
	}
	data, err := json.Marshal(storedSession{UserID: session.UserID, Token: session.Token})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.local.SetSetting(ctx, model.SettingAuthSession, string(data))
}

// LoadSession returns the persisted session, or nil when signed out.
func (s *Service) LoadSession(ctx context.Context) (*model.AuthSession, error) {
	raw, ok, err := s.local.GetSetting(ctx, model.SettingAuthSession)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode stored session: %w", err)
	}
	session := &model.AuthSession{UserID: stored.UserID, Token: stored.Token}
	if !session.Valid() {
		return nil, nil
	}
	return session, nil
}

// ClearSession signs the device out. Local data is untouched.
func (s *Service) ClearSession(ctx context.Context) error {
	return s.local.DeleteSetting(ctx, model.SettingAuthSession)
}
