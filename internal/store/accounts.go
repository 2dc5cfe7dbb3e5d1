package store

import (
	"go.uber.org/zap"

	"hillshield/internal/model"
)

// AccountPatch is a partial account update. Nil fields are left untouched.
type AccountPatch struct {
	Name     *string
	Role     *string
	Contacts *[]model.Contact
	Medical  *model.MedicalProfile
	Settings *model.AppSettings
	Privacy  *model.PrivacyFlags
}

func defaultAccount(handle, secretHash, name string, nowMillis int64) model.Account {
	return model.Account{
		ID:         handle,
		Handle:     handle,
		SecretHash: secretHash,
		Name:       name,
		Role:       "citizen",
		Contacts:   []model.Contact{},
		Medical: model.MedicalProfile{
			Allergies:   []string{},
			Conditions:  []string{},
			Medications: []string{},
		},
		Settings: model.AppSettings{Notifications: true, Theme: "light"},
		Privacy:  model.PrivacyFlags{ShareLocation: true, VisibleToResponders: true},
		CreatedAt: nowMillis,
		UpdatedAt: nowMillis,
	}
}

// SignUp registers a new account and opens a session for it. The roster is
// left untouched when the handle is already taken.
func (s *Store) SignUp(handle, secret, name string, nowMillis int64) (model.Account, error) {
	if handle == "" || secret == "" {
		return model.Account{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var roster []model.Account
	if _, _, err := s.get(keyAccounts, &roster); err != nil {
		return model.Account{}, err
	}
	for _, acc := range roster {
		if acc.Handle == handle {
			return model.Account{}, ErrDuplicateHandle
		}
	}

	secretHash, err := hashSecret(secret)
	if err != nil {
		return model.Account{}, err
	}
	acc := defaultAccount(handle, secretHash, name, nowMillis)

	if _, err := s.commit(keyAccounts, append(roster, acc), nowMillis); err != nil {
		return model.Account{}, err
	}
	if err := s.openSessionLocked(acc, "", nowMillis); err != nil {
		// A failed sign-up must not leave a partial roster write behind.
		if _, rbErr := s.commit(keyAccounts, roster, nowMillis); rbErr != nil {
			s.log.Warn("store: sign-up rollback failed, roster retains unregistered account",
				zap.String("handle", handle), zap.Error(rbErr))
		}
		return model.Account{}, err
	}
	return acc, nil
}

// Login matches handle and secret exactly; a missing handle and a wrong
// secret are indistinguishable to the caller.
func (s *Store) Login(handle, secret string, nowMillis int64) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var roster []model.Account
	if _, _, err := s.get(keyAccounts, &roster); err != nil {
		return model.Account{}, err
	}
	for _, acc := range roster {
		if acc.Handle == handle && verifySecret(acc.SecretHash, secret) {
			if err := s.openSessionLocked(acc, "", nowMillis); err != nil {
				return model.Account{}, err
			}
			return acc, nil
		}
	}
	return model.Account{}, ErrInvalidCredentials
}

func (s *Store) openSessionLocked(acc model.Account, token string, nowMillis int64) error {
	sess := model.Session{Account: acc, Token: token, CreatedAt: nowMillis}
	_, err := s.commit(keySession, sess, nowMillis)
	return err
}

// SetSessionToken attaches an issued token to the active session.
func (s *Store) SetSessionToken(token string, nowMillis int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess model.Session
	_, found, err := s.get(keySession, &sess)
	if err != nil {
		return err
	}
	if !found || sess.Account.ID == "" {
		return ErrNoSession
	}
	sess.Token = token
	_, err = s.commit(keySession, sess, nowMillis)
	return err
}

// Current returns the logged-in account.
func (s *Store) Current() (model.Session, error) {
	var sess model.Session
	_, found, err := s.get(keySession, &sess)
	if err != nil {
		return model.Session{}, err
	}
	if !found || sess.Account.ID == "" {
		return model.Session{}, ErrNoSession
	}
	return sess, nil
}

// Logout clears the session document. The account stays in the roster.
func (s *Store) Logout(nowMillis int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.commit(keySession, model.Session{}, nowMillis)
	return err
}

// UpdateAccount merges a partial update into the active account and keeps
// the roster entry and the session snapshot consistent: when the session
// write fails the roster write is rolled back.
func (s *Store) UpdateAccount(patch AccountPatch, nowMillis int64) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess model.Session
	_, found, err := s.get(keySession, &sess)
	if err != nil {
		return model.Account{}, err
	}
	if !found || sess.Account.ID == "" {
		return model.Account{}, ErrNoSession
	}

	acc := sess.Account
	if patch.Name != nil {
		acc.Name = *patch.Name
	}
	if patch.Role != nil {
		acc.Role = *patch.Role
	}
	if patch.Contacts != nil {
		acc.Contacts = *patch.Contacts
	}
	if patch.Medical != nil {
		acc.Medical = *patch.Medical
	}
	if patch.Settings != nil {
		acc.Settings = *patch.Settings
	}
	if patch.Privacy != nil {
		acc.Privacy = *patch.Privacy
	}
	acc.UpdatedAt = nowMillis

	var roster []model.Account
	if _, _, err := s.get(keyAccounts, &roster); err != nil {
		return model.Account{}, err
	}
	prevRoster := make([]model.Account, len(roster))
	copy(prevRoster, roster)

	updated := false
	for i := range roster {
		if roster[i].ID == acc.ID {
			roster[i] = acc
			updated = true
			break
		}
	}
	if !updated {
		return model.Account{}, ErrNotFound
	}

	if _, err := s.commit(keyAccounts, roster, nowMillis); err != nil {
		return model.Account{}, err
	}
	sess.Account = acc
	if _, err := s.commit(keySession, sess, nowMillis); err != nil {
		// Keep both copies consistent: undo the roster write.
		if _, rbErr := s.commit(keyAccounts, prevRoster, nowMillis); rbErr != nil {
			s.log.Warn("store: account update rollback failed, roster and session diverge",
				zap.String("id", acc.ID), zap.Error(rbErr))
		}
		return model.Account{}, err
	}
	return acc, nil
}

// AccountByID looks an account up in the roster.
func (s *Store) AccountByID(id string) (model.Account, error) {
	var roster []model.Account
	if _, _, err := s.get(keyAccounts, &roster); err != nil {
		return model.Account{}, err
	}
	for _, acc := range roster {
		if acc.ID == id {
			return acc, nil
		}
	}
	return model.Account{}, ErrNotFound
}

// Roster returns every registered account. Secret hashes are included; the
// HTTP layer never serializes them.
func (s *Store) Roster() ([]model.Account, error) {
	var roster []model.Account
	if _, _, err := s.get(keyAccounts, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}
