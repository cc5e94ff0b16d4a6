package oauth

import (
	"fmt"

	"github.com/gitscribe/gitscribe/internal/session"
)

// Credential is the bearer credential obtained from a completed login.
// No expiry is tracked; validity is established lazily by the first
// authenticated call that fails.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

// CredentialManager owns the stored credential for the rest of the session.
// It never performs network I/O; reads and writes go only to the injected
// session store.
type CredentialManager struct {
	store session.Store
}

// NewCredentialManager creates a manager over the given session store.
func NewCredentialManager(store session.Store) *CredentialManager {
	return &CredentialManager{store: store}
}

// Store persists the credential, overwriting any prior one. There are no
// merge semantics: the stored refresh token is removed when the new
// credential has none.
func (m *CredentialManager) Store(cred *Credential) error {
	if cred == nil || cred.AccessToken == "" {
		return fmt.Errorf("credential: access token is empty")
	}
	if err := m.store.Set(session.KeyAccessToken, cred.AccessToken); err != nil {
		return fmt.Errorf("credential: persist access token failed: %w", err)
	}
	if cred.RefreshToken != "" {
		if err := m.store.Set(session.KeyRefreshToken, cred.RefreshToken); err != nil {
			return fmt.Errorf("credential: persist refresh token failed: %w", err)
		}
		return nil
	}
	return m.store.Delete(session.KeyRefreshToken)
}

// Read returns the current credential, or false when the session holds none.
func (m *CredentialManager) Read() (*Credential, bool) {
	accessToken, ok := m.store.Get(session.KeyAccessToken)
	if !ok {
		return nil, false
	}
	cred := &Credential{AccessToken: accessToken}
	if refreshToken, okRefresh := m.store.Get(session.KeyRefreshToken); okRefresh {
		cred.RefreshToken = refreshToken
	}
	return cred, true
}

// Clear removes the credential and any leftover flow parameters. Used by
// logout and by callers that observe an authentication failure downstream.
// Clearing an empty session is a no-op.
func (m *CredentialManager) Clear() error {
	return m.store.Delete(
		session.KeyAccessToken,
		session.KeyRefreshToken,
		session.KeyOAuthState,
		session.KeyCodeVerifier,
	)
}
