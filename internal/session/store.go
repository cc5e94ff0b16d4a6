// Package session provides the ephemeral key/value store that carries OAuth
// flow parameters and the resulting credential across the redirect gap.
// The login flow is split across two process phases; nothing survives that
// boundary except what is written here.
package session

// Well-known session keys. The flow parameters are single-use and are removed
// on every login outcome; the token keys live until logout.
const (
	KeyOAuthState   = "oauth_state"
	KeyCodeVerifier = "code_verifier"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Store is the narrow persistence surface injected into the OAuth components.
// Implementations must treat a missing key as a definite absent state, never
// as a transient error: the backing storage can legitimately be empty at any
// read (fresh install, manual deletion, expired session).
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)
	// Set writes key to value, overwriting any prior value.
	Set(key, value string) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(keys ...string) error
	// Clear removes every key. Clearing an empty store is a no-op.
	Clear() error
}
