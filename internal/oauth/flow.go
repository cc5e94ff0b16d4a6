package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gitscribe/gitscribe/internal/config"
	"github.com/gitscribe/gitscribe/internal/logging"
	"github.com/gitscribe/gitscribe/internal/session"
	"github.com/gitscribe/gitscribe/internal/util"
)

// tokenResponse is the expected shape of the provider token endpoint reply.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// User is the provider identity resolved during login. Hosts differ on the
// field carrying the account name, so both common spellings are accepted.
type User struct {
	Login    string `json:"login"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Account returns the account name regardless of which field the provider used.
func (u *User) Account() string {
	if u.Login != "" {
		return u.Login
	}
	return u.Username
}

// Flow drives the two phases of the PKCE login. Initiate runs before the
// browser hand-off; Resume runs after the redirect returns. The only state
// shared between the phases lives in the injected session store.
type Flow struct {
	httpClient    *http.Client
	store         session.Store
	credentials   *CredentialManager
	authEndpoint  string
	tokenEndpoint string
	userEndpoint  string
	clientID      string
	redirectURI   string
	scopes        []string
}

// NewFlow constructs a login flow from the application configuration,
// the injected session store, and a proxy-aware HTTP client.
func NewFlow(cfg *config.Config, store session.Store) *Flow {
	client := &http.Client{Timeout: 30 * time.Second}
	return &Flow{
		httpClient:    util.SetProxy(cfg, client),
		store:         store,
		credentials:   NewCredentialManager(store),
		authEndpoint:  cfg.AuthEndpoint,
		tokenEndpoint: cfg.TokenEndpoint,
		userEndpoint:  cfg.APIBaseURL + "/user",
		clientID:      cfg.ClientID,
		redirectURI:   cfg.RedirectURI(),
		scopes:        append([]string(nil), cfg.Scopes...),
	}
}

// Credentials exposes the credential manager bound to this flow's store.
func (f *Flow) Credentials() *CredentialManager {
	return f.credentials
}

// Initiate generates fresh flow parameters, persists them, and returns the
// authorization URL to navigate to. The parameters are written to the store
// before the URL is handed out: the redirect destroys in-process state, so a
// later process must be able to resume from storage alone. A persist failure
// aborts the flow.
func (f *Flow) Initiate(ctx context.Context) (string, error) {
	pkceCodes, err := GeneratePKCECodes()
	if err != nil {
		return "", err
	}
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	if err = f.store.Set(session.KeyOAuthState, state); err != nil {
		return "", fmt.Errorf("oauth: persist state failed: %w", err)
	}
	if err = f.store.Set(session.KeyCodeVerifier, pkceCodes.CodeVerifier); err != nil {
		// Roll back the half-written attempt so a stale state cannot match a
		// later callback.
		_ = f.store.Delete(session.KeyOAuthState)
		return "", fmt.Errorf("oauth: persist verifier failed: %w", err)
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {f.clientID},
		"redirect_uri":          {f.redirectURI},
		"state":                 {state},
		"code_challenge":        {pkceCodes.CodeChallenge},
		"code_challenge_method": {"S256"},
		"scope":                 {strings.Join(f.scopes, " ")},
	}

	logging.Entry(ctx).Debug("login initiated, flow parameters persisted")
	return fmt.Sprintf("%s?%s", f.authEndpoint, params.Encode()), nil
}

// Resume consumes the provider redirect: it validates the callback against
// the stored flow parameters, exchanges the authorization code for tokens,
// confirms the token resolves an identity, and commits the credential.
//
// The stored state and verifier are single-use; they are cleared on every
// outcome, success or failure. The exchange is attempted at most once per
// code and never retried: authorization codes are one-shot by protocol
// design, so a retry would fail anyway.
func (f *Flow) Resume(ctx context.Context, code, state string) (*User, error) {
	defer func() {
		_ = f.store.Delete(session.KeyOAuthState, session.KeyCodeVerifier)
	}()

	entry := logging.Entry(ctx)

	if code == "" || state == "" {
		return nil, NewAuthenticationError(ErrMissingParameter, fmt.Errorf("code or state missing from callback"))
	}

	storedState, ok := f.store.Get(session.KeyOAuthState)
	if !ok || storedState != state {
		// CSRF defense. Hard stop: no token request may be issued.
		entry.Error("callback state does not match stored state")
		return nil, NewAuthenticationError(ErrStateMismatch, fmt.Errorf("state mismatch"))
	}

	codeVerifier, ok := f.store.Get(session.KeyCodeVerifier)
	if !ok {
		return nil, NewAuthenticationError(ErrMissingVerifier, fmt.Errorf("no code verifier in session"))
	}

	entry.Debug("state validated, exchanging authorization code")
	token, err := f.exchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return nil, err
	}

	entry.Debug("tokens received, fetching provider identity")
	user, err := f.fetchIdentity(ctx, token.AccessToken)
	if err != nil {
		// A token that cannot resolve an identity is not stored; committing
		// it would leave a logged-in-but-broken session.
		return nil, err
	}

	cred := &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if err = f.credentials.Store(cred); err != nil {
		return nil, fmt.Errorf("oauth: commit credential failed: %w", err)
	}

	entry.WithField("provider", f.authEndpoint).Info("login committed")
	return user, nil
}

// exchangeCode performs the single code-for-token request. No client secret
// is sent; the PKCE verifier proves possession instead.
func (f *Flow) exchangeCode(ctx context.Context, code, codeVerifier string) (*tokenResponse, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {codeVerifier},
		"redirect_uri":  {f.redirectURI},
		"client_id":     {f.clientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("oauth: create token request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, NewAuthenticationError(ErrNetwork, fmt.Errorf("token exchange request failed: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewAuthenticationError(ErrNetwork, fmt.Errorf("failed to read token response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewAuthenticationError(ErrTokenExchange, parseProviderError(body, resp.StatusCode))
	}

	var token tokenResponse
	if err = json.Unmarshal(body, &token); err != nil {
		return nil, NewAuthenticationError(ErrMalformedResponse, fmt.Errorf("failed to parse token response: %w", err))
	}
	// Some providers return 200 with an error body.
	if token.AccessToken == "" {
		if oauthErr := parseProviderError(body, resp.StatusCode); oauthErr != nil {
			return nil, NewAuthenticationError(ErrTokenExchange, oauthErr)
		}
		return nil, NewAuthenticationError(ErrMalformedResponse, fmt.Errorf("token response missing access_token"))
	}

	return &token, nil
}

// fetchIdentity confirms the access token is usable by resolving the current
// user. Any failure here is terminal for the attempt.
func (f *Flow) fetchIdentity(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth: create identity request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, NewAuthenticationError(ErrNetwork, fmt.Errorf("identity request timed out: %w", err))
		}
		return nil, NewAuthenticationError(ErrIdentityFetch, fmt.Errorf("identity request failed: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewAuthenticationError(ErrIdentityFetch, fmt.Errorf("failed to read identity response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewAuthenticationError(ErrIdentityFetch, fmt.Errorf("identity fetch failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var user User
	if err = json.Unmarshal(body, &user); err != nil {
		return nil, NewAuthenticationError(ErrMalformedResponse, fmt.Errorf("failed to parse identity response: %w", err))
	}
	if user.Account() == "" {
		return nil, NewAuthenticationError(ErrMalformedResponse, fmt.Errorf("identity response missing account name"))
	}

	return &user, nil
}

// parseProviderError extracts an RFC 6749 error body. It returns a generic
// OAuthError with the raw body when the payload is not the expected shape.
func parseProviderError(body []byte, statusCode int) *OAuthError {
	var oauthErr OAuthError
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Code != "" {
		oauthErr.StatusCode = statusCode
		return &oauthErr
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	return NewOAuthError("provider_error", trimmed, statusCode)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
