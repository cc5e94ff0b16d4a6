package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gitscribe/gitscribe/internal/config"
	"github.com/gitscribe/gitscribe/internal/session"
)

// fakeProvider stands in for the identity provider's token and user
// endpoints. Handlers can be swapped per test; exchange counts are tracked so
// tests can assert that no token request follows a validation failure.
type fakeProvider struct {
	server        *httptest.Server
	exchangeCalls atomic.Int64
	tokenHandler  func(w http.ResponseWriter, r *http.Request)
	userHandler   func(w http.ResponseWriter, r *http.Request)
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.exchangeCalls.Add(1)
		if p.tokenHandler != nil {
			p.tokenHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"T","refresh_token":"R","token_type":"bearer","scope":"repo"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if p.userHandler != nil {
			p.userHandler(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer T" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"alice","name":"Alice"}`))
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) config() *config.Config {
	return &config.Config{
		AuthEndpoint:  p.server.URL + "/authorize",
		TokenEndpoint: p.server.URL + "/token",
		APIBaseURL:    p.server.URL,
		ClientID:      "client-123",
		Scopes:        []string{"repo", "read:user"},
		CallbackPort:  7423,
	}
}

func mustInitiate(t *testing.T, flow *Flow) string {
	t.Helper()
	authURL, err := flow.Initiate(context.Background())
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	return authURL
}

func storedValue(t *testing.T, store session.Store, key string) string {
	t.Helper()
	v, ok := store.Get(key)
	if !ok {
		t.Fatalf("expected %s in session store", key)
	}
	return v
}

func TestInitiateBuildsAuthorizationURL(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(t)
	store := session.NewMemoryStore()
	flow := NewFlow(provider.config(), store)

	authURL := mustInitiate(t, flow)

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("auth URL unparsable: %v", err)
	}
	query := parsed.Query()

	if got := query.Get("response_type"); got != "code" {
		t.Errorf("response_type = %q, want code", got)
	}
	if got := query.Get("client_id"); got != "client-123" {
		t.Errorf("client_id = %q", got)
	}
	if got := query.Get("redirect_uri"); got != "http://localhost:7423/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
	if got := query.Get("code_challenge_method"); got != "S256" {
		t.Errorf("code_challenge_method = %q, want S256", got)
	}
	if got := query.Get("scope"); got != "repo read:user" {
		t.Errorf("scope = %q, want space-delimited scopes", got)
	}

	state := storedValue(t, store, session.KeyOAuthState)
	if query.Get("state") != state {
		t.Errorf("URL state %q != stored state %q", query.Get("state"), state)
	}

	verifier := storedValue(t, store, session.KeyCodeVerifier)
	if got := query.Get("code_challenge"); got != ComputeCodeChallenge(verifier) {
		t.Errorf("code_challenge %q is not the S256 digest of the stored verifier", got)
	}
}

func TestResumeHappyPath(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(t)
	store := session.NewMemoryStore()
	flow := NewFlow(provider.config(), store)

	provider.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		verifier := storedValue(t, store, session.KeyCodeVerifier)
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("code"); got != "code-1" {
			t.Errorf("code = %q", got)
		}
		if got := r.PostForm.Get("code_verifier"); got != verifier {
			t.Errorf("code_verifier = %q, want stored verifier", got)
		}
		if got := r.PostForm.Get("client_id"); got != "client-123" {
			t.Errorf("client_id = %q", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "" {
			t.Errorf("client_secret sent on a public-client exchange: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"T","refresh_token":"R","token_type":"bearer"}`))
	}

	mustInitiate(t, flow)
	state := storedValue(t, store, session.KeyOAuthState)

	user, err := flow.Resume(context.Background(), "code-1", state)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if user.Account() != "alice" {
		t.Errorf("user = %q, want alice", user.Account())
	}

	cred, ok := flow.Credentials().Read()
	if !ok {
		t.Fatal("no credential committed after successful flow")
	}
	if cred.AccessToken != "T" || cred.RefreshToken != "R" {
		t.Errorf("credential = %+v", cred)
	}

	if _, ok = store.Get(session.KeyOAuthState); ok {
		t.Error("oauth_state not cleared after flow completion")
	}
	if _, ok = store.Get(session.KeyCodeVerifier); ok {
		t.Error("code_verifier not cleared after flow completion")
	}
	if got := provider.exchangeCalls.Load(); got != 1 {
		t.Errorf("exchange attempted %d times, want exactly 1", got)
	}
}

func TestResumeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		setup         func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (code, state string)
		wantType      *AuthenticationError
		wantExchanges int64
	}{
		{
			name: "missing code",
			setup: func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (string, string) {
				mustInitiate(t, flow)
				return "", storedValue(t, store, session.KeyOAuthState)
			},
			wantType: ErrMissingParameter,
		},
		{
			name: "missing state",
			setup: func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (string, string) {
				mustInitiate(t, flow)
				return "code-1", ""
			},
			wantType: ErrMissingParameter,
		},
		{
			name: "state mismatch",
			setup: func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (string, string) {
				mustInitiate(t, flow)
				return "code-1", "forged-state"
			},
			wantType: ErrStateMismatch,
		},
		{
			name: "no stored state",
			setup: func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (string, string) {
				return "code-1", "some-state"
			},
			wantType: ErrStateMismatch,
		},
		{
			name: "missing verifier",
			setup: func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (string, string) {
				mustInitiate(t, flow)
				state := storedValue(t, store, session.KeyOAuthState)
				if err := store.Delete(session.KeyCodeVerifier); err != nil {
					t.Fatalf("delete verifier: %v", err)
				}
				return "code-1", state
			},
			wantType: ErrMissingVerifier,
		},
		{
			name: "provider rejects exchange",
			setup: func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (string, string) {
				p.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
				}
				mustInitiate(t, flow)
				return "code-1", storedValue(t, store, session.KeyOAuthState)
			},
			wantType:      ErrTokenExchange,
			wantExchanges: 1,
		},
		{
			name: "malformed token response",
			setup: func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (string, string) {
				p.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(`not json`))
				}
				mustInitiate(t, flow)
				return "code-1", storedValue(t, store, session.KeyOAuthState)
			},
			wantType:      ErrMalformedResponse,
			wantExchanges: 1,
		},
		{
			name: "identity fetch rejected",
			setup: func(t *testing.T, p *fakeProvider, store session.Store, flow *Flow) (string, string) {
				p.userHandler = func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusUnauthorized)
				}
				mustInitiate(t, flow)
				return "code-1", storedValue(t, store, session.KeyOAuthState)
			},
			wantType:      ErrIdentityFetch,
			wantExchanges: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := newFakeProvider(t)
			store := session.NewMemoryStore()
			flow := NewFlow(provider.config(), store)

			code, state := tt.setup(t, provider, store, flow)

			_, err := flow.Resume(context.Background(), code, state)
			if err == nil {
				t.Fatal("Resume() succeeded, want failure")
			}
			if !IsType(err, tt.wantType) {
				t.Errorf("Resume() error = %v, want type %s", err, tt.wantType.Type)
			}

			if got := provider.exchangeCalls.Load(); got != tt.wantExchanges {
				t.Errorf("exchange attempted %d times, want %d", got, tt.wantExchanges)
			}

			if _, ok := flow.Credentials().Read(); ok {
				t.Error("credential committed despite failed flow")
			}
			if _, ok := store.Get(session.KeyOAuthState); ok {
				t.Error("oauth_state not cleared after failed flow")
			}
			if _, ok := store.Get(session.KeyCodeVerifier); ok {
				t.Error("code_verifier not cleared after failed flow")
			}
		})
	}
}

func TestResumeTokenExchangeCarriesProviderError(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(t)
	store := session.NewMemoryStore()
	flow := NewFlow(provider.config(), store)

	provider.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}

	mustInitiate(t, flow)
	state := storedValue(t, store, session.KeyOAuthState)

	_, err := flow.Resume(context.Background(), "code-1", state)
	if err == nil {
		t.Fatal("Resume() succeeded, want token exchange failure")
	}
	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Errorf("error %q does not carry the provider payload", err.Error())
	}
}
