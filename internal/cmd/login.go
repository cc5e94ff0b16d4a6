// Package cmd implements the gitscribe command entry points: the OAuth login
// flow and the authenticated repository operations.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitscribe/gitscribe/internal/browser"
	"github.com/gitscribe/gitscribe/internal/config"
	"github.com/gitscribe/gitscribe/internal/logging"
	"github.com/gitscribe/gitscribe/internal/oauth"
	"github.com/gitscribe/gitscribe/internal/session"
	log "github.com/sirupsen/logrus"
)

// LoginOptions contains options for the login process.
type LoginOptions struct {
	// NoBrowser indicates whether to skip opening the browser automatically.
	NoBrowser bool

	// CallbackPort overrides the local OAuth callback port when set (>0).
	CallbackPort int

	// Prompt allows the caller to provide interactive input when needed.
	Prompt func(prompt string) (string, error)
}

// callbackWait bounds how long login waits for the provider redirect.
const callbackWait = 5 * time.Minute

// DoLogin runs the full PKCE login: initiate, browser hand-off, callback,
// resume, commit.
func DoLogin(cfg *config.Config, opts *LoginOptions) error {
	if opts == nil {
		opts = &LoginOptions{}
	}
	ctx := logging.WithRequestID(context.Background(), logging.GenerateRequestID())

	callbackPort := cfg.CallbackPort
	if opts.CallbackPort > 0 {
		callbackPort = opts.CallbackPort
		cfg.CallbackPort = opts.CallbackPort
	}

	store := session.NewFileStore(cfg.SessionFile())
	flow := oauth.NewFlow(cfg, store)

	// Flow parameters are single-use. Resume clears them itself, but a denied
	// authorization or a timeout ends the attempt before Resume ever runs, and
	// the persisted state and verifier must not outlive the attempt.
	defer func() {
		_ = store.Delete(session.KeyOAuthState, session.KeyCodeVerifier)
	}()

	callbackServer := oauth.NewCallbackServer(callbackPort)
	if err := callbackServer.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if stopErr := callbackServer.Stop(stopCtx); stopErr != nil {
			log.Warnf("callback server stop error: %v", stopErr)
		}
	}()

	authURL, err := flow.Initiate(ctx)
	if err != nil {
		return err
	}

	if !opts.NoBrowser && browser.IsAvailable() {
		fmt.Println("Opening browser for authentication")
		if errOpen := browser.OpenURL(authURL); errOpen != nil {
			log.Warnf("failed to open browser automatically: %v", errOpen)
			fmt.Printf("Visit the following URL to continue authentication:\n%s\n", authURL)
		}
	} else {
		fmt.Printf("Visit the following URL to continue authentication:\n%s\n", authURL)
	}

	fmt.Println("Waiting for authentication callback...")

	result, err := waitForCallback(callbackServer, opts)
	if err != nil {
		return err
	}

	if result.Error != "" {
		return oauth.NewOAuthError(result.Error, result.ErrorDescription, 400)
	}

	user, err := flow.Resume(ctx, result.Code, result.State)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s\n", user.Account())
	return nil
}

// waitForCallback waits on the loopback server, offering a manual paste
// fallback after a short delay when a prompt function is available.
func waitForCallback(callbackServer *oauth.CallbackServer, opts *LoginOptions) (*oauth.CallbackResult, error) {
	callbackCh := make(chan *oauth.CallbackResult, 1)
	callbackErrCh := make(chan error, 1)

	go func() {
		result, errWait := callbackServer.WaitForCallback(callbackWait)
		if errWait != nil {
			callbackErrCh <- errWait
			return
		}
		callbackCh <- result
	}()

	var manualPromptC <-chan time.Time
	if opts.Prompt != nil {
		timer := time.NewTimer(15 * time.Second)
		defer timer.Stop()
		manualPromptC = timer.C
	}

	for {
		select {
		case result := <-callbackCh:
			return result, nil
		case err := <-callbackErrCh:
			return nil, err
		case <-manualPromptC:
			manualPromptC = nil
			// The redirect may have landed while the user was prompted.
			select {
			case result := <-callbackCh:
				return result, nil
			default:
			}
			input, errPrompt := opts.Prompt("Paste the callback URL (or press Enter to keep waiting): ")
			if errPrompt != nil {
				return nil, errPrompt
			}
			parsed, errParse := oauth.ParseCallbackURL(input)
			if errParse != nil {
				return nil, errParse
			}
			if parsed == nil {
				continue
			}
			return parsed, nil
		}
	}
}

// DoLogout clears the stored credential and any leftover flow parameters.
func DoLogout(cfg *config.Config) error {
	store := session.NewFileStore(cfg.SessionFile())
	manager := oauth.NewCredentialManager(store)
	if err := manager.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

// FriendlyLoginError translates login failures for terminal display.
func FriendlyLoginError(err error) string {
	var authErr *oauth.AuthenticationError
	if errors.As(err, &authErr) {
		return oauth.GetUserFriendlyMessage(authErr)
	}
	var oauthErr *oauth.OAuthError
	if errors.As(err, &oauthErr) {
		return fmt.Sprintf("The provider declined the authorization: %s", oauthErr.Error())
	}
	return err.Error()
}
