// Package oauth implements the client side of the OAuth 2.0 Authorization
// Code flow with PKCE against a Git-hosting provider. It covers flow
// parameter generation, the authorization request, callback validation, the
// code-for-token exchange, and credential lifecycle management. The flow is
// split into two phases joined only by the injected session store, because a
// full redirect can tear down the initiating process.
package oauth

import (
	"errors"
	"fmt"
	"net/http"
)

// OAuthError represents an error payload returned by the provider, mirroring
// the RFC 6749 error response shape. It is attached as the cause of a
// token-exchange failure so the raw provider diagnostics are preserved.
type OAuthError struct {
	// Code is the OAuth error code (e.g. "invalid_grant").
	Code string `json:"error"`
	// Description is a human-readable description of the error.
	Description string `json:"error_description,omitempty"`
	// URI identifies a web page with information about the error.
	URI string `json:"error_uri,omitempty"`
	// StatusCode is the HTTP status code associated with the error.
	StatusCode int `json:"-"`
}

// Error returns a string representation of the OAuth error.
func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("OAuth error %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("OAuth error: %s", e.Code)
}

// NewOAuthError creates a new OAuth error with the specified code,
// description, and status code.
func NewOAuthError(code, description string, statusCode int) *OAuthError {
	return &OAuthError{
		Code:        code,
		Description: description,
		StatusCode:  statusCode,
	}
}

// AuthenticationError represents authentication-related errors. The set of
// base variants below is closed: every failure the login flow can surface is
// one of them, which lets callers branch on Type exhaustively while Cause
// keeps the underlying diagnostics.
type AuthenticationError struct {
	// Type is the type of authentication error.
	Type string `json:"type"`
	// Message is a human-readable message describing the error.
	Message string `json:"message"`
	// Code is the HTTP status code associated with the error.
	Code int `json:"code"`
	// Cause is the underlying error that caused this authentication error.
	Cause error `json:"-"`
}

// Error returns a string representation of the authentication error.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Base authentication error variants.
var (
	// ErrSecureRandomUnavailable means no cryptographically secure random
	// source could be used. The flow refuses to start rather than falling
	// back to a weak generator.
	ErrSecureRandomUnavailable = &AuthenticationError{
		Type:    "secure_random_unavailable",
		Message: "Secure random source unavailable, cannot start login",
		Code:    http.StatusInternalServerError,
	}

	// ErrMissingParameter means the callback lacked the code or state query
	// parameter.
	ErrMissingParameter = &AuthenticationError{
		Type:    "missing_parameter",
		Message: "Callback is missing a required parameter",
		Code:    http.StatusBadRequest,
	}

	// ErrStateMismatch means the callback state did not match the stored
	// state. This is the CSRF defense and is a hard stop; no token exchange
	// may follow it.
	ErrStateMismatch = &AuthenticationError{
		Type:    "state_mismatch",
		Message: "OAuth state parameter is invalid",
		Code:    http.StatusBadRequest,
	}

	// ErrMissingVerifier means no PKCE code verifier was found in the
	// session store when resuming the flow.
	ErrMissingVerifier = &AuthenticationError{
		Type:    "missing_verifier",
		Message: "No PKCE verifier found for this login attempt",
		Code:    http.StatusBadRequest,
	}

	// ErrTokenExchange means the provider rejected the code-for-token
	// exchange. The cause carries the provider's error payload.
	ErrTokenExchange = &AuthenticationError{
		Type:    "token_exchange_failed",
		Message: "Failed to exchange authorization code for tokens",
		Code:    http.StatusBadRequest,
	}

	// ErrIdentityFetch means the freshly issued token could not resolve the
	// current user. The token is discarded rather than committed.
	ErrIdentityFetch = &AuthenticationError{
		Type:    "identity_fetch_failed",
		Message: "Token obtained but the provider identity check failed",
		Code:    http.StatusUnauthorized,
	}

	// ErrMalformedResponse means a provider response did not match the
	// expected schema.
	ErrMalformedResponse = &AuthenticationError{
		Type:    "malformed_response",
		Message: "Provider response did not match the expected schema",
		Code:    http.StatusBadGateway,
	}

	// ErrNetwork covers transport failures and timeouts during the flow.
	ErrNetwork = &AuthenticationError{
		Type:    "network_error",
		Message: "Network error while talking to the provider",
		Code:    http.StatusServiceUnavailable,
	}

	// ErrServerStartFailed means the loopback callback server could not start.
	ErrServerStartFailed = &AuthenticationError{
		Type:    "server_start_failed",
		Message: "Failed to start OAuth callback server",
		Code:    http.StatusInternalServerError,
	}

	// ErrPortInUse means the callback port is already taken.
	ErrPortInUse = &AuthenticationError{
		Type:    "port_in_use",
		Message: "OAuth callback port is already in use",
		Code:    13, // Special exit code for port-in-use
	}

	// ErrCallbackTimeout means the provider never redirected back in time.
	ErrCallbackTimeout = &AuthenticationError{
		Type:    "callback_timeout",
		Message: "Timeout waiting for OAuth callback",
		Code:    http.StatusRequestTimeout,
	}
)

// NewAuthenticationError creates a new authentication error with a cause
// based on a base variant.
func NewAuthenticationError(baseErr *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: baseErr.Message,
		Code:    baseErr.Code,
		Cause:   cause,
	}
}

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	var authenticationError *AuthenticationError
	return errors.As(err, &authenticationError)
}

// IsType reports whether err is an AuthenticationError of the given base
// variant.
func IsType(err error, base *AuthenticationError) bool {
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		return false
	}
	return authErr.Type == base.Type
}

// GetUserFriendlyMessage translates an authentication error into guidance the
// user can act on. Session desync and provider rejection call for materially
// different actions, so they get distinct wording.
func GetUserFriendlyMessage(err *AuthenticationError) string {
	switch err.Type {
	case ErrStateMismatch.Type, ErrMissingVerifier.Type:
		return "Your login session got out of sync. Run login again."
	case ErrTokenExchange.Type:
		return "The provider rejected the login request. Check the app registration (client ID, redirect URI) and try again."
	case ErrIdentityFetch.Type:
		return "Login completed but the token could not be verified with the provider. Run login again."
	case ErrMissingParameter.Type:
		return "The provider redirect was incomplete. Run login again."
	case ErrNetwork.Type:
		return "Could not reach the provider. Check your network or proxy settings and try again."
	case ErrPortInUse.Type:
		return "The callback port is already in use. Close the conflicting program or set a different callback-port."
	case ErrCallbackTimeout.Type:
		return "Timed out waiting for the browser redirect. Run login again."
	case ErrSecureRandomUnavailable.Type:
		return "No secure random source is available on this system; login cannot proceed."
	default:
		return err.Message
	}
}
