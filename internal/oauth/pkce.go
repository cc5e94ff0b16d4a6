package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// PKCECodes holds a PKCE verifier together with its derived S256 challenge.
type PKCECodes struct {
	// CodeVerifier is the high-entropy secret kept client-side until the
	// token exchange.
	CodeVerifier string
	// CodeChallenge is the base64url-encoded SHA-256 digest of the verifier,
	// sent with the authorization request.
	CodeChallenge string
}

// GeneratePKCECodes generates a new pair of PKCE (Proof Key for Code Exchange)
// codes. It creates a cryptographically random code verifier and its
// corresponding SHA256 code challenge, as specified in RFC 7636.
func GeneratePKCECodes() (*PKCECodes, error) {
	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, NewAuthenticationError(ErrSecureRandomUnavailable, err)
	}

	return &PKCECodes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: ComputeCodeChallenge(codeVerifier),
	}, nil
}

// generateCodeVerifier creates a cryptographically secure random string to be
// used as the code verifier in the PKCE flow.
func generateCodeVerifier() (string, error) {
	// 96 random bytes encode to 128 base64 characters, the RFC 7636 maximum.
	bytes := make([]byte, 96)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ComputeCodeChallenge derives the S256 code challenge from a code verifier:
// the SHA-256 hash of the verifier, base64url-encoded without padding.
func ComputeCodeChallenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState generates a cryptographically secure random state parameter
// for OAuth2 flows to prevent CSRF attacks.
func GenerateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", NewAuthenticationError(ErrSecureRandomUnavailable, fmt.Errorf("failed to generate random bytes: %w", err))
	}
	return hex.EncodeToString(bytes), nil
}
