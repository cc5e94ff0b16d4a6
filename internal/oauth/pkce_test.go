package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

const urlSafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func isURLSafe(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(urlSafeAlphabet, r) {
			return false
		}
	}
	return true
}

func TestGeneratePKCECodes(t *testing.T) {
	t.Parallel()

	codes, err := GeneratePKCECodes()
	if err != nil {
		t.Fatalf("GeneratePKCECodes() error = %v", err)
	}
	if codes.CodeVerifier == "" || codes.CodeChallenge == "" {
		t.Fatal("GeneratePKCECodes() returned empty fields")
	}
	if len(codes.CodeVerifier) < 43 || len(codes.CodeVerifier) > 128 {
		t.Errorf("code verifier length %d outside RFC 7636 bounds", len(codes.CodeVerifier))
	}
	if !isURLSafe(codes.CodeVerifier) {
		t.Errorf("code verifier %q is not URL-safe", codes.CodeVerifier)
	}
	if !isURLSafe(codes.CodeChallenge) {
		t.Errorf("code challenge %q is not URL-safe", codes.CodeChallenge)
	}

	hash := sha256.Sum256([]byte(codes.CodeVerifier))
	expected := base64.RawURLEncoding.EncodeToString(hash[:])
	if codes.CodeChallenge != expected {
		t.Errorf("code challenge = %q, want base64url-SHA256 of verifier %q", codes.CodeChallenge, expected)
	}
}

func TestGenerateState(t *testing.T) {
	t.Parallel()

	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if len(state) != 32 {
		t.Errorf("state length = %d, want 32 hex characters", len(state))
	}
	if !isURLSafe(state) {
		t.Errorf("state %q is not URL-safe", state)
	}
}

func TestFlowParametersUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		codes, err := GeneratePKCECodes()
		if err != nil {
			t.Fatalf("GeneratePKCECodes() error = %v", err)
		}
		state, err := GenerateState()
		if err != nil {
			t.Fatalf("GenerateState() error = %v", err)
		}
		if state == codes.CodeVerifier {
			t.Fatal("state and verifier share a value")
		}
		if seen[state] || seen[codes.CodeVerifier] {
			t.Fatal("repeated flow parameter across invocations")
		}
		seen[state] = true
		seen[codes.CodeVerifier] = true
	}
}
