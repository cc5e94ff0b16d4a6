package oauth

import (
	"testing"

	"github.com/gitscribe/gitscribe/internal/session"
)

func TestCredentialManagerStoreAndRead(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	manager := NewCredentialManager(store)

	if _, ok := manager.Read(); ok {
		t.Fatal("Read() on empty store returned a credential")
	}

	if err := manager.Store(&Credential{AccessToken: "tok-1", RefreshToken: "ref-1"}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	cred, ok := manager.Read()
	if !ok {
		t.Fatal("Read() returned absent after Store()")
	}
	if cred.AccessToken != "tok-1" || cred.RefreshToken != "ref-1" {
		t.Errorf("Read() = %+v", cred)
	}
}

func TestCredentialManagerOverwrite(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	manager := NewCredentialManager(store)

	if err := manager.Store(&Credential{AccessToken: "tok-1", RefreshToken: "ref-1"}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	// A new credential without a refresh token must not inherit the old one.
	if err := manager.Store(&Credential{AccessToken: "tok-2"}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	cred, ok := manager.Read()
	if !ok {
		t.Fatal("Read() returned absent")
	}
	if cred.AccessToken != "tok-2" {
		t.Errorf("AccessToken = %q, want tok-2", cred.AccessToken)
	}
	if cred.RefreshToken != "" {
		t.Errorf("RefreshToken = %q, want empty after overwrite", cred.RefreshToken)
	}
}

func TestCredentialManagerRejectsEmpty(t *testing.T) {
	t.Parallel()

	manager := NewCredentialManager(session.NewMemoryStore())
	if err := manager.Store(&Credential{}); err == nil {
		t.Error("Store() accepted an empty access token")
	}
	if err := manager.Store(nil); err == nil {
		t.Error("Store() accepted nil")
	}
}

func TestCredentialManagerClear(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	manager := NewCredentialManager(store)

	// Clearing an empty store is a no-op, not an error.
	if err := manager.Clear(); err != nil {
		t.Fatalf("Clear() on empty store error = %v", err)
	}

	if err := manager.Store(&Credential{AccessToken: "tok-1", RefreshToken: "ref-1"}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	// Leftover flow parameters go with the credential.
	if err := store.Set(session.KeyOAuthState, "stale"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := manager.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := manager.Read(); ok {
		t.Error("Read() returned a credential after Clear()")
	}
	if _, ok := store.Get(session.KeyOAuthState); ok {
		t.Error("flow parameters survived Clear()")
	}
}
