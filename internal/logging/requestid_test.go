package logging

import (
	"context"
	"regexp"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := GenerateRequestID()
		if !pattern.MatchString(id) {
			t.Fatalf("GenerateRequestID() = %q, want 8 hex chars", id)
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct IDs out of 50", len(seen))
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "deadbeef")
	if got := GetRequestID(ctx); got != "deadbeef" {
		t.Errorf("GetRequestID() = %q", got)
	}

	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID(empty) = %q, want empty", got)
	}
	var noCtx context.Context
	if got := GetRequestID(noCtx); got != "" {
		t.Errorf("GetRequestID(nil) = %q, want empty", got)
	}
}
