package logging

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestRedactBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"bearer token", "Bearer gho_abcdef123456", "Bearer gho_..."},
		{"short bearer", "Bearer ab", "[redacted]"},
		{"basic auth", "Basic dXNlcjpwYXNz", "[redacted]"},
		{"empty", "", "[redacted]"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := redactBearer(tt.value); got != tt.want {
				t.Errorf("redactBearer(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestSummarizeBodyRedactsTokenFields(t *testing.T) {
	t.Parallel()

	body := `{"access_token":"gho_secret","refresh_token":"ghr_secret","scope":"repo"}`
	got := summarizeBody([]byte(body))

	if strings.Contains(got, "gho_secret") || strings.Contains(got, "ghr_secret") {
		t.Fatalf("summarizeBody leaked token material: %s", got)
	}
	if gjson.Get(got, "access_token").String() != "[redacted]" {
		t.Errorf("access_token = %q, want redacted", gjson.Get(got, "access_token").String())
	}
	if gjson.Get(got, "scope").String() != "repo" {
		t.Errorf("scope = %q, want preserved", gjson.Get(got, "scope").String())
	}
}

func TestSummarizeBodyTruncates(t *testing.T) {
	t.Parallel()

	got := summarizeBody([]byte(strings.Repeat("x", 5000)))
	if !strings.HasSuffix(got, "...(truncated)") {
		t.Error("large body was not truncated")
	}
	if len(got) > 2048+len("...(truncated)") {
		t.Errorf("truncated body still %d bytes", len(got))
	}
}

func TestFileRequestLoggerWritesRedactedRecord(t *testing.T) {
	dir := t.TempDir()
	logger := NewFileRequestLogger(true, dir)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer gho_tokenvalue")
	headers.Set("Accept", "application/vnd.github+json")

	logger.LogExchange("req1234", http.MethodGet, "https://api.example.com/user", headers,
		nil, http.StatusOK, []byte(`{"login":"octocat"}`), 42*time.Millisecond)

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %v (err %v)", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))

	if strings.Contains(line, "gho_tokenvalue") {
		t.Fatal("log line contains the raw bearer token")
	}
	if gjson.Get(line, "request_id").String() != "req1234" {
		t.Errorf("request_id = %q", gjson.Get(line, "request_id").String())
	}
	if gjson.Get(line, "status").Int() != http.StatusOK {
		t.Errorf("status = %d", gjson.Get(line, "status").Int())
	}
	if got := gjson.Get(line, "response").String(); !strings.Contains(got, "octocat") {
		t.Errorf("response = %q, want login payload", got)
	}
}

func TestFileRequestLoggerDisabled(t *testing.T) {
	dir := t.TempDir()
	logger := NewFileRequestLogger(false, dir)

	logger.LogExchange("req", http.MethodGet, "https://api.example.com", nil, nil, 200, nil, 0)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("disabled logger wrote %d files", len(entries))
	}
}
