package logging

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RequestLogger records provider HTTP exchanges for diagnostics.
type RequestLogger interface {
	LogExchange(requestID, method, url string, headers http.Header, requestBody []byte, status int, responseBody []byte, duration time.Duration)
}

// FileRequestLogger implements RequestLogger using a JSON-lines file.
// Authorization material is redacted before anything touches disk.
type FileRequestLogger struct {
	mu      sync.Mutex
	enabled bool
	dir     string
}

// NewFileRequestLogger creates a file-based request logger rooted at logsDir.
func NewFileRequestLogger(enabled bool, logsDir string) *FileRequestLogger {
	return &FileRequestLogger{enabled: enabled, dir: logsDir}
}

// Enabled reports whether request logging is active.
func (l *FileRequestLogger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// LogExchange appends one request/response record to the current day's log file.
func (l *FileRequestLogger) LogExchange(requestID, method, url string, headers http.Header, requestBody []byte, status int, responseBody []byte, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return
	}

	line := "{}"
	line, _ = sjson.Set(line, "time", time.Now().Format(time.RFC3339))
	line, _ = sjson.Set(line, "request_id", requestID)
	line, _ = sjson.Set(line, "method", method)
	line, _ = sjson.Set(line, "url", url)
	line, _ = sjson.Set(line, "status", status)
	line, _ = sjson.Set(line, "duration_ms", duration.Milliseconds())

	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		if key == "Authorization" {
			value = redactBearer(value)
		}
		line, _ = sjson.Set(line, "headers."+key, value)
	}

	if len(requestBody) > 0 {
		line, _ = sjson.Set(line, "request", summarizeBody(requestBody))
	}
	if len(responseBody) > 0 {
		line, _ = sjson.Set(line, "response", summarizeBody(responseBody))
	}

	if err := l.append(line); err != nil {
		log.Warnf("request log write failed: %v", err)
	}
}

func (l *FileRequestLogger) append(line string) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(l.dir, fmt.Sprintf("requests-%s.jsonl", time.Now().Format("20060102")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.WriteString(line + "\n")
	return err
}

// redactBearer keeps the scheme and the first four token characters.
func redactBearer(value string) string {
	const prefix = "Bearer "
	if len(value) > len(prefix)+4 && value[:len(prefix)] == prefix {
		return prefix + value[len(prefix):len(prefix)+4] + "..."
	}
	return "[redacted]"
}

// summarizeBody truncates large payloads and strips token fields from JSON bodies.
func summarizeBody(body []byte) string {
	const maxLen = 2048
	text := string(body)
	if gjson.Valid(text) {
		for _, field := range []string{"access_token", "refresh_token", "id_token", "code", "code_verifier"} {
			if gjson.Get(text, field).Exists() {
				text, _ = sjson.Set(text, field, "[redacted]")
			}
		}
	}
	if len(text) > maxLen {
		return text[:maxLen] + "...(truncated)"
	}
	return text
}
