package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() { SetOutput(nil) })
	return buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output captured")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not valid JSON: %v (%q)", err, line)
	}
	return m
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
	}{
		{
			name:        "create logger with service name",
			serviceName: "test-service",
		},
		{
			name:        "create logger with empty service name",
			serviceName: "",
		},
		{
			name:        "create logger with complex service name",
			serviceName: "parchmail-worker-v2.1.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.serviceName)
			if logger == nil {
				t.Fatal("New() returned nil logger")
			}
			if logger.service != tt.serviceName {
				t.Errorf("New() service = %q, want %q", logger.service, tt.serviceName)
			}
		})
	}
}

func TestEntryDomainFields(t *testing.T) {
	tests := []struct {
		name      string
		log       func(l *Logger)
		wantKey   string
		wantValue string
	}{
		{
			name: "issue id is emitted",
			log: func(l *Logger) {
				l.Plain().WithIssue("9f6d9a2e").Info("claimed task")
			},
			wantKey:   "issue_id",
			wantValue: "9f6d9a2e",
		},
		{
			name: "recipient is emitted",
			log: func(l *Logger) {
				l.Plain().WithRecipient("ursula@domain.com").Info("sending")
			},
			wantKey:   "recipient",
			wantValue: "ursula@domain.com",
		},
		{
			name: "user id is emitted",
			log: func(l *Logger) {
				l.Plain().WithUser("u-1").Info("publish requested")
			},
			wantKey:   "user_id",
			wantValue: "u-1",
		},
		{
			name: "idempotency key is emitted",
			log: func(l *Logger) {
				l.Plain().WithKey("K1").Info("duplicate publish")
			},
			wantKey:   "idempotency_key",
			wantValue: "K1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t)
			tt.log(New("test-service"))

			m := decodeLine(t, buf)
			if got := m[tt.wantKey]; got != tt.wantValue {
				t.Errorf("entry[%q] = %v, want %q", tt.wantKey, got, tt.wantValue)
			}
			if m["service"] != "test-service" {
				t.Errorf("entry[service] = %v, want %q", m["service"], "test-service")
			}
		})
	}
}

func TestEntryLevelsAndFields(t *testing.T) {
	tests := []struct {
		name      string
		log       func(l *Logger)
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "info level",
			log:       func(l *Logger) { l.Plain().Info("hello") },
			wantLevel: "info",
			wantMsg:   "hello",
		},
		{
			name:      "warn level with formatting",
			log:       func(l *Logger) { l.Plain().Warnf("queue depth %d", 7) },
			wantLevel: "warn",
			wantMsg:   "queue depth 7",
		},
		{
			name:      "error level",
			log:       func(l *Logger) { l.Plain().Error("boom") },
			wantLevel: "error",
			wantMsg:   "boom",
		},
		{
			name:      "debug level",
			log:       func(l *Logger) { l.Plain().Debug("noisy") },
			wantLevel: "debug",
			wantMsg:   "noisy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t)
			tt.log(New("svc"))

			m := decodeLine(t, buf)
			if m["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %q", m["level"], tt.wantLevel)
			}
			if m["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %q", m["msg"], tt.wantMsg)
			}
		})
	}
}

func TestWithError(t *testing.T) {
	buf := capture(t)
	New("svc").Plain().WithError(errors.New("gateway unreachable")).Error("send failed")

	m := decodeLine(t, buf)
	fields, ok := m["fields"].(map[string]any)
	if !ok {
		t.Fatalf("fields missing from entry: %v", m)
	}
	if fields["error"] != "gateway unreachable" {
		t.Errorf("fields[error] = %v, want %q", fields["error"], "gateway unreachable")
	}
}

func TestWithErrorNil(t *testing.T) {
	buf := capture(t)
	New("svc").Plain().WithError(nil).Info("fine")

	m := decodeLine(t, buf)
	if _, ok := m["fields"]; ok {
		t.Errorf("nil error should not add fields, got %v", m["fields"])
	}
}

func TestEmptyFieldsOmitted(t *testing.T) {
	buf := capture(t)
	New("svc").Plain().Info("bare")

	if strings.Contains(buf.String(), `"fields"`) {
		t.Errorf("empty fields map should be omitted, got %s", buf.String())
	}
}
