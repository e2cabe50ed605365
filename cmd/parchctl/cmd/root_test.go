package cmd

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContentFrom(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "body.txt")
	if err := os.WriteFile(file, []byte("file content"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	tests := []struct {
		name    string
		inline  string
		file    string
		want    string
		wantErr bool
	}{
		{
			name:   "inline content",
			inline: "inline content",
			want:   "inline content",
		},
		{
			name: "file content",
			file: file,
			want: "file content",
		},
		{
			name:    "both set",
			inline:  "inline",
			file:    file,
			wantErr: true,
		},
		{
			name:    "neither set",
			wantErr: true,
		},
		{
			name:    "missing file",
			file:    filepath.Join(dir, "does-not-exist.txt"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := contentFrom(tt.inline, tt.file)
			if (err != nil) != tt.wantErr {
				t.Errorf("contentFrom() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("contentFrom() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMakeFormRequest(t *testing.T) {
	var gotContentType, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		b := make([]byte, r.ContentLength)
		r.Body.Read(b)
		gotBody = string(b)

		w.Header().Set("Location", "/admin/newsletters")
		w.WriteHeader(http.StatusSeeOther)
	}))
	defer server.Close()

	origServer, origToken := serverURL, jwtToken
	serverURL = server.URL
	jwtToken = "test-token"
	defer func() {
		serverURL = origServer
		jwtToken = origToken
	}()

	resp, err := makeFormRequest("/admin/newsletters", url.Values{"title": {"Issue #1"}})
	if err != nil {
		t.Fatalf("makeFormRequest: %v", err)
	}
	defer resp.Body.Close()

	// The 303 must be surfaced, not followed.
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !strings.Contains(gotBody, "title=Issue") {
		t.Errorf("body = %q, missing form field", gotBody)
	}
}

func TestMakeRequestSetsAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	origServer, origToken := serverURL, jwtToken
	serverURL = server.URL
	jwtToken = "test-token"
	defer func() {
		serverURL = origServer
		jwtToken = origToken
	}()

	resp, err := makeRequest(http.MethodGet, "/admin/queue", nil)
	if err != nil {
		t.Fatalf("makeRequest: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestPrintOutput(t *testing.T) {
	tests := []struct {
		name       string
		v          interface{}
		outputJSON bool
	}{
		{
			name: "simple string - human readable",
			v:    "hello world",
		},
		{
			name:       "simple map - json format",
			v:          map[string]interface{}{"key": "value", "number": 42},
			outputJSON: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origOutputJSON := outputJSON
			outputJSON = tt.outputJSON
			defer func() { outputJSON = origOutputJSON }()

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("printOutput() panicked unexpectedly: %v", r)
				}
			}()

			printOutput(tt.v)
		})
	}
}
