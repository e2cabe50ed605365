package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPHandler(t *testing.T) {
	tests := []struct {
		name        string
		depth       DepthFunc
		wantStatus  int
		wantOK      bool
		wantPending *int64
	}{
		{
			name:       "nil pool and nil depth reports ok",
			depth:      nil,
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
		{
			name: "depth is reported when available",
			depth: func(ctx context.Context) (int64, error) {
				return 42, nil
			},
			wantStatus:  http.StatusOK,
			wantOK:      true,
			wantPending: ptr(int64(42)),
		},
		{
			name: "depth errors are omitted not fatal",
			depth: func(ctx context.Context) (int64, error) {
				return 0, errors.New("queue unavailable")
			},
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := HTTPHandler(nil, tt.depth)
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var st Status
			if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
				t.Fatalf("response is not valid JSON: %v", err)
			}
			if st.OK != tt.wantOK {
				t.Errorf("ok = %v, want %v", st.OK, tt.wantOK)
			}
			if tt.wantPending != nil {
				if st.Pending == nil || *st.Pending != *tt.wantPending {
					t.Errorf("pending = %v, want %d", st.Pending, *tt.wantPending)
				}
			} else if st.Pending != nil {
				t.Errorf("pending = %d, want omitted", *st.Pending)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
