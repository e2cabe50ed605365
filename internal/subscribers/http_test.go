package subscribers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/parchmail/parchmail/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	inserted  map[uuid.UUID]string
	confirmed map[uuid.UUID]bool
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		inserted:  make(map[uuid.UUID]string),
		confirmed: make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) Insert(ctx context.Context, email domain.EmailAddress, name string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	id := uuid.New()
	f.inserted[id] = email.String()
	return id, nil
}

func (f *fakeStore) Confirm(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed[id] = true
	return nil
}

func TestSubscribe(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		insertErr  error
		wantStatus int
	}{
		{
			name:       "valid subscription",
			form:       url.Values{"email": {"le.guin@example.com"}, "name": {"Ursula"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid email",
			form:       url.Values{"email": {"not-an-email"}, "name": {"Ursula"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing email",
			form:       url.Values{"name": {"Ursula"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing name",
			form:       url.Values{"email": {"le.guin@example.com"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store failure",
			form:       url.Values{"email": {"le.guin@example.com"}, "name": {"Ursula"}},
			insertErr:  errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.insertErr = tt.insertErr
			handler := NewHandler(store, nil)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			handler.Subscribe(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %q)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && len(store.inserted) != 1 {
				t.Errorf("stored %d subscriptions, want 1", len(store.inserted))
			}
			if tt.wantStatus == http.StatusBadRequest && len(store.inserted) != 0 {
				t.Errorf("rejected request stored %d subscriptions", len(store.inserted))
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	store := newFakeStore()
	handler := NewHandler(store, nil)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm?id="+id.String(), nil)
	w := httptest.NewRecorder()
	handler.Confirm(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !store.confirmed[id] {
		t.Error("subscription was not confirmed")
	}
}

func TestConfirmRejectsBadID(t *testing.T) {
	handler := NewHandler(newFakeStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm?id=not-a-uuid", nil)
	w := httptest.NewRecorder()
	handler.Confirm(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
