package subscribers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/parchmail/parchmail/internal/domain"
	"github.com/parchmail/parchmail/internal/logging"
)

// Subscriber is the slice of the store the HTTP handlers need.
type Subscriber interface {
	Insert(ctx context.Context, email domain.EmailAddress, name string) (uuid.UUID, error)
	Confirm(ctx context.Context, id uuid.UUID) error
}

// Handler serves the public subscription endpoints.
type Handler struct {
	store  Subscriber
	logger *logging.Logger
}

func NewHandler(store Subscriber, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.New("subscribers")
	}
	return &Handler{store: store, logger: logger}
}

// Subscribe handles POST /subscriptions with a form body of name and email.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form body", http.StatusBadRequest)
		return
	}

	email, err := domain.ParseEmail(r.PostFormValue("email"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	if name == "" {
		http.Error(w, "name must not be empty", http.StatusBadRequest)
		return
	}

	id, err := h.store.Insert(r.Context(), email, name)
	if err != nil {
		h.logger.WithContext(r.Context()).
			WithRecipient(email.String()).
			WithError(err).
			Error("failed to store subscription")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.WithContext(r.Context()).
		WithRecipient(email.String()).
		WithField("subscription_id", id.String()).
		Info("new subscriber stored")
	w.WriteHeader(http.StatusOK)
}

// Confirm handles GET /subscriptions/confirm?id=<uuid>.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid subscription id", http.StatusBadRequest)
		return
	}

	if err := h.store.Confirm(r.Context(), id); err != nil {
		h.logger.WithContext(r.Context()).
			WithField("subscription_id", id.String()).
			WithError(err).
			Error("failed to confirm subscription")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
