package publish

import (
	"errors"
	"net/http"

	"github.com/parchmail/parchmail/internal/auth"
	"github.com/parchmail/parchmail/internal/idempotency"
	"github.com/parchmail/parchmail/internal/logging"
)

// Handler adapts the publish service to the admin form endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.New("publish")
	}
	return &Handler{service: service, logger: logger}
}

// ServeHTTP handles POST /admin/newsletters. The form carries the issue
// content plus the client-chosen idempotency key; the publishing user
// comes from the validated token.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form body", http.StatusBadRequest)
		return
	}

	key, err := idempotency.NewKey(r.PostFormValue("idempotency_key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	params := Params{
		Title:       r.PostFormValue("title"),
		TextContent: r.PostFormValue("text_content"),
		HTMLContent: r.PostFormValue("html_content"),
	}

	resp, err := h.service.Publish(r.Context(), userID, key, params)
	if err != nil {
		if errors.Is(err, ErrInvalidParams) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.WithContext(r.Context()).
			WithUser(userID.String()).
			WithKey(key.String()).
			WithError(err).
			Error("publish failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	for name, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
