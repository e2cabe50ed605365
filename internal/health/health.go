package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Status struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	Database bool   `json:"database,omitempty"`
	Pending  *int64 `json:"pending_deliveries,omitempty"`
}

// DepthFunc reports the number of pending delivery tasks.
type DepthFunc func(ctx context.Context) (int64, error)

// HTTPHandler returns an HTTP handler that reports the health status of the
// service. A nil pool skips the database check; a nil depth skips the queue
// depth report.
func HTTPHandler(pool *pgxpool.Pool, depth DepthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := Status{OK: true, Message: "ok", Database: true}

		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				st.OK = false
				st.Message = "db ping failed"
				st.Database = false
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		}
		if st.OK && depth != nil {
			if n, err := depth(ctx); err == nil {
				st.Pending = &n
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}
