package issue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an issue id has no row. A queued task whose
// issue is gone is treated by the worker as a permanent per-task error.
var ErrNotFound = errors.New("newsletter issue not found")

// Issue is one published newsletter issue. Rows are immutable once written
// and are never deleted by this service.
type Issue struct {
	ID          uuid.UUID
	Title       string
	HTMLContent string
	TextContent string
}

// Store persists newsletter issues.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts the issue inside the caller's transaction so issue
// creation commits or aborts together with the delivery fan-out.
func (s *Store) Create(ctx context.Context, tx pgx.Tx, iss Issue) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO newsletter_issues (newsletter_issue_id, title, text_content, html_content, published_at)
		VALUES ($1, $2, $3, $4, now())`,
		iss.ID, iss.Title, iss.TextContent, iss.HTMLContent,
	)
	if err != nil {
		return fmt.Errorf("insert newsletter issue: %w", err)
	}
	return nil
}

// Get fetches issue content for delivery.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Issue, error) {
	iss := Issue{ID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT title, text_content, html_content
		FROM newsletter_issues
		WHERE newsletter_issue_id = $1`,
		id,
	).Scan(&iss.Title, &iss.TextContent, &iss.HTMLContent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issue{}, ErrNotFound
		}
		return Issue{}, fmt.Errorf("fetch newsletter issue: %w", err)
	}
	return iss, nil
}
