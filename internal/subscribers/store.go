package subscribers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parchmail/parchmail/internal/domain"
)

// Subscription statuses. Only confirmed subscribers receive issues.
const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusConfirmed           = "confirmed"
)

// Store persists newsletter subscriptions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert records a new subscription in pending state.
func (s *Store) Insert(ctx context.Context, email domain.EmailAddress, name string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (id, email, name, status, subscribed_at)
		VALUES ($1, $2, $3, $4, now())`,
		id, email.String(), name, StatusPendingConfirmation,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert subscription: %w", err)
	}
	return id, nil
}

// Confirm marks a subscription as confirmed. Confirming an already
// confirmed subscription is a no-op.
func (s *Store) Confirm(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscriptions SET status = $2 WHERE id = $1`,
		id, StatusConfirmed,
	)
	if err != nil {
		return fmt.Errorf("confirm subscription: %w", err)
	}
	return nil
}

// Confirmed returns the email addresses of all confirmed subscribers.
// Addresses were validated on the way in but are stored as text, so a row
// that no longer parses is skipped by the worker at delivery time rather
// than filtered here.
func (s *Store) Confirmed(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email FROM subscriptions WHERE status = $1`,
		StatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("query confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return emails, nil
}
