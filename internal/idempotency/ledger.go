package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoredResponse is the serialized HTTP response persisted alongside a
// completed ledger record and replayed verbatim to duplicate submissions.
type StoredResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Work is an in-progress claim on an idempotency key. The owning request
// performs its side effects on Tx and then either SaveResponse (commit
// everything, record the response) or Abort (roll everything back,
// releasing the key for a fresh attempt).
type Work interface {
	Tx() pgx.Tx
	SaveResponse(ctx context.Context, resp StoredResponse) error
	Abort(ctx context.Context) error
}

// Ledger persists idempotency records in Postgres. Its correctness leans
// on unique-index conflict handling: an INSERT that collides with an
// uncommitted row blocks until that transaction resolves, then either
// proceeds (other side aborted) or reports the conflict (committed).
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// claim is the pg-backed Work implementation.
type claim struct {
	tx     pgx.Tx
	userID uuid.UUID
	key    Key
}

// TryClaim attempts to create a pending record for (userID, key). Exactly
// one of the returns is set: a Work handle when this caller won the key,
// or the previously saved response when another caller already completed
// it. A concurrent in-flight claim blocks this call until it commits or
// aborts; there is no timeout at this layer.
func (l *Ledger) TryClaim(ctx context.Context, userID uuid.UUID, key Key) (Work, *StoredResponse, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin claim transaction: %w", err)
	}

	ct, err := tx.Exec(ctx, `
		INSERT INTO idempotency_records (user_id, idempotency_key, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, idempotency_key) DO NOTHING`,
		userID, key.String(),
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, nil, fmt.Errorf("claim idempotency key: %w", err)
	}

	if ct.RowsAffected() > 0 {
		return &claim{tx: tx, userID: userID, key: key}, nil, nil
	}

	// Lost the race: the winner has committed (the blocking insert
	// guarantees it), so its response is already populated.
	_ = tx.Rollback(ctx)
	saved, err := l.savedResponse(ctx, userID, key)
	if err != nil {
		return nil, nil, err
	}
	return nil, saved, nil
}

func (l *Ledger) savedResponse(ctx context.Context, userID uuid.UUID, key Key) (*StoredResponse, error) {
	var (
		status      *int
		headersJSON []byte
		body        []byte
	)
	err := l.pool.QueryRow(ctx, `
		SELECT response_status_code, response_headers, response_body
		FROM idempotency_records
		WHERE user_id = $1 AND idempotency_key = $2`,
		userID, key.String(),
	).Scan(&status, &headersJSON, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The conflicting transaction aborted between our insert and
			// this read; the key is free again. Surface as an error so
			// the caller retries rather than fabricating a response.
			return nil, fmt.Errorf("idempotency record vanished for key %q", key.String())
		}
		return nil, fmt.Errorf("load saved response: %w", err)
	}
	if status == nil {
		return nil, fmt.Errorf("idempotency record for key %q has no saved response", key.String())
	}

	headers := http.Header{}
	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &headers); err != nil {
			return nil, fmt.Errorf("decode saved headers: %w", err)
		}
	}
	return &StoredResponse{StatusCode: *status, Headers: headers, Body: body}, nil
}

// Tx exposes the claim's transaction so the caller's side effects commit
// atomically with the saved response.
func (c *claim) Tx() pgx.Tx {
	return c.tx
}

// SaveResponse writes the final response into the pending record and
// commits the whole unit of work.
func (c *claim) SaveResponse(ctx context.Context, resp StoredResponse) error {
	headersJSON, err := json.Marshal(resp.Headers)
	if err != nil {
		_ = c.tx.Rollback(ctx)
		return fmt.Errorf("encode response headers: %w", err)
	}
	ct, err := c.tx.Exec(ctx, `
		UPDATE idempotency_records
		SET response_status_code = $3,
		    response_headers = $4,
		    response_body = $5
		WHERE user_id = $1 AND idempotency_key = $2`,
		c.userID, c.key.String(), resp.StatusCode, headersJSON, resp.Body,
	)
	if err != nil {
		_ = c.tx.Rollback(ctx)
		return fmt.Errorf("save response: %w", err)
	}
	if ct.RowsAffected() != 1 {
		_ = c.tx.Rollback(ctx)
		return fmt.Errorf("save response: expected 1 pending record, updated %d", ct.RowsAffected())
	}
	if err := c.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit claimed work: %w", err)
	}
	return nil
}

// Abort rolls back the claim and every side effect performed on its
// transaction, releasing the key.
func (c *claim) Abort(ctx context.Context) error {
	if err := c.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("abort claimed work: %w", err)
	}
	return nil
}
