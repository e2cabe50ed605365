package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClaimedTask is one delivery task together with the open transaction that
// holds its row lock. The claim lasts until Retire or Release; if the
// owning process dies first, the transaction aborts server-side and the
// row becomes claimable again. There is no lease renewal.
type ClaimedTask struct {
	IssueID   uuid.UUID
	Recipient string

	tx pgx.Tx
}

// Store persists pending delivery tasks in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnqueueMany inserts one delivery task per recipient inside the caller's
// transaction. The caller wraps this with the newsletter_issues insert so
// the fan-out is all-or-nothing: a duplicate (issue, recipient) pair fails
// the whole batch and rolls everything back.
func (s *Store) EnqueueMany(ctx context.Context, tx pgx.Tx, issueID uuid.UUID, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range recipients {
		batch.Queue(`
			INSERT INTO delivery_queue (newsletter_issue_id, recipient)
			VALUES ($1, $2)`,
			issueID, r)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range recipients {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("enqueue delivery task: %w", err)
		}
	}
	return nil
}

// ClaimNext atomically claims one pending task. It opens a transaction and
// locks a single row with FOR UPDATE SKIP LOCKED, so concurrent claimers
// partition the queue without ever sharing a task. Returns (nil, nil) when
// the queue is empty.
func (s *Store) ClaimNext(ctx context.Context) (*ClaimedTask, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}

	task := &ClaimedTask{tx: tx}
	err = tx.QueryRow(ctx, `
		SELECT newsletter_issue_id, recipient
		FROM delivery_queue
		FOR UPDATE
		SKIP LOCKED
		LIMIT 1`,
	).Scan(&task.IssueID, &task.Recipient)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim delivery task: %w", err)
	}
	return task, nil
}

// Retire deletes the claimed task and commits, releasing the claim in the
// same atomic step. After Retire the task has been attempted exactly once,
// whatever the delivery outcome was.
func (s *Store) Retire(ctx context.Context, task *ClaimedTask) error {
	if task == nil || task.tx == nil {
		return errors.New("retire: no claimed task")
	}
	_, err := task.tx.Exec(ctx, `
		DELETE FROM delivery_queue
		WHERE newsletter_issue_id = $1 AND recipient = $2`,
		task.IssueID, task.Recipient,
	)
	if err != nil {
		_ = task.tx.Rollback(ctx)
		return fmt.Errorf("delete delivery task: %w", err)
	}
	if err := task.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit retire: %w", err)
	}
	return nil
}

// Release abandons the claim without retiring the task; the row becomes
// claimable by another worker. Used on shutdown and on infrastructure
// errors between claim and delivery.
func (s *Store) Release(ctx context.Context, task *ClaimedTask) error {
	if task == nil || task.tx == nil {
		return nil
	}
	if err := task.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// Depth returns the number of pending delivery tasks. Tasks currently
// claimed by an in-flight worker still count as pending.
func (s *Store) Depth(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM delivery_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count delivery queue: %w", err)
	}
	return n, nil
}
