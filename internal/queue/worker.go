package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/parchmail/parchmail/internal/domain"
	"github.com/parchmail/parchmail/internal/issue"
	"github.com/parchmail/parchmail/internal/logging"
	"github.com/parchmail/parchmail/internal/metrics"
	"github.com/parchmail/parchmail/internal/tracing"
)

// Outcome reports what a single worker iteration did.
type Outcome int

const (
	TaskCompleted Outcome = iota
	EmptyQueue
)

// TaskSource is the slice of the queue store the worker needs.
type TaskSource interface {
	ClaimNext(ctx context.Context) (*ClaimedTask, error)
	Retire(ctx context.Context, task *ClaimedTask) error
	Release(ctx context.Context, task *ClaimedTask) error
}

// IssueGetter resolves issue content for a claimed task.
type IssueGetter interface {
	Get(ctx context.Context, id uuid.UUID) (issue.Issue, error)
}

// Sender is the email gateway as seen by the worker.
type Sender interface {
	Send(ctx context.Context, to domain.EmailAddress, subject, htmlBody, textBody string) error
}

// Worker drains the delivery queue. Each claimed task gets exactly one
// delivery attempt: send failures and invalid recipients are logged and
// the task is retired anyway, so a bad task can never poison the queue.
type Worker struct {
	tasks  TaskSource
	issues IssueGetter
	sender Sender
	logger *logging.Logger

	pollInterval  time.Duration // sleep after an empty queue
	retryInterval time.Duration // sleep after a store error
}

func NewWorker(tasks TaskSource, issues IssueGetter, sender Sender, logger *logging.Logger, pollInterval, retryInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if retryInterval <= 0 {
		retryInterval = time.Second
	}
	return &Worker{
		tasks:         tasks,
		issues:        issues,
		sender:        sender,
		logger:        logger,
		pollInterval:  pollInterval,
		retryInterval: retryInterval,
	}
}

// RunOnce performs one iteration: claim, attempt delivery, retire. It is
// the deterministic unit used by tests and by Run. The returned error is
// always a store/infrastructure error, never a delivery failure.
func (w *Worker) RunOnce(ctx context.Context) (Outcome, error) {
	task, err := w.tasks.ClaimNext(ctx)
	if err != nil {
		metrics.RecordStoreError("claim")
		return EmptyQueue, err
	}
	if task == nil {
		return EmptyQueue, nil
	}

	ctx, span := tracing.StartSpan(ctx, "worker.delivery",
		attribute.String("issue_id", task.IssueID.String()),
		attribute.String("recipient", task.Recipient),
	)
	defer span.End()

	if err := w.attemptDelivery(ctx, task); err != nil {
		// Infrastructure error before the attempt was made: release the
		// claim so the task is re-claimable, it has not used its attempt.
		tracing.SetSpanError(ctx, err)
		_ = w.tasks.Release(ctx, task)
		return EmptyQueue, err
	}

	if err := w.tasks.Retire(ctx, task); err != nil {
		tracing.SetSpanError(ctx, err)
		metrics.RecordStoreError("retire")
		// Release so the row is immediately re-claimable instead of
		// waiting for the dead transaction to be reaped.
		_ = w.tasks.Release(ctx, task)
		return EmptyQueue, err
	}
	return TaskCompleted, nil
}

// attemptDelivery makes the single delivery attempt for the claimed task.
// Delivery failures (invalid recipient, gateway rejection, missing issue)
// are terminal for the task and return nil; a returned error means the
// attempt never happened (store error fetching content) and the task
// keeps its one attempt.
func (w *Worker) attemptDelivery(ctx context.Context, task *ClaimedTask) error {
	recipient, err := domain.ParseEmail(task.Recipient)
	if err != nil {
		// Stored before stricter validation existed. Normal outcome.
		tracing.AddSpanEvent(ctx, "delivery.invalid_recipient")
		metrics.RecordDelivery("invalid_recipient")
		w.logger.WithContext(ctx).
			WithIssue(task.IssueID.String()).
			WithRecipient(task.Recipient).
			WithError(err).
			Warn("skipping subscriber: stored contact details are invalid")
		return nil
	}

	iss, err := w.issues.Get(ctx, task.IssueID)
	if err != nil {
		if errors.Is(err, issue.ErrNotFound) {
			tracing.AddSpanEvent(ctx, "delivery.missing_issue")
			metrics.RecordDelivery("missing_issue")
			w.logger.WithContext(ctx).
				WithIssue(task.IssueID.String()).
				WithRecipient(task.Recipient).
				Error("skipping delivery: issue content no longer exists")
			return nil
		}
		metrics.RecordStoreError("fetch_issue")
		return err
	}

	start := time.Now()
	err = w.sender.Send(ctx, recipient, iss.Title, iss.HTMLContent, iss.TextContent)
	metrics.SendLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		tracing.AddSpanEvent(ctx, "delivery.gateway_error")
		metrics.RecordDelivery("gateway_error")
		w.logger.WithContext(ctx).
			WithIssue(task.IssueID.String()).
			WithRecipient(task.Recipient).
			WithError(err).
			Error("failed to deliver issue to a confirmed subscriber; skipping")
		return nil
	}

	tracing.AddSpanEvent(ctx, "delivery.sent")
	metrics.RecordDelivery("sent")
	w.logger.WithContext(ctx).
		WithIssue(task.IssueID.String()).
		WithRecipient(task.Recipient).
		Info("issue delivered")
	return nil
}

// Run polls until ctx is cancelled. Empty queue: sleep pollInterval.
// Store error: sleep retryInterval and try again, with no backoff.
// Cooperative shutdown happens between iterations; an in-flight claim is
// abandoned and released by transaction abort.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Plain().
		WithField("poll_interval", w.pollInterval.String()).
		WithField("retry_interval", w.retryInterval.String()).
		Info("delivery worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Plain().Info("delivery worker stopped")
			return
		}

		outcome, err := w.RunOnce(ctx)
		switch {
		case err != nil:
			w.logger.Plain().WithError(err).Error("worker iteration failed")
			if !sleep(ctx, w.retryInterval) {
				w.logger.Plain().Info("delivery worker stopped")
				return
			}
		case outcome == EmptyQueue:
			if !sleep(ctx, w.pollInterval) {
				w.logger.Plain().Info("delivery worker stopped")
				return
			}
		}
	}
}

// sleep waits for d or until ctx is done; reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
