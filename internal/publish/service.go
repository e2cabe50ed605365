package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/parchmail/parchmail/internal/idempotency"
	"github.com/parchmail/parchmail/internal/issue"
	"github.com/parchmail/parchmail/internal/logging"
	"github.com/parchmail/parchmail/internal/metrics"
	"github.com/parchmail/parchmail/internal/tracing"
)

// ErrInvalidParams is returned when issue content fails validation.
// Validation runs before any ledger claim, so an invalid request never
// consumes its idempotency key.
var ErrInvalidParams = errors.New("invalid newsletter issue")

// confirmationBody is the response body saved with the first successful
// publish and replayed byte for byte to every duplicate submission.
const confirmationBody = "The newsletter issue has been accepted, emails will go out shortly."

// Params is the content of a newsletter issue to publish.
type Params struct {
	Title       string
	TextContent string
	HTMLContent string
}

func (p Params) validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidParams)
	}
	if p.TextContent == "" {
		return fmt.Errorf("%w: text content must not be empty", ErrInvalidParams)
	}
	if p.HTMLContent == "" {
		return fmt.Errorf("%w: html content must not be empty", ErrInvalidParams)
	}
	return nil
}

// Coordinator gates publishing behind the idempotency ledger.
type Coordinator interface {
	TryProcessing(ctx context.Context, userID uuid.UUID, key idempotency.Key) (idempotency.Work, *idempotency.StoredResponse, error)
}

// IssueCreator persists a new issue inside the claim's transaction.
type IssueCreator interface {
	Create(ctx context.Context, tx pgx.Tx, iss issue.Issue) error
}

// Enqueuer fans delivery tasks out inside the claim's transaction.
type Enqueuer interface {
	EnqueueMany(ctx context.Context, tx pgx.Tx, issueID uuid.UUID, recipients []string) error
}

// SubscriberLister yields the recipients of a new issue.
type SubscriberLister interface {
	Confirmed(ctx context.Context) ([]string, error)
}

// Service publishes newsletter issues exactly once per (user, key): it
// creates the issue row, fans one delivery task per confirmed subscriber
// into the queue, and saves the HTTP response, all in the single
// transaction opened by the ledger claim.
type Service struct {
	coordinator Coordinator
	issues      IssueCreator
	queue       Enqueuer
	subscribers SubscriberLister
	logger      *logging.Logger
}

func NewService(coordinator Coordinator, issues IssueCreator, queue Enqueuer, subscribers SubscriberLister, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.New("publish")
	}
	return &Service{
		coordinator: coordinator,
		issues:      issues,
		queue:       queue,
		subscribers: subscribers,
		logger:      logger,
	}
}

// Publish runs the publish flow for one submission and returns the
// response to send, whether freshly produced or replayed from the ledger.
func (s *Service) Publish(ctx context.Context, userID uuid.UUID, key idempotency.Key, params Params) (idempotency.StoredResponse, error) {
	if err := params.validate(); err != nil {
		return idempotency.StoredResponse{}, err
	}

	ctx, span := tracing.StartSpan(ctx, "publish.issue")
	defer span.End()

	work, saved, err := s.coordinator.TryProcessing(ctx, userID, key)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return idempotency.StoredResponse{}, fmt.Errorf("claim idempotency key: %w", err)
	}
	if saved != nil {
		s.logger.WithContext(ctx).
			WithUser(userID.String()).
			WithKey(key.String()).
			Info("duplicate submission, replaying saved response")
		return *saved, nil
	}

	resp, err := s.process(ctx, work, params)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		if abortErr := work.Abort(ctx); abortErr != nil {
			s.logger.WithContext(ctx).
				WithUser(userID.String()).
				WithKey(key.String()).
				WithError(abortErr).
				Error("failed to abort claimed work")
		}
		return idempotency.StoredResponse{}, err
	}

	s.logger.WithContext(ctx).
		WithUser(userID.String()).
		WithKey(key.String()).
		Info("newsletter issue published")
	return resp, nil
}

func (s *Service) process(ctx context.Context, work idempotency.Work, params Params) (idempotency.StoredResponse, error) {
	recipients, err := s.subscribers.Confirmed(ctx)
	if err != nil {
		return idempotency.StoredResponse{}, fmt.Errorf("list confirmed subscribers: %w", err)
	}

	iss := issue.Issue{
		ID:          uuid.New(),
		Title:       params.Title,
		TextContent: params.TextContent,
		HTMLContent: params.HTMLContent,
	}
	if err := s.issues.Create(ctx, work.Tx(), iss); err != nil {
		return idempotency.StoredResponse{}, err
	}
	if err := s.queue.EnqueueMany(ctx, work.Tx(), iss.ID, recipients); err != nil {
		return idempotency.StoredResponse{}, err
	}

	resp := idempotency.StoredResponse{
		StatusCode: http.StatusSeeOther,
		Headers:    http.Header{"Location": []string{"/admin/newsletters"}},
		Body:       []byte(confirmationBody),
	}
	// SaveResponse commits the issue, the fan-out, and the ledger record
	// as one unit. A crash before this point leaves no trace of the issue.
	if err := work.SaveResponse(ctx, resp); err != nil {
		return idempotency.StoredResponse{}, err
	}

	metrics.IssuesPublishedTotal.Inc()
	s.logger.WithContext(ctx).
		WithIssue(iss.ID.String()).
		WithField("recipients", len(recipients)).
		Info("delivery tasks enqueued")
	return resp, nil
}
