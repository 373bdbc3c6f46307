// Package services – ComplaintService
//
// This file implements the complaint lifecycle: submission (classification
// hand-off and persistence) and admin-driven status transitions with the
// resolution-message protocol. Identity is always an explicit argument.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// complaint and actor identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-complaints-backend/internal/classifier"
	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/events"
	"github.com/tbourn/go-complaints-backend/internal/repo"
)

// IdempotencyScope namespaces submission keys in the idempotency store.
const IdempotencyScope = "complaints"

// DefaultMaxTextRunes bounds complaint text when no limit is configured.
const DefaultMaxTextRunes = 2000

// ComplaintStore is the persistence contract of the lifecycle and triage
// services. repo.GormStore and repo.MongoStore implement it.
type ComplaintStore interface {
	Create(ctx context.Context, in domain.NewComplaint) (*domain.Complaint, error)
	Get(ctx context.Context, id uint64) (*domain.Complaint, error)
	List(ctx context.Context, f domain.Filter) ([]domain.Complaint, error)
	Stats(ctx context.Context, f domain.Filter) (map[domain.Category]int64, error)
	UpdateStatus(ctx context.Context, upd domain.StatusUpdate) (*domain.Complaint, error)
	History(ctx context.Context, id uint64) ([]domain.StatusEvent, error)
}

// IdempotencyStore maps (user, scope, key) to a previously created resource.
type IdempotencyStore interface {
	LookupIdempotency(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error)
	SaveIdempotency(ctx context.Context, userID, scope, key string, resourceID uint64, status int, ttl time.Duration) error
}

// ComplaintService owns submission and status transitions.
type ComplaintService struct {
	Store    ComplaintStore
	Gateway  classifier.Gateway
	Notifier events.Notifier

	// Idem enables Idempotency-Key replay when non-nil.
	Idem    IdempotencyStore
	IdemTTL time.Duration

	MaxTextRunes int
	Now          func() time.Time
}

// NewComplaintService returns a service with defaults applied.
func NewComplaintService(store ComplaintStore, gw classifier.Gateway, n events.Notifier) *ComplaintService {
	return &ComplaintService{
		Store:        store,
		Gateway:      gw,
		Notifier:     n,
		IdemTTL:      24 * time.Hour,
		MaxTextRunes: DefaultMaxTextRunes,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput carries a submission. OrderID and IdempotencyKey are optional.
type SubmitInput struct {
	SubmitterID    string
	Text           string
	OrderID        *string
	IdempotencyKey string
}

// Submit classifies text and persists a Pending complaint for submitterID.
func (s *ComplaintService) Submit(ctx context.Context, submitterID, text string, orderID *string) (*domain.Complaint, error) {
	c, _, err := s.SubmitWithKey(ctx, SubmitInput{SubmitterID: submitterID, Text: text, OrderID: orderID})
	return c, err
}

// SubmitWithKey is Submit with optional idempotent replay. replayed reports
// that an earlier result was returned and the gateway was not called.
//
// Errors:
//   - ErrValidation: blank submitter or text, or text over MaxTextRunes.
//     Checked before any gateway call.
//   - ErrGatewayFailure: the gateway failed or returned an unknown category.
//   - ErrTransport: the store failed.
func (s *ComplaintService) SubmitWithKey(ctx context.Context, in SubmitInput) (c *domain.Complaint, replayed bool, err error) {
	ctx, span := tracer().Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("user.id", in.SubmitterID)),
	)
	defer func() { endSpan(span, err) }()

	submitter := strings.TrimSpace(in.SubmitterID)
	text := strings.TrimSpace(in.Text)
	if submitter == "" {
		return nil, false, fmt.Errorf("%w: submitter id is required", ErrValidation)
	}
	if text == "" {
		return nil, false, fmt.Errorf("%w: complaint text is empty", ErrValidation)
	}
	if limit := s.maxRunes(); utf8.RuneCountInString(text) > limit {
		return nil, false, fmt.Errorf("%w: complaint text exceeds %d characters", ErrValidation, limit)
	}
	orderID := normalizeOrderID(in.OrderID)
	key := strings.TrimSpace(in.IdempotencyKey)

	if s.Idem != nil && key != "" {
		prev, err := s.replay(ctx, submitter, key)
		if err != nil {
			return nil, false, err
		}
		if prev != nil {
			span.SetAttributes(attribute.Bool("idempotent.replay", true))
			return prev, true, nil
		}
	}

	pred, err := s.Gateway.Predict(ctx, classifier.PredictRequest{Text: text, SubmitterID: submitter, OrderID: orderID})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}
	cat, err := domain.ParseCategory(pred.Category)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}

	// The gateway's echoed status is ignored: new complaints are Pending.
	c, err = s.Store.Create(ctx, domain.NewComplaint{
		SubmitterID: submitter,
		OrderID:     orderID,
		Text:        text,
		Category:    cat,
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: create complaint: %w", ErrTransport, err)
	}
	span.SetAttributes(attribute.Int64("complaint.id", int64(c.ID)), attribute.String("complaint.category", string(c.Category)))

	if s.Idem != nil && key != "" {
		// A concurrent request with the same key may have won; the complaint
		// exists either way, so a duplicate is not an error here.
		if err := s.Idem.SaveIdempotency(ctx, submitter, IdempotencyScope, key, c.ID, 201, s.IdemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			span.RecordError(err)
		}
	}

	s.notify(ctx, events.Event{Type: events.ComplaintCreated, Complaint: *c, At: s.now()})
	return c, false, nil
}

func (s *ComplaintService) replay(ctx context.Context, submitter, key string) (*domain.Complaint, error) {
	rec, err := s.Idem.LookupIdempotency(ctx, submitter, IdempotencyScope, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency lookup: %w", ErrTransport, err)
	}
	c, err := s.Store.Get(ctx, rec.ResourceID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return c, nil
}

// Transition moves complaint id to target on behalf of actorID.
//
// Semantics:
//   - target must be Verified, Resolved or Not Responded (ErrValidation for
//     unknown values, ErrInvalidTransition for Pending).
//   - A Resolved complaint cannot move again (ErrInvalidTransition, nothing
//     written).
//   - Resolving stores the trimmed message, or DefaultResolutionMessage when
//     it is absent or blank. Other targets store no response text.
//
// The updated complaint is returned so callers need no second fetch.
func (s *ComplaintService) Transition(ctx context.Context, actorID string, id uint64, target domain.Status, message *string) (c *domain.Complaint, err error) {
	ctx, span := tracer().Start(ctx, "Transition",
		trace.WithAttributes(
			attribute.Int64("complaint.id", int64(id)),
			attribute.String("actor.id", actorID),
			attribute.String("status.to", string(target)),
		),
	)
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(actorID) == "" {
		return nil, fmt.Errorf("%w: actor id is required", ErrValidation)
	}
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrValidation, domain.ErrUnknownStatus, target)
	}

	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, id)
	}
	if err := domain.CanTransition(cur.Status, target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	var response *string
	if target == domain.StatusResolved {
		msg := domain.DefaultResolutionMessage
		if message != nil && strings.TrimSpace(*message) != "" {
			msg = strings.TrimSpace(*message)
		}
		response = &msg
	}

	c, err = s.Store.UpdateStatus(ctx, domain.StatusUpdate{ID: id, ActorID: actorID, To: target, Response: response})
	if err != nil {
		return nil, s.storeErr(err, id)
	}

	s.notify(ctx, events.Event{
		Type:      events.ComplaintStatusChanged,
		Complaint: *c,
		From:      cur.Status,
		ActorID:   actorID,
		At:        s.now(),
	})
	return c, nil
}

// Get returns complaint id.
func (s *ComplaintService) Get(ctx context.Context, id uint64) (*domain.Complaint, error) {
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, id)
	}
	return c, nil
}

// GetFor returns complaint id if viewerID owns it or admin is true.
func (s *ComplaintService) GetFor(ctx context.Context, viewerID string, admin bool, id uint64) (*domain.Complaint, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && c.SubmitterID != viewerID {
		return nil, fmt.Errorf("%w: complaint %d", ErrForbidden, id)
	}
	return c, nil
}

// History returns the transition log of complaint id, oldest first.
func (s *ComplaintService) History(ctx context.Context, id uint64) ([]domain.StatusEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	evs, err := s.Store.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrTransport, err)
	}
	return evs, nil
}

// storeErr maps repository errors onto the service taxonomy.
func (s *ComplaintService) storeErr(err error, id uint64) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	case errors.Is(err, repo.ErrTerminal):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, domain.ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}

func (s *ComplaintService) notify(ctx context.Context, ev events.Event) {
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, ev)
	}
}

func (s *ComplaintService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *ComplaintService) maxRunes() int {
	if s.MaxTextRunes > 0 {
		return s.MaxTextRunes
	}
	return DefaultMaxTextRunes
}

func normalizeOrderID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func tracer() trace.Tracer { return otel.Tracer("services/complaints") }

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
