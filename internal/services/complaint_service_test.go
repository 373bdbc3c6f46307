package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-complaints-backend/internal/classifier"
	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/events"
	"github.com/tbourn/go-complaints-backend/internal/repo"
)

// food was cold → Food Quality Issue, Pending, visible to the submitter.
func TestSubmit_ClassifiesAndPersistsPending(t *testing.T) {
	f := newFixture(t, domain.CategoryFoodQuality)
	ctx := context.Background()

	c, err := f.svc.Submit(ctx, "42", "  food was cold  ", strPtr("order-9"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if c.Category != domain.CategoryFoodQuality || c.Status != domain.StatusPending || c.Text != "food was cold" {
		t.Fatalf("unexpected complaint: %+v", c)
	}
	if f.gw.last.SubmitterID != "42" || f.gw.last.OrderID == nil || *f.gw.last.OrderID != "order-9" {
		t.Fatalf("gateway got %+v", f.gw.last)
	}

	list, err := f.triage.Query(ctx, domain.Filter{SubmitterID: "42"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(list) != 1 || list[0].Category != domain.CategoryFoodQuality || list[0].Status != domain.StatusPending {
		t.Fatalf("expected exactly one Pending Food Quality complaint, got %+v", list)
	}
	if got := f.rec.types(); len(got) != 1 || got[0] != events.ComplaintCreated {
		t.Fatalf("expected one created event, got %v", got)
	}
}

// Empty text fails before any gateway call and creates nothing.
func TestSubmit_EmptyTextIsValidationError(t *testing.T) {
	f := newFixture(t, domain.CategoryApp)
	ctx := context.Background()

	for _, text := range []string{"", "   \n\t"} {
		if _, err := f.svc.Submit(ctx, "1", text, nil); !errors.Is(err, ErrValidation) {
			t.Fatalf("Submit(%q): expected ErrValidation, got %v", text, err)
		}
	}
	if f.gw.calls != 0 {
		t.Fatalf("gateway must not be called, got %d calls", f.gw.calls)
	}
	list, _ := f.triage.Query(ctx, domain.Filter{})
	if len(list) != 0 {
		t.Fatalf("no record may be created, got %d", len(list))
	}
}

func TestSubmit_OtherValidation(t *testing.T) {
	f := newFixture(t, domain.CategoryApp)
	f.svc.MaxTextRunes = 5

	if _, err := f.svc.Submit(context.Background(), " ", "late", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank submitter: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), "1", "ééééé", nil); err != nil {
		t.Fatalf("5 runes must pass: %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), "1", strings.Repeat("é", 6), nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("6 runes: expected ErrValidation, got %v", err)
	}
}

func TestSubmit_GatewayFailureCreatesNothing(t *testing.T) {
	cases := map[string]*fakeGateway{
		"error":            {err: errors.New("timeout")},
		"unknown category": {pred: classifier.Prediction{Category: "Weather", Status: "Pending"}},
		"empty category":   {pred: classifier.Prediction{}},
	}
	for name, gw := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, domain.CategoryApp)
			f.svc.Gateway = gw

			_, err := f.svc.Submit(context.Background(), "1", "something", nil)
			if !errors.Is(err, ErrGatewayFailure) {
				t.Fatalf("expected ErrGatewayFailure, got %v", err)
			}
			list, _ := f.triage.Query(context.Background(), domain.Filter{})
			if len(list) != 0 {
				t.Fatalf("no partial record may exist, got %d", len(list))
			}
			if len(f.rec.types()) != 0 {
				t.Fatalf("no event expected")
			}
		})
	}
}

func TestSubmit_IgnoresGatewayStatus(t *testing.T) {
	f := newFixture(t, domain.CategoryApp)
	f.gw.pred.Status = "Resolved"
	c, err := f.svc.Submit(context.Background(), "1", "app crashed", nil)
	if err != nil || c.Status != domain.StatusPending || c.AdminResponse != nil {
		t.Fatalf("expected Pending without response, got %+v %v", c, err)
	}
}

func TestSubmit_StoreFailureIsTransport(t *testing.T) {
	svc := NewComplaintService(brokenStore{err: errConnRefused}, gatewayFor(domain.CategoryApp), nil)
	_, err := svc.Submit(context.Background(), "1", "app crashed", nil)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, errConnRefused) {
		t.Fatalf("expected ErrTransport wrapping cause, got %v", err)
	}
}

func TestSubmitWithKey_ReplaySkipsGateway(t *testing.T) {
	f := newFixture(t, domain.CategoryDelivery)
	ctx := context.Background()
	in := SubmitInput{SubmitterID: "u1", Text: "rider was late", IdempotencyKey: "k-1"}

	first, replayed, err := f.svc.SubmitWithKey(ctx, in)
	if err != nil || replayed {
		t.Fatalf("first submit: %+v replayed=%v err=%v", first, replayed, err)
	}
	second, replayed, err := f.svc.SubmitWithKey(ctx, in)
	if err != nil || !replayed || second.ID != first.ID {
		t.Fatalf("replay: %+v replayed=%v err=%v", second, replayed, err)
	}
	if f.gw.calls != 1 {
		t.Fatalf("gateway must be called once, got %d", f.gw.calls)
	}

	// Keys are per submitter.
	other, replayed, err := f.svc.SubmitWithKey(ctx, SubmitInput{SubmitterID: "u2", Text: "rider was late", IdempotencyKey: "k-1"})
	if err != nil || replayed || other.ID == first.ID {
		t.Fatalf("other user must not replay: %+v replayed=%v err=%v", other, replayed, err)
	}
	list, _ := f.triage.Query(ctx, domain.Filter{})
	if len(list) != 2 {
		t.Fatalf("expected 2 complaints, got %d", len(list))
	}
}

// Resolving without a message stores the default resolution message.
func TestTransition_ResolveWithoutMessageUsesDefault(t *testing.T) {
	f := newFixture(t, domain.CategoryDelivery)
	ctx := context.Background()
	c, _ := f.svc.Submit(ctx, "u1", "late", nil)

	got, err := f.svc.Transition(ctx, "admin", c.ID, domain.StatusResolved, nil)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != domain.StatusResolved || got.AdminResponse == nil || *got.AdminResponse != domain.DefaultResolutionMessage {
		t.Fatalf("unexpected: %+v", got)
	}

	c2, _ := f.svc.Submit(ctx, "u1", "late again", nil)
	got, err = f.svc.Transition(ctx, "admin", c2.ID, domain.StatusResolved, strPtr("   "))
	if err != nil || *got.AdminResponse != domain.DefaultResolutionMessage {
		t.Fatalf("blank message must fall back to default: %+v %v", got, err)
	}
}

func TestTransition_CustomAndPresetMessages(t *testing.T) {
	f := newFixture(t, domain.CategoryPayment)
	ctx := context.Background()

	for _, msg := range []string{domain.ResolutionPresets[0], "  Sorry, here is 10% off.  "} {
		c, _ := f.svc.Submit(ctx, "u1", "charged twice", nil)
		got, err := f.svc.Transition(ctx, "admin", c.ID, domain.StatusResolved, strPtr(msg))
		if err != nil {
			t.Fatalf("Transition: %v", err)
		}
		if *got.AdminResponse != strings.TrimSpace(msg) {
			t.Fatalf("expected %q, got %q", strings.TrimSpace(msg), *got.AdminResponse)
		}
	}
}

// A Resolved complaint rejects further transitions and keeps its response.
func TestTransition_ResolvedIsTerminal(t *testing.T) {
	f := newFixture(t, domain.CategoryDelivery)
	ctx := context.Background()
	c, _ := f.svc.Submit(ctx, "u1", "late", nil)
	if _, err := f.svc.Transition(ctx, "admin", c.ID, domain.StatusResolved, strPtr("refunded")); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	for _, target := range []domain.Status{domain.StatusVerified, domain.StatusResolved, domain.StatusNotResponded} {
		_, err := f.svc.Transition(ctx, "admin", c.ID, target, strPtr("again"))
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("to %s: expected ErrInvalidTransition, got %v", target, err)
		}
	}
	stored, _ := f.svc.Get(ctx, c.ID)
	if stored.Status != domain.StatusResolved || stored.AdminResponse == nil || *stored.AdminResponse != "refunded" {
		t.Fatalf("record changed after rejection: %+v", stored)
	}
	hist, _ := f.svc.History(ctx, c.ID)
	if len(hist) != 1 {
		t.Fatalf("expected one history event, got %d", len(hist))
	}
}

func TestTransition_NonResolvingTargetsStoreNoResponse(t *testing.T) {
	f := newFixture(t, domain.CategoryApp)
	ctx := context.Background()
	c, _ := f.svc.Submit(ctx, "u1", "app crashed", nil)

	v, err := f.svc.Transition(ctx, "admin", c.ID, domain.StatusVerified, strPtr("ignored"))
	if err != nil || v.Status != domain.StatusVerified || v.AdminResponse != nil {
		t.Fatalf("verify: %+v %v", v, err)
	}
	nr, err := f.svc.Transition(ctx, "admin", c.ID, domain.StatusNotResponded, nil)
	if err != nil || nr.Status != domain.StatusNotResponded || nr.AdminResponse != nil {
		t.Fatalf("not responded: %+v %v", nr, err)
	}
	r, err := f.svc.Transition(ctx, "admin", c.ID, domain.StatusResolved, nil)
	if err != nil || r.Status != domain.StatusResolved {
		t.Fatalf("resolve from not responded: %+v %v", r, err)
	}

	hist, err := f.svc.History(ctx, c.ID)
	if err != nil || len(hist) != 3 {
		t.Fatalf("history: %+v %v", hist, err)
	}
	if hist[0].ActorID != "admin" || hist[0].From != domain.StatusPending || hist[2].To != domain.StatusResolved {
		t.Fatalf("unexpected history: %+v", hist)
	}

	evs := f.rec.types()
	if len(evs) != 4 || evs[1] != events.ComplaintStatusChanged {
		t.Fatalf("unexpected events: %v", evs)
	}
	if f.rec.evs[1].From != domain.StatusPending || f.rec.evs[1].ActorID != "admin" {
		t.Fatalf("status event lacks from/actor: %+v", f.rec.evs[1])
	}
}

func TestTransition_Errors(t *testing.T) {
	f := newFixture(t, domain.CategoryApp)
	ctx := context.Background()
	c, _ := f.svc.Submit(ctx, "u1", "app crashed", nil)

	if _, err := f.svc.Transition(ctx, "admin", c.ID, domain.StatusPending, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("to Pending: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.svc.Transition(ctx, "admin", c.ID, domain.Status("Closed"), nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown status: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.Transition(ctx, "", c.ID, domain.StatusVerified, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank actor: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.Transition(ctx, "admin", 9999, domain.StatusVerified, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: expected ErrNotFound, got %v", err)
	}

	broken := NewComplaintService(brokenStore{err: errConnRefused}, nil, nil)
	if _, err := broken.Transition(ctx, "admin", 1, domain.StatusVerified, nil); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

// terminalRace reports Pending on Get but ErrTerminal on update, as when
// another admin resolves in between.
type terminalRace struct{ brokenStore }

func (terminalRace) Get(context.Context, uint64) (*domain.Complaint, error) {
	return &domain.Complaint{ID: 1, SubmitterID: "u1", Status: domain.StatusPending}, nil
}
func (terminalRace) UpdateStatus(context.Context, domain.StatusUpdate) (*domain.Complaint, error) {
	return nil, repo.ErrTerminal
}

func TestTransition_ConcurrentResolutionIsInvalidTransition(t *testing.T) {
	svc := NewComplaintService(terminalRace{}, nil, nil)
	if _, err := svc.Transition(context.Background(), "admin", 1, domain.StatusVerified, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestGetFor_Ownership(t *testing.T) {
	f := newFixture(t, domain.CategoryApp)
	ctx := context.Background()
	c, _ := f.svc.Submit(ctx, "u1", "app crashed", nil)

	if _, err := f.svc.GetFor(ctx, "u1", false, c.ID); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := f.svc.GetFor(ctx, "root", true, c.ID); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := f.svc.GetFor(ctx, "u2", false, c.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.GetFor(ctx, "u1", false, 777); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.History(ctx, 777); !errors.Is(err, ErrNotFound) {
		t.Fatalf("history missing: expected ErrNotFound, got %v", err)
	}
}
