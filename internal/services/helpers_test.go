package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-complaints-backend/internal/classifier"
	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/events"
	"github.com/tbourn/go-complaints-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:complaintsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeGateway returns a fixed prediction and counts calls.
type fakeGateway struct {
	mu    sync.Mutex
	pred  classifier.Prediction
	err   error
	calls int
	last  classifier.PredictRequest
}

func (g *fakeGateway) Predict(_ context.Context, req classifier.PredictRequest) (classifier.Prediction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.last = req
	return g.pred, g.err
}

func gatewayFor(c domain.Category) *fakeGateway {
	return &fakeGateway{pred: classifier.Prediction{Category: string(c), Status: "Pending"}}
}

// recorder captures notifications.
type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) Notify(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.evs))
	for i, e := range r.evs {
		out[i] = e.Type
	}
	return out
}

// brokenStore fails every call with err.
type brokenStore struct{ err error }

func (b brokenStore) Create(context.Context, domain.NewComplaint) (*domain.Complaint, error) {
	return nil, b.err
}
func (b brokenStore) Get(context.Context, uint64) (*domain.Complaint, error) { return nil, b.err }
func (b brokenStore) List(context.Context, domain.Filter) ([]domain.Complaint, error) {
	return nil, b.err
}
func (b brokenStore) Stats(context.Context, domain.Filter) (map[domain.Category]int64, error) {
	return nil, b.err
}
func (b brokenStore) UpdateStatus(context.Context, domain.StatusUpdate) (*domain.Complaint, error) {
	return nil, b.err
}
func (b brokenStore) History(context.Context, uint64) ([]domain.StatusEvent, error) {
	return nil, b.err
}

var errConnRefused = errors.New("connection refused")

type fixture struct {
	db     *gorm.DB
	store  *repo.GormStore
	gw     *fakeGateway
	rec    *recorder
	svc    *ComplaintService
	triage *TriageService
}

func newFixture(t *testing.T, cat domain.Category) *fixture {
	t.Helper()
	db := newTestDB(t)
	store := repo.NewGormStore(db)
	gw := gatewayFor(cat)
	rec := &recorder{}
	svc := NewComplaintService(store, gw, rec)
	svc.Idem = store
	return &fixture{db: db, store: store, gw: gw, rec: rec, svc: svc, triage: NewTriageService(store)}
}

// seed inserts a complaint with an explicit creation time.
func (f *fixture) seed(t *testing.T, submitter string, cat domain.Category, at time.Time) *domain.Complaint {
	t.Helper()
	c := &domain.Complaint{SubmitterID: submitter, Text: "seeded", Category: cat, Status: domain.StatusPending, CreatedAt: at, UpdatedAt: at}
	if err := f.db.Create(c).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return c
}

func strPtr(s string) *string { return &s }
