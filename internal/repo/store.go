package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// GormStore adapts the repository free functions to the store contract the
// services depend on, binding them to one *gorm.DB handle.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore returns a store over db.
func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

// Create proxies CreateComplaint.
func (s *GormStore) Create(ctx context.Context, in domain.NewComplaint) (*domain.Complaint, error) {
	return CreateComplaint(ctx, s.DB, in)
}

// Get proxies GetComplaint.
func (s *GormStore) Get(ctx context.Context, id uint64) (*domain.Complaint, error) {
	return GetComplaint(ctx, s.DB, id)
}

// List proxies ListComplaints.
func (s *GormStore) List(ctx context.Context, f domain.Filter) ([]domain.Complaint, error) {
	return ListComplaints(ctx, s.DB, f)
}

// Stats proxies CategoryCounts.
func (s *GormStore) Stats(ctx context.Context, f domain.Filter) (map[domain.Category]int64, error) {
	return CategoryCounts(ctx, s.DB, f)
}

// Version proxies ComplaintsStats.
func (s *GormStore) Version(ctx context.Context, f domain.Filter) (int64, *time.Time, error) {
	return ComplaintsStats(ctx, s.DB, f)
}

// UpdateStatus proxies UpdateComplaintStatus.
func (s *GormStore) UpdateStatus(ctx context.Context, upd domain.StatusUpdate) (*domain.Complaint, error) {
	return UpdateComplaintStatus(ctx, s.DB, upd)
}

// History proxies ListStatusEvents.
func (s *GormStore) History(ctx context.Context, id uint64) ([]domain.StatusEvent, error) {
	return ListStatusEvents(ctx, s.DB, id)
}

// LookupIdempotency proxies GetIdempotency.
func (s *GormStore) LookupIdempotency(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, userID, scope, key, now)
}

// SaveIdempotency proxies CreateIdempotency.
func (s *GormStore) SaveIdempotency(ctx context.Context, userID, scope, key string, resourceID uint64, status int, ttl time.Duration) error {
	_, err := CreateIdempotency(ctx, s.DB, userID, scope, key, resourceID, status, ttl)
	return err
}
