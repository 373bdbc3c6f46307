package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedComplaint(t *testing.T, db *gorm.DB, submitter string, cat domain.Category, st domain.Status, at time.Time) *domain.Complaint {
	t.Helper()
	c := &domain.Complaint{
		SubmitterID: submitter,
		Text:        "seed",
		Category:    cat,
		Status:      st,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed complaint: %v", err)
	}
	return c
}

func TestComplaintsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := ComplaintsStats(context.Background(), db, domain.Filter{})
	if err == nil {
		t.Fatalf("expected error due to missing complaints table")
	}
}

func TestComplaintsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Complaint{})
	count, maxAt, err := ComplaintsStats(context.Background(), db, domain.Filter{SubmitterID: "u1"})
	if err != nil {
		t.Fatalf("ComplaintsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestComplaintsStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Complaint{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for u1
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other user

	seedComplaint(t, db, "u1", domain.CategoryDelivery, domain.StatusPending, t1)
	seedComplaint(t, db, "u1", domain.CategoryApp, domain.StatusPending, t2)
	seedComplaint(t, db, "u2", domain.CategoryApp, domain.StatusPending, t3)

	count, maxAt, err := ComplaintsStats(context.Background(), db, domain.Filter{SubmitterID: "u1"})
	if err != nil {
		t.Fatalf("ComplaintsStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected maxUpdatedAt %v, got %v", t2, maxAt)
	}
}

// Force the second query (SELECT updated_at ...) to fail by renaming the column.
func TestComplaintsStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t, &domain.Complaint{})
	seedComplaint(t, db, "uerr", domain.CategoryApp, domain.StatusPending, time.Now().UTC())

	if err := db.Exec(`ALTER TABLE complaints RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}

	_, _, err := ComplaintsStats(context.Background(), db, domain.Filter{SubmitterID: "uerr"})
	if err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}

func TestCategoryCounts_GroupsAndFilters(t *testing.T) {
	db := newTestDB(t, &domain.Complaint{})
	now := time.Now().UTC()

	seedComplaint(t, db, "u1", domain.CategoryDelivery, domain.StatusPending, now)
	seedComplaint(t, db, "u1", domain.CategoryDelivery, domain.StatusVerified, now)
	seedComplaint(t, db, "u2", domain.CategoryFoodQuality, domain.StatusPending, now)
	seedComplaint(t, db, "u2", domain.CategoryDelivery, domain.StatusResolved, now)

	all, err := CategoryCounts(context.Background(), db, domain.Filter{})
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if len(all) != 2 || all[domain.CategoryDelivery] != 3 || all[domain.CategoryFoodQuality] != 1 {
		t.Fatalf("unexpected counts: %v", all)
	}
	if _, ok := all[domain.CategoryApp]; ok {
		t.Fatalf("zero-count category must be absent: %v", all)
	}

	pending, err := CategoryCounts(context.Background(), db, domain.Filter{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("CategoryCounts pending: %v", err)
	}
	if pending[domain.CategoryDelivery] != 1 || pending[domain.CategoryFoodQuality] != 1 {
		t.Fatalf("unexpected pending counts: %v", pending)
	}
}

func TestCategoryCounts_Empty(t *testing.T) {
	db := newTestDB(t, &domain.Complaint{})
	got, err := CategoryCounts(context.Background(), db, domain.Filter{Category: domain.CategoryApp})
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestCategoryCounts_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := CategoryCounts(context.Background(), db, domain.Filter{}); err == nil {
		t.Fatalf("expected error due to missing table")
	}
}
