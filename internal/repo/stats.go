// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate queries over complaints: the
// per-category counts used by the admin statistics view, and the count/max
// UpdatedAt pair used for ETag generation in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// CategoryCounts returns the number of complaints per category among those
// matching f. Categories without matches are absent from the map, so the
// values always sum to len(ListComplaints(f)).
func CategoryCounts(ctx context.Context, db *gorm.DB, f domain.Filter) (map[domain.Category]int64, error) {
	var rows []struct {
		Category domain.Category
		N        int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Scopes(filterScope(f)).
		Select("category, COUNT(*) AS n").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Category]int64, len(rows))
	for _, r := range rows {
		if r.N > 0 {
			out[r.Category] = r.N
		}
	}
	return out, nil
}

// ComplaintsStats returns aggregate metadata for the complaints matching f:
// the number of rows and the greatest UpdatedAt among them.
//
// Return values:
//   - count:        total complaints matching f
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func ComplaintsStats(ctx context.Context, db *gorm.DB, f domain.Filter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Complaint{}).Scopes(filterScope(f))

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	q = db.WithContext(ctx).Model(&domain.Complaint{}).Scopes(filterScope(f))
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
