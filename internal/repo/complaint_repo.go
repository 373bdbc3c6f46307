// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Complaint
// model and its status history.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: the transition table lives in the
// domain package and is enforced by the services; the repository only
// guarantees that a Resolved row is never written again.
//
// Error semantics:
//   - A missing complaint yields ErrNotFound (gorm.ErrRecordNotFound).
//   - A status update against a Resolved row yields ErrTerminal and writes
//     nothing, even when another writer resolved it concurrently.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrTerminal is returned when a status update targets a Resolved complaint.
var ErrTerminal = errors.New("complaint is resolved")

// CreateComplaint inserts a new complaint in the Pending status. The ID is
// assigned by the database; CreatedAt is set to the current UTC time.
func CreateComplaint(ctx context.Context, db *gorm.DB, in domain.NewComplaint) (*domain.Complaint, error) {
	now := time.Now().UTC()
	c := &domain.Complaint{
		SubmitterID: in.SubmitterID,
		OrderID:     in.OrderID,
		Text:        in.Text,
		Category:    in.Category,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetComplaint fetches a single complaint by id, or ErrNotFound.
func GetComplaint(ctx context.Context, db *gorm.DB, id uint64) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComplaints returns every complaint matching f in creation order.
// It returns an empty slice when nothing matches.
func ListComplaints(ctx context.Context, db *gorm.DB, f domain.Filter) ([]domain.Complaint, error) {
	out := []domain.Complaint{}
	err := db.WithContext(ctx).
		Scopes(filterScope(f)).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// UpdateComplaintStatus applies a status update and appends the matching
// history row in one transaction. The write is conditional on the row not
// being Resolved, so a concurrent resolution is never overwritten. The row
// is read with FOR UPDATE so the history row records the status the update
// actually replaced (SQLite ignores the lock and serializes writers itself).
//
// Returns the updated complaint, ErrNotFound, or ErrTerminal.
func UpdateComplaintStatus(ctx context.Context, db *gorm.DB, upd domain.StatusUpdate) (*domain.Complaint, error) {
	var out *domain.Complaint
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := GetComplaint(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), upd.ID)
		if err != nil {
			return err
		}
		if cur.Resolved() {
			return ErrTerminal
		}

		now := time.Now().UTC()
		res := tx.Model(&domain.Complaint{}).
			Where("id = ? AND status <> ?", upd.ID, domain.StatusResolved).
			Updates(map[string]any{
				"status":         upd.To,
				"admin_response": upd.Response,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTerminal
		}

		ev := &domain.StatusEvent{
			ComplaintID: upd.ID,
			ActorID:     upd.ActorID,
			From:        cur.Status,
			To:          upd.To,
			Message:     upd.Response,
			CreatedAt:   now,
		}
		if err := tx.Omit("Complaint").Create(ev).Error; err != nil {
			return err
		}

		cur.Status = upd.To
		cur.AdminResponse = upd.Response
		cur.UpdatedAt = now
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListStatusEvents returns the transition history of a complaint, oldest
// first. A complaint without transitions has an empty history.
func ListStatusEvents(ctx context.Context, db *gorm.DB, complaintID uint64) ([]domain.StatusEvent, error) {
	out := []domain.StatusEvent{}
	err := db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// filterScope translates a validated filter into WHERE clauses. Absent keys
// add nothing; present keys are ANDed. The date range is compared in UTC,
// which is how timestamps are written.
func filterScope(f domain.Filter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.SubmitterID != "" {
			q = q.Where("submitter_id = ?", f.SubmitterID)
		}
		if f.Category != "" {
			q = q.Where("category = ?", f.Category)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if start, end, ok := f.DayRange(); ok {
			q = q.Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC())
		}
		return q
	}
}
