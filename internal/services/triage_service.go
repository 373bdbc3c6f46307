// Package services – TriageService
//
// TriageService produces the admin's filtered view of complaints: ordered
// listings, per-category counts and date-grouped partitions. All three read
// the store on every call; nothing is cached.
package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/utils"
)

// ComplaintReader is the read side of ComplaintStore.
type ComplaintReader interface {
	List(ctx context.Context, f domain.Filter) ([]domain.Complaint, error)
	Stats(ctx context.Context, f domain.Filter) (map[domain.Category]int64, error)
}

// Versioner is implemented by stores that can summarize a result set for
// conditional requests.
type Versioner interface {
	Version(ctx context.Context, f domain.Filter) (int64, *time.Time, error)
}

// DateGroup is the complaints created on one calendar day, in creation order.
type DateGroup struct {
	Date       string             `json:"date"`
	Complaints []domain.Complaint `json:"complaints"`
}

// TriageService answers filtered listing and statistics queries.
type TriageService struct {
	Store ComplaintReader
}

// NewTriageService returns a service over store.
func NewTriageService(store ComplaintReader) *TriageService {
	return &TriageService{Store: store}
}

// Query returns every complaint matching f in creation order. An empty
// filter returns the whole store.
func (s *TriageService) Query(ctx context.Context, f domain.Filter) (out []domain.Complaint, err error) {
	ctx, span := tracer().Start(ctx, "Query", trace.WithAttributes(filterAttrs(f)...))
	defer func() { endSpan(span, err) }()

	out, err = s.Store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: list complaints: %w", ErrTransport, err)
	}
	if out == nil {
		out = []domain.Complaint{}
	}
	span.SetAttributes(attribute.Int("result.count", len(out)))
	return out, nil
}

// Stats counts the complaints matching f per category. Categories without
// matches are omitted; the counts sum to len(Query(f)).
func (s *TriageService) Stats(ctx context.Context, f domain.Filter) (out map[domain.Category]int64, err error) {
	ctx, span := tracer().Start(ctx, "Stats", trace.WithAttributes(filterAttrs(f)...))
	defer func() { endSpan(span, err) }()

	out, err = s.Store.Stats(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %w", ErrTransport, err)
	}
	for k, v := range out {
		if v <= 0 {
			delete(out, k)
		}
	}
	if out == nil {
		out = map[domain.Category]int64{}
	}
	return out, nil
}

// Grouped is Query partitioned by creation day in the filter's location.
func (s *TriageService) Grouped(ctx context.Context, f domain.Filter) ([]DateGroup, error) {
	list, err := s.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return GroupByDate(list, f.Location), nil
}

// Page returns the total number of matches and the page-th slice of
// pageSize complaints (1-based). Out-of-range pages are empty.
func (s *TriageService) Page(ctx context.Context, f domain.Filter, page, pageSize int) ([]domain.Complaint, int64, error) {
	list, err := s.Query(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.ClampPage(page, pageSize, 20, 0)
	total := int64(len(list))
	start, end := utils.Bounds(len(list), page, pageSize)
	if start == end {
		return []domain.Complaint{}, total, nil
	}
	return list[start:end], total, nil
}

// Version summarizes the complaints matching f as (count, latest update).
// ok is false when the store cannot produce a summary.
func (s *TriageService) Version(ctx context.Context, f domain.Filter) (n int64, at *time.Time, ok bool, err error) {
	v, isV := s.Store.(Versioner)
	if !isV {
		return 0, nil, false, nil
	}
	n, at, err = v.Version(ctx, f)
	if err != nil {
		return 0, nil, false, fmt.Errorf("%w: version: %w", ErrTransport, err)
	}
	return n, at, true, nil
}

// GroupByDate partitions complaints by the calendar day of CreatedAt in loc.
// Groups appear in first-appearance order and keep the input order within.
func GroupByDate(list []domain.Complaint, loc *time.Location) []DateGroup {
	out := []DateGroup{}
	pos := map[string]int{}
	for _, c := range list {
		day := domain.DayLabel(c.CreatedAt, loc)
		i, ok := pos[day]
		if !ok {
			i = len(out)
			pos[day] = i
			out = append(out, DateGroup{Date: day})
		}
		out[i].Complaints = append(out[i].Complaints, c)
	}
	return out
}

func filterAttrs(f domain.Filter) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("filter.user_id", f.SubmitterID),
		attribute.String("filter.role", string(f.Role)),
		attribute.String("filter.category", string(f.Category)),
		attribute.String("filter.status", string(f.Status)),
		attribute.String("filter.date", f.Date),
	}
}
