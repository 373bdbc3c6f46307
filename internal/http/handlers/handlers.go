// Package handlers exposes the complaint API over HTTP.
//
// Handlers are transport-thin: they bind and validate input, resolve the
// caller identity set by middleware.Auth, call the services with that
// identity as explicit arguments, and translate results and errors into
// HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/events"
	"github.com/tbourn/go-complaints-backend/internal/services"
	"github.com/tbourn/go-complaints-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ComplaintService is the lifecycle side consumed by the handlers.
type ComplaintService interface {
	SubmitWithKey(ctx context.Context, in services.SubmitInput) (*domain.Complaint, bool, error)
	Transition(ctx context.Context, actorID string, id uint64, target domain.Status, message *string) (*domain.Complaint, error)
	GetFor(ctx context.Context, viewerID string, admin bool, id uint64) (*domain.Complaint, error)
	History(ctx context.Context, id uint64) ([]domain.StatusEvent, error)
}

// TriageService is the read side consumed by the handlers.
type TriageService interface {
	Query(ctx context.Context, f domain.Filter) ([]domain.Complaint, error)
	Page(ctx context.Context, f domain.Filter, page, pageSize int) ([]domain.Complaint, int64, error)
	Stats(ctx context.Context, f domain.Filter) (map[domain.Category]int64, error)
	Grouped(ctx context.Context, f domain.Filter) ([]services.DateGroup, error)
	Version(ctx context.Context, f domain.Filter) (int64, *time.Time, bool, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints.
type Handlers struct {
	complaints ComplaintService
	triage     TriageService
	hub        *events.Hub
	loc        *time.Location
	now        func() time.Time
	upgrader   websocket.Upgrader
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithLocation sets the zone used to resolve date filters and group days.
func WithLocation(loc *time.Location) Option {
	return func(h *Handlers) {
		if loc != nil {
			h.loc = loc
		}
	}
}

// WithClock overrides the time source for date filters.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		if now != nil {
			h.now = now
		}
	}
}

// WithOriginCheck sets the websocket origin policy. The default accepts
// every origin; CORS for the REST surface is enforced by the router.
func WithOriginCheck(check func(*http.Request) bool) Option {
	return func(h *Handlers) { h.upgrader.CheckOrigin = check }
}

// New constructs Handlers. hub may be nil, in which case the stream
// endpoint answers 404.
func New(cs ComplaintService, ts TriageService, hub *events.Hub, opts ...Option) *Handlers {
	h := &Handlers{
		complaints: cs,
		triage:     ts,
		hub:        hub,
		loc:        time.Local,
		now:        time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// pagination parses page and page_size. ok is false when neither is given,
// meaning the caller wants the full list.
func pagination(c *gin.Context) (page, pageSize int, ok bool) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	if c.Query("page") == "" && c.Query("page_size") == "" {
		return 0, 0, false
	}
	page, pageSize = utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), defaultPage),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		defaultPageSize, maxPageSize,
	)
	return page, pageSize, true
}

// complaintID parses the :id path parameter.
func complaintID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "complaint id must be a positive integer")
		return 0, false
	}
	return id, true
}
