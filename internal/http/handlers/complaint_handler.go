// Complaint HTTP handlers.
//
// This file exposes the complaint lifecycle endpoints:
//   - POST   /complaints              (submit, honours Idempotency-Key)
//   - GET    /complaints              (filtered list, optional pagination, weak ETag)
//   - GET    /complaints/{id}         (single complaint, owner or admin)
//   - GET    /complaints/{id}/history (status transitions, owner or admin)
//   - PUT    /complaints/{id}/status  (admin transition)
package handlers

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
	"github.com/tbourn/go-complaints-backend/internal/services"
	"github.com/tbourn/go-complaints-backend/internal/utils"
)

// SubmitComplaintRequest is the JSON payload for submitting a complaint.
type SubmitComplaintRequest struct {
	// Text is the free-text complaint.
	Text string `json:"text" binding:"required" example:"Food was cold and the rider was late"`
	// OrderID optionally ties the complaint to an order.
	OrderID *string `json:"order_id,omitempty" example:"ORD-1042"`
}

// UpdateStatusRequest is the JSON payload for an admin status transition.
type UpdateStatusRequest struct {
	// Status is the target status: Verified, Resolved or Not Responded.
	Status string `json:"status" binding:"required" example:"Resolved"`
	// AdminResponse is the resolution message; only used when resolving.
	AdminResponse *string `json:"admin_response,omitempty" example:"Full refund issued"`
}

// ListComplaintsResponse wraps a list of complaints. Pagination is present
// only when page or page_size was requested.
type ListComplaintsResponse struct {
	Complaints []domain.Complaint `json:"complaints"`
	Pagination *Pagination        `json:"pagination,omitempty"`
}

// HistoryResponse lists the status transitions of one complaint.
type HistoryResponse struct {
	ComplaintID uint64               `json:"complaint_id"`
	Events      []domain.StatusEvent `json:"events"`
}

// SubmitComplaint godoc
// @ID          submitComplaint
// @Summary     Submit a complaint
// @Description Classifies the text and stores a Pending complaint for the caller. Retries with the same Idempotency-Key return the original complaint.
// @Tags        Complaints
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"   example(user123)
// @Param       Idempotency-Key  header  string  false "Retry key"               example(9f1c7c1e-2b8e-4c1a)
// @Param       body             body    handlers.SubmitComplaintRequest  true  "Complaint payload"
//
// @Success     201  {object}  domain.Complaint
// @Header      201  {string}  Idempotent-Replayed  "true when an earlier result was returned"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     502  {object}  handlers.ErrorResponse  "Classification failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /complaints [post]
func (h *Handlers) SubmitComplaint(c *gin.Context) {
	var req SubmitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: text is required")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	cp, replayed, err := h.complaints.SubmitWithKey(c.Request.Context(), services.SubmitInput{
		SubmitterID:    middleware.UserID(c),
		Text:           req.Text,
		OrderID:        req.OrderID,
		IdempotencyKey: key,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	if replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	ok(c, http.StatusCreated, cp)
}

// ListComplaints godoc
// @ID          listComplaints
// @Summary     List complaints
// @Description Returns complaints matching the filters in creation order. Non-admin callers only see their own complaints. Supports weak ETag via If-None-Match.
// @Tags        Complaints
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       user_id        query   string  false "Submitter filter (admin)"
// @Param       role           query   string  false "user or admin"               Enums(user, admin)
// @Param       category       query   string  false "Category or All"
// @Param       status         query   string  false "Status or All"
// @Param       date           query   string  false "today, yesterday or YYYY-MM-DD"
// @Param       page           query   int     false "Page number"                 minimum(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100)
//
// @Success     200  {object} handlers.ListComplaintsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /complaints [get]
func (h *Handlers) ListComplaints(c *gin.Context) {
	ctx := c.Request.Context()
	f, good := h.filter(c)
	if !good {
		return
	}
	page, pageSize, paged := pagination(c)

	// ETag pre-check (best effort).
	if n, at, has, err := h.triage.Version(ctx, f); err == nil && has {
		etag := listETag(f, page, pageSize, n, at)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	if !paged {
		items, err := h.triage.Query(ctx, f)
		if err != nil {
			serviceError(c, err)
			return
		}
		ok(c, http.StatusOK, ListComplaintsResponse{Complaints: items})
		return
	}

	items, total, err := h.triage.Page(ctx, f, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListComplaintsResponse{
		Complaints: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetComplaint godoc
// @ID          getComplaint
// @Summary     Get a complaint
// @Tags        Complaints
// @Produce     json
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    int     true  "Complaint ID"           minimum(1)
// @Success     200  {object} domain.Complaint
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /complaints/{id} [get]
func (h *Handlers) GetComplaint(c *gin.Context) {
	id, good := complaintID(c)
	if !good {
		return
	}
	cp, err := h.complaints.GetFor(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, cp)
}

// ComplaintHistory godoc
// @ID          complaintHistory
// @Summary     Status history of a complaint
// @Description Returns every status transition, oldest first, with the acting admin.
// @Tags        Complaints
// @Produce     json
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    int     true  "Complaint ID"           minimum(1)
// @Success     200  {object} handlers.HistoryResponse
// @Failure     403  {object} handlers.ErrorResponse "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /complaints/{id}/history [get]
func (h *Handlers) ComplaintHistory(c *gin.Context) {
	id, good := complaintID(c)
	if !good {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.complaints.GetFor(ctx, middleware.UserID(c), middleware.IsAdmin(c), id); err != nil {
		serviceError(c, err)
		return
	}
	evs, err := h.complaints.History(ctx, id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, HistoryResponse{ComplaintID: id, Events: evs})
}

// UpdateComplaintStatus godoc
// @ID          updateComplaintStatus
// @Summary     Move a complaint to a new status
// @Description Admin-only. Resolving without admin_response stores the default resolution message. A Resolved complaint cannot change again.
// @Tags        Complaints
// @Accept      json
// @Produce     json
// @Param       X-User-ID    header  string  false "User ID (demo header)"  example(admin1)
// @Param       X-User-Role  header  string  false "Role (demo header)"     example(admin)
// @Param       id           path    int     true  "Complaint ID"           minimum(1)
// @Param       body         body    handlers.UpdateStatusRequest  true  "Target status"
// @Success     200  {object} domain.Complaint
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Admin only"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Invalid transition"
// @Router      /complaints/{id}/status [put]
func (h *Handlers) UpdateComplaintStatus(c *gin.Context) {
	id, good := complaintID(c)
	if !good {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: status is required")
		return
	}
	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	cp, err := h.complaints.Transition(c.Request.Context(), middleware.UserID(c), id, target, req.AdminResponse)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, cp)
}

// filter binds the query string into a validated filter. Non-admin callers
// are pinned to their own complaints whatever they ask for.
func (h *Handlers) filter(c *gin.Context) (domain.Filter, bool) {
	var raw domain.RawFilter
	if err := c.ShouldBindQuery(&raw); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid query")
		return domain.Filter{}, false
	}
	if !middleware.IsAdmin(c) {
		raw.SubmitterID = middleware.UserID(c)
		raw.Role = string(domain.RoleUser)
	}
	f, err := domain.ParseFilter(raw, h.loc, h.now())
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return domain.Filter{}, false
	}
	return f, true
}

// listETag derives a weak validator from the resolved filter, the page
// window, and the (count, latest update) summary of the matching rows.
func listETag(f domain.Filter, page, pageSize int, n int64, at *time.Time) string {
	var ts int64
	if at != nil {
		ts = at.UnixNano()
	}
	day := ""
	if f.Day != nil {
		day = f.Day.Format(time.DateOnly)
	}
	key := strings.Join([]string{
		f.SubmitterID, string(f.Role), string(f.Category), string(f.Status), day,
		strconv.Itoa(page), strconv.Itoa(pageSize),
	}, "\x1f")
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf(`W/"complaints:%x:%d:%d"`, sum[:8], n, ts)
}
