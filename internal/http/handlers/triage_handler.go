// Triage HTTP handlers: admin statistics and the date-grouped view.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/services"
)

// GroupedResponse lists complaints partitioned by creation day.
type GroupedResponse struct {
	Groups []services.DateGroup `json:"groups"`
}

// Stats godoc
// @ID          complaintStats
// @Summary     Complaint counts per category
// @Description Admin-only. Accepts the same filters as the list endpoint; categories without matches are omitted.
// @Tags        Triage
// @Produce     json
// @Param       X-User-ID    header  string  false "User ID (demo header)"  example(admin1)
// @Param       X-User-Role  header  string  false "Role (demo header)"     example(admin)
// @Param       category     query   string  false "Category or All"
// @Param       status       query   string  false "Status or All"
// @Param       date         query   string  false "today, yesterday or YYYY-MM-DD"
// @Success     200  {object} map[string]int
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Admin only"
// @Router      /stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	f, good := h.filter(c)
	if !good {
		return
	}
	counts, err := h.triage.Stats(c.Request.Context(), f)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, counts)
}

// GroupedComplaints godoc
// @ID          groupedComplaints
// @Summary     Complaints grouped by day
// @Description Admin-only. Groups appear in the order their first complaint was created; days use the server's configured time zone.
// @Tags        Triage
// @Produce     json
// @Param       X-User-ID    header  string  false "User ID (demo header)"  example(admin1)
// @Param       X-User-Role  header  string  false "Role (demo header)"     example(admin)
// @Param       category     query   string  false "Category or All"
// @Param       status       query   string  false "Status or All"
// @Param       date         query   string  false "today, yesterday or YYYY-MM-DD"
// @Success     200  {object} handlers.GroupedResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Admin only"
// @Router      /complaints/grouped [get]
func (h *Handlers) GroupedComplaints(c *gin.Context) {
	f, good := h.filter(c)
	if !good {
		return
	}
	groups, err := h.triage.Grouped(c.Request.Context(), f)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, GroupedResponse{Groups: groups})
}
