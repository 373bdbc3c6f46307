// Reference data endpoints: enums, the transition table and resolution presets.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// CategoriesResponse describes the closed enums and the legal transitions.
// Next lists, per status, the targets an admin may pick; Resolved maps to an
// empty list.
type CategoriesResponse struct {
	Categories  []domain.Category                 `json:"categories"`
	Statuses    []domain.Status                   `json:"statuses"`
	Transitions []domain.Transition               `json:"transitions"`
	Next        map[domain.Status][]domain.Status `json:"next"`
}

// PresetsResponse lists suggested resolution messages.
type PresetsResponse struct {
	Default string   `json:"default"`
	Presets []string `json:"presets"`
}

// Categories godoc
// @ID          categories
// @Summary     Categories, statuses and transitions
// @Tags        Reference
// @Produce     json
// @Success     200  {object} handlers.CategoriesResponse
// @Router      /categories [get]
func (h *Handlers) Categories(c *gin.Context) {
	statuses := domain.Statuses()
	next := make(map[domain.Status][]domain.Status, len(statuses))
	for _, s := range statuses {
		next[s] = append([]domain.Status{}, domain.NextStatuses(s)...)
	}
	ok(c, http.StatusOK, CategoriesResponse{
		Categories:  domain.Categories(),
		Statuses:    statuses,
		Transitions: domain.Transitions(),
		Next:        next,
	})
}

// ResolutionPresets godoc
// @ID          resolutionPresets
// @Summary     Suggested resolution messages
// @Description Presets only prefill the admin's message; any non-empty text is accepted when resolving.
// @Tags        Reference
// @Produce     json
// @Success     200  {object} handlers.PresetsResponse
// @Router      /resolution-presets [get]
func (h *Handlers) ResolutionPresets(c *gin.Context) {
	presets := make([]string, len(domain.ResolutionPresets))
	copy(presets, domain.ResolutionPresets)
	ok(c, http.StatusOK, PresetsResponse{
		Default: domain.DefaultResolutionMessage,
		Presets: presets,
	})
}
