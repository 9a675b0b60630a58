package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saif-ali01/projectXAPI/internal/services"
)

type EarningHandler struct {
	earningService services.IEarningService
}

func NewEarningHandler(earningService services.IEarningService) *EarningHandler {
	return &EarningHandler{earningService: earningService}
}

// List handles GET /api/earnings
func (h *EarningHandler) List(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	r, ok := dateRange(c)
	if !ok {
		return
	}
	earnings, err := h.earningService.List(c.Request.Context(), ownerID, services.EarningListQuery{
		Range:  r,
		Source: c.Query("source"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, earnings)
}

// Create handles POST /api/earnings. Manual earnings carry no reference.
func (h *EarningHandler) Create(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var in services.EarningInput
	if !bindJSON(c, &in) {
		return
	}
	earning, err := h.earningService.Create(c.Request.Context(), ownerID, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, earning)
}
