package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saif-ali01/projectXAPI/internal/services"
)

// WorkHandler handles REST requests related to works.
type WorkHandler struct {
	workService services.IWorkService
}

func NewWorkHandler(workService services.IWorkService) *WorkHandler {
	return &WorkHandler{workService: workService}
}

// Create handles POST /api/works
func (h *WorkHandler) Create(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var in services.WorkInput
	if !bindJSON(c, &in) {
		return
	}
	work, err := h.workService.Create(c.Request.Context(), ownerID, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, services.NewWorkView(work))
}

// List handles GET /api/works
func (h *WorkHandler) List(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	list, err := h.workService.List(c.Request.Context(), ownerID, services.WorkListQuery{
		PageRequest: pageRequest(c),
		Search:      c.Query("search"),
		Type:        c.Query("type"),
		Sort:        c.Query("sort"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, list)
}

// Get handles GET /api/works/:id
func (h *WorkHandler) Get(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Work")
	if !ok {
		return
	}
	work, err := h.workService.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, services.NewWorkView(work))
}

// Update handles PATCH /api/works/:id
func (h *WorkHandler) Update(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Work")
	if !ok {
		return
	}
	var patch services.WorkPatch
	if !bindJSON(c, &patch) {
		return
	}
	work, err := h.workService.Update(c.Request.Context(), ownerID, id, &patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, services.NewWorkView(work))
}

// Delete handles DELETE /api/works/:id
func (h *WorkHandler) Delete(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Work")
	if !ok {
		return
	}
	if err := h.workService.Delete(c.Request.Context(), ownerID, id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{})
}
