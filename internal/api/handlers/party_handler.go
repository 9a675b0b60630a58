package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saif-ali01/projectXAPI/internal/services"
)

type PartyHandler struct {
	partyService services.IPartyService
}

func NewPartyHandler(partyService services.IPartyService) *PartyHandler {
	return &PartyHandler{partyService: partyService}
}

// List handles GET /api/parties
func (h *PartyHandler) List(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	parties, err := h.partyService.List(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, parties)
}

// Get handles GET /api/parties/:id
func (h *PartyHandler) Get(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Party")
	if !ok {
		return
	}
	party, err := h.partyService.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, party)
}

// Create handles POST /api/parties
func (h *PartyHandler) Create(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var in services.PartyInput
	if !bindJSON(c, &in) {
		return
	}
	party, err := h.partyService.Create(c.Request.Context(), ownerID, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, party)
}

// Update handles PUT /api/parties/:id
func (h *PartyHandler) Update(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Party")
	if !ok {
		return
	}
	var in services.PartyInput
	if !bindJSON(c, &in) {
		return
	}
	party, err := h.partyService.Update(c.Request.Context(), ownerID, id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, party)
}

// Delete handles DELETE /api/parties/:id
func (h *PartyHandler) Delete(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Party")
	if !ok {
		return
	}
	if err := h.partyService.Delete(c.Request.Context(), ownerID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Party deleted successfully"})
}
