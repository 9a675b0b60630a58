package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saif-ali01/projectXAPI/internal/services"
)

// ClientHandler handles REST requests related to clients.
type ClientHandler struct {
	clientService services.IClientService
}

func NewClientHandler(clientService services.IClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// Create handles POST /api/clients
func (h *ClientHandler) Create(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var in services.ClientInput
	if !bindJSON(c, &in) {
		return
	}
	client, err := h.clientService.Create(c.Request.Context(), ownerID, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, client)
}

// List handles GET /api/clients
func (h *ClientHandler) List(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	list, err := h.clientService.List(c.Request.Context(), ownerID, services.ClientListQuery{
		PageRequest: pageRequest(c),
		Search:      c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, list)
}

// Update handles PUT /api/clients/:id. Empty fields keep their current value.
func (h *ClientHandler) Update(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Client")
	if !ok {
		return
	}
	var in services.ClientInput
	if !bindJSON(c, &in) {
		return
	}
	client, err := h.clientService.Update(c.Request.Context(), ownerID, id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, client)
}

// Delete handles DELETE /api/clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Client")
	if !ok {
		return
	}
	if err := h.clientService.Delete(c.Request.Context(), ownerID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Client deleted successfully"})
}
