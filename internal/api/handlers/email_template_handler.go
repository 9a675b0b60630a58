package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/services"
)

// EmailTemplateHandler lets administrators override the built-in mail templates.
type EmailTemplateHandler struct {
	templateService services.IEmailTemplateService
}

func NewEmailTemplateHandler(templateService services.IEmailTemplateService) *EmailTemplateHandler {
	return &EmailTemplateHandler{templateService: templateService}
}

type EmailTemplateRequest struct {
	Locale  string `json:"locale"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// Get handles GET /api/admin/email-templates/:templateId?locale=
// Stored templates win over the built-in defaults.
func (h *EmailTemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.templateService.GetTemplate(c.Request.Context(), c.Param("templateId"), c.Query("locale"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// Save handles PUT /api/admin/email-templates/:templateId
func (h *EmailTemplateHandler) Save(c *gin.Context) {
	var req EmailTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = services.DefaultLocale
	}
	tmpl := &models.EmailTemplate{
		TemplateID: c.Param("templateId"),
		Locale:     locale,
		Subject:    req.Subject,
		Body:       req.Body,
	}
	if err := h.templateService.SaveTemplate(c.Request.Context(), tmpl); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}
