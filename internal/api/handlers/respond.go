// Package handlers implements the REST endpoints. Handlers parse the request,
// call one service and map domain errors to HTTP statuses.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/api/middleware"
	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/logger"
	"github.com/saif-ali01/projectXAPI/internal/services"
	"github.com/saif-ali01/projectXAPI/internal/utils"
	"github.com/saif-ali01/projectXAPI/internal/validation"
)

// SetupValidator makes gin's binding validator report json field names and
// understand the custom rules.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.Register(v)
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

func statusOf(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound, apperrors.KindNoData:
		return http.StatusNotFound
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status of its kind. Internal details are
// logged, never returned.
func respondError(c *gin.Context, err error) {
	err = validation.Translate(err)
	status := statusOf(apperrors.KindOf(err))
	_ = c.Error(err)

	var appErr *apperrors.Error
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		logger.FromGin(c).Error("Request failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
		return
	}
	if status == http.StatusServiceUnavailable {
		logger.FromGin(c).Error("Dependency unavailable", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Message: appErr.Message, Errors: appErr.Fields})
}

// bindJSON decodes the body into dest, answering 400 on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		if translated := validation.Translate(err); apperrors.Is(translated, apperrors.KindValidation) {
			respondError(c, translated)
			return false
		}
		respondError(c, apperrors.Validation("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

// owner returns the authenticated owner. It answers 401 when AuthMiddleware did not run.
func owner(c *gin.Context) (primitive.ObjectID, bool) {
	id, ok := middleware.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized"})
	}
	return id, ok
}

// pathID parses the :name path parameter as an ObjectID, answering 400 when malformed.
func pathID(c *gin.Context, name, entity string) (primitive.ObjectID, bool) {
	id, err := services.ParseID(entity, c.Param(name))
	if err != nil {
		respondError(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

// pageRequest reads page and limit. Bad or missing values fall back to the service defaults.
func pageRequest(c *gin.Context) services.PageRequest {
	page, _ := strconv.ParseInt(c.Query("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	return services.PageRequest{Page: page, Limit: limit}
}

// dateRange reads the optional startDate/endDate query parameters.
func dateRange(c *gin.Context) (utils.DateRange, bool) {
	r, err := utils.ParseDateRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondError(c, apperrors.Validation(err.Error()))
		return r, false
	}
	return r, true
}

func timeFrame(c *gin.Context, fallback utils.TimeFrame) (utils.TimeFrame, bool) {
	tf, err := utils.ParseTimeFrame(c.Query("timeFrame"), fallback)
	if err != nil {
		respondError(c, apperrors.Validation("Invalid timeFrame. Use daily, monthly or yearly"))
		return "", false
	}
	return tf, true
}

// MessageResponse is the body of operations that only confirm.
type MessageResponse struct {
	Message string `json:"message"`
}

// DataResponse is the {success, data} envelope of the works, clients, budget and report endpoints.
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, DataResponse{Success: true, Data: data})
}
