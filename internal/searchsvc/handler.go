package searchsvc

import (
	"context"
	"net/http"
	"time"

	apperrors "search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/validation"
	"search-orchestrator/internal/models"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	provider Provider
	errs     *apperrors.ErrorHandler
	log      logger.Logger
}

func NewHandler(provider Provider, log logger.Logger) *Handler {
	return &Handler{
		provider: provider,
		errs:     apperrors.NewErrorHandler(log),
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.POST("/api/search", h.Search)
}

// Search runs the query and answers {status, count, results}. Elasticsearch
// error statuses propagate; an unreachable cluster answers 500.
func (h *Handler) Search(c *gin.Context) {
	var doc interface{}
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.errs.Respond(c, apperrors.NewValidationError("request body must be valid JSON", err.Error()))
		return
	}
	if result := validation.SearchRequest.Validate(doc); !result.Valid {
		h.errs.Respond(c, apperrors.NewValidationError("invalid search request", result.Summary()))
		return
	}

	query := models.NewSearchQuery(doc.(map[string]interface{}), c.GetHeader("user_id"))
	records, err := h.provider.Search(c.Request.Context(), query.Text, query.SearchFields, query.SelectFields)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SearchBackendResponse{
		Status:  models.StatusSuccess,
		Count:   len(records),
		Records: records,
	})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.provider.Ping(ctx); err != nil {
		h.log.Warn("elasticsearch health check failed", map[string]interface{}{"error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "elasticsearch": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
