// Package handler is the orchestrator's HTTP boundary.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	apperrors "search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/validation"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/orchestrator/service"

	"github.com/gin-gonic/gin"
)

// UserIDHeader identifies the caller of a search. It must be present but may be empty.
const UserIDHeader = "user_id"

// Orchestrator is the use-case surface the handler drives.
type Orchestrator interface {
	ExecuteSearch(ctx context.Context, query models.SearchQuery) (*models.SearchResult, error)
	SaveSearch(ctx context.Context, cmd models.SaveSearchCommand) (*models.HistoryEntry, error)
	GetUserHistory(ctx context.Context, userID string, saved *bool) ([]models.HistoryEntry, error)
	Health(ctx context.Context) service.HealthReport
}

type Handler struct {
	orchestrator Orchestrator
	errs         *apperrors.ErrorHandler
	log          logger.Logger
}

func NewHandler(orchestrator Orchestrator, log logger.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		errs:         apperrors.NewErrorHandler(log),
		log:          log,
	}
}

// RegisterRoutes mounts the orchestrator API on engine.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)

	api := engine.Group("/api")
	api.POST("/search", h.Search)
	api.POST("/search/save", h.SaveSearch)
	api.GET("/history/:user_id", h.GetHistory)
}

func (h *Handler) Search(c *gin.Context) {
	values := c.Request.Header.Values(UserIDHeader)
	if len(values) == 0 {
		h.errs.Respond(c, apperrors.NewValidationError("user_id header is required", ""))
		return
	}
	userID := values[0]

	doc, err := decodeBody(c)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	if err := validate(validation.SearchRequest, doc); err != nil {
		h.errs.Respond(c, err)
		return
	}

	query := models.NewSearchQuery(doc.(map[string]interface{}), userID)
	result, err := h.orchestrator.ExecuteSearch(c.Request.Context(), query)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, result.ToResponse())
}

func (h *Handler) SaveSearch(c *gin.Context) {
	doc, err := decodeBody(c)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	if err := validate(validation.SaveSearchRequest, doc); err != nil {
		h.errs.Respond(c, err)
		return
	}

	body := doc.(map[string]interface{})
	cmd := models.SaveSearchCommand{
		UserID:     body["user_id"].(string),
		SearchID:   body["search_id"].(string),
		SearchName: body["search_name"].(string),
	}

	entry, err := h.orchestrator.SaveSearch(c.Request.Context(), cmd)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) GetHistory(c *gin.Context) {
	var saved *bool
	if raw, ok := c.GetQuery("saved"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.errs.Respond(c, apperrors.NewValidationError("saved must be a boolean", raw))
			return
		}
		saved = &v
	}

	entries, err := h.orchestrator.GetUserHistory(c.Request.Context(), c.Param("user_id"), saved)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) Health(c *gin.Context) {
	report := h.orchestrator.Health(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func decodeBody(c *gin.Context) (interface{}, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, apperrors.NewValidationError("failed to read request body", err.Error())
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.NewValidationError("request body must be valid JSON", err.Error())
	}
	return doc, nil
}

func validate(schema *validation.Schema, doc interface{}) error {
	result := schema.Validate(doc)
	if !result.Valid {
		return apperrors.NewValidationError("invalid "+schema.Name(), result.Summary())
	}
	return nil
}
