package historysvc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	apperrors "search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/validation"
	"search-orchestrator/internal/models"

	"github.com/gin-gonic/gin"
)

// Pinger reports datastore liveness for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	service *Service
	db      Pinger
	errs    *apperrors.ErrorHandler
	log     logger.Logger
}

func NewHandler(service *Service, db Pinger, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		db:      db,
		errs:    apperrors.NewErrorHandler(log),
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)

	api := engine.Group("/api")
	api.POST("/users", h.CreateUser)
	api.GET("/users/:id", h.GetUser)
	api.POST("/history", h.RecordSearch)
	api.POST("/history/save", h.SaveSearch)
	api.GET("/history/user/:id", h.ListHistory)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var cmd models.CreateUserCommand
	if !h.bind(c, validation.CreateUserRequest, &cmd) {
		return
	}
	if !validation.ValidateEmail(cmd.Email) {
		h.errs.Respond(c, apperrors.NewValidationError("invalid email address", cmd.Email))
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), cmd)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) RecordSearch(c *gin.Context) {
	var cmd models.RecordSearchCommand
	if !h.bind(c, validation.RecordHistoryRequest, &cmd) {
		return
	}

	entry, err := h.service.RecordSearch(c.Request.Context(), cmd)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) SaveSearch(c *gin.Context) {
	var cmd models.SaveSearchCommand
	if !h.bind(c, validation.SaveSearchRequest, &cmd) {
		return
	}

	entry, err := h.service.SaveSearch(c.Request.Context(), cmd)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) ListHistory(c *gin.Context) {
	var saved *bool
	if raw, ok := c.GetQuery("saved"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.errs.Respond(c, apperrors.NewValidationError("saved must be a boolean", raw))
			return
		}
		saved = &v
	}

	entries, err := h.service.ListHistory(c.Request.Context(), c.Param("id"), saved)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("postgres health check failed", map[string]interface{}{"error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// bind validates the raw body against schema and decodes it into dst. It writes
// the error response and returns false on failure.
func (h *Handler) bind(c *gin.Context, schema *validation.Schema, dst interface{}) bool {
	raw, err := c.GetRawData()
	if err != nil {
		h.errs.Respond(c, apperrors.NewValidationError("failed to read request body", err.Error()))
		return false
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		h.errs.Respond(c, apperrors.NewValidationError("request body must be valid JSON", err.Error()))
		return false
	}
	if result := schema.Validate(doc); !result.Valid {
		h.errs.Respond(c, apperrors.NewValidationError("invalid "+schema.Name(), result.Summary()))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		h.errs.Respond(c, apperrors.NewValidationError("request body does not match "+schema.Name(), err.Error()))
		return false
	}
	return true
}
