// internal/api/handlers.go
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Corphon/NovelBuilder/internal/errors"
	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/services"
	"github.com/Corphon/NovelBuilder/internal/utils"
	"github.com/gin-gonic/gin"
)

// maxNovelBody caps the save request body.
const maxNovelBody = 8 << 20

// Handler serves API requests.
type Handler struct {
	novels  *services.NovelService
	hub     *NovelHub
	auth    *Authenticator
	metrics *utils.APIMetrics
	logger  *utils.Logger
	debug   bool
	rh      *ResponseHelper
}

// NewHandler creates the API handler.
func NewHandler(novels *services.NovelService, hub *NovelHub, authenticator *Authenticator, metrics *utils.APIMetrics, logger *utils.Logger, debug bool) *Handler {
	if logger == nil {
		logger = utils.NopLogger()
	}
	if metrics == nil {
		metrics = utils.NewAPIMetrics(nil)
	}
	return &Handler{
		novels:  novels,
		hub:     hub,
		auth:    authenticator,
		metrics: metrics,
		logger:  logger,
		debug:   debug,
		rh:      NewResponseHelper(),
	}
}

// CreateNovelRequest is the body of a create request.
type CreateNovelRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TokenRequest asks for a token in debug mode.
type TokenRequest struct {
	UserID string `json:"user_id"`
}

func parseNovelID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewAppError(apperrors.ErrorTypeValidation, "invalid novel id", err)
	}
	return id, nil
}

func currentUser(c *gin.Context) string {
	userID, _ := GetUserFromContext(c)
	return userID
}

func (h *Handler) recordError(err error) {
	if t := apperrors.TypeOf(err); t != "" {
		h.metrics.RecordError(string(t), "api")
	} else {
		h.metrics.RecordError("internal", "api")
	}
}

// GetNovel returns the author's own novel for the editor.
func (h *Handler) GetNovel(c *gin.Context) {
	id, err := parseNovelID(c)
	if err != nil {
		novelError(c, err)
		return
	}
	novel, err := h.novels.GetNovel(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.recordError(err)
		novelError(c, err)
		return
	}
	c.JSON(http.StatusOK, novel)
}

// ViewNovel returns a novel for the reader.
func (h *Handler) ViewNovel(c *gin.Context) {
	id, err := parseNovelID(c)
	if err != nil {
		novelError(c, err)
		return
	}
	novel, err := h.novels.ViewNovel(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.recordError(err)
		novelError(c, err)
		return
	}
	c.JSON(http.StatusOK, novel)
}

// SaveNovel replaces the novel with the request body.
func (h *Handler) SaveNovel(c *gin.Context) {
	id, err := parseNovelID(c)
	if err != nil {
		result(c, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxNovelBody))
	if err != nil {
		result(c, apperrors.NewValidationError("request body too large or unreadable", err))
		return
	}
	payload, err := models.DecodePayload(body)
	if err != nil {
		result(c, apperrors.NewValidationError("invalid novel data", err))
		return
	}

	_, err = h.novels.SaveNovel(c.Request.Context(), id, currentUser(c), payload)
	if err != nil {
		h.recordError(err)
	}
	result(c, err)
}

// PublishNovel publishes a novel.
func (h *Handler) PublishNovel(c *gin.Context) {
	id, err := parseNovelID(c)
	if err != nil {
		result(c, err)
		return
	}
	_, err = h.novels.PublishNovel(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.recordError(err)
	}
	result(c, err)
}

// CreateNovel creates a draft for the current author.
func (h *Handler) CreateNovel(c *gin.Context) {
	var req CreateNovelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.rh.BadRequest(c, "invalid request body", err.Error())
			return
		}
	}

	novel, err := h.novels.CreateNovel(c.Request.Context(), currentUser(c), req.Title, req.Description)
	if err != nil {
		h.recordError(err)
		h.rh.AppError(c, err)
		return
	}
	h.rh.Created(c, novel.Summary(), "novel created")
}

// ListNovels lists published novels, or with mine=true all of the current
// author's novels.
func (h *Handler) ListNovels(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("mine") == "true" {
		userID, ok := GetUserFromContext(c)
		if !ok {
			h.rh.Unauthorized(c, "authentication required")
			return
		}
		novels, err := h.novels.ListByAuthor(ctx, userID)
		if err != nil {
			h.rh.AppError(c, err)
			return
		}
		h.rh.Success(c, novels)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		h.rh.BadRequest(c, "limit must be a non-negative integer")
		return
	}
	novels, err := h.novels.ListPublished(ctx, limit)
	if err != nil {
		h.recordError(err)
		h.rh.AppError(c, err)
		return
	}
	h.rh.Success(c, novels)
}

// DeleteNovel deletes the author's own novel.
func (h *Handler) DeleteNovel(c *gin.Context) {
	id, err := parseNovelID(c)
	if err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorNovelIDInvalid, "invalid novel id")
		return
	}
	if err := h.novels.DeleteNovel(c.Request.Context(), id, currentUser(c)); err != nil {
		h.recordError(err)
		h.rh.AppError(c, err)
		return
	}
	h.rh.Success(c, gin.H{"id": id}, "novel deleted")
}

// IssueToken issues a token for any author in debug mode.
func (h *Handler) IssueToken(c *gin.Context) {
	if !h.debug {
		h.rh.Error(c, http.StatusForbidden, ErrorTokenDisabled, "token issuing is only available in debug mode")
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		h.rh.BadRequest(c, "user_id is required")
		return
	}

	token, err := h.auth.GenerateUserToken(strings.TrimSpace(req.UserID))
	if err != nil {
		h.logger.Error("issue token failed", map[string]interface{}{"error": err.Error()})
		h.rh.Error(c, http.StatusInternalServerError, ErrorTokenIssueFailed, "could not issue token")
		return
	}
	h.rh.Success(c, gin.H{
		"token":      token,
		"user_id":    req.UserID,
		"expires_in": int64(h.auth.tokens.Expiration / time.Second),
	})
}

// NovelWebSocket subscribes to a novel's save and publish events.
func (h *Handler) NovelWebSocket(c *gin.Context) {
	id, err := parseNovelID(c)
	if err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorNovelIDInvalid, "invalid novel id")
		return
	}
	userID := currentUser(c)
	if _, err := h.novels.ViewNovel(c.Request.Context(), id, userID); err != nil {
		h.rh.AppError(c, err)
		return
	}
	h.hub.Serve(c.Writer, c.Request, id, userID)
}

// GetMetrics returns runtime metrics.
func (h *Handler) GetMetrics(c *gin.Context) {
	h.rh.Success(c, gin.H{
		"metrics":   h.metrics.Collector().GetMetrics(),
		"websocket": h.hub.GetStatus(),
	})
}

// Health is the health check.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}
