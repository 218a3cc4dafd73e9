package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/bridge/session"
	"github.com/chatbridge/chatbridge/internal/common/errors"
	"github.com/chatbridge/chatbridge/internal/common/logger"
)

// Handler contains HTTP handlers for the session API
type Handler struct {
	manager *session.Manager
	logger  *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(mgr *session.Manager, log *logger.Logger) *Handler {
	return &Handler{
		manager: mgr,
		logger:  log,
	}
}

// CreateSession starts a new session with an initial user message
// POST /api/v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.BadRequest(err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	s, err := h.manager.Create(req.Message)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		appErr := errors.Wrap(err, "failed to create session")
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, CreateSessionResponse{SessionID: s.ID})
}

// ListSessions returns all live sessions
// GET /api/v1/sessions
func (h *Handler) ListSessions(c *gin.Context) {
	sessions := h.manager.List()

	resp := SessionsListResponse{
		Sessions: make([]SessionInfo, len(sessions)),
		Total:    len(sessions),
	}
	for i, s := range sessions {
		resp.Sessions[i] = SessionInfo{SessionID: s.ID}
	}

	c.JSON(http.StatusOK, resp)
}

// PushMessage feeds a follow-up user turn to a session
// POST /api/v1/sessions/:sessionId/messages
func (h *Handler) PushMessage(c *gin.Context) {
	s := h.manager.Get(c.Param("sessionId"))
	if s == nil {
		appErr := errors.NotFound("session", c.Param("sessionId"))
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	var req PushMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.BadRequest(err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	s.PushMessage(req.Message)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Respond resolves a pending permission request or user question
// POST /api/v1/sessions/:sessionId/respond
func (h *Handler) Respond(c *gin.Context) {
	s := h.manager.Get(c.Param("sessionId"))
	if s == nil {
		appErr := errors.NotFound("session", c.Param("sessionId"))
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.BadRequest(err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	var err error
	switch req.Kind {
	case RespondKindPermission:
		err = s.Gate().Resolve(req.ID, req.Behavior, req.UpdatedInput)
	case RespondKindQuestion:
		err = s.Gate().AnswerQuestion(req.ID, req.Answer)
	default:
		appErr := errors.BadRequest("unknown respond kind: " + req.Kind)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	if err != nil {
		appErr := errors.BadRequest(err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Interrupt asks the engine to stop the current turn
// POST /api/v1/sessions/:sessionId/interrupt
func (h *Handler) Interrupt(c *gin.Context) {
	s := h.manager.Get(c.Param("sessionId"))
	if s == nil {
		appErr := errors.NotFound("session", c.Param("sessionId"))
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	s.Interrupt()
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// DeleteSession aborts a session and removes it
// DELETE /api/v1/sessions/:sessionId
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.manager.Delete(c.Param("sessionId")); err != nil {
		appErr := errors.Wrap(err, "failed to delete session")
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Status(http.StatusNoContent)
}

// HealthCheck reports service liveness
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
