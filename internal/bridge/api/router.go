package api

import (
	"github.com/gin-gonic/gin"

	"github.com/chatbridge/chatbridge/internal/bridge/session"
	"github.com/chatbridge/chatbridge/internal/common/logger"
)

// SetupRoutes configures the session API routes
func SetupRoutes(router *gin.RouterGroup, mgr *session.Manager, log *logger.Logger) {
	handler := NewHandler(mgr, log)

	sessions := router.Group("/sessions")
	{
		sessions.POST("", handler.CreateSession)
		sessions.GET("", handler.ListSessions)
		sessions.GET("/:sessionId/events", handler.StreamEvents)
		sessions.GET("/:sessionId/ws", handler.StreamEventsWS)
		sessions.POST("/:sessionId/messages", handler.PushMessage)
		sessions.POST("/:sessionId/respond", handler.Respond)
		sessions.POST("/:sessionId/interrupt", handler.Interrupt)
		sessions.DELETE("/:sessionId", handler.DeleteSession)
	}
}
