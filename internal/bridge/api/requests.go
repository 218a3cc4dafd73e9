package api

// Request and response DTOs for the session API.

// CreateSessionRequest starts a new conversation with an initial user
// message.
type CreateSessionRequest struct {
	Message string `json:"message" binding:"required"`
}

// CreateSessionResponse carries the id of the created session.
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// SessionInfo describes one live session.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
}

// SessionsListResponse lists all live sessions.
type SessionsListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Total    int           `json:"total"`
}

// PushMessageRequest carries a follow-up user turn.
type PushMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// Respond kinds.
const (
	RespondKindPermission = "permission"
	RespondKindQuestion   = "question"
)

// RespondRequest resolves a pending permission or question.
type RespondRequest struct {
	Kind         string         `json:"kind" binding:"required"`
	ID           string         `json:"id" binding:"required"`
	Behavior     string         `json:"behavior,omitempty"`
	UpdatedInput map[string]any `json:"updatedInput,omitempty"`
	Answer       string         `json:"answer,omitempty"`
}

// OKResponse acknowledges a state-changing request.
type OKResponse struct {
	OK bool `json:"ok"`
}
