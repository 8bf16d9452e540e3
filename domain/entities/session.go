package entities

import (
	"strings"

	"github.com/google/uuid"
)

const (
	userIDPrefix    = "user-"
	sessionIDPrefix = "sess-"
)

// SessionHandle carries conversation continuity between requests.
// UserID is durable (cookie-backed); SessionID is per conversation and caller-controlled.
type SessionHandle struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// NewUserID mints a durable user identifier
func NewUserID() string {
	return userIDPrefix + uuid.NewString()
}

// NewSessionID mints a conversation identifier
func NewSessionID() string {
	return sessionIDPrefix + uuid.NewString()
}

// ResolveSession keeps the identifiers the caller presented and mints the missing ones.
// A presented user id is never regenerated.
func ResolveSession(userID, sessionID string) SessionHandle {
	userID = ResolveUserID(userID)

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	return SessionHandle{
		UserID:    userID,
		SessionID: sessionID,
	}
}

// ResolveUserID keeps a presented user id and mints one when it is blank
func ResolveUserID(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return NewUserID()
	}
	return userID
}

// OrchestratorContext builds the caller metadata for this session
func (s SessionHandle) OrchestratorContext(channel, locale, tenant, clientApp string) OrchestratorContext {
	return OrchestratorContext{
		Channel:   channel,
		UserID:    s.UserID,
		Locale:    locale,
		Tenant:    tenant,
		ClientApp: clientApp,
	}
}
