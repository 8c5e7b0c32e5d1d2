package dto

import (
	"github.com/google/uuid"
)

// Presence message types
const (
	EventTypeUserStatus = "USER_STATUS"
	EventTypeSnapshot   = "SNAPSHOT"
	EventTypeError      = "ERROR"
)

// PresenceEvent is published on presence:workspace:<workspaceId> after every committed status change
type PresenceEvent struct {
	Type        string    `json:"type"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	UserID      uuid.UUID `json:"userId"`
	Status      string    `json:"status"`
	LastSeen    int64     `json:"lastSeen"`
}

// PresenceSnapshot is the first message on a presence feed
type PresenceSnapshot struct {
	Type        string                    `json:"type"`
	WorkspaceID uuid.UUID                 `json:"workspaceId"`
	Statuses    []WorkspaceStatusResponse `json:"statuses"`
}

// FeedError is sent before a feed is closed for a policy reason
type FeedError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
