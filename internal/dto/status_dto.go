package dto

import (
	"github.com/google/uuid"
)

// UpdateStatusRequest represents the request body for setting the caller's status
type UpdateStatusRequest struct {
	Status      string    `json:"status" binding:"required" example:"online"`
	WorkspaceID uuid.UUID `json:"workspaceId" binding:"required" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// UpdateStatusResponse is the outcome of a status write.
// A write that lost every conflict retry reports Success=false with Error set.
type UpdateStatusResponse struct {
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SignOutResponse is the outcome of a global sign-out sweep
type SignOutResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the effective status of one user
type StatusResponse struct {
	Status   string `json:"status" example:"online"`
	LastSeen int64  `json:"lastSeen" example:"1700000000000"`
}

// WorkspaceStatusResponse is the effective status of one member of a workspace
type WorkspaceStatusResponse struct {
	UserID   uuid.UUID `json:"userId"`
	Status   string    `json:"status"`
	LastSeen int64     `json:"lastSeen"`
}
