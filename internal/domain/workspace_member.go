package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleName represents the role of a workspace member
type RoleName string

const (
	RoleOwner  RoleName = "OWNER"
	RoleAdmin  RoleName = "ADMIN"
	RoleMember RoleName = "MEMBER"
)

// WorkspaceMember is the local membership projection used when no user-service is configured
type WorkspaceMember struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"workspaceMemberId"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_members_workspace_user,priority:1" json:"workspaceId"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_members_workspace_user,priority:2" json:"userId"`
	RoleName    RoleName  `gorm:"type:varchar(20);not null;default:'MEMBER'" json:"roleName"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	JoinedAt    time.Time `gorm:"not null" json:"joinedAt"`
}

// TableName specifies the table name for WorkspaceMember
func (WorkspaceMember) TableName() string {
	return "workspace_members"
}

// BeforeCreate assigns an ID and join time
func (m *WorkspaceMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return nil
}

// Session is the authenticated caller of an operation
type Session struct {
	UserID uuid.UUID
	Token  string
}
