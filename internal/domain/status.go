package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// StatusRecord is the last known status of a user inside one workspace.
// There is at most one record per (workspace, user); records are never deleted.
type StatusRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_statuses_workspace_user,priority:1" json:"workspaceId"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_statuses_workspace_user,priority:2;index:idx_user_statuses_user" json:"userId"`
	Status      string    `gorm:"type:varchar(64);not null" json:"status"`
	LastSeen    int64     `gorm:"not null" json:"lastSeen"` // unix millis
	Version     int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName specifies the table name for StatusRecord
func (StatusRecord) TableName() string {
	return "user_statuses"
}

// BeforeCreate assigns an ID and the initial version
func (r *StatusRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	return nil
}

// EffectiveStatus is a status after the staleness override has been applied
type EffectiveStatus struct {
	Status   string
	LastSeen int64
}

// DeriveEffectiveStatus computes what readers should report for a record at nowMillis.
// A missing record is offline with lastSeen 0. A stored "online" whose lastSeen is not
// within staleWindow of now is reported as offline; every other status passes through.
func DeriveEffectiveStatus(rec *StatusRecord, nowMillis int64, staleWindow time.Duration) EffectiveStatus {
	if rec == nil {
		return EffectiveStatus{Status: StatusOffline, LastSeen: 0}
	}

	recentlyActive := rec.LastSeen > nowMillis-staleWindow.Milliseconds()
	if rec.Status == StatusOnline && !recentlyActive {
		return EffectiveStatus{Status: StatusOffline, LastSeen: rec.LastSeen}
	}

	return EffectiveStatus{Status: rec.Status, LastSeen: rec.LastSeen}
}

// WithinDebounce reports whether writing status at nowMillis would repeat the stored
// value inside the debounce window.
func (r *StatusRecord) WithinDebounce(status string, nowMillis int64, window time.Duration) bool {
	return r.Status == status && nowMillis-r.LastSeen < window.Milliseconds()
}
