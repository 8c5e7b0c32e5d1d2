package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"status-service/internal/domain"
)

// ErrConflict is returned when a write lost a race with a concurrent writer:
// either another writer created the same (workspace, user) record first or the
// record's version changed since it was read.
var ErrConflict = errors.New("status record was modified concurrently")

// StatusRepository defines the interface for status record data access
type StatusRepository interface {
	FindByWorkspaceAndUser(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.StatusRecord, error)
	FindByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.StatusRecord, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.StatusRecord, error)
	Create(ctx context.Context, record *domain.StatusRecord) error
	UpdateStatus(ctx context.Context, record *domain.StatusRecord, status string, lastSeen int64) error
	MarkOffline(ctx context.Context, id uuid.UUID, lastSeen int64) error
	CountOnline(ctx context.Context, freshSince int64) (fresh int64, stale int64, err error)
}

// statusRepositoryImpl is the GORM implementation of StatusRepository
type statusRepositoryImpl struct {
	db *gorm.DB
}

// NewStatusRepository creates a new instance of StatusRepository
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepositoryImpl{db: db}
}

// FindByWorkspaceAndUser returns gorm.ErrRecordNotFound when the user has no record in the workspace
func (r *statusRepositoryImpl) FindByWorkspaceAndUser(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.StatusRecord, error) {
	var record domain.StatusRecord
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *statusRepositoryImpl) FindByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.StatusRecord, error) {
	var records []*domain.StatusRecord
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("user_id").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByUser lists the user's records across every workspace
func (r *statusRepositoryImpl) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.StatusRecord, error) {
	var records []*domain.StatusRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create inserts a new record. ErrConflict means a record for the same
// (workspace, user) pair already exists.
func (r *statusRepositoryImpl) Create(ctx context.Context, record *domain.StatusRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// UpdateStatus writes status and lastSeen only if the stored version still
// matches record.Version. On success record is updated in place.
func (r *statusRepositoryImpl) UpdateStatus(ctx context.Context, record *domain.StatusRecord, status string, lastSeen int64) error {
	result := r.db.WithContext(ctx).
		Model(&domain.StatusRecord{}).
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(map[string]interface{}{
			"status":    status,
			"last_seen": lastSeen,
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}

	record.Status = status
	record.LastSeen = lastSeen
	record.Version++
	return nil
}

// MarkOffline unconditionally sets the record offline
func (r *statusRepositoryImpl) MarkOffline(ctx context.Context, id uuid.UUID, lastSeen int64) error {
	result := r.db.WithContext(ctx).
		Model(&domain.StatusRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    domain.StatusOffline,
			"last_seen": lastSeen,
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountOnline counts stored "online" records split by whether lastSeen is after freshSince
func (r *statusRepositoryImpl) CountOnline(ctx context.Context, freshSince int64) (int64, int64, error) {
	var fresh, stale int64
	base := r.db.WithContext(ctx).Model(&domain.StatusRecord{}).Where("status = ?", domain.StatusOnline)

	if err := base.Session(&gorm.Session{}).Where("last_seen > ?", freshSince).Count(&fresh).Error; err != nil {
		return 0, 0, err
	}
	if err := base.Session(&gorm.Session{}).Where("last_seen <= ?", freshSince).Count(&stale).Error; err != nil {
		return 0, 0, err
	}
	return fresh, stale, nil
}

// isDuplicateKey recognizes unique violations from drivers with and without error translation
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
