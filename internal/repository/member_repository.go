package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"status-service/internal/domain"
)

// MemberRepository defines the interface for local workspace membership data access
type MemberRepository interface {
	IsActiveMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error)
	Add(ctx context.Context, member *domain.WorkspaceMember) error
	Deactivate(ctx context.Context, workspaceID, userID uuid.UUID) error
}

type memberRepositoryImpl struct {
	db *gorm.DB
}

// NewMemberRepository creates a new instance of MemberRepository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepositoryImpl{db: db}
}

func (r *memberRepositoryImpl) IsActiveMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ? AND is_active = ?", workspaceID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// Add inserts a member, reactivating an existing membership for the same pair
func (r *memberRepositoryImpl) Add(ctx context.Context, member *domain.WorkspaceMember) error {
	err := r.db.WithContext(ctx).Create(member).Error
	if err == nil || !isDuplicateKey(err) {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&domain.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", member.WorkspaceID, member.UserID).
		Updates(map[string]interface{}{
			"is_active": true,
			"role_name": member.RoleName,
		}).Error
}

func (r *memberRepositoryImpl) Deactivate(ctx context.Context, workspaceID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("is_active", false).Error
}
