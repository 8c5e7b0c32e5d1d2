package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"status-service/internal/domain"
	"status-service/internal/dto"
	"status-service/internal/middleware"
)

// MockStatusService is a mock implementation of StatusService
type MockStatusService struct {
	UpdateStatusFunc    func(ctx context.Context, session *domain.Session, req *dto.UpdateStatusRequest) (*dto.UpdateStatusResponse, error)
	SignOutFunc         func(ctx context.Context, session *domain.Session) *dto.SignOutResponse
	GetUserStatusFunc   func(ctx context.Context, session *domain.Session, workspaceID uuid.UUID, targetUserID *uuid.UUID) (*dto.StatusResponse, error)
	GetForWorkspaceFunc func(ctx context.Context, session *domain.Session, workspaceID uuid.UUID) ([]dto.WorkspaceStatusResponse, error)
}

func (m *MockStatusService) UpdateStatus(ctx context.Context, session *domain.Session, req *dto.UpdateStatusRequest) (*dto.UpdateStatusResponse, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, session, req)
	}
	return &dto.UpdateStatusResponse{Success: true}, nil
}

func (m *MockStatusService) SignOut(ctx context.Context, session *domain.Session) *dto.SignOutResponse {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, session)
	}
	return &dto.SignOutResponse{Success: session != nil}
}

func (m *MockStatusService) GetUserStatus(ctx context.Context, session *domain.Session, workspaceID uuid.UUID, targetUserID *uuid.UUID) (*dto.StatusResponse, error) {
	if m.GetUserStatusFunc != nil {
		return m.GetUserStatusFunc(ctx, session, workspaceID, targetUserID)
	}
	return nil, nil
}

func (m *MockStatusService) GetForWorkspace(ctx context.Context, session *domain.Session, workspaceID uuid.UUID) ([]dto.WorkspaceStatusResponse, error) {
	if m.GetForWorkspaceFunc != nil {
		return m.GetForWorkspaceFunc(ctx, session, workspaceID)
	}
	return []dto.WorkspaceStatusResponse{}, nil
}

// MockMembershipChecker is a mock implementation of MembershipChecker
type MockMembershipChecker struct {
	IsMemberFunc func(ctx context.Context, workspaceID, userID uuid.UUID, token string) (bool, error)
}

func (m *MockMembershipChecker) IsMember(ctx context.Context, workspaceID, userID uuid.UUID, token string) (bool, error) {
	if m.IsMemberFunc != nil {
		return m.IsMemberFunc(ctx, workspaceID, userID, token)
	}
	return true, nil
}

// withSession stands in for the auth middleware
func withSession(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.ContextUserID, userID)
			c.Set(middleware.ContextToken, "test-token")
		}
		c.Next()
	}
}
