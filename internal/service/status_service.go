package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"status-service/internal/config"
	"status-service/internal/domain"
	"status-service/internal/dto"
	"status-service/internal/metrics"
	"status-service/internal/repository"
	"status-service/internal/response"
	"status-service/internal/retry"
)

const maxStatusLength = 64

// Messages returned to callers
const (
	msgUnauthorized   = "Unauthorized."
	msgNotMember      = "Not a member of this workspace."
	msgWriteExhausted = "Failed to update status after multiple attempts."
	msgSignOutFailed  = "Failed to load statuses for sign-out."
)

// EventPublisher delivers committed status changes to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, event dto.PresenceEvent) error
}

// StatusService defines the interface for presence status business logic
type StatusService interface {
	// UpdateStatus sets the caller's status in one workspace
	UpdateStatus(ctx context.Context, session *domain.Session, req *dto.UpdateStatusRequest) (*dto.UpdateStatusResponse, error)
	// SignOut marks every status record of the caller offline
	SignOut(ctx context.Context, session *domain.Session) *dto.SignOutResponse
	// GetUserStatus returns nil when the caller may not read the workspace
	GetUserStatus(ctx context.Context, session *domain.Session, workspaceID uuid.UUID, targetUserID *uuid.UUID) (*dto.StatusResponse, error)
	// GetForWorkspace returns an empty list when the caller may not read the workspace
	GetForWorkspace(ctx context.Context, session *domain.Session, workspaceID uuid.UUID) ([]dto.WorkspaceStatusResponse, error)
}

// StatusServiceConfig holds the presence windows and retry policies
type StatusServiceConfig struct {
	DebounceWindow time.Duration
	StaleWindow    time.Duration
	WriteRetry     retry.Policy
	SweepRetry     retry.Policy
}

// NewStatusServiceConfig derives the service settings from presence configuration.
// Writes back off exponentially; sign-out fetches use a flat randomized delay.
func NewStatusServiceConfig(p config.PresenceConfig) StatusServiceConfig {
	return StatusServiceConfig{
		DebounceWindow: p.DebounceWindow,
		StaleWindow:    p.StaleWindow,
		WriteRetry: retry.Policy{
			MaxAttempts: p.WriteMaxAttempts,
			BaseDelay:   p.WriteBaseDelay,
			MaxJitter:   p.WriteMaxJitter,
			Exponential: true,
		},
		SweepRetry: retry.Policy{
			MaxAttempts: p.SweepMaxAttempts,
			BaseDelay:   p.SweepBaseDelay,
			MaxJitter:   p.SweepMaxJitter,
		},
	}
}

// Option customizes the status service
type Option func(*statusServiceImpl)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *statusServiceImpl) {
		s.now = now
	}
}

// WithRetryOptions applies opts to both retriers
func WithRetryOptions(opts ...retry.Option) Option {
	return func(s *statusServiceImpl) {
		s.retryOpts = append(s.retryOpts, opts...)
	}
}

type statusServiceImpl struct {
	statusRepo   repository.StatusRepository
	membership   MembershipChecker
	publisher    EventPublisher
	cfg          StatusServiceConfig
	writeRetrier *retry.Retrier
	sweepRetrier *retry.Retrier
	retryOpts    []retry.Option
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewStatusService creates a new instance of StatusService. publisher may be nil.
func NewStatusService(
	statusRepo repository.StatusRepository,
	membership MembershipChecker,
	publisher EventPublisher,
	cfg StatusServiceConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts ...Option,
) StatusService {
	s := &statusServiceImpl{
		statusRepo: statusRepo,
		membership: membership,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
		metrics:    m,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writeRetrier = retry.New(cfg.WriteRetry, s.retryOpts...)
	s.sweepRetrier = retry.New(cfg.SweepRetry, s.retryOpts...)
	return s
}

// UpdateStatus writes {status, lastSeen: now} for the caller with optimistic concurrency.
// Every attempt re-reads the record; a repeat of the stored status inside the debounce
// window is skipped. Conflicts are retried with backoff and, once the attempt budget is
// spent, reported as an unsuccessful result rather than an error.
func (s *statusServiceImpl) UpdateStatus(ctx context.Context, session *domain.Session, req *dto.UpdateStatusRequest) (*dto.UpdateStatusResponse, error) {
	if session == nil {
		return nil, response.NewUnauthorizedError(msgUnauthorized, "")
	}
	if req == nil || strings.TrimSpace(req.Status) == "" {
		return nil, response.NewValidationError("Status is required", "")
	}
	if len(req.Status) > maxStatusLength {
		return nil, response.NewValidationError("Status is too long", fmt.Sprintf("status must be at most %d bytes", maxStatusLength))
	}
	if req.WorkspaceID == uuid.Nil {
		return nil, response.NewValidationError("Workspace ID is required", "")
	}

	member, err := s.membership.IsMember(ctx, req.WorkspaceID, session.UserID, session.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, response.NewForbiddenError(msgNotMember, "")
	}

	now := s.now().UnixMilli()

	var (
		skipped bool
		written *domain.StatusRecord
	)
	attempts, err := s.writeRetrier.Do(ctx, retry.On(repository.ErrConflict), func(attempt int) error {
		rec, err := s.statusRepo.FindByWorkspaceAndUser(ctx, req.WorkspaceID, session.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load status: %w", err)
		}

		if err == nil {
			if rec.WithinDebounce(req.Status, now, s.cfg.DebounceWindow) {
				skipped = true
				return nil
			}
			if err := s.statusRepo.UpdateStatus(ctx, rec, req.Status, max(now, rec.LastSeen)); err != nil {
				return s.writeFailure(attempt, err, "failed to update status")
			}
			written = rec
			return nil
		}

		rec = &domain.StatusRecord{
			WorkspaceID: req.WorkspaceID,
			UserID:      session.UserID,
			Status:      req.Status,
			LastSeen:    now,
		}
		if err := s.statusRepo.Create(ctx, rec); err != nil {
			return s.writeFailure(attempt, err, "failed to create status")
		}
		written = rec
		return nil
	})

	if err != nil {
		s.metrics.RecordStatusWrite(metrics.WriteResultFailed, attempts)
		if errors.Is(err, retry.ErrExhausted) {
			s.logger.Warn("Status write gave up after repeated conflicts",
				zap.String("workspace_id", req.WorkspaceID.String()),
				zap.String("user_id", session.UserID.String()),
				zap.Int("attempts", attempts),
			)
			return &dto.UpdateStatusResponse{Success: false, Error: msgWriteExhausted}, nil
		}
		return nil, err
	}

	if skipped {
		s.metrics.RecordStatusWrite(metrics.WriteResultSkipped, attempts)
		return &dto.UpdateStatusResponse{Success: true, Skipped: true}, nil
	}

	s.metrics.RecordStatusWrite(metrics.WriteResultWritten, attempts)
	s.publish(ctx, written)
	return &dto.UpdateStatusResponse{Success: true}, nil
}

// writeFailure counts conflicts and wraps everything else
func (s *statusServiceImpl) writeFailure(attempt int, err error, msg string) error {
	if errors.Is(err, repository.ErrConflict) {
		s.metrics.IncrementWriteConflict()
		s.logger.Debug("Status write conflicted", zap.Int("attempt", attempt))
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// SignOut loads every record of the caller, retrying the load, then marks each
// record offline one by one. A record that fails to update is logged and skipped.
func (s *statusServiceImpl) SignOut(ctx context.Context, session *domain.Session) *dto.SignOutResponse {
	if session == nil {
		return &dto.SignOutResponse{Success: false}
	}

	var records []*domain.StatusRecord
	_, err := s.sweepRetrier.Do(ctx, retry.Always, func(attempt int) error {
		found, err := s.statusRepo.FindByUser(ctx, session.UserID)
		if err != nil {
			s.logger.Warn("Failed to load statuses for sign-out",
				zap.String("user_id", session.UserID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		records = found
		return nil
	})
	if err != nil {
		s.metrics.RecordSignOutSweep(false, 0)
		s.logger.Error("Sign-out sweep aborted",
			zap.String("user_id", session.UserID.String()),
			zap.Error(err),
		)
		return &dto.SignOutResponse{Success: false, Error: msgSignOutFailed}
	}

	now := s.now().UnixMilli()
	failures := 0
	for _, rec := range records {
		lastSeen := max(now, rec.LastSeen)
		if err := s.statusRepo.MarkOffline(ctx, rec.ID, lastSeen); err != nil {
			failures++
			s.logger.Warn("Failed to mark status offline",
				zap.String("status_id", rec.ID.String()),
				zap.String("workspace_id", rec.WorkspaceID.String()),
				zap.Error(err),
			)
			continue
		}
		rec.Status = domain.StatusOffline
		rec.LastSeen = lastSeen
		s.publish(ctx, rec)
	}

	s.metrics.RecordSignOutSweep(true, failures)
	s.logger.Info("Sign-out sweep completed",
		zap.String("user_id", session.UserID.String()),
		zap.Int("records", len(records)),
		zap.Int("failed", failures),
	)
	return &dto.SignOutResponse{Success: true}
}

func (s *statusServiceImpl) GetUserStatus(ctx context.Context, session *domain.Session, workspaceID uuid.UUID, targetUserID *uuid.UUID) (*dto.StatusResponse, error) {
	if !s.canRead(ctx, session, workspaceID) {
		return nil, nil
	}

	target := session.UserID
	if targetUserID != nil && *targetUserID != uuid.Nil {
		target = *targetUserID
	}

	rec, err := s.statusRepo.FindByWorkspaceAndUser(ctx, workspaceID, target)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordStatusRead("error")
			return nil, fmt.Errorf("failed to load status: %w", err)
		}
		rec = nil
	}

	s.metrics.RecordStatusRead("ok")
	effective := domain.DeriveEffectiveStatus(rec, s.now().UnixMilli(), s.cfg.StaleWindow)
	return &dto.StatusResponse{Status: effective.Status, LastSeen: effective.LastSeen}, nil
}

func (s *statusServiceImpl) GetForWorkspace(ctx context.Context, session *domain.Session, workspaceID uuid.UUID) ([]dto.WorkspaceStatusResponse, error) {
	if !s.canRead(ctx, session, workspaceID) {
		return []dto.WorkspaceStatusResponse{}, nil
	}

	records, err := s.statusRepo.FindByWorkspace(ctx, workspaceID)
	if err != nil {
		s.metrics.RecordStatusRead("error")
		return nil, fmt.Errorf("failed to load workspace statuses: %w", err)
	}

	now := s.now().UnixMilli()
	statuses := make([]dto.WorkspaceStatusResponse, 0, len(records))
	for _, rec := range records {
		effective := domain.DeriveEffectiveStatus(rec, now, s.cfg.StaleWindow)
		statuses = append(statuses, dto.WorkspaceStatusResponse{
			UserID:   rec.UserID,
			Status:   effective.Status,
			LastSeen: effective.LastSeen,
		})
	}

	s.metrics.RecordStatusRead("ok")
	return statuses, nil
}

// canRead is the soft authorization used by queries: failures deny instead of erroring
func (s *statusServiceImpl) canRead(ctx context.Context, session *domain.Session, workspaceID uuid.UUID) bool {
	if session == nil {
		s.metrics.RecordStatusRead("denied")
		return false
	}

	member, err := s.membership.IsMember(ctx, workspaceID, session.UserID, session.Token)
	if err != nil {
		s.logger.Warn("Membership check failed, treating caller as non-member",
			zap.String("workspace_id", workspaceID.String()),
			zap.String("user_id", session.UserID.String()),
			zap.Error(err),
		)
	}
	if err != nil || !member {
		s.metrics.RecordStatusRead("denied")
		return false
	}
	return true
}

func (s *statusServiceImpl) publish(ctx context.Context, rec *domain.StatusRecord) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, dto.PresenceEvent{
		Type:        dto.EventTypeUserStatus,
		WorkspaceID: rec.WorkspaceID,
		UserID:      rec.UserID,
		Status:      rec.Status,
		LastSeen:    rec.LastSeen,
	})
	s.metrics.RecordPresenceEvent(err)
	if err != nil {
		s.logger.Warn("Failed to publish presence event",
			zap.String("workspace_id", rec.WorkspaceID.String()),
			zap.String("user_id", rec.UserID.String()),
			zap.Error(err),
		)
	}
}
