package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"status-service/internal/domain"
	"status-service/internal/dto"
	"status-service/internal/repository"
)

// MockStatusRepository is a mock implementation of StatusRepository
type MockStatusRepository struct {
	FindByWorkspaceAndUserFunc func(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.StatusRecord, error)
	FindByWorkspaceFunc        func(ctx context.Context, workspaceID uuid.UUID) ([]*domain.StatusRecord, error)
	FindByUserFunc             func(ctx context.Context, userID uuid.UUID) ([]*domain.StatusRecord, error)
	CreateFunc                 func(ctx context.Context, record *domain.StatusRecord) error
	UpdateStatusFunc           func(ctx context.Context, record *domain.StatusRecord, status string, lastSeen int64) error
	MarkOfflineFunc            func(ctx context.Context, id uuid.UUID, lastSeen int64) error
	CountOnlineFunc            func(ctx context.Context, freshSince int64) (int64, int64, error)
}

func (m *MockStatusRepository) FindByWorkspaceAndUser(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.StatusRecord, error) {
	if m.FindByWorkspaceAndUserFunc != nil {
		return m.FindByWorkspaceAndUserFunc(ctx, workspaceID, userID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockStatusRepository) FindByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.StatusRecord, error) {
	if m.FindByWorkspaceFunc != nil {
		return m.FindByWorkspaceFunc(ctx, workspaceID)
	}
	return nil, nil
}

func (m *MockStatusRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.StatusRecord, error) {
	if m.FindByUserFunc != nil {
		return m.FindByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockStatusRepository) Create(ctx context.Context, record *domain.StatusRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	return nil
}

func (m *MockStatusRepository) UpdateStatus(ctx context.Context, record *domain.StatusRecord, status string, lastSeen int64) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, record, status, lastSeen)
	}
	return nil
}

func (m *MockStatusRepository) MarkOffline(ctx context.Context, id uuid.UUID, lastSeen int64) error {
	if m.MarkOfflineFunc != nil {
		return m.MarkOfflineFunc(ctx, id, lastSeen)
	}
	return nil
}

func (m *MockStatusRepository) CountOnline(ctx context.Context, freshSince int64) (int64, int64, error) {
	if m.CountOnlineFunc != nil {
		return m.CountOnlineFunc(ctx, freshSince)
	}
	return 0, 0, nil
}

// MockMembershipChecker is a mock implementation of MembershipChecker
type MockMembershipChecker struct {
	IsMemberFunc func(ctx context.Context, workspaceID, userID uuid.UUID, token string) (bool, error)
	calls        int
}

func (m *MockMembershipChecker) IsMember(ctx context.Context, workspaceID, userID uuid.UUID, token string) (bool, error) {
	m.calls++
	if m.IsMemberFunc != nil {
		return m.IsMemberFunc(ctx, workspaceID, userID, token)
	}
	return true, nil
}

func allowAll() *MockMembershipChecker {
	return &MockMembershipChecker{}
}

func denyAll() *MockMembershipChecker {
	return &MockMembershipChecker{
		IsMemberFunc: func(context.Context, uuid.UUID, uuid.UUID, string) (bool, error) { return false, nil },
	}
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.PresenceEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.PresenceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) published() []dto.PresenceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.PresenceEvent(nil), p.events...)
}

// memStatusRepo is a versioned in-memory store. conflictsLeft makes the next
// N writes (create or update) fail with ErrConflict as if another writer won.
type memStatusRepo struct {
	mu            sync.Mutex
	records       map[uuid.UUID]*domain.StatusRecord
	conflictsLeft int
	writes        int
}

func newMemStatusRepo() *memStatusRepo {
	return &memStatusRepo{records: make(map[uuid.UUID]*domain.StatusRecord)}
}

var _ repository.StatusRepository = (*memStatusRepo)(nil)

func (r *memStatusRepo) find(workspaceID, userID uuid.UUID) *domain.StatusRecord {
	for _, rec := range r.records {
		if rec.WorkspaceID == workspaceID && rec.UserID == userID {
			return rec
		}
	}
	return nil
}

func (r *memStatusRepo) FindByWorkspaceAndUser(_ context.Context, workspaceID, userID uuid.UUID) (*domain.StatusRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec := r.find(workspaceID, userID); rec != nil {
		cp := *rec
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memStatusRepo) FindByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]*domain.StatusRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.StatusRecord
	for _, rec := range r.records {
		if rec.WorkspaceID == workspaceID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memStatusRepo) FindByUser(_ context.Context, userID uuid.UUID) ([]*domain.StatusRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.StatusRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memStatusRepo) Create(_ context.Context, record *domain.StatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return repository.ErrConflict
	}
	if r.find(record.WorkspaceID, record.UserID) != nil {
		return repository.ErrConflict
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Version = 1
	cp := *record
	r.records[record.ID] = &cp
	r.writes++
	return nil
}

func (r *memStatusRepo) UpdateStatus(_ context.Context, record *domain.StatusRecord, status string, lastSeen int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return repository.ErrConflict
	}
	stored, ok := r.records[record.ID]
	if !ok || stored.Version != record.Version {
		return repository.ErrConflict
	}
	stored.Status = status
	stored.LastSeen = lastSeen
	stored.Version++
	record.Status = status
	record.LastSeen = lastSeen
	record.Version = stored.Version
	r.writes++
	return nil
}

func (r *memStatusRepo) MarkOffline(_ context.Context, id uuid.UUID, lastSeen int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = domain.StatusOffline
	stored.LastSeen = lastSeen
	stored.Version++
	r.writes++
	return nil
}

func (r *memStatusRepo) CountOnline(_ context.Context, freshSince int64) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var fresh, stale int64
	for _, rec := range r.records {
		if rec.Status != domain.StatusOnline {
			continue
		}
		if rec.LastSeen > freshSince {
			fresh++
		} else {
			stale++
		}
	}
	return fresh, stale, nil
}

func (r *memStatusRepo) put(rec domain.StatusRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	r.records[rec.ID] = &rec
}

func (r *memStatusRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
