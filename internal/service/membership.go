package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"status-service/internal/client"
	"status-service/internal/metrics"
	"status-service/internal/repository"
)

// MembershipChecker answers whether a user belongs to a workspace
type MembershipChecker interface {
	IsMember(ctx context.Context, workspaceID, userID uuid.UUID, token string) (bool, error)
}

type remoteMembershipChecker struct {
	userClient client.UserClient
}

// NewRemoteMembershipChecker asks user-service on every call
func NewRemoteMembershipChecker(userClient client.UserClient) MembershipChecker {
	return &remoteMembershipChecker{userClient: userClient}
}

func (c *remoteMembershipChecker) IsMember(ctx context.Context, workspaceID, userID uuid.UUID, token string) (bool, error) {
	return c.userClient.ValidateWorkspaceMember(ctx, workspaceID, userID, token)
}

type localMembershipChecker struct {
	memberRepo repository.MemberRepository
}

// NewLocalMembershipChecker reads the workspace_members table
func NewLocalMembershipChecker(memberRepo repository.MemberRepository) MembershipChecker {
	return &localMembershipChecker{memberRepo: memberRepo}
}

func (c *localMembershipChecker) IsMember(ctx context.Context, workspaceID, userID uuid.UUID, _ string) (bool, error) {
	return c.memberRepo.IsActiveMember(ctx, workspaceID, userID)
}

// CachedMembershipChecker remembers positive answers in redis for ttl.
// Negative answers are never cached so newly added members are admitted at once.
type CachedMembershipChecker struct {
	next    MembershipChecker
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCachedMembershipChecker wraps next with a redis cache. With no redis client
// or a non-positive ttl it returns next unchanged.
func NewCachedMembershipChecker(next MembershipChecker, rdb *redis.Client, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) MembershipChecker {
	if rdb == nil || ttl <= 0 {
		return next
	}
	return &CachedMembershipChecker{
		next:    next,
		redis:   rdb,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

func membershipKey(workspaceID, userID uuid.UUID) string {
	return fmt.Sprintf("membership:%s:%s", workspaceID.String(), userID.String())
}

// IsMember serves cached answers and falls through to the wrapped checker when redis fails
func (c *CachedMembershipChecker) IsMember(ctx context.Context, workspaceID, userID uuid.UUID, token string) (bool, error) {
	key := membershipKey(workspaceID, userID)

	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil && cached == "1":
		c.metrics.RecordMembershipCacheLookup("hit")
		return true, nil
	case err == nil || err == redis.Nil:
		c.metrics.RecordMembershipCacheLookup("miss")
	default:
		c.metrics.RecordMembershipCacheLookup("error")
		c.logger.Warn("Membership cache read failed", zap.String("key", key), zap.Error(err))
	}

	member, err := c.next.IsMember(ctx, workspaceID, userID, token)
	if err != nil {
		return false, err
	}

	if member {
		if err := c.redis.Set(ctx, key, "1", c.ttl).Err(); err != nil {
			c.logger.Warn("Membership cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return member, nil
}
