package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"status-service/internal/dto"
	"status-service/internal/metrics"
	"status-service/internal/pubsub"
	"status-service/internal/response"
	"status-service/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Subscriber opens a per-workspace presence event stream
type Subscriber interface {
	Subscribe(ctx context.Context, workspaceID uuid.UUID) (pubsub.Subscription, error)
}

// PresenceFeedHandler streams a workspace's status changes over a websocket.
// The first message is a SNAPSHOT of effective statuses; USER_STATUS events follow.
type PresenceFeedHandler struct {
	statusService service.StatusService
	membership    service.MembershipChecker
	subscriber    Subscriber
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

func NewPresenceFeedHandler(
	statusService service.StatusService,
	membership service.MembershipChecker,
	subscriber Subscriber,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PresenceFeedHandler {
	return &PresenceFeedHandler{
		statusService: statusService,
		membership:    membership,
		subscriber:    subscriber,
		metrics:       m,
		logger:        logger,
	}
}

// Serve godoc
// @Summary      Presence feed
// @Description  Upgrades to a websocket that sends a SNAPSHOT of the workspace's effective statuses followed by USER_STATUS events. The token may be passed as the token query parameter. Non-members receive an ERROR message and the connection is closed.
// @Tags         status
// @Param        workspaceId path string true "Workspace ID (UUID)"
// @Param        token query string false "JWT access token"
// @Success      101 {object} dto.PresenceSnapshot
// @Failure      400 {object} response.ErrorResponse "Invalid workspace ID"
// @Router       /ws/workspaces/{workspaceId} [get]
func (h *PresenceFeedHandler) Serve(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("workspaceId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid workspace ID")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	session := sessionFromContext(c)
	if session == nil {
		h.reject(conn, websocket.ClosePolicyViolation, "Unauthorized.")
		return
	}

	member, err := h.membership.IsMember(ctx, workspaceID, session.UserID, session.Token)
	if err != nil {
		h.logger.Warn("Membership check failed for presence feed",
			zap.String("workspace_id", workspaceID.String()),
			zap.String("user_id", session.UserID.String()),
			zap.Error(err),
		)
	}
	if err != nil || !member {
		h.reject(conn, websocket.ClosePolicyViolation, "Not a member of this workspace.")
		return
	}

	// subscribe before reading the snapshot so no change falls between the two
	sub, err := h.subscriber.Subscribe(ctx, workspaceID)
	if err != nil {
		h.logger.Error("Failed to subscribe to presence events", zap.String("workspace_id", workspaceID.String()), zap.Error(err))
		h.reject(conn, websocket.CloseInternalServerErr, "Presence feed unavailable.")
		return
	}
	defer sub.Close()

	statuses, err := h.statusService.GetForWorkspace(ctx, session, workspaceID)
	if err != nil {
		h.logger.Error("Failed to load presence snapshot", zap.String("workspace_id", workspaceID.String()), zap.Error(err))
		h.reject(conn, websocket.CloseInternalServerErr, "Presence feed unavailable.")
		return
	}

	h.metrics.FeedOpened()
	defer h.metrics.FeedClosed()

	h.logger.Info("Presence feed opened",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("user_id", session.UserID.String()),
	)

	snapshot := dto.PresenceSnapshot{
		Type:        dto.EventTypeSnapshot,
		WorkspaceID: workspaceID,
		Statuses:    statuses,
	}
	if err := writeJSON(conn, snapshot); err != nil {
		return
	}

	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, sub)

	h.logger.Info("Presence feed closed",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("user_id", session.UserID.String()),
	)
}

// readPump discards client messages and cancels the feed once the peer goes away
func (h *PresenceFeedHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Presence feed read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer on conn after the snapshot
func (h *PresenceFeedHandler) writePump(ctx context.Context, conn *websocket.Conn, sub pubsub.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case event, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "presence stream ended"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeJSON(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *PresenceFeedHandler) reject(conn *websocket.Conn, code int, message string) {
	_ = writeJSON(conn, dto.FeedError{Type: dto.EventTypeError, Message: message})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, message),
		time.Now().Add(writeWait))
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
