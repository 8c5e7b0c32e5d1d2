package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"status-service/internal/dto"
	"status-service/internal/response"
	"status-service/internal/service"
)

type StatusHandler struct {
	statusService service.StatusService
	logger        *zap.Logger
}

func NewStatusHandler(statusService service.StatusService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		logger:        logger,
	}
}

// UpdateStatus godoc
// @Summary      Set my status
// @Description  Sets the caller's status in a workspace. A repeat of the stored status within the debounce window is skipped. When every optimistic-concurrency retry conflicts the result is success=false with an error message.
// @Tags         status
// @Accept       json
// @Produce      json
// @Param        request body dto.UpdateStatusRequest true "Status update"
// @Success      200 {object} response.SuccessResponse{data=dto.UpdateStatusResponse}
// @Failure      400 {object} response.ErrorResponse "Invalid request"
// @Failure      401 {object} response.ErrorResponse "Unauthorized."
// @Failure      403 {object} response.ErrorResponse "Not a member of this workspace."
// @Failure      500 {object} response.ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /status [post]
func (h *StatusHandler) UpdateStatus(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Unauthorized.")
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	result, err := h.statusService.UpdateStatus(c.Request.Context(), session, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

// SignOut godoc
// @Summary      Sign out everywhere
// @Description  Marks every status record of the caller offline. Individual records that fail to update are skipped. Anonymous callers get success=false.
// @Tags         status
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.SignOutResponse}
// @Security     BearerAuth
// @Router       /status/sign-out [post]
func (h *StatusHandler) SignOut(c *gin.Context) {
	result := h.statusService.SignOut(c.Request.Context(), sessionFromContext(c))
	response.SendSuccess(c, http.StatusOK, result)
}

// GetUserStatus godoc
// @Summary      Get a user's status
// @Description  Returns the effective status of a user (the caller by default) in a workspace. An "online" status older than the staleness window reads as "offline". Callers outside the workspace get null.
// @Tags         status
// @Produce      json
// @Param        workspaceId path string true "Workspace ID (UUID)"
// @Param        userId query string false "User ID (UUID), defaults to the caller"
// @Success      200 {object} response.SuccessResponse{data=dto.StatusResponse}
// @Failure      400 {object} response.ErrorResponse "Invalid ID"
// @Failure      500 {object} response.ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /workspaces/{workspaceId}/status [get]
func (h *StatusHandler) GetUserStatus(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("workspaceId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid workspace ID")
		return
	}

	var target *uuid.UUID
	if raw := c.Query("userId"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid user ID")
			return
		}
		target = &userID
	}

	result, err := h.statusService.GetUserStatus(c.Request.Context(), sessionFromContext(c), workspaceID, target)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	// a nil result is sent as {"data": null}
	response.SendSuccess(c, http.StatusOK, result)
}

// GetWorkspaceStatuses godoc
// @Summary      List statuses in a workspace
// @Description  Returns the effective status of every user with a record in the workspace. Callers outside the workspace get an empty list.
// @Tags         status
// @Produce      json
// @Param        workspaceId path string true "Workspace ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=[]dto.WorkspaceStatusResponse}
// @Failure      400 {object} response.ErrorResponse "Invalid workspace ID"
// @Failure      500 {object} response.ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /workspaces/{workspaceId}/statuses [get]
func (h *StatusHandler) GetWorkspaceStatuses(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("workspaceId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid workspace ID")
		return
	}

	result, err := h.statusService.GetForWorkspace(c.Request.Context(), sessionFromContext(c), workspaceID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}
