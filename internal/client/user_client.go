package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CallRecorder receives one observation per outbound request
type CallRecorder interface {
	RecordExternalAPICall(endpoint, method string, statusCode int, duration time.Duration, err error)
}

// UserClient handles communication with user-service
type UserClient interface {
	ValidateWorkspaceMember(ctx context.Context, workspaceID, userID uuid.UUID, token string) (bool, error)
}

// WorkspaceValidationResponse represents the response from workspace validation endpoint
type WorkspaceValidationResponse struct {
	WorkspaceID uuid.UUID `json:"workspaceId"`
	UserID      uuid.UUID `json:"userId"`
	Valid       bool      `json:"valid"`
	IsValid     bool      `json:"isValid"`
	IsMember    bool      `json:"isMember"`
}

func (r WorkspaceValidationResponse) member() bool {
	return r.Valid || r.IsValid || r.IsMember
}

type userClient struct {
	baseURL    string
	httpClient *http.Client
	recorder   CallRecorder
	logger     *zap.Logger
}

// NewUserClient creates a new user-service client. baseURL is expected to
// include the api prefix, e.g. http://user-service:8080/api.
func NewUserClient(baseURL string, timeout time.Duration, recorder CallRecorder, logger *zap.Logger) UserClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &userClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		recorder: recorder,
		logger:   logger,
	}
}

// ValidateWorkspaceMember checks if a user is a member of a workspace.
// 403 and 404 mean "not a member"; other non-200 statuses are errors.
func (c *userClient) ValidateWorkspaceMember(ctx context.Context, workspaceID, userID uuid.UUID, token string) (member bool, err error) {
	path := fmt.Sprintf("/workspaces/%s/validate-member/%s", workspaceID.String(), userID.String())
	url := c.baseURL + path

	start := time.Now()
	statusCode := 0
	defer func() {
		if c.recorder != nil {
			c.recorder.RecordExternalAPICall(path, http.MethodGet, statusCode, time.Since(start), err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to call user-service",
			zap.Error(err),
			zap.String("url", url),
		)
		return false, fmt.Errorf("failed to call user-service: %w", err)
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		c.logger.Warn("User-service returned non-200 status",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return false, fmt.Errorf("user-service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	// the payload may be bare or wrapped in {"data": ...}
	var envelope struct {
		Data *WorkspaceValidationResponse `json:"data"`
		WorkspaceValidationResponse
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.Error("Failed to decode response", zap.Error(err))
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Data != nil {
		return envelope.Data.member(), nil
	}
	return envelope.WorkspaceValidationResponse.member(), nil
}
