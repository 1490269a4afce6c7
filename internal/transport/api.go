package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"reorc-cli/internal/core"
)

// API binds the Client to a server base URL and bearer token, and exposes
// one method per MCP endpoint.
type API struct {
	client  *Client
	baseURL string
	token   string
}

// NewAPI creates an API for the given server.
func NewAPI(client *Client, baseURL, token string) *API {
	return &API{client: client, baseURL: baseURL, token: token}
}

func (a *API) bearerHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.token}
}

// ValidateResult is the token-validation response.
type ValidateResult struct {
	Valid  bool            `json:"valid"`
	Detail string          `json:"detail,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

// ValidateToken checks the current token against the auth endpoint. The
// token travels as a query parameter, matching how it is stored in the
// server URL.
func (a *API) ValidateToken(ctx context.Context) (*ValidateResult, error) {
	url := fmt.Sprintf("%s/mcp/auth/validate-token?access_token=%s", a.baseURL, a.token)
	raw, err := a.client.GetJSON(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	var result ValidateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: validate-token response: %v", core.ErrUnexpectedShape, err)
	}
	result.Raw = raw
	return &result, nil
}

// LoginRequest is the credentials payload for the login endpoint.
type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	TenantDomain string `json:"tenant_domain"`
}

// LoginResult is the login response. A successful login always carries a
// non-empty access token.
type LoginResult struct {
	AccessToken string          `json:"access_token"`
	Raw         json.RawMessage `json:"-"`
}

// Login exchanges credentials for a fresh access token.
func (a *API) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	url := a.baseURL + "/mcp/auth/login"
	raw, err := a.client.PostJSON(ctx, url, nil, req)
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: login response: %v", core.ErrUnexpectedShape, err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response missing access_token: %s", core.ErrUnexpectedShape, string(raw))
	}
	result.Raw = raw
	return &result, nil
}

// DownloadProject streams the project archive (tar.gz) to destPath.
func (a *API) DownloadProject(ctx context.Context, projectCode, destPath string) error {
	url := fmt.Sprintf("%s/mcp/projects/%s/download", a.baseURL, projectCode)
	return a.download(ctx, url, destPath)
}

// DownloadSemanticProject streams the semantic-model archive to destPath.
func (a *API) DownloadSemanticProject(ctx context.Context, projectCode, destPath string) error {
	url := fmt.Sprintf("%s/mcp/projects/%s/download/semantic", a.baseURL, projectCode)
	return a.download(ctx, url, destPath)
}

func (a *API) download(ctx context.Context, url, destPath string) error {
	headers := a.bearerHeaders()
	headers["Accept"] = "application/x-gzip"
	return a.client.Download(ctx, url, headers, destPath)
}

// ListSources fetches the live source catalog for a project. The response
// must be a JSON array; its raw bytes are returned so callers can cache
// them verbatim.
func (a *API) ListSources(ctx context.Context, projectCode string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/mcp/projects/%s/list-sources", a.baseURL, projectCode)
	raw, err := a.client.GetJSON(ctx, url, a.bearerHeaders())
	if err != nil {
		return nil, err
	}

	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: list-sources response is not an array: %s", core.ErrUnexpectedShape, string(raw))
	}
	return raw, nil
}

// TaskInstructions are server-supplied polling hints attached to a task.
type TaskInstructions struct {
	PollInterval     int      `json:"poll_interval"`
	PollTimeout      int      `json:"poll_timeout"`
	CompleteStatuses []string `json:"complete_statuses"`
}

// TaskHandle identifies an async task started by the server.
type TaskHandle struct {
	TaskID       string            `json:"task_id"`
	Status       string            `json:"status"`
	Instructions *TaskInstructions `json:"instructions,omitempty"`
	Raw          json.RawMessage   `json:"-"`
}

// RefreshSources asks the server to refresh the project's source catalog
// and returns the async task handle. The endpoint is a GET: the server
// treats the refresh trigger as an idempotent read of a task handle.
func (a *API) RefreshSources(ctx context.Context, projectCode string) (*TaskHandle, error) {
	url := fmt.Sprintf("%s/mcp/projects/%s/refresh-sources", a.baseURL, projectCode)
	raw, err := a.client.GetJSON(ctx, url, a.bearerHeaders())
	if err != nil {
		return nil, err
	}

	var handle TaskHandle
	if err := json.Unmarshal(raw, &handle); err != nil {
		return nil, fmt.Errorf("%w: refresh-sources response: %v", core.ErrUnexpectedShape, err)
	}
	if handle.TaskID == "" {
		return nil, fmt.Errorf("%w: refresh-sources response missing task_id: %s", core.ErrUnexpectedShape, string(raw))
	}
	handle.Raw = raw
	return &handle, nil
}

// TaskState is one observation of an async task's status.
type TaskState struct {
	Status string          `json:"status"`
	Raw    json.RawMessage `json:"-"`
}

// TaskStatus fetches the current status of an async task.
func (a *API) TaskStatus(ctx context.Context, taskID string) (*TaskState, error) {
	url := fmt.Sprintf("%s/mcp/tasks/%s/status", a.baseURL, taskID)
	raw, err := a.client.GetJSON(ctx, url, a.bearerHeaders())
	if err != nil {
		return nil, err
	}

	var state TaskState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: task status response: %v", core.ErrUnexpectedShape, err)
	}
	state.Raw = raw
	return &state, nil
}
