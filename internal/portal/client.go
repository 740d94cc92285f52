// Package portal queries the FieldKit portal's admin health endpoint.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scttfrdmn/fleet-monitor/pkg/types"
	"go.uber.org/zap"
)

const contentTypeJSON = "application/json"

// ErrMissingCredentials is returned when no portal login is configured
var ErrMissingCredentials = errors.New("portal credentials not configured")

// Credentials identify the monitoring account on the portal
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Client authenticates against the portal and reads queue health
type Client struct {
	logger      *zap.Logger
	baseURL     string
	credentials Credentials
	http        *http.Client
}

// NewClient creates a portal client for baseURL
func NewClient(logger *zap.Logger, baseURL string, credentials Credentials, timeout time.Duration) *Client {
	return &Client{
		logger:      logger,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		credentials: credentials,
		http:        &http.Client{Timeout: timeout},
	}
}

type healthResponse struct {
	Queue struct {
		Pending *int64 `json:"pending"`
		Errors  *int64 `json:"errors"`
	} `json:"queue"`
}

// FetchQueueHealth logs in and returns the current queue depths
func (c *Client) FetchQueueHealth(ctx context.Context) (types.QueueHealth, error) {
	token, err := c.login(ctx)
	if err != nil {
		return types.QueueHealth{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/health", nil)
	if err != nil {
		return types.QueueHealth{}, fmt.Errorf("create health request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return types.QueueHealth{}, fmt.Errorf("query portal health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return types.QueueHealth{}, fmt.Errorf("portal health returned status %d", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.QueueHealth{}, fmt.Errorf("decode portal health: %w", err)
	}

	if body.Queue.Pending == nil || body.Queue.Errors == nil {
		return types.QueueHealth{}, fmt.Errorf("portal health response is missing queue counts")
	}
	if *body.Queue.Pending < 0 || *body.Queue.Errors < 0 {
		return types.QueueHealth{}, fmt.Errorf("portal health returned negative queue counts")
	}

	health := types.QueueHealth{Pending: *body.Queue.Pending, Errors: *body.Queue.Errors}

	c.logger.Info("Portal queue health",
		zap.Int64("pending", health.Pending),
		zap.Int64("errors", health.Errors))

	return health, nil
}

// login returns the bearer token issued in the Authorization response header
func (c *Client) login(ctx context.Context) (string, error) {
	if c.credentials.Email == "" || c.credentials.Password == "" {
		return "", ErrMissingCredentials
	}

	payload, err := json.Marshal(c.credentials)
	if err != nil {
		return "", fmt.Errorf("marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("portal login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("portal login returned status %d", resp.StatusCode)
	}

	token := resp.Header.Get("Authorization")
	if token == "" {
		return "", fmt.Errorf("portal login returned no token")
	}

	c.logger.Debug("Portal login succeeded", zap.String("api", c.baseURL))
	return token, nil
}
