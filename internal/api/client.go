package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"onionbot/internal/classifier"
	"onionbot/internal/telemetry"
)

// Error is a non-2xx response from the daemon.
type Error struct {
	Status  int
	Message string
	Kind    string
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("daemon returned %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// Client provides HTTP access to the daemon API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for baseURL. An empty token sends no
// Authorization header.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL turns an API bind address into a URL reachable from this host.
// Wildcard hosts map to loopback.
func BaseURL(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "http://" + strings.TrimSpace(bind)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartSession opens a capture session.
func (c *Client) StartSession(ctx context.Context, req SessionStartRequest) (*SessionStatus, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/session/start", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// StopSession closes the capture session and returns its final state.
func (c *Client) StopSession(ctx context.Context) (*SessionStatus, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/session/stop", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// SetLabel changes the active label.
func (c *Client) SetLabel(ctx context.Context, label string) (*SessionStatus, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/session/label", LabelRequest{ActiveLabel: label}, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// SetInterval changes the pause between captures.
func (c *Client) SetInterval(ctx context.Context, seconds float64) (*SessionStatus, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/camera/interval", IntervalRequest{Seconds: seconds}, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// Capture triggers one measurement.
func (c *Client) Capture(ctx context.Context) (*CaptureResponse, error) {
	var resp CaptureResponse
	if err := c.do(ctx, http.MethodPost, "/api/capture", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Classification returns the latest aggregation.
func (c *Client) Classification(ctx context.Context) (classifier.Aggregation, error) {
	var resp ClassificationResponse
	if err := c.do(ctx, http.MethodGet, "/api/classification", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Classification, nil
}

// LatestMeta returns the newest meta record.
func (c *Client) LatestMeta(ctx context.Context) (*telemetry.MetaRecord, error) {
	var resp telemetry.MetaRecord
	if err := c.do(ctx, http.MethodGet, "/api/meta/latest", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Models lists loaded models.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	var resp ModelsResponse
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// ClassificationHistory returns up to limit journaled aggregations, newest
// first.
func (c *Client) ClassificationHistory(ctx context.Context, limit int) ([]ClassificationEntry, error) {
	var resp ClassificationHistoryResponse
	path := "/api/classification/history?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Labels returns the labelling catalogue served by the daemon.
func (c *Client) Labels(ctx context.Context) (*telemetry.LabelsRecord, error) {
	var resp telemetry.LabelsRecord
	if err := c.do(ctx, http.MethodGet, "/api/labels", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification(ctx context.Context) (*NotificationResponse, error) {
	var resp NotificationResponse
	if err := c.do(ctx, http.MethodPost, "/api/notifications/test", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(raw))
		}
		return &Error{Status: resp.StatusCode, Message: payload.Error, Kind: payload.Kind}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
