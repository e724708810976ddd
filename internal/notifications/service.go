package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"onionbot/internal/config"
)

const userAgent = "onionbot/0.1.0"

// Service is the notification surface used by the capture pipeline and the
// daemon.
type Service interface {
	NotifySessionStarted(ctx context.Context, sessionName, activeLabel string) error
	NotifySessionStopped(ctx context.Context, sessionName string, measurements int, duration time.Duration) error
	NotifyPersistFailed(ctx context.Context, sessionName string, measurementID int, err error) error
	NotifyUploadFailed(ctx context.Context, path string, err error) error
	NotifyCameraChanged(ctx context.Context, device, action string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifySessionStarted(ctx context.Context, sessionName, activeLabel string) error {
	message := fmt.Sprintf("Session %s started", strings.TrimSpace(sessionName))
	if label := strings.TrimSpace(activeLabel); label != "" {
		message += fmt.Sprintf(" (label: %s)", label)
	}
	return n.send(ctx, payload{
		title:   "Onionbot - Session Started",
		message: message,
		tags:    []string{"onionbot", "session", "started"},
	})
}

func (n *ntfyService) NotifySessionStopped(ctx context.Context, sessionName string, measurements int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	return n.send(ctx, payload{
		title:   "Onionbot - Session Stopped",
		message: fmt.Sprintf("Session %s stopped after %d measurements in %s", strings.TrimSpace(sessionName), measurements, duration),
		tags:    []string{"onionbot", "session", "stopped"},
	})
}

func (n *ntfyService) NotifyPersistFailed(ctx context.Context, sessionName string, measurementID int, err error) error {
	return n.send(ctx, payload{
		title:    "Onionbot - Meta Record Not Saved",
		message:  fmt.Sprintf("Session %s measurement %d: %s", strings.TrimSpace(sessionName), measurementID, errText(err)),
		tags:     []string{"onionbot", "persist", "error"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyUploadFailed(ctx context.Context, path string, err error) error {
	return n.send(ctx, payload{
		title:   "Onionbot - Upload Failed",
		message: fmt.Sprintf("Upload of %s failed: %s", strings.TrimSpace(path), errText(err)),
		tags:    []string{"onionbot", "upload", "error"},
	})
}

func (n *ntfyService) NotifyCameraChanged(ctx context.Context, device, action string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		action = "changed"
	}
	priority := ""
	if action == "remove" {
		priority = "high"
	}
	return n.send(ctx, payload{
		title:    "Onionbot - Camera " + action,
		message:  fmt.Sprintf("Camera device %s: %s", strings.TrimSpace(device), action),
		tags:     []string{"onionbot", "camera", action},
		priority: priority,
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Onionbot - Test",
		message:  "Notification system test",
		tags:     []string{"onionbot", "test"},
		priority: "low",
	})
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return strings.TrimSpace(err.Error())
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySessionStarted(context.Context, string, string) error { return nil }
func (noopService) NotifySessionStopped(context.Context, string, int, time.Duration) error {
	return nil
}
func (noopService) NotifyPersistFailed(context.Context, string, int, error) error { return nil }
func (noopService) NotifyUploadFailed(context.Context, string, error) error       { return nil }
func (noopService) NotifyCameraChanged(context.Context, string, string) error     { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
