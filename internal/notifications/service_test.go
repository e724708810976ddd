package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"onionbot/internal/config"
	"onionbot/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newTopic(t *testing.T, status int) (*httptest.Server, <-chan captured) {
	t.Helper()
	requests := make(chan captured, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySessionStarted(context.Background(), "sess1", "Raw"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.NotifyUploadFailed(context.Background(), "/x", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "session started",
			send: func(s notifications.Service) error {
				return s.NotifySessionStarted(context.Background(), "sess1", "Raw")
			},
			expectTitle:   "Onionbot - Session Started",
			expectMessage: "Session sess1 started (label: Raw)",
			expectTags:    "onionbot,session,started",
		},
		{
			name: "session stopped",
			send: func(s notifications.Service) error {
				return s.NotifySessionStopped(context.Background(), "sess1", 42, 90*time.Second+400*time.Millisecond)
			},
			expectTitle:   "Onionbot - Session Stopped",
			expectMessage: "Session sess1 stopped after 42 measurements in 1m30s",
			expectTags:    "onionbot,session,stopped",
		},
		{
			name: "persist failed",
			send: func(s notifications.Service) error {
				return s.NotifyPersistFailed(context.Background(), "sess1", 7, errors.New("disk full"))
			},
			expectTitle:    "Onionbot - Meta Record Not Saved",
			expectMessage:  "Session sess1 measurement 7: disk full",
			expectTags:     "onionbot,persist,error",
			expectPriority: "high",
		},
		{
			name: "upload failed",
			send: func(s notifications.Service) error {
				return s.NotifyUploadFailed(context.Background(), "/d/a.jpg", nil)
			},
			expectTitle:   "Onionbot - Upload Failed",
			expectMessage: "Upload of /d/a.jpg failed: unknown error",
			expectTags:    "onionbot,upload,error",
		},
		{
			name: "camera removed",
			send: func(s notifications.Service) error {
				return s.NotifyCameraChanged(context.Background(), "/dev/video0", "remove")
			},
			expectTitle:    "Onionbot - Camera remove",
			expectMessage:  "Camera device /dev/video0: remove",
			expectTags:     "onionbot,camera,remove",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "Onionbot - Test",
			expectMessage:  "Notification system test",
			expectTags:     "onionbot,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, requests := newTopic(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := tc.send(svc); err != nil {
				t.Fatalf("send: %v", err)
			}
			got := <-requests
			if got.title != tc.expectTitle || got.body != tc.expectMessage || got.tags != tc.expectTags || got.priority != tc.expectPriority {
				t.Fatalf("unexpected request %+v", got)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newTopic(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
