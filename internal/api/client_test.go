package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"onionbot/internal/api"
)

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"0.0.0.0:5000":   "http://127.0.0.1:5000",
		":5000":          "http://127.0.0.1:5000",
		"[::]:5000":      "http://127.0.0.1:5000",
		"10.0.0.2:8080":  "http://10.0.0.2:8080",
		"localhost:5000": "http://localhost:5000",
	}
	for bind, want := range cases {
		if got := api.BaseURL(bind); got != want {
			t.Errorf("BaseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestClientStartSessionSendsTokenAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/session/start" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req api.SessionStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(api.SessionResponse{Session: api.SessionStatus{
			Active:      true,
			Name:        req.Name,
			ActiveLabel: req.ActiveLabel,
		}})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "secret")
	got, err := client.StartSession(context.Background(), api.SessionStartRequest{Name: "sunday", ActiveLabel: "Raw"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if !got.Active || got.Name != "sunday" || got.ActiveLabel != "Raw" {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestClientDecodesErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "no active session", Kind: "lifecycle"})
	}))
	defer srv.Close()

	_, err := api.NewClient(srv.URL, "").StopSession(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Kind != "lifecycle" || apiErr.Message != "no active session" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestClientPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := api.NewClient(srv.URL+"/", "").Status(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
		t.Fatalf("expected plain text error message, got %v", err)
	}
}
