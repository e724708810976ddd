package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"onionbot/internal/api"
	"onionbot/internal/capture"
	"onionbot/internal/config"
	"onionbot/internal/logging"
	"onionbot/internal/models"
	"onionbot/internal/services"
	"onionbot/internal/telemetry"
)

const maxRequestBody = 64 << 10

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           authMiddleware(cfg.Paths.APIToken, srv.routes(cfg.Metrics.Enabled)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(metrics bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/classification", s.handleClassification)
	mux.HandleFunc("/api/classification/history", s.handleClassificationHistory)
	mux.HandleFunc("/api/meta/latest", s.handleLatestMeta)
	mux.HandleFunc("/api/session/start", s.handleSessionStart)
	mux.HandleFunc("/api/session/stop", s.handleSessionStop)
	mux.HandleFunc("/api/session/label", s.handleSessionLabel)
	mux.HandleFunc("/api/capture", s.handleCapture)
	mux.HandleFunc("/api/camera/interval", s.handleInterval)
	mux.HandleFunc("/api/labels", s.handleLabels)
	mux.HandleFunc("/api/models", s.handleModels)
	mux.HandleFunc("/api/notifications/test", s.handleTestNotification)
	if metrics && s.daemon.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.daemon.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		Session:        api.FromCaptureStatus(status.Session),
		Worker:         api.FromWorkerStats(status.Worker),
		Models:         status.Models,
		Storage:        status.Storage,
		PendingUploads: status.PendingUploads,
		JournalPath:    status.JournalPath,
		LockFilePath:   status.LockFilePath,
	})
}

func (s *apiServer) handleClassification(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClassificationResponse{Classification: s.daemon.worker.LatestResult()})
}

func (s *apiServer) handleClassificationHistory(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	entries, err := s.daemon.journal.RecentClassifications(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	resp := api.ClassificationHistoryResponse{Entries: make([]api.ClassificationEntry, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, api.ClassificationEntry{
			ImagePath:      entry.ImagePath,
			Classification: entry.Aggregation,
			CompletedAt:    api.FormatTime(entry.CompletedAt),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleLatestMeta serves the newest record of the active session, falling
// back to the journal when nothing was captured since startup.
func (s *apiServer) handleLatestMeta(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	if record, ok := s.daemon.pipeline.LatestMeta(); ok {
		s.writeJSON(w, http.StatusOK, record)
		return
	}
	entry, err := s.daemon.journal.LatestMeta(r.Context(), r.URL.Query().Get("session"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if entry == nil {
		s.writeError(w, http.StatusNotFound, "no meta record yet", services.Kind(services.ErrNotFound))
		return
	}
	record, err := entry.Record()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *apiServer) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.SessionStartRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.daemon.pipeline.Start(r.Context(), req.Name, req.ActiveLabel); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSession(w, s.daemon.pipeline.Status())
}

func (s *apiServer) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	before := s.daemon.pipeline.Status()
	final, err := s.daemon.pipeline.Stop(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSession(w, capture.Status{
		Session:       final.Name,
		ActiveLabel:   final.ActiveLabel,
		MeasurementID: final.MeasurementID,
		FrameInterval: before.FrameInterval,
		StartedAt:     before.StartedAt,
	})
}

func (s *apiServer) handleSessionLabel(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.LabelRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.daemon.pipeline.SetActiveLabel(req.ActiveLabel); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSession(w, s.daemon.pipeline.Status())
}

func (s *apiServer) handleCapture(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	record, err := s.daemon.pipeline.Capture(r.Context())
	var persistErr *telemetry.PersistError
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, api.CaptureResponse{Record: record})
	case errors.As(err, &persistErr):
		s.writeJSON(w, http.StatusInternalServerError, api.CaptureResponse{Record: record, Error: err.Error()})
	default:
		s.writeFailure(w, err)
	}
}

func (s *apiServer) handleInterval(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.IntervalRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.pipeline.SetFrameInterval(time.Duration(req.Seconds * float64(time.Second))); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSession(w, s.daemon.pipeline.Status())
}

func (s *apiServer) handleLabels(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, telemetry.LabelSets())
}

func (s *apiServer) handleModels(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	descriptors := s.daemon.registry.Descriptors()
	resp := api.ModelsResponse{Models: make([]api.ModelInfo, 0, len(descriptors))}
	for _, desc := range descriptors {
		info := api.ModelInfo{Name: desc.Name, Labels: len(desc.Labels)}
		if entry, ok := models.Lookup(desc.Name); ok {
			info.LabelFile = entry.LabelFile
			info.ModelFile = entry.ModelFile
		}
		resp.Models = append(resp.Models, info)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, message+": "+err.Error(), services.Kind(err))
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotificationResponse{Sent: sent, Message: message})
}

func (s *apiServer) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	return false
}

// decode reads an optional JSON body into dst. An empty body leaves dst as is.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), services.Kind(services.ErrConfiguration))
		return false
	}
	return true
}

func (s *apiServer) writeSession(w http.ResponseWriter, status capture.Status) {
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: api.FromCaptureStatus(status)})
}

// writeFailure maps error markers to HTTP status codes.
func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrConfiguration):
		code = http.StatusBadRequest
	case errors.Is(err, services.ErrLifecycle):
		code = http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("api request failed", logging.Error(err))
	}
	s.writeError(w, code, err.Error(), services.Kind(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}
