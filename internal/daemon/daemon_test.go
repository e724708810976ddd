package daemon_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"onionbot/internal/api"
	"onionbot/internal/config"
	"onionbot/internal/daemon"
	"onionbot/internal/services"
	"onionbot/internal/testsupport"
)

func testConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	opts = append([]testsupport.ConfigOption{
		testsupport.WithModels("pan_on_off"),
		testsupport.WithSpool(false),
		testsupport.WithLocalStorage(),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	testsupport.WritePanOnOffModel(t, cfg.Paths.ModelsDir)
	cfg.Capture.CameraSource = filepath.Join(cfg.Capture.SpoolDir, "frame.jpg")
	testsupport.WriteJPEG(t, cfg.Capture.CameraSource, testsupport.PanOn)
	// Keep the timed loop out of the way; tests capture on demand.
	cfg.Capture.FrameIntervalSeconds = 3600
	return cfg
}

func startDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.Build(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.Build: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d := startDaemon(t, cfg)
	ctx := context.Background()

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if len(status.Models) != 1 || status.Models[0] != "pan_on_off" {
		t.Fatalf("unexpected models %v", status.Models)
	}
	if status.Storage != "local" {
		t.Fatalf("unexpected storage %q", status.Storage)
	}

	if err := d.Start(ctx); !errors.Is(err, services.ErrLifecycle) {
		t.Fatalf("expected second start to fail with lifecycle error, got %v", err)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("expected lock to be released, ok=%v err=%v", ok, err)
	}
	_ = lock.Unlock()
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	startDaemon(t, cfg)

	second, err := daemon.Build(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.Build: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })
	if err := second.Start(context.Background()); !errors.Is(err, services.ErrLifecycle) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestDaemonStartFailsPreflight(t *testing.T) {
	cfg := testConfig(t)
	d, err := daemon.Build(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.Build: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	cfg.Capture.MinFreeMiB = 1 << 40

	if err := d.Start(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	if d.Running() {
		t.Fatal("daemon must not run after a failed preflight")
	}
	lock := flock.New(cfg.LockPath())
	if ok, _ := lock.TryLock(); !ok {
		t.Fatal("lock must be released after a failed start")
	}
	_ = lock.Unlock()
}

func TestBuildFailsOnMissingModel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("pasta"))
	if _, err := daemon.Build(cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing model files, got %v", err)
	}
}

func TestDaemonAPISessionFlow(t *testing.T) {
	cfg := testConfig(t)
	d := startDaemon(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	baseURL := "http://" + d.APIAddress()
	client := api.NewClient(baseURL, "")

	if _, err := client.Capture(ctx); !isStatus(err, http.StatusConflict) {
		t.Fatalf("capture without session should conflict, got %v", err)
	}

	sess, err := client.StartSession(ctx, api.SessionStartRequest{Name: "sunday", ActiveLabel: "raw"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if !sess.Active || sess.Name != "sunday" || sess.ActiveLabel != "Raw" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if _, err := client.StartSession(ctx, api.SessionStartRequest{}); !isStatus(err, http.StatusConflict) {
		t.Fatalf("second session should conflict, got %v", err)
	}

	first, err := client.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if first.Record.Attributes.MeasurementID != 1 || first.Error != "" {
		t.Fatalf("unexpected capture %+v", first)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		agg, err := client.Classification(ctx)
		if err != nil {
			t.Fatalf("Classification: %v", err)
		}
		if agg["pan_on_off"].Label == "on" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("classification never reported pan_on_off=on, last %v", agg)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := client.SetLabel(ctx, "browning"); err != nil {
		t.Fatalf("SetLabel: %v", err)
	}
	second, err := client.Capture(ctx)
	if err != nil {
		t.Fatalf("second Capture: %v", err)
	}
	if second.Record.Attributes.ActiveLabel != "Browning" {
		t.Fatalf("expected label Browning, got %q", second.Record.Attributes.ActiveLabel)
	}
	if second.Record.Attributes.Classification["pan_on_off"].Label != "on" {
		t.Fatalf("expected classification in second record, got %v", second.Record.Attributes.Classification)
	}

	latest, err := client.LatestMeta(ctx)
	if err != nil {
		t.Fatalf("LatestMeta: %v", err)
	}
	if latest.ID != second.Record.ID {
		t.Fatalf("latest meta %q, want %q", latest.ID, second.Record.ID)
	}

	if _, err := client.SetInterval(ctx, 0); !isStatus(err, http.StatusBadRequest) {
		t.Fatalf("zero interval should be rejected, got %v", err)
	}
	withInterval, err := client.SetInterval(ctx, 2.5)
	if err != nil || withInterval.FrameIntervalSeconds != 2.5 {
		t.Fatalf("SetInterval = %+v, %v", withInterval, err)
	}

	modelsList, err := client.Models(ctx)
	if err != nil || len(modelsList) != 1 || modelsList[0].Labels != 2 {
		t.Fatalf("Models = %+v, %v", modelsList, err)
	}

	final, err := client.StopSession(ctx)
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if final.Active || final.MeasurementID != 2 {
		t.Fatalf("unexpected final session %+v", final)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Session.Active || status.PendingUploads != 0 || status.Worker.Submitted != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	body := getBody(t, baseURL+"/metrics")
	for _, want := range []string{"onionbot_classification_jobs_submitted_total 2", `onionbot_meta_records_total{result="ok"} 2`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
	if labels := getBody(t, baseURL+"/api/labels"); !strings.Contains(labels, `"Onion"`) {
		t.Fatalf("unexpected labels payload %s", labels)
	}
}

func TestDaemonAPIRequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.APIToken = "secret"
	d := startDaemon(t, cfg)
	ctx := context.Background()

	if _, err := api.NewClient("http://"+d.APIAddress(), "").Status(ctx); !isStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 without token, got %v", err)
	}
	status, err := api.NewClient("http://"+d.APIAddress(), "secret").Status(ctx)
	if err != nil {
		t.Fatalf("Status with token: %v", err)
	}
	if !status.Running || status.PID == 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestDaemonCapturesSpoolFrames(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSpool(true))
	d := startDaemon(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := api.NewClient("http://"+d.APIAddress(), "")

	if _, err := client.StartSession(ctx, api.SessionStartRequest{Name: "spool"}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	// Let the watcher register before the frame lands.
	time.Sleep(100 * time.Millisecond)
	testsupport.WriteJPEG(t, filepath.Join(cfg.Capture.SpoolDir, "frame-0001.jpg"), testsupport.PanOff)

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := client.Status(ctx)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status.Session.MeasurementID >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("spool frame did not trigger a capture")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func isStatus(err error, code int) bool {
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.Status == code
}

func getBody(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %s", url, strconv.Itoa(resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return string(data)
}
