package capture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"onionbot/internal/capture"
	"onionbot/internal/models"
	"onionbot/internal/telemetry"
	"onionbot/internal/testsupport"
)

func newPanRegistry(t *testing.T, dir string) *models.Registry {
	t.Helper()
	reg := models.NewRegistry(dir, models.ColorProfileBackend{}, nil)
	if err := reg.Load(models.PanOnOff); err != nil {
		t.Fatalf("load pan_on_off: %v", err)
	}
	return reg
}

func TestNewestFramePicksLatestImage(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.jpg")
	fresh := filepath.Join(dir, "b.jpg")
	ignored := filepath.Join(dir, "c.txt")
	testsupport.WriteFile(t, old, 8)
	testsupport.WriteFile(t, fresh, 8)
	testsupport.WriteFile(t, ignored, 8)

	base := time.Now().Add(-time.Hour)
	for path, mod := range map[string]time.Time{old: base, fresh: base.Add(time.Minute), ignored: base.Add(time.Hour)} {
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	got, err := capture.NewestFrame(dir)
	if err != nil {
		t.Fatalf("NewestFrame: %v", err)
	}
	if got != fresh {
		t.Fatalf("NewestFrame = %q, want %q", got, fresh)
	}
}

func TestSpoolCameraWithoutFrames(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.jpg")
	err := capture.SpoolCamera{SpoolDir: t.TempDir()}.Capture(context.Background(), dst)
	if !errors.Is(err, capture.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
	err = capture.SpoolCamera{Source: filepath.Join(t.TempDir(), "missing.jpg")}.Capture(context.Background(), dst)
	if !errors.Is(err, capture.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame for missing source, got %v", err)
	}
}

func TestSpoolCameraCopiesSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "frame.jpg")
	testsupport.WriteJPEG(t, src, testsupport.PanOff)
	dst := filepath.Join(t.TempDir(), "camera", "out.jpg")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := (capture.SpoolCamera{Source: src}).Capture(context.Background(), dst); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	want, _ := os.ReadFile(src)
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != string(want) {
		t.Fatalf("copied frame differs: %v", err)
	}
}

func TestIsFrameFile(t *testing.T) {
	cases := map[string]bool{
		"frame.jpg":  true,
		"FRAME.JPEG": true,
		"frame.png":  true,
		".frame.jpg": false,
		"frame.jpg~": false,
		"notes.txt":  false,
	}
	for name, want := range cases {
		if got := capture.IsFrameFile(name); got != want {
			t.Errorf("IsFrameFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestStaticDevicesReturnCopies(t *testing.T) {
	sensor := &capture.StaticSensor{}
	sensor.Set(telemetry.ThermalSnapshot{Temperature: telemetry.Float(81.5), ThermalHistory: []float64{80, 81.5}})
	snap := sensor.Snapshot()
	snap.ThermalHistory[0] = -1
	if again := sensor.Snapshot(); again.ThermalHistory[0] != 80 || *again.Temperature != 81.5 {
		t.Fatalf("sensor snapshot shares state: %+v", again)
	}

	control := &capture.StaticControl{}
	control.SetSetpoint(40)
	control.SetSetpoint(55)
	state := control.Snapshot()
	if state.ServoSetpoint == nil || *state.ServoSetpoint != 55 || len(state.ServoSetpointHistory) != 2 {
		t.Fatalf("unexpected control state %+v", state)
	}
	state.ServoSetpointHistory[0] = -1
	control.Off()
	after := control.Snapshot()
	if after.ServoSetpointHistory[0] != 40 || *after.ServoSetpoint != 0 || after.PIDEnabled {
		t.Fatalf("unexpected control state after Off %+v", after)
	}
}
