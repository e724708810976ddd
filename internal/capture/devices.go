package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"onionbot/internal/fileutil"
	"onionbot/internal/telemetry"
)

// ErrNoFrame reports that the camera had no frame to deliver.
var ErrNoFrame = errors.New("no camera frame available")

// Camera writes the current frame to dst.
type Camera interface {
	Capture(ctx context.Context, dst string) error
}

// ThermalCamera writes the current thermal frame to dst. It reports false
// when the rig has no thermal frame for this measurement.
type ThermalCamera interface {
	Capture(ctx context.Context, dst string) (bool, error)
}

// SensorReader returns the latest thermal reading.
type SensorReader interface {
	Snapshot() telemetry.ThermalSnapshot
}

// ControlLoop returns the hob controller state.
type ControlLoop interface {
	Snapshot() telemetry.ControlSnapshot
}

// SpoolCamera copies frames produced by an external capture process. With
// Source set it always copies that file; otherwise it copies the newest image
// in SpoolDir.
type SpoolCamera struct {
	Source   string
	SpoolDir string
}

// Capture implements Camera.
func (c SpoolCamera) Capture(ctx context.Context, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := c.Source
	if src == "" {
		newest, err := NewestFrame(c.SpoolDir)
		if err != nil {
			return err
		}
		src = newest
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoFrame, src)
		}
		return fmt.Errorf("copy frame %s: %w", src, err)
	}
	return nil
}

// NewestFrame returns the most recently modified image in dir.
func NewestFrame(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: no spool directory configured", ErrNoFrame)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read spool: %w", err)
	}
	var (
		newest  string
		newestT int64
	)
	for _, entry := range entries {
		if entry.IsDir() || !IsFrameFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestT || (mod == newestT && entry.Name() > filepath.Base(newest)) {
			newest = filepath.Join(dir, entry.Name())
			newestT = mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: spool %s is empty", ErrNoFrame, dir)
	}
	return newest, nil
}

// IsFrameFile reports whether name looks like a camera frame.
func IsFrameFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp":
		return true
	}
	return false
}

// NoThermal is the thermal camera of a rig without one.
type NoThermal struct{}

// Capture implements ThermalCamera.
func (NoThermal) Capture(context.Context, string) (bool, error) { return false, nil }

// StaticSensor reports a fixed reading that can be updated at runtime.
type StaticSensor struct {
	mu      sync.RWMutex
	reading telemetry.ThermalSnapshot
}

// Set replaces the reading.
func (s *StaticSensor) Set(reading telemetry.ThermalSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = reading
}

// Snapshot implements SensorReader.
func (s *StaticSensor) Snapshot() telemetry.ThermalSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reading := s.reading
	reading.ThermalHistory = append([]float64(nil), s.reading.ThermalHistory...)
	return reading
}

// StaticControl reports a fixed controller state. The hob setpoint endpoints
// update it; driving the servo is left to the hardware controller.
type StaticControl struct {
	mu    sync.RWMutex
	state telemetry.ControlSnapshot
}

// SetSetpoint records a new hob setpoint and appends it to the history.
func (c *StaticControl) SetSetpoint(setpoint float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ServoSetpoint = telemetry.Float(setpoint)
	c.state.ServoSetpointHistory = append(c.state.ServoSetpointHistory, setpoint)
}

// Off clears the setpoint and disables the PID loop.
func (c *StaticControl) Off() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ServoSetpoint = telemetry.Float(0)
	c.state.ServoSetpointHistory = append(c.state.ServoSetpointHistory, 0)
	c.state.PIDEnabled = false
}

// Snapshot implements ControlLoop.
func (c *StaticControl) Snapshot() telemetry.ControlSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state := c.state
	state.ServoSetpointHistory = append([]float64(nil), c.state.ServoSetpointHistory...)
	state.ServoAchievedHistory = append([]float64(nil), c.state.ServoAchievedHistory...)
	return state
}
