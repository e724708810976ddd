package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"onionbot/internal/logging"
)

// cameraMonitor listens for udev netlink events on the video4linux subsystem
// and reports cameras being plugged in or removed.
type cameraMonitor struct {
	logger  *slog.Logger
	handler func(ctx context.Context, device, action string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newCameraMonitor(logger *slog.Logger, handler func(ctx context.Context, device, action string)) *cameraMonitor {
	return &cameraMonitor{
		logger:  logging.NewComponentLogger(logger, "camera-monitor"),
		handler: handler,
	}
}

// Start begins listening for udev netlink events. Failing to open the
// netlink socket is logged and otherwise ignored.
func (m *cameraMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; camera hotplug will go unnoticed", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "no notification when the camera disconnects"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("camera monitor started", logging.String(logging.FieldEventType, "camera_monitor_started"))
	return nil
}

// Stop shuts down the monitor.
func (m *cameraMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("camera monitor stopped", logging.String(logging.FieldEventType, "camera_monitor_stopped"))
}

func (m *cameraMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, cameraMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Debug("netlink monitor error", logging.Error(err))
		}
	}
}

// cameraMatcher matches SUBSYSTEM=video4linux add/remove events.
func cameraMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *cameraMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		return
	}
	action := string(uevent.Action)
	if uevent.Action == netlink.REMOVE {
		logging.WarnWithContext(m.logger, "camera removed", "camera_removed",
			logging.String("device", device),
			logging.String(logging.FieldImpact, "captures record no camera frame until it returns"),
		)
	} else {
		m.logger.Info("camera attached",
			logging.String(logging.FieldEventType, "camera_attached"),
			logging.String("device", device),
		)
	}
	if m.handler != nil {
		m.handler(ctx, device, action)
	}
}

// deviceName gets the device node from a uevent, falling back to the last
// DEVPATH element.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/") {
			return devname
		}
		return "/dev/" + devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
