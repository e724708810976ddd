package daemon

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestCameraMatcher(t *testing.T) {
	matcher := cameraMatcher()

	for _, action := range []netlink.KObjAction{netlink.ADD, netlink.REMOVE} {
		event := netlink.UEvent{Action: action, Env: map[string]string{"SUBSYSTEM": "video4linux", "DEVNAME": "video0"}}
		if !matcher.Evaluate(event) {
			t.Errorf("expected matcher to accept %s", action)
		}
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"SUBSYSTEM": "video4linux"}}) {
		t.Error("expected matcher to reject CHANGE action")
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}}) {
		t.Error("expected matcher to reject other subsystems")
	}
}

func TestCameraMonitorHandleEvent(t *testing.T) {
	var device, action string
	m := newCameraMonitor(nil, func(_ context.Context, d, a string) {
		device, action = d, a
	})

	m.handleEvent(context.Background(), netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"DEVNAME": "video0"},
	})
	if device != "/dev/video0" || action != "remove" {
		t.Fatalf("unexpected handler call device=%q action=%q", device, action)
	}

	device = ""
	m.handleEvent(context.Background(), netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/1-1/video4linux/video2"},
	})
	if device != "/dev/video2" {
		t.Fatalf("expected DEVPATH fallback, got %q", device)
	}

	device = "unchanged"
	m.handleEvent(context.Background(), netlink.UEvent{Action: netlink.ADD, Env: map[string]string{}})
	if device != "unchanged" {
		t.Fatal("events without a device must be ignored")
	}
}

func TestCameraMonitorNilSafe(t *testing.T) {
	var m *cameraMonitor
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor should return nil, got: %v", err)
	}
	m.Stop()
}
