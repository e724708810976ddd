package session_test

import (
	"strings"
	"testing"
	"time"

	"onionbot/internal/session"
)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	if got := session.FormatTimestamp(ts); got != "2024-01-02_03-04-05-000006" {
		t.Fatalf("FormatTimestamp = %q", got)
	}
}

func TestParseTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2023, 11, 30, 23, 59, 58, 123456000, time.UTC)
	parsed, err := session.ParseTimestamp(session.FormatTimestamp(ts), time.UTC)
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Fatalf("round trip mismatch: got %v want %v", parsed, ts)
	}
}

func TestParseTimestampRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "2024-01-02_03-04-05", "2024-01-02_03-04-05.000006", "2024-01-02_03-04-05-00000x"} {
		if _, err := session.ParseTimestamp(value, time.UTC); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestSessionNextIsMonotonic(t *testing.T) {
	s := session.New("sess1", "Raw")
	prev := s.MeasurementID
	for range 5 {
		next := s.Next()
		if next <= prev {
			t.Fatalf("measurement id did not increase: %d after %d", next, prev)
		}
		prev = next
	}
	if s.MeasurementID != 5 {
		t.Fatalf("expected 5 measurements, got %d", s.MeasurementID)
	}
}

func TestNewGeneratesName(t *testing.T) {
	a := session.New("  ", "Raw")
	b := session.New("", "Raw")
	if !strings.HasPrefix(a.Name, "session-") || len(a.Name) != len("session-")+8 {
		t.Fatalf("unexpected generated name %q", a.Name)
	}
	if a.Name == b.Name {
		t.Fatalf("expected unique names, both %q", a.Name)
	}
}

func TestNormalizeLabel(t *testing.T) {
	known := []string{"Discard", "Not boiling", "Boiling"}
	tests := []struct {
		in   string
		want string
	}{
		{"  not   BOILING ", "Not boiling"},
		{"discard", "Discard"},
		{"browning", "Browning"},
		{"golden brown", "Golden Brown"},
		{"Mixed Case", "Mixed Case"},
		{"   ", ""},
	}
	for _, tc := range tests {
		if got := session.NormalizeLabel(tc.in, known...); got != tc.want {
			t.Fatalf("NormalizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
