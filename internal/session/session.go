package session

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Session is the capture state of one cooking run. The capture pipeline is
// its only writer.
type Session struct {
	Name          string
	ActiveLabel   string
	MeasurementID int
}

// New starts a session. An empty name gets a generated one.
func New(name, activeLabel string) *Session {
	name = strings.TrimSpace(name)
	if name == "" {
		name = NewName()
	}
	return &Session{Name: name, ActiveLabel: activeLabel}
}

// Next advances and returns the measurement id. Ids start at 1 and strictly
// increase for the lifetime of the session.
func (s *Session) Next() int {
	s.MeasurementID++
	return s.MeasurementID
}

// NewName returns a short unique session name such as "session-1a2b3c4d".
func NewName() string {
	id := uuid.New()
	return "session-" + strings.ReplaceAll(id.String(), "-", "")[:8]
}

// NormalizeLabel trims label and collapses inner whitespace. When known is
// non-empty and contains a case-insensitive match, the known spelling wins.
// Otherwise an all lower case label is title cased.
func NormalizeLabel(label string, known ...string) string {
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return ""
	}
	folder := cases.Fold()
	folded := folder.String(label)
	for _, candidate := range known {
		if folder.String(candidate) == folded {
			return candidate
		}
	}
	if strings.ToLower(label) == label {
		return cases.Title(language.Und, cases.NoLower).String(label)
	}
	return label
}
