package telemetry

import (
	"slices"
	"strconv"
)

// RecordTypeLabels is the "type" of the live labelling catalogue.
const RecordTypeLabels = "labels"

// LabelSet maps a class index (as a decimal string) to its label.
type LabelSet map[string]string

// LabelsRecord is the live labelling catalogue served to the portal.
type LabelsRecord struct {
	Type       string              `json:"type"`
	Attributes map[string]LabelSet `json:"attributes"`
}

var labelSets = map[string][]string{
	"Onion": {"Discard", "Raw", "Browning", "Brown", "Overcooked"},
	"Water": {"Discard", "Not boiling", "Simmering", "Boiling"},
}

// LabelSets returns the labelling catalogue. Each call returns a fresh copy.
func LabelSets() LabelsRecord {
	attrs := make(map[string]LabelSet, len(labelSets))
	for name, labels := range labelSets {
		set := make(LabelSet, len(labels))
		for i, label := range labels {
			set[strconv.Itoa(i)] = label
		}
		attrs[name] = set
	}
	return LabelsRecord{Type: RecordTypeLabels, Attributes: attrs}
}

// KnownLabels lists every distinct label across the catalogue, sorted.
func KnownLabels() []string {
	var out []string
	for _, labels := range labelSets {
		for _, label := range labels {
			if !slices.Contains(out, label) {
				out = append(out, label)
			}
		}
	}
	slices.Sort(out)
	return out
}
