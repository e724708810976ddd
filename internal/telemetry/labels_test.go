package telemetry

import (
	"encoding/json"
	"testing"
)

func TestLabelSets(t *testing.T) {
	record := LabelSets()
	if record.Type != "labels" {
		t.Fatalf("unexpected type %q", record.Type)
	}
	if record.Attributes["Onion"]["2"] != "Browning" || record.Attributes["Water"]["1"] != "Not boiling" {
		t.Fatalf("unexpected label sets %v", record.Attributes)
	}
	if len(record.Attributes["Onion"]) != 5 || len(record.Attributes["Water"]) != 4 {
		t.Fatalf("unexpected label set sizes %v", record.Attributes)
	}

	record.Attributes["Onion"]["0"] = "mutated"
	if LabelSets().Attributes["Onion"]["0"] != "Discard" {
		t.Fatal("LabelSets must return a copy")
	}

	data, err := json.Marshal(LabelSets())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"labels","attributes":{"Onion":{"0":"Discard","1":"Raw","2":"Browning","3":"Brown","4":"Overcooked"},"Water":{"0":"Discard","1":"Not boiling","2":"Simmering","3":"Boiling"}}}`
	if string(data) != want {
		t.Fatalf("unexpected json\n got %s\nwant %s", data, want)
	}
}

func TestKnownLabels(t *testing.T) {
	got := KnownLabels()
	want := []string{"Boiling", "Brown", "Browning", "Discard", "Not boiling", "Overcooked", "Raw", "Simmering"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
