package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// WriteColorModel writes "<name>.txt" and "<name>.tflite" into dir. The
// model file is a colour profile model with one class per profiles entry.
func WriteColorModel(t testing.TB, dir, name string, labels map[int]string, profiles map[int][3]uint8) {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir models dir: %v", err)
	}

	var labelText strings.Builder
	for _, idx := range sortedKeys(labels) {
		fmt.Fprintf(&labelText, "%d %s\n", idx, labels[idx])
	}
	if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(labelText.String()), 0o644); err != nil {
		t.Fatalf("write labels for %s: %v", name, err)
	}

	var model strings.Builder
	model.WriteString("min_score = 0.0\n")
	for _, idx := range sortedKeys(profiles) {
		rgb := profiles[idx]
		fmt.Fprintf(&model, "\n[[class]]\nindex = %d\nrgb = [%d.0, %d.0, %d.0]\n", idx, rgb[0], rgb[1], rgb[2])
	}
	if err := os.WriteFile(filepath.Join(dir, name+".tflite"), []byte(model.String()), 0o644); err != nil {
		t.Fatalf("write model for %s: %v", name, err)
	}
}

// WritePanOnOffModel writes the pan_on_off fixture with "off" and "on"
// classes matching PanOff and PanOn.
func WritePanOnOffModel(t testing.TB, dir string) {
	t.Helper()
	WriteColorModel(t, dir, "pan_on_off",
		map[int]string{0: "off", 1: "on"},
		map[int][3]uint8{0: {PanOff.R, PanOff.G, PanOff.B}, 1: {PanOn.R, PanOn.G, PanOn.B}},
	)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
