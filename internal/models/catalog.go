package models

import "sort"

// Catalog model names.
const (
	Pasta    = "pasta"
	Sauce    = "sauce"
	PanOnOff = "pan_on_off"
)

// Entry locates the artifacts of one catalog model relative to the models directory.
type Entry struct {
	Name      string
	LabelFile string
	ModelFile string
}

var catalog = map[string]Entry{
	Pasta:    {Name: Pasta, LabelFile: "pasta.txt", ModelFile: "pasta.tflite"},
	Sauce:    {Name: Sauce, LabelFile: "sauce.txt", ModelFile: "sauce.tflite"},
	PanOnOff: {Name: PanOnOff, LabelFile: "pan_on_off.txt", ModelFile: "pan_on_off.tflite"},
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (Entry, bool) {
	entry, ok := catalog[name]
	return entry, ok
}

// CatalogNames lists every model the controller knows about, sorted.
func CatalogNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
