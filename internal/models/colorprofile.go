package models

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// ColorProfileBackendName identifies the colour profile backend in config.
const ColorProfileBackendName = "colorprofile"

// maxDistance is the euclidean distance between black and white in RGB space.
var maxDistance = math.Sqrt(3 * 255 * 255)

// ColorProfileBackend loads models that describe each class by a reference
// mean colour. It is small enough to run on the rig's CPU and is the default
// when no accelerator runtime is installed.
type ColorProfileBackend struct{}

// Name implements Backend.
func (ColorProfileBackend) Name() string { return ColorProfileBackendName }

// ColorProfileFile is the TOML layout of a colour profile model.
type ColorProfileFile struct {
	// MinScore drops candidates scoring below it; a frame far from every
	// profile yields no candidate.
	MinScore float64        `toml:"min_score"`
	Classes  []ColorProfile `toml:"class"`
}

// ColorProfile is the reference colour of one class.
type ColorProfile struct {
	Index int        `toml:"index"`
	RGB   [3]float64 `toml:"rgb"`
}

// Open implements Backend.
func (ColorProfileBackend) Open(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file ColorProfileFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse colour profile: %w", err)
	}
	if len(file.Classes) == 0 {
		return nil, errors.New("colour profile defines no classes")
	}
	return &colorProfileModel{minScore: file.MinScore, classes: file.Classes}, nil
}

type colorProfileModel struct {
	minScore float64
	classes  []ColorProfile
}

func (m *colorProfileModel) Classify(img image.Image, topK int) ([]Candidate, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	mean, ok := meanColor(img)
	if !ok {
		return nil, nil
	}

	candidates := make([]Candidate, 0, len(m.classes))
	for _, class := range m.classes {
		var sum float64
		for i := range 3 {
			d := mean[i] - class.RGB[i]
			sum += d * d
		}
		score := 1 - math.Sqrt(sum)/maxDistance
		if score < m.minScore {
			continue
		}
		candidates = append(candidates, Candidate{Index: class.Index, Score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// meanColor averages the image in 8-bit RGB, sampling at most ~64k pixels.
func meanColor(img image.Image) ([3]float64, bool) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return [3]float64{}, false
	}
	step := 1
	for (bounds.Dx()/step)*(bounds.Dy()/step) > 1<<16 {
		step++
	}
	var sum [3]float64
	var n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			sum[0] += float64(r >> 8)
			sum[1] += float64(g >> 8)
			sum[2] += float64(b >> 8)
			n++
		}
	}
	return [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}, true
}
