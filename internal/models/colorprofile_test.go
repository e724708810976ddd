package models_test

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"onionbot/internal/models"
	"onionbot/internal/testsupport"
)

func TestColorProfileRanksNearestClassFirst(t *testing.T) {
	dir := t.TempDir()
	testsupport.WritePanOnOffModel(t, dir)
	model, err := models.ColorProfileBackend{}.Open(filepath.Join(dir, "pan_on_off.tflite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	imgPath := filepath.Join(dir, "frame.jpg")
	testsupport.WriteJPEG(t, imgPath, testsupport.PanOn)
	img, err := models.DecodeImage(imgPath)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	candidates, err := model.Classify(img, 1)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %v", candidates)
	}
	if candidates[0].Index != 1 {
		t.Fatalf("expected class 1 (on), got %d", candidates[0].Index)
	}
	if candidates[0].Score <= 0.9 || candidates[0].Score > 1 {
		t.Fatalf("unexpected score %v", candidates[0].Score)
	}

	all, err := model.Classify(img, 0)
	if err != nil {
		t.Fatalf("Classify all: %v", err)
	}
	if len(all) != 2 || all[0].Score < all[1].Score {
		t.Fatalf("expected two ranked candidates, got %v", all)
	}
}

func TestColorProfileMinScoreDropsCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strict.tflite")
	body := "min_score = 0.99\n\n[[class]]\nindex = 0\nrgb = [0.0, 0.0, 255.0]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	model, err := models.ColorProfileBackend{}.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	red := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			red.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	candidates, err := model.Classify(red, 1)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %v", candidates)
	}
}

func TestColorProfileRejectsEmptyModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tflite")
	if err := os.WriteFile(path, []byte("min_score = 0.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (models.ColorProfileBackend{}).Open(path); err == nil {
		t.Fatal("expected error for model without classes")
	}
}

func TestNewBackend(t *testing.T) {
	backend, err := models.NewBackend("colorprofile")
	if err != nil || backend.Name() != "colorprofile" {
		t.Fatalf("unexpected backend %v, %v", backend, err)
	}
	_, err = models.NewBackend("edgetpu")
	var unknown *models.UnknownBackendError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownBackendError, got %v", err)
	}
}
