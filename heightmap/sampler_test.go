package heightmap

import (
	"image"
	"image/color"
	"testing"
)

func TestImageSampler_BilinearContinuous(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 255})
	img.SetGray(0, 1, color.Gray{Y: 0})
	img.SetGray(1, 1, color.Gray{Y: 255})

	s := NewImageSampler(img)

	h0 := s.Height(0, 0)
	h1 := s.Height(1, 0)
	hMid := s.Height(0.5, 0)

	if h0 != 0 {
		t.Errorf("expected corner height 0, got %v", h0)
	}
	if h1 <= h0 {
		t.Errorf("expected height to increase along u, got h0=%v h1=%v", h0, h1)
	}
	// Continuity: the midpoint must land strictly between the two corners.
	if hMid <= h0 || hMid >= h1 {
		t.Errorf("expected bilinear midpoint between corners, got %v not in (%v,%v)", hMid, h0, h1)
	}
}

func TestImageSampler_ClampsOutOfRange(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	s := NewImageSampler(img)
	if got := s.Height(-1, 2); got != s.Height(0, 1) {
		t.Errorf("expected out-of-range u to clamp, got %v vs %v", got, s.Height(0, 1))
	}
}

func TestConstant(t *testing.T) {
	var c Sampler = Constant(0.5)
	if c.Height(0.3, 0.7) != 0.5 {
		t.Errorf("expected constant sampler to ignore coordinates")
	}
}
