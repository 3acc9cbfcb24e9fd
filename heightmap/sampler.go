// Package heightmap provides the read-only 2D sampler a Heightmap shape
// reads through. Decoding an image into pixels is explicitly out of scope
// for this core (spec.md §1): callers hand in an already-decoded
// image.Image (PNG/JPEG/whatever decoder they like) and this package only
// samples it.
package heightmap

import "image"

// Sampler returns a normalized height in [0,1] for unit texture coordinates
// (u,v) in [0,1]x[0,1], bilinearly interpolated so the resulting SDF stays
// continuous (spec.md Open Question 3).
type Sampler interface {
	Height(u, v float32) float32
}

// ImageSampler adapts a single-channel-equivalent image.Image (the red
// channel is used regardless of color model) into a Sampler.
type ImageSampler struct {
	img    image.Image
	w, h   int
	bounds image.Rectangle
}

func NewImageSampler(img image.Image) *ImageSampler {
	b := img.Bounds()
	return &ImageSampler{img: img, w: b.Dx(), h: b.Dy(), bounds: b}
}

func (s *ImageSampler) Height(u, v float32) float32 {
	if s.w == 0 || s.h == 0 {
		return 0
	}
	u = clamp01(u)
	v = clamp01(v)

	fx := u * float32(s.w-1)
	fy := v * float32(s.h-1)

	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > s.w-1 {
		x1 = s.w - 1
	}
	if y1 > s.h-1 {
		y1 = s.h - 1
	}

	tx := fx - float32(x0)
	ty := fy - float32(y0)

	h00 := s.sample(x0, y0)
	h10 := s.sample(x1, y0)
	h01 := s.sample(x0, y1)
	h11 := s.sample(x1, y1)

	top := h00 + (h10-h00)*tx
	bot := h01 + (h11-h01)*tx
	return top + (bot-top)*ty
}

func (s *ImageSampler) sample(x, y int) float32 {
	r, _, _, _ := s.img.At(s.bounds.Min.X+x, s.bounds.Min.Y+y).RGBA()
	// RGBA() returns 16-bit-scaled premultiplied channels; normalize to [0,1].
	return float32(r) / 65535.0
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Constant is a trivial Sampler useful for tests and flat-plane terrain.
type Constant float32

func (c Constant) Height(u, v float32) float32 { return float32(c) }
