package sdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmoothSubtraction_MatchesHardSubtractionOutsideBlendRadius(t *testing.T) {
	// |d1+d2| = 4 > k, so h == 0 and the smooth branch must reduce exactly
	// to Subtraction_(d1, d2) = max32(d1, -d2).
	got := SmoothSubtraction_(-3, -1, 0.1)
	assert.InDelta(t, float32(1), got, 1e-6)
	assert.InDelta(t, Subtraction_(-3, -1), got, 1e-6)
}

func TestSmoothSubtraction_IsNegatedSmoothUnionOfNegatedFirstOperand(t *testing.T) {
	d1, d2, k := float32(-0.5), float32(0.4), float32(0.3)
	got := SmoothSubtraction_(d1, d2, k)
	want := -SmoothUnion_(-d1, d2, k)
	assert.InDelta(t, want, got, 1e-6)
}

func TestSmoothSubtraction_FallsBackToHardSubtractionWhenKZero(t *testing.T) {
	assert.Equal(t, Subtraction_(2, -1), SmoothSubtraction_(2, -1, 0))
}
