package vision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fillSolid(w, h int, r, g, b uint8) *Image {
	im := newImage(w, h)
	for i := 0; i < len(im.Pix); i += 4 {
		im.Pix[i], im.Pix[i+1], im.Pix[i+2], im.Pix[i+3] = r, g, b, 255
	}
	return im
}

// A flat image's Laplacian response is zero everywhere except at the
// zero-padded border, where missing neighbors unbalance the kernel. For
// a 64x64 image at luma v that works out to exactly
// v^2*(4*64+8)/64^2 = v^2*264/4096 — never zero for v != 0.
func TestSharpnessVarianceFlatImageReflectsBorderPadding(t *testing.T) {
	im := fillSolid(64, 64, 128, 128, 128)
	require.InDelta(t, 1056.0, SharpnessVariance(im), 1e-6)
}

func TestSharpnessVarianceTinyImageIsZero(t *testing.T) {
	im := fillSolid(2, 2, 128, 128, 128)
	require.Zero(t, SharpnessVariance(im))
}

func TestSharpnessVarianceChecker(t *testing.T) {
	im := newImage(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			off := y*im.Stride + x*4
			im.Pix[off], im.Pix[off+1], im.Pix[off+2], im.Pix[off+3] = v, v, v, 255
		}
	}
	require.Greater(t, SharpnessVariance(im), 0.0)
}

func TestPassesQualityGate(t *testing.T) {
	// Dim enough that even the border-padding artifact stays under the
	// 45.0 production default threshold.
	flat := fillSolid(64, 64, 16, 16, 16)
	pass, score := PassesQualityGate(flat, 45.0)
	require.False(t, pass)
	require.InDelta(t, 16.5, score, 1e-6)

	checker := newImage(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			off := y*checker.Stride + x*4
			checker.Pix[off], checker.Pix[off+1], checker.Pix[off+2], checker.Pix[off+3] = v, v, v, 255
		}
	}
	pass, score = PassesQualityGate(checker, 1.0)
	require.True(t, pass)
	require.Greater(t, score, 1.0)
}
