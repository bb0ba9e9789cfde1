package vision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFitSimilarityIdentity(t *testing.T) {
	// src == dst should fit the identity transform (sc=1, ss=0, tx=ty=0).
	t_ := fitSimilarity(referenceLandmarks, referenceLandmarks)
	require.InDelta(t, 1.0, t_.Sc, 1e-6)
	require.InDelta(t, 0.0, t_.Ss, 1e-6)
	require.InDelta(t, 0.0, t_.Tx, 1e-6)
	require.InDelta(t, 0.0, t_.Ty, 1e-6)
}

func TestFitSimilarityTranslation(t *testing.T) {
	var shifted Landmarks
	for i, p := range referenceLandmarks {
		shifted[i] = Point{X: p.X + 10, Y: p.Y - 5}
	}
	tr := fitSimilarity(shifted, referenceLandmarks)
	for _, p := range shifted {
		got := tr.apply(p)
		require.InDelta(t, p.X-10, got.X, 1e-6)
		require.InDelta(t, p.Y+5, got.Y, 1e-6)
	}
}

func TestSimilarityTransformInvertRoundTrip(t *testing.T) {
	fwd := similarityTransform{Sc: 1.2, Ss: 0.3, Tx: 4, Ty: -7}
	rev := fwd.invert()

	p := Point{X: 50, Y: 80}
	warped := fwd.apply(p)
	back := rev.apply(warped)

	require.InDelta(t, p.X, back.X, 1e-6)
	require.InDelta(t, p.Y, back.Y, 1e-6)
}

func TestSimilarityTransformInvertDegenerate(t *testing.T) {
	// sc=ss=0 has zero determinant; invert must not panic or divide by zero.
	degenerate := similarityTransform{Sc: 0, Ss: 0, Tx: 1, Ty: 1}
	rev := degenerate.invert()
	require.Equal(t, similarityTransform{}, rev)
}

func TestAlignFaceProducesFixedSize(t *testing.T) {
	src := newImage(200, 200)
	lm := Landmarks{
		{X: 70, Y: 80}, {X: 130, Y: 80}, {X: 100, Y: 110},
		{X: 75, Y: 140}, {X: 125, Y: 140},
	}
	out := AlignFace(src, lm)
	require.Equal(t, alignedFaceSize, out.Width)
	require.Equal(t, alignedFaceSize, out.Height)
}
