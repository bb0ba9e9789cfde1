package vision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	a := Embedding{1, 2, 3}
	require.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	a := Embedding{1, 0}
	b := Embedding{0, 1}
	require.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	a := Embedding{1, 2, 3}
	b := Embedding{1, 2}
	require.Zero(t, CosineSimilarity(a, b))
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	a := Embedding{0, 0, 0}
	b := Embedding{1, 2, 3}
	require.Zero(t, CosineSimilarity(a, b))
}

func TestVerifyThresholdBoundary(t *testing.T) {
	a := Embedding{1, 0}
	b := Embedding{1, 0}
	require.True(t, Verify(a, b, 0.99))

	c := Embedding{1, 0}
	d := Embedding{0, 1}
	require.False(t, Verify(c, d, 0.5))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("onnx session failed")
	err := newError(ErrInferenceError, "p-net run", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "inference_error")
	require.Contains(t, err.Error(), "p-net run")
}

func TestErrorWithoutCause(t *testing.T) {
	err := newError(ErrNoFaceDetected, "empty detection result", nil)
	require.Nil(t, err.Unwrap())
	require.Equal(t, "no_face_detected: empty detection result", err.Error())
}

func TestBoundingBoxDimensions(t *testing.T) {
	b := BoundingBox{X1: 10, Y1: 10, X2: 109, Y2: 59}
	require.Equal(t, 100.0, b.Width())
	require.Equal(t, 50.0, b.Height())
}

func TestDefaultDetectorConfig(t *testing.T) {
	cfg := DefaultDetectorConfig()
	require.Equal(t, 0.75, cfg.LivenessThreshold)
	require.Equal(t, [2]float64{0.5, 0.5}, cfg.LivenessModelWeights)
	require.Equal(t, 0.7, cfg.CosineThreshold)
	require.False(t, cfg.SkipOcclusionCheck)
}
