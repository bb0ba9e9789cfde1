package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func checkerImage(size int, lo, hi uint8) *Image {
	im := newImage(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := lo
			if (x+y)%2 == 0 {
				v = hi
			}
			off := y*im.Stride + x*4
			im.Pix[off], im.Pix[off+1], im.Pix[off+2], im.Pix[off+3] = v, v, v, 255
		}
	}
	return im
}

func TestValidateImageNil(t *testing.T) {
	err := validateImage(nil)
	require.Error(t, err)
}

func TestValidateImageTooSmall(t *testing.T) {
	err := validateImage(fillSolid(10, 10, 0, 0, 0))
	require.Error(t, err)
}

func TestValidateImageExactlyMinSideRejected(t *testing.T) {
	err := validateImage(fillSolid(64, 64, 0, 0, 0))
	require.Error(t, err)
}

func TestValidateImageTooLarge(t *testing.T) {
	err := validateImage(fillSolid(5000, 100, 0, 0, 0))
	require.Error(t, err)
}

func TestValidateImageAccepted(t *testing.T) {
	err := validateImage(fillSolid(128, 128, 10, 10, 10))
	require.NoError(t, err)
}

func TestDetectLivenessBlurGateRejectsFlatImage(t *testing.T) {
	p := &Pipeline{Config: DetectorConfig{SkipFaceCropping: true, SkipAlbedoCheck: true, SkipOcclusionCheck: true, SharpnessThreshold: 45.0}}
	// Dim enough that even the zero-padded border's Laplacian response
	// stays under the threshold (SharpnessVariance is never exactly zero
	// on a flat image — the border contributes a nonzero term).
	im := fillSolid(128, 128, 10, 10, 10)

	verdict, err := p.DetectLiveness(context.Background(), im)
	require.NoError(t, err)
	require.Equal(t, "Spoof", verdict.Prediction)
	require.Equal(t, "Image is blurry", verdict.FailureReason)
}

func TestDetectLivenessBlurGateRealtimeMessage(t *testing.T) {
	p := &Pipeline{Config: DetectorConfig{
		SkipFaceCropping:   true,
		SkipAlbedoCheck:    true,
		SkipOcclusionCheck: true,
		SharpnessThreshold: RealtimeSharpnessThreshold,
	}}
	im := fillSolid(128, 128, 10, 10, 10)

	verdict, err := p.DetectLiveness(context.Background(), im)
	require.NoError(t, err)
	require.Equal(t, "Image is too blurry", verdict.FailureReason)
}

func TestDetectLivenessAlbedoGateRejectsOverexposedImage(t *testing.T) {
	p := &Pipeline{Config: DetectorConfig{
		SkipFaceCropping:   true,
		SkipOcclusionCheck: true,
		SharpnessThreshold: 1.0,
	}}
	im := checkerImage(128, 210, 255)

	verdict, err := p.DetectLiveness(context.Background(), im)
	require.NoError(t, err)
	require.Equal(t, "Spoof", verdict.Prediction)
	require.Equal(t, "Albedo check failed: Image is spoof", verdict.FailureReason)
}

func TestDetectLivenessBlurGateRunsBeforeUnloadedOcclusion(t *testing.T) {
	// Occlusion is nil and SkipOcclusionCheck is false. The image is
	// blurred, so the quality gate returns its verdict before the
	// occlusion stage is reached; degrade-open itself is not exercised
	// here (Liveness is also nil, so a sharp image would panic on Predict).
	p := &Pipeline{Config: DetectorConfig{
		SkipFaceCropping:   true,
		SkipAlbedoCheck:    true,
		SharpnessThreshold: 45.0,
	}}
	im := fillSolid(128, 128, 10, 10, 10)

	verdict, err := p.DetectLiveness(context.Background(), im)
	require.NoError(t, err)
	require.Equal(t, "Spoof", verdict.Prediction)
	require.Equal(t, "Image is blurry", verdict.FailureReason)
}

func TestDetectLivenessRespectsCancellation(t *testing.T) {
	p := &Pipeline{Config: DetectorConfig{SkipFaceCropping: true, SkipAlbedoCheck: true, SkipOcclusionCheck: true, SharpnessThreshold: 45.0}}
	im := fillSolid(128, 128, 120, 120, 120)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.DetectLiveness(ctx, im)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmbedImageValidatesInput(t *testing.T) {
	p := &Pipeline{}
	_, _, err := p.EmbedImage(context.Background(), nil)
	require.Error(t, err)
}

func TestEmbedImageRespectsCancellation(t *testing.T) {
	p := &Pipeline{}
	im := fillSolid(128, 128, 10, 10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.EmbedImage(ctx, im)
	require.ErrorIs(t, err, context.Canceled)
}

func TestQualityThresholdFallsBackToDefault(t *testing.T) {
	p := &Pipeline{}
	require.Equal(t, DefaultDetectorConfig().SharpnessThreshold, p.qualityThreshold())

	p.Config.SharpnessThreshold = 12.5
	require.Equal(t, 12.5, p.qualityThreshold())
}

func TestPipelineCloseIsNilSafe(t *testing.T) {
	p := &Pipeline{}
	require.NotPanics(t, func() { p.Close() })
}
