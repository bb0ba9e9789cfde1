package vision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckAlbedoOverexposedIsSpoof(t *testing.T) {
	bright := fillSolid(224, 224, 250, 250, 250)
	result := CheckAlbedo(bright)
	require.True(t, result.OverexposedGate)
	require.False(t, result.IsLive)
}

func TestCheckAlbedoFlatImageHasNoOutliers(t *testing.T) {
	flat := fillSolid(224, 224, 100, 100, 100)
	result := CheckAlbedo(flat)
	require.False(t, result.OverexposedGate)
	require.False(t, result.IsLive)
	require.Zero(t, result.OutlierCount[1])
	require.Zero(t, result.OutlierCount[2])
}

func TestCheckAlbedoRequiresBothGreenAndBlueOutliers(t *testing.T) {
	im := newImage(224, 224)
	for i := 0; i < len(im.Pix); i += 4 {
		im.Pix[i], im.Pix[i+1], im.Pix[i+2], im.Pix[i+3] = 100, 100, 100, 255
	}
	// Spike green only, in a handful of pixels, leaving blue flat.
	for i := 0; i < 40; i += 4 {
		im.Pix[i+1] = 255
	}
	result := CheckAlbedo(im)
	require.Greater(t, result.OutlierCount[1], 0)
	require.Zero(t, result.OutlierCount[2])
	require.False(t, result.IsLive)
}

func TestPercentileSingleValue(t *testing.T) {
	require.Equal(t, 5.0, percentile([]float64{5}, 0.25))
}

func TestQuartilesSortedInput(t *testing.T) {
	q25, q75 := quartiles([]float64{4, 1, 3, 2})
	require.Less(t, q25, q75)
}
