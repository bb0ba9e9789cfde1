package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNGFixture(t *testing.T, w, h int, fill color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImageRoundTrip(t *testing.T) {
	data := encodePNGFixture(t, 16, 8, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	im, err := DecodeImage(data)
	require.NoError(t, err)
	require.Equal(t, 16, im.Width)
	require.Equal(t, 8, im.Height)
	r, g, b, a := im.at(0, 0)
	require.Equal(t, uint8(10), r)
	require.Equal(t, uint8(20), g)
	require.Equal(t, uint8(30), b)
	require.Equal(t, uint8(255), a)
}

func TestDecodeImageEmptyBuffer(t *testing.T) {
	_, err := DecodeImage(nil)
	require.Error(t, err)
}

func TestDecodeImageGarbage(t *testing.T) {
	_, err := DecodeImage([]byte("not an image"))
	require.Error(t, err)
}

func TestEncodeJPEGProducesDecodableBytes(t *testing.T) {
	im := fillSolid(32, 32, 200, 100, 50)
	out, err := im.EncodeJPEG(90)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 32, decoded.Bounds().Dx())
	require.Equal(t, 32, decoded.Bounds().Dy())
}

func TestCropWithinBounds(t *testing.T) {
	im := fillSolid(10, 10, 1, 2, 3)
	cropped, err := im.Crop(2, 2, 6, 6)
	require.NoError(t, err)
	require.Equal(t, 4, cropped.Width)
	require.Equal(t, 4, cropped.Height)
	r, g, b, _ := cropped.at(0, 0)
	require.Equal(t, uint8(1), r)
	require.Equal(t, uint8(2), g)
	require.Equal(t, uint8(3), b)
}

func TestCropClipsToBounds(t *testing.T) {
	im := fillSolid(10, 10, 1, 2, 3)
	cropped, err := im.Crop(-5, -5, 4, 4)
	require.NoError(t, err)
	require.Equal(t, 4, cropped.Width)
	require.Equal(t, 4, cropped.Height)
}

func TestCropZeroAreaIsError(t *testing.T) {
	im := fillSolid(10, 10, 1, 2, 3)
	_, err := im.Crop(5, 5, 5, 5)
	require.Error(t, err)
}

func TestResizeDimensions(t *testing.T) {
	im := fillSolid(20, 20, 100, 150, 200)
	out := im.Resize(10, 5)
	require.Equal(t, 10, out.Width)
	require.Equal(t, 5, out.Height)
	r, g, b, _ := out.at(3, 2)
	require.InDelta(t, 100, int(r), 1)
	require.InDelta(t, 150, int(g), 1)
	require.InDelta(t, 200, int(b), 1)
}

func TestResizeDegenerateDimensions(t *testing.T) {
	im := fillSolid(5, 5, 0, 0, 0)
	out := im.Resize(0, 10)
	require.Equal(t, 1, out.Width)
	require.Equal(t, 1, out.Height)
}

func TestResizeNearestDimensions(t *testing.T) {
	im := fillSolid(20, 20, 9, 8, 7)
	out := im.ResizeNearest(4, 4)
	require.Equal(t, 4, out.Width)
	r, g, b, _ := out.at(0, 0)
	require.Equal(t, uint8(9), r)
	require.Equal(t, uint8(8), g)
	require.Equal(t, uint8(7), b)
}

func TestToCHWTensorNormalization(t *testing.T) {
	im := fillSolid(2, 2, 255, 255, 255)
	mean := [3]float32{0.5, 0.5, 0.5}
	std := [3]float32{1, 1, 1}
	tensor := im.ToCHWTensor(mean, std)
	require.Len(t, tensor, 3*2*2)
	expected := (float32(255) - 0.5) * (1 / 255.0)
	require.InDelta(t, expected, tensor[0], 1e-4)
}

func TestToCHWTensorMTCNNNormalization(t *testing.T) {
	im := fillSolid(1, 1, 127, 127, 127)
	tensor := im.ToCHWTensorMTCNN()
	require.Len(t, tensor, 3)
	expected := float32(-0.5) / 128
	require.InDelta(t, expected, tensor[0], 1e-3)
}

func TestGrayLuma(t *testing.T) {
	im := fillSolid(2, 2, 255, 0, 0)
	gray := im.Gray()
	require.Len(t, gray, 4)
	require.InDelta(t, 0.299*255, gray[0], 1e-6)
}

func TestClampHelpers(t *testing.T) {
	require.Equal(t, 0, clampInt(-5, 0, 10))
	require.Equal(t, 10, clampInt(50, 0, 10))
	require.Equal(t, 5, clampInt(5, 0, 10))
	require.InDelta(t, 0.0, clampF(-5, 0, 10), 1e-9)
	require.InDelta(t, 10.0, clampF(50, 0, 10), 1e-9)
}
