package vision

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
)

// Image is the RGBA raster buffer all vision stages operate on. Pixels are
// stored row-major, 4 bytes per pixel (R,G,B,A), matching image.RGBA.
type Image struct {
	Width, Height int
	Pix           []uint8
	Stride        int
}

// DecodeImage decodes a JPEG/PNG byte buffer into an Image.
func DecodeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, newError(ErrInvalidImage, "empty image buffer", nil)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newError(ErrInvalidImage, "decode image", err)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, newError(ErrInvalidImage, "zero-area image", nil)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return &Image{Width: rgba.Rect.Dx(), Height: rgba.Rect.Dy(), Pix: rgba.Pix, Stride: rgba.Stride}, nil
}

// EncodeJPEG encodes the image as a JPEG at the given quality (1-100),
// used for persisting crops and audit snapshots.
func (im *Image) EncodeJPEG(quality int) ([]byte, error) {
	var buf bytes.Buffer
	rgba := &image.RGBA{Pix: im.Pix, Stride: im.Stride, Rect: image.Rect(0, 0, im.Width, im.Height)}
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: quality}); err != nil {
		return nil, newError(ErrInvalidImage, "encode jpeg", err)
	}
	return buf.Bytes(), nil
}

func (im *Image) at(x, y int) (r, g, b, a uint8) {
	i := y*im.Stride + x*4
	return im.Pix[i], im.Pix[i+1], im.Pix[i+2], im.Pix[i+3]
}

// Crop returns the sub-rectangle [x1,y1,x2,y2) as a new Image. Coordinates
// are clipped to image bounds; a clipped rectangle with zero area is an
// InvalidImage error.
func (im *Image) Crop(x1, y1, x2, y2 int) (*Image, error) {
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > im.Width {
		x2 = im.Width
	}
	if y2 > im.Height {
		y2 = im.Height
	}
	w, h := x2-x1, y2-y1
	if w <= 0 || h <= 0 {
		return nil, newError(ErrInvalidImage, "crop produced zero-area region", nil)
	}
	out := newImage(w, h)
	for y := 0; y < h; y++ {
		srcOff := (y1+y)*im.Stride + x1*4
		dstOff := y * out.Stride
		copy(out.Pix[dstOff:dstOff+w*4], im.Pix[srcOff:srcOff+w*4])
	}
	return out, nil
}

func newImage(w, h int) *Image {
	stride := w * 4
	return &Image{Width: w, Height: h, Pix: make([]uint8, stride*h), Stride: stride}
}

// Resize scales the image to (w,h) using bilinear interpolation, the
// default resampling mode for alignment and model-input preparation.
func (im *Image) Resize(w, h int) *Image {
	if w <= 0 || h <= 0 {
		return newImage(1, 1)
	}
	out := newImage(w, h)
	xRatio := float64(im.Width) / float64(w)
	yRatio := float64(im.Height) / float64(h)
	for dy := 0; dy < h; dy++ {
		sy := (float64(dy) + 0.5) * yRatio
		y0 := clampInt(int(sy), 0, im.Height-1)
		y1 := clampInt(y0+1, 0, im.Height-1)
		fy := sy - float64(y0)
		for dx := 0; dx < w; dx++ {
			sx := (float64(dx) + 0.5) * xRatio
			x0 := clampInt(int(sx), 0, im.Width-1)
			x1 := clampInt(x0+1, 0, im.Width-1)
			fx := sx - float64(x0)

			r00, g00, b00, a00 := im.at(x0, y0)
			r10, g10, b10, a10 := im.at(x1, y0)
			r01, g01, b01, a01 := im.at(x0, y1)
			r11, g11, b11, a11 := im.at(x1, y1)

			r := bilerp(r00, r10, r01, r11, fx, fy)
			g := bilerp(g00, g10, g01, g11, fx, fy)
			b := bilerp(b00, b10, b01, b11, fx, fy)
			a := bilerp(a00, a10, a01, a11, fx, fy)

			off := dy*out.Stride + dx*4
			out.Pix[off], out.Pix[off+1], out.Pix[off+2], out.Pix[off+3] = r, g, b, a
		}
	}
	return out
}

// ResizeNearest scales using nearest-neighbor, the cheaper resampling
// permitted for MTCNN's scale-pyramid construction.
func (im *Image) ResizeNearest(w, h int) *Image {
	if w <= 0 || h <= 0 {
		return newImage(1, 1)
	}
	out := newImage(w, h)
	xRatio := float64(im.Width) / float64(w)
	yRatio := float64(im.Height) / float64(h)
	for dy := 0; dy < h; dy++ {
		sy := clampInt(int(float64(dy)*yRatio), 0, im.Height-1)
		for dx := 0; dx < w; dx++ {
			sx := clampInt(int(float64(dx)*xRatio), 0, im.Width-1)
			r, g, b, a := im.at(sx, sy)
			off := dy*out.Stride + dx*4
			out.Pix[off], out.Pix[off+1], out.Pix[off+2], out.Pix[off+3] = r, g, b, a
		}
	}
	return out
}

func bilerp(v00, v10, v01, v11 uint8, fx, fy float64) uint8 {
	top := float64(v00)*(1-fx) + float64(v10)*fx
	bot := float64(v01)*(1-fx) + float64(v11)*fx
	return uint8(clampF(top*(1-fy)+bot*fy, 0, 255))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ToCHWTensor converts the image to a planar (C,H,W) float32 slice,
// normalizing each channel as (pixel - mean[c]) * (1/(255*std[c])). Used
// by the occlusion and liveness models, each with ImageNet mean/std.
func (im *Image) ToCHWTensor(mean, std [3]float32) []float32 {
	h, w := im.Height, im.Width
	out := make([]float32, 3*h*w)
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := im.at(x, y)
			idx := y*w + x
			out[idx] = (float32(r) - mean[0]) * (1 / (255 * std[0]))
			out[plane+idx] = (float32(g) - mean[1]) * (1 / (255 * std[1]))
			out[2*plane+idx] = (float32(b) - mean[2]) * (1 / (255 * std[2]))
		}
	}
	return out
}

// ToCHWTensorMTCNN converts to planar (C,H,W) using MTCNN's own
// normalization: (pixel - 127.5) / 128, per-channel identical.
func (im *Image) ToCHWTensorMTCNN() []float32 {
	h, w := im.Height, im.Width
	out := make([]float32, 3*h*w)
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := im.at(x, y)
			idx := y*w + x
			out[idx] = (float32(r) - 127.5) / 128
			out[plane+idx] = (float32(g) - 127.5) / 128
			out[2*plane+idx] = (float32(b) - 127.5) / 128
		}
	}
	return out
}

// Gray returns a row-major luma buffer (ITU-R BT.601), used by the
// Laplacian sharpness gate.
func (im *Image) Gray() []float64 {
	out := make([]float64, im.Width*im.Height)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			r, g, b, _ := im.at(x, y)
			out[y*im.Width+x] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		}
	}
	return out
}
