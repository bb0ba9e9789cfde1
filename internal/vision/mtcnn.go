package vision

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// MTCNN input sizes per stage.
const (
	pnetInputSize = 12
	rnetInputSize = 24
	onetInputSize = 48
)

// mtcnnScaleFactor and mtcnnMinFaceSize drive the scale-pyramid
// construction for stage one.
const (
	mtcnnScaleFactor = 0.709
	mtcnnMinFaceSize = 12.0
)

// mtcnnThresholds is T=[0.1, 0.7, 0.9]: the minimum
// confidence a candidate must clear at each stage to survive.
var mtcnnThresholds = [3]float64{0.1, 0.7, 0.9}

// mtcnnNMSThresholds is N=[0.7, 0.7, 0.7], the IoU threshold used for
// NMS within and across stages.
var mtcnnNMSThresholds = [3]float64{0.7, 0.7, 0.7}

// nmsMode selects between union-area and min-area IoU denominators.
type nmsMode int

const (
	nmsUnion nmsMode = iota
	nmsMin
)

// candidate is a detection candidate flowing through the cascade: a
// bounding box, its score, and (from stage 3 onward) landmarks.
type candidate struct {
	box BoundingBox
	reg [4]float64 // regression offsets (dx1,dy1,dx2,dy2) applied by calibrate
	lm  Landmarks
}

// MTCNN runs the three-stage P-Net/R-Net/O-Net cascade for face detection
// and 5-point landmark localization.
type MTCNN struct {
	pnet *pnetSession
	rnet *rnetSession
	onet *onetSession
}

// NewMTCNN builds all three cascade stages from their materialized model
// paths. Each stage owns its own ONNX session, one session per model.
func NewMTCNN(pnetPath, rnetPath, onetPath string) (*MTCNN, error) {
	p, err := newPNetSession(pnetPath)
	if err != nil {
		return nil, err
	}
	r, err := newRNetSession(rnetPath)
	if err != nil {
		p.Close()
		return nil, err
	}
	o, err := newONetSession(onetPath)
	if err != nil {
		p.Close()
		r.Close()
		return nil, err
	}
	return &MTCNN{pnet: p, rnet: r, onet: o}, nil
}

func (m *MTCNN) Close() {
	if m.pnet != nil {
		m.pnet.Close()
	}
	if m.rnet != nil {
		m.rnet.Close()
	}
	if m.onet != nil {
		m.onet.Close()
	}
}

// Detect runs the full cascade on im and returns surviving faces with
// landmarks. An empty result (not an error) means no face was found,
// the caller maps that to ErrNoFaceDetected.
func (m *MTCNN) Detect(ctx context.Context, im *Image) ([]Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands, err := m.pnet.run(ctx, im)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands, err = m.rnet.run(ctx, im, cands)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands, err = m.onet.run(ctx, im, cands)
	if err != nil {
		return nil, err
	}

	faces := make([]Face, 0, len(cands))
	for _, c := range cands {
		faces = append(faces, Face{Box: c.box, Landmarks: c.lm})
	}
	return faces, nil
}

// --- scale pyramid -----------------------------------------------------

// scalePyramid builds the sequence of resize factors stage one scans,
// from the min-face-size floor up to the image's own limiting dimension,
// shrinking by scaleFactor each step.
func scalePyramid(width, height int) []float64 {
	minSide := math.Min(float64(width), float64(height))
	m := pnetInputSize / mtcnnMinFaceSize
	minSide *= m

	var scales []float64
	factorCount := 0
	for minSide >= pnetInputSize {
		scales = append(scales, m*math.Pow(mtcnnScaleFactor, float64(factorCount)))
		minSide *= mtcnnScaleFactor
		factorCount++
	}
	return scales
}

// --- NMS -----------------------------------------------------------------

func nmsCandidates(cands []candidate, threshold float64, mode nmsMode) []candidate {
	if len(cands) == 0 {
		return cands
	}
	sorted := append([]candidate(nil), cands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].box.Score > sorted[j].box.Score })

	keep := make([]bool, len(sorted))
	for i := range keep {
		keep[i] = true
	}
	for i := 0; i < len(sorted); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if !keep[j] {
				continue
			}
			if iouBoxes(sorted[i].box, sorted[j].box, mode) > threshold {
				keep[j] = false
			}
		}
	}

	out := make([]candidate, 0, len(sorted))
	for i, c := range sorted {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func iouBoxes(a, b BoundingBox, mode nmsMode) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)

	inter := math.Max(0, x2-x1+1) * math.Max(0, y2-y1+1)
	areaA := a.Width() * a.Height()
	areaB := b.Width() * b.Height()

	var denom float64
	switch mode {
	case nmsMin:
		denom = math.Min(areaA, areaB)
	default:
		denom = areaA + areaB - inter
	}
	if denom <= 0 {
		return 0
	}
	return inter / denom
}

// --- bbox calibration / squaring ----------------------------------------

// calibrateBox applies the regression offsets predicted by a cascade
// stage to its input box, per the standard MTCNN bbox regression.
func calibrateBox(c candidate) BoundingBox {
	w := c.box.Width()
	h := c.box.Height()
	return BoundingBox{
		X1:    c.box.X1 + c.reg[0]*w,
		Y1:    c.box.Y1 + c.reg[1]*h,
		X2:    c.box.X2 + c.reg[2]*w,
		Y2:    c.box.Y2 + c.reg[3]*h,
		Score: c.box.Score,
	}
}

// squareBox converts a box to a square by extending the shorter side
// around the box's own center, the standard pre-crop step between
// cascade stages.
func squareBox(b BoundingBox) BoundingBox {
	w := b.Width()
	h := b.Height()
	side := math.Max(w, h)
	cx := b.X1 + w*0.5
	cy := b.Y1 + h*0.5
	return BoundingBox{
		X1:    cx - side*0.5,
		Y1:    cy - side*0.5,
		X2:    cx + side*0.5,
		Y2:    cy + side*0.5,
		Score: b.Score,
	}
}

// cropAndResize extracts box from im (clamped to bounds, zero-padded
// where the square box runs off-frame) and resizes to size x size for
// the next cascade stage's input.
func cropAndResize(im *Image, box BoundingBox, size int) *Image {
	x1 := int(math.Round(box.X1))
	y1 := int(math.Round(box.Y1))
	x2 := int(math.Round(box.X2))
	y2 := int(math.Round(box.Y2))
	w := x2 - x1
	h := y2 - y1
	if w <= 0 || h <= 0 {
		return newImage(size, size)
	}

	padded := newImage(w, h)
	for y := 0; y < h; y++ {
		srcY := y1 + y
		if srcY < 0 || srcY >= im.Height {
			continue
		}
		for x := 0; x < w; x++ {
			srcX := x1 + x
			if srcX < 0 || srcX >= im.Width {
				continue
			}
			r, g, b, a := im.at(srcX, srcY)
			off := y*padded.Stride + x*4
			padded.Pix[off], padded.Pix[off+1], padded.Pix[off+2], padded.Pix[off+3] = r, g, b, a
		}
	}
	return padded.Resize(size, size)
}

// sessionMu serializes calls into ONNX sessions that are not safe for
// concurrent Run invocations.
type sessionMu struct{ mu sync.Mutex }

func onnxSessionOptions() (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(1); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("set intra-op threads: %w", err)
	}
	return opts, nil
}
