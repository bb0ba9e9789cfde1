package vision

import "math"

// alignedFaceSize is the fixed output dimension for aligned face crops
// fed into the embedding model.
const alignedFaceSize = 112

// referenceLandmarks is the fixed 112x112 constellation (left eye,
// right eye, nose, mouth left, mouth right) detected landmarks are
// warped to match.
var referenceLandmarks = Landmarks{
	{X: 30.29, Y: 51.70},
	{X: 65.53, Y: 51.50},
	{X: 48.03, Y: 71.74},
	{X: 33.55, Y: 92.37},
	{X: 62.73, Y: 92.20},
}

// similarityTransform is rotation + isotropic scale + translation,
// represented as the row-vector form [x y 1] * [[sc,-ss,0],[ss,sc,0],
// [tx,ty,1]] = [x',y',1].
type similarityTransform struct {
	Sc, Ss, Tx, Ty float64
}

func (t similarityTransform) apply(p Point) Point {
	return Point{
		X: t.Sc*p.X + t.Ss*p.Y + t.Tx,
		Y: -t.Ss*p.X + t.Sc*p.Y + t.Ty,
	}
}

// invert computes the analytic inverse of a similarity transform: given
// y = x*A + t (row-vector convention, A = [[sc,-ss],[ss,sc]]), solves
// x = (y-t)*A^-1, where A^-1 = (1/det)*[[sc,ss],[-ss,sc]], det =
// sc^2+ss^2.
func (t similarityTransform) invert() similarityTransform {
	det := t.Sc*t.Sc + t.Ss*t.Ss
	if det < 1e-12 {
		return similarityTransform{}
	}
	inv := similarityTransform{Sc: t.Sc / det, Ss: -t.Ss / det}
	origin := inv.apply(Point{X: t.Tx, Y: t.Ty})
	inv.Tx = -origin.X
	inv.Ty = -origin.Y
	return inv
}

// AlignFace warps the region of im described by lm so the landmarks
// land on referenceLandmarks, producing a 112x112 image. Destination
// pixels sampling outside the source frame are left black.
func AlignFace(im *Image, lm Landmarks) *Image {
	fwd := fitSimilarity(lm, referenceLandmarks)
	baseResidual := residual(fwd, lm, referenceLandmarks)

	// Reflective candidate: refit against y-mirrored targets; keep
	// whichever transform lands closer to the true (unmirrored)
	// reference constellation.
	mirroredTargets := referenceLandmarks
	for i := range mirroredTargets {
		mirroredTargets[i].Y = -mirroredTargets[i].Y
	}
	mirrorFwd := fitSimilarity(lm, mirroredTargets)
	if residual(mirrorFwd, lm, referenceLandmarks) < baseResidual {
		fwd = mirrorFwd
	}

	rev := fwd.invert()

	out := newImage(alignedFaceSize, alignedFaceSize)
	for y := 0; y < alignedFaceSize; y++ {
		for x := 0; x < alignedFaceSize; x++ {
			src := rev.apply(Point{X: float64(x), Y: float64(y)})
			sx, sy := int(math.Round(src.X)), int(math.Round(src.Y))
			if sx < 0 || sx >= im.Width || sy < 0 || sy >= im.Height {
				continue // left black
			}
			r, g, b, a := im.at(sx, sy)
			off := y*out.Stride + x*4
			out.Pix[off], out.Pix[off+1], out.Pix[off+2], out.Pix[off+3] = r, g, b, a
		}
	}
	return out
}

// fitSimilarity builds the 2Mx4 design matrix from src (rows [x y 1 0]
// and [y -x 0 1]) against the stacked dst target vector [u v u v ...]
// and solves r=[sc,ss,tx,ty] by least squares via the normal equations,
// solved by Gaussian elimination with partial pivoting.
func fitSimilarity(src, dst Landmarks) similarityTransform {
	var ata [4][4]float64
	var atb [4]float64

	accumulate := func(row [4]float64, target float64) {
		for i := 0; i < 4; i++ {
			atb[i] += row[i] * target
			for j := 0; j < 4; j++ {
				ata[i][j] += row[i] * row[j]
			}
		}
	}

	for i := 0; i < 5; i++ {
		x, y := src[i].X, src[i].Y
		accumulate([4]float64{x, y, 1, 0}, dst[i].X)
		accumulate([4]float64{y, -x, 0, 1}, dst[i].Y)
	}

	sol := solve4(ata, atb)
	return similarityTransform{Sc: sol[0], Ss: sol[1], Tx: sol[2], Ty: sol[3]}
}

// solve4 solves a 4x4 linear system via Gaussian elimination with
// partial pivoting.
func solve4(a [4][4]float64, b [4]float64) [4]float64 {
	var m [4][5]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i][j] = a[i][j]
		}
		m[i][4] = b[i]
	}

	for col := 0; col < 4; col++ {
		pivot := col
		best := math.Abs(m[col][col])
		for r := col + 1; r < 4; r++ {
			if v := math.Abs(m[r][col]); v > best {
				pivot, best = r, v
			}
		}
		if pivot != col {
			m[col], m[pivot] = m[pivot], m[col]
		}
		if math.Abs(m[col][col]) < 1e-12 {
			continue // singular in this column; leave zero contribution
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			factor := m[r][col] / m[col][col]
			for c := col; c < 5; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	var x [4]float64
	for i := 0; i < 4; i++ {
		if math.Abs(m[i][i]) > 1e-12 {
			x[i] = m[i][4] / m[i][i]
		}
	}
	return x
}

func residual(t similarityTransform, src, dst Landmarks) float64 {
	var sum float64
	for i := 0; i < 5; i++ {
		p := t.apply(src[i])
		dx, dy := p.X-dst[i].X, p.Y-dst[i].Y
		sum += dx*dx + dy*dy
	}
	return sum
}
