package vision

// laplacianKernel is the standard 4-connected discrete Laplacian.
var laplacianKernel = [3][3]float64{
	{0, 1, 0},
	{1, -4, 1},
	{0, 1, 0},
}

// SharpnessVariance computes the mean of squared Laplacian responses
// over the image's luma plane, the quality-gate score. Borders are
// zero-padded.
func SharpnessVariance(im *Image) float64 {
	gray := im.Gray()
	w, h := im.Width, im.Height
	if w < 3 || h < 3 {
		return 0
	}

	var meanSq float64
	n := float64(w * h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					yy, xx := y+ky, x+kx
					if yy < 0 || yy >= h || xx < 0 || xx >= w {
						continue // zero-padded border
					}
					sum += laplacianKernel[ky+1][kx+1] * gray[yy*w+xx]
				}
			}
			meanSq += sum * sum
		}
	}
	return meanSq / n
}

// PassesQualityGate reports whether the image's sharpness clears the
// configured threshold.
func PassesQualityGate(im *Image, threshold float64) (pass bool, score float64) {
	score = SharpnessVariance(im)
	return score >= threshold, score
}
