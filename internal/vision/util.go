package vision

import "math"

// expClamped guards math.Exp against overflow on extreme logits before
// softmax normalization.
func expClamped(x float64) float64 {
	if x > 700 {
		x = 700
	}
	if x < -700 {
		x = -700
	}
	return math.Exp(x)
}
