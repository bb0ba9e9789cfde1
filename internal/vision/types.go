// Package vision implements the face-liveness-and-verification core:
// detection+landmarks (MTCNN), alignment, quality/albedo/occlusion/liveness
// gating, and embedding extraction, orchestrated by Pipeline.DetectLiveness.
package vision

import (
	"fmt"
	"math"
)

// ErrorKind enumerates the fatal/structured-verdict error taxonomy.
// A tagged variant replaces the source's exception-subclass hierarchy.
type ErrorKind string

const (
	ErrInvalidImage    ErrorKind = "invalid_image"
	ErrModelLoadFailed ErrorKind = "model_load_failed"
	ErrNoFaceDetected  ErrorKind = "no_face_detected"
	ErrQualityFailed   ErrorKind = "quality_failed"
	ErrAlbedoSpoof     ErrorKind = "albedo_spoof"
	ErrOccluded        ErrorKind = "occluded"
	ErrLivenessSpoof   ErrorKind = "liveness_spoof"
	ErrInferenceError  ErrorKind = "inference_error"
)

// Error is the core's uniform error type. Kind drives how the pipeline
// maps a failure to a LivenessVerdict or a fatal abort; Cause
// preserves the underlying error by composition, not subtyping.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// BoundingBox is (x1,y1,x2,y2,score) in pixel coordinates of the original
// image; x2,y2 are inclusive (width = x2-x1+1).
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
	Score          float64
}

func (b BoundingBox) Width() float64  { return b.X2 - b.X1 + 1 }
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y1 + 1 }

// Point is a single (x,y) pixel-frame coordinate.
type Point struct{ X, Y float64 }

// Landmarks is the ordered 5-tuple [left_eye, right_eye, nose, mouth_left,
// mouth_right] in the original image's pixel frame.
type Landmarks [5]Point

// Face is one detector output: a bounding box plus its five landmarks.
type Face struct {
	Box       BoundingBox
	Landmarks Landmarks
}

// Embedding is a 512-D identity vector. Inference produces float32;
// cosine similarity is promoted to float64.
type Embedding []float32

// CosineSimilarity computes dot(a,b) / (‖a‖·‖b‖) in f64, with no
// L2 pre-normalization of the stored vectors.
func CosineSimilarity(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Verify reports whether two embeddings match per the cosine threshold.
func Verify(a, b Embedding, cosineThreshold float64) bool {
	return CosineSimilarity(a, b) > cosineThreshold
}

// Scores is a named pair of probabilities, used for both liveness
// (live/spoof) and occlusion (occluded/normal) diagnostics.
type Scores struct {
	A     float64
	B     float64
	NameA string
	NameB string
}

// LivenessVerdict is the pipeline's terminal result.
type LivenessVerdict struct {
	Prediction      string // "Live" or "Spoof"
	Confidence      float64
	FailureReason   string // empty when Prediction == "Live"
	LivenessScores  *Scores
	OcclusionScores *Scores
}

// DetectorConfig is the pipeline-wide, immutable-per-run configuration.
type DetectorConfig struct {
	SkipOcclusionCheck bool
	SkipAlbedoCheck    bool
	SkipFaceCropping   bool

	LivenessThreshold    float64
	LivenessModelWeights [2]float64
	LivenessIterations   int

	OcclusionThreshold  float64
	OcclusionIterations int

	CosineThreshold float64

	SharpnessThreshold float64
}

// DefaultDetectorConfig returns the batch-mode defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		LivenessThreshold:    0.75,
		LivenessModelWeights: [2]float64{0.5, 0.5},
		LivenessIterations:   3,
		OcclusionThreshold:   0.7,
		OcclusionIterations:  3,
		CosineThreshold:      0.7,
		SharpnessThreshold:   45.0,
	}
}

// RealtimeSharpnessThreshold is the alternate threshold used by
// realtime call sites.
const RealtimeSharpnessThreshold = 100.0
