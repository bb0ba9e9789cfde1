package vision

import "context"

// Image size bounds accepted by the pipeline.
const (
	minImageSide = 64
	maxImageSide = 4096
)

// Pipeline sequences the liveness stages and, independently,
// the embedding-extraction path. It holds shared, long-lived inference
// sessions; callers are expected not to share one handle across
// goroutines concurrently — the sessions themselves remain safe
// because each guards its own scratch buffers with an exclusive lock.
type Pipeline struct {
	Config DetectorConfig

	Detector  *MTCNN
	FaceCrop  FaceCropProvider
	EmbedCrop *EmbeddingFaceCropper
	Embedder  *Embedder
	Occlusion *OcclusionClassifier // nil is valid: degrade-open
	Liveness  *LivenessEnsemble
}

// DetectLiveness runs the full verification state machine, short-circuiting
// on the first failing gate. Cancellation is checked before each
// inference call; on cancellation the pipeline unwinds without
// producing a verdict, returning ctx.Err().
func (p *Pipeline) DetectLiveness(ctx context.Context, im *Image) (LivenessVerdict, error) {
	if err := validateImage(im); err != nil {
		return LivenessVerdict{}, err
	}

	working := im
	if !p.Config.SkipFaceCropping && p.FaceCrop != nil {
		if err := ctx.Err(); err != nil {
			return LivenessVerdict{}, err
		}
		cropped, err := p.FaceCrop.CropFace(ctx, im)
		if err != nil {
			// Step 2: a failed crop is not fatal — continue with the
			// original image.
		} else {
			working = cropped.Image
		}
	}

	if err := ctx.Err(); err != nil {
		return LivenessVerdict{}, err
	}
	pass, _ := PassesQualityGate(working, p.qualityThreshold())
	if !pass {
		reason := "Image is blurry"
		if p.Config.SharpnessThreshold == RealtimeSharpnessThreshold {
			reason = "Image is too blurry"
		}
		return LivenessVerdict{Prediction: "Spoof", Confidence: 0, FailureReason: reason}, nil
	}

	if !p.Config.SkipAlbedoCheck {
		if err := ctx.Err(); err != nil {
			return LivenessVerdict{}, err
		}
		albedo := CheckAlbedo(working)
		if !albedo.IsLive {
			return LivenessVerdict{
				Prediction:    "Spoof",
				Confidence:    0,
				FailureReason: "Albedo check failed: Image is spoof",
			}, nil
		}
	}

	var occlusionScores *Scores
	if !p.Config.SkipOcclusionCheck {
		if err := ctx.Err(); err != nil {
			return LivenessVerdict{}, err
		}
		if p.Occlusion == nil {
			// Degrade-open: no model loaded means every face passes.
			occlusionScores = &Scores{NameA: "normal", A: 1.0, NameB: "occluded", B: 0.0}
		} else {
			scores, err := p.Occlusion.Classify(ctx, working, p.Config.OcclusionIterations)
			if err != nil {
				return LivenessVerdict{}, err
			}
			occlusionScores = &scores
			if scores.A <= p.Config.OcclusionThreshold {
				return LivenessVerdict{
					Prediction:      "Spoof",
					Confidence:      scores.B,
					FailureReason:   "Face is occluded: occluded",
					OcclusionScores: occlusionScores,
				}, nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return LivenessVerdict{}, err
	}
	livenessScores, isLive, confidence, err := p.Liveness.Predict(
		ctx, working, p.Config.LivenessModelWeights, p.Config.LivenessIterations, p.Config.LivenessThreshold)
	if err != nil {
		return LivenessVerdict{}, err
	}

	verdict := LivenessVerdict{
		Confidence:      confidence,
		LivenessScores:  &livenessScores,
		OcclusionScores: occlusionScores,
	}
	if isLive {
		verdict.Prediction = "Live"
	} else {
		verdict.Prediction = "Spoof"
		verdict.FailureReason = "Liveness check failed"
	}
	return verdict, nil
}

// EmbedImage detects the primary face, aligns it to 112x112 via the
// similarity transform, and extracts its 512-D embedding — a separate
// operation from DetectLiveness. Reference clients call
// verify-then-embed as two stages of enrollment, not one combined call.
func (p *Pipeline) EmbedImage(ctx context.Context, im *Image) (Embedding, *AlignedFace, error) {
	if err := validateImage(im); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	aligned, err := p.EmbedCrop.Align(ctx, im)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	emb, err := p.Embedder.Extract(aligned.Image)
	if err != nil {
		return nil, nil, err
	}
	return emb, aligned, nil
}

func (p *Pipeline) qualityThreshold() float64 {
	if p.Config.SharpnessThreshold > 0 {
		return p.Config.SharpnessThreshold
	}
	return DefaultDetectorConfig().SharpnessThreshold
}

func validateImage(im *Image) error {
	if im == nil {
		return newError(ErrInvalidImage, "nil image", nil)
	}
	minSide := im.Width
	if im.Height < minSide {
		minSide = im.Height
	}
	maxSide := im.Width
	if im.Height > maxSide {
		maxSide = im.Height
	}
	if minSide <= minImageSide {
		return newError(ErrInvalidImage, "image smaller than minimum accepted size", nil)
	}
	if maxSide >= maxImageSide {
		return newError(ErrInvalidImage, "image larger than maximum accepted size", nil)
	}
	return nil
}

// Close releases every owned inference session.
func (p *Pipeline) Close() {
	if p.Detector != nil {
		p.Detector.Close()
	}
	if p.Embedder != nil {
		p.Embedder.Close()
	}
	if p.Occlusion != nil {
		p.Occlusion.Close()
	}
	if p.Liveness != nil {
		p.Liveness.Close()
	}
}
