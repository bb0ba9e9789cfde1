package vision

import (
	"context"

	ort "github.com/yalue/onnxruntime_go"
)

const occlusionInputSize = 224

// occlusionMean / occlusionStd are the ImageNet normalization constants
// the occlusion classifier was trained with.
var (
	occlusionMean = [3]float32{0.485, 0.456, 0.406}
	occlusionStd  = [3]float32{0.229, 0.224, 0.225}
)

// OcclusionClassifier predicts whether an aligned face is occluded
// (mask, hand, sunglasses, etc.) using a 2-class ONNX model. When no
// model is loaded it degrades open — every face passes. Occlusion is a
// defense-in-depth layer, not the primary liveness signal.
type OcclusionClassifier struct {
	sessionMu
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewOcclusionClassifier loads the occlusion ONNX model. A nil receiver
// is never constructed; callers that skip loading simply don't call
// NewOcclusionClassifier and leave the pipeline's reference nil.
func NewOcclusionClassifier(modelPath string) (*OcclusionClassifier, error) {
	opts, err := onnxSessionOptions()
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "occlusion session options", err)
	}
	defer opts.Destroy()

	inputShape := ort.NewShape(1, 3, occlusionInputSize, occlusionInputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "occlusion input tensor", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		inputTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "occlusion output tensor", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"output"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "occlusion session", err)
	}

	return &OcclusionClassifier{session: session, inputTensor: inputTensor, outputTensor: outputTensor}, nil
}

func (o *OcclusionClassifier) Close() {
	if o.session != nil {
		o.session.Destroy()
	}
	if o.inputTensor != nil {
		o.inputTensor.Destroy()
	}
	if o.outputTensor != nil {
		o.outputTensor.Destroy()
	}
}

// Classify runs iterations independent forward passes and averages both
// softmaxed class probabilities (normal, occluded) across them; unlike
// the liveness ensemble, no per-pass vote is taken.
func (o *OcclusionClassifier) Classify(ctx context.Context, face *Image, iterations int) (Scores, error) {
	tensor := face.Resize(occlusionInputSize, occlusionInputSize).ToCHWTensor(occlusionMean, occlusionStd)

	var sumNormal, sumOccluded float64
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return Scores{}, err
		}
		normal, occluded, err := o.infer(tensor)
		if err != nil {
			return Scores{}, err
		}
		sumNormal += normal
		sumOccluded += occluded
	}

	n := float64(iterations)
	return Scores{
		NameA: "normal",
		A:     sumNormal / n,
		NameB: "occluded",
		B:     sumOccluded / n,
	}, nil
}

func (o *OcclusionClassifier) infer(tensor []float32) (normal, occluded float64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	copy(o.inputTensor.GetData(), tensor)
	if err := o.session.Run(); err != nil {
		return 0, 0, newError(ErrInferenceError, "occlusion run", err)
	}
	out := o.outputTensor.GetData()
	probs := softmax2(float64(out[0]), float64(out[1]))
	return probs[0], probs[1], nil
}

func softmax2(a, b float64) [2]float64 {
	ea := expClamped(a)
	eb := expClamped(b)
	sum := ea + eb
	if sum == 0 {
		return [2]float64{0.5, 0.5}
	}
	return [2]float64{ea / sum, eb / sum}
}
