package vision

import (
	"context"

	ort "github.com/yalue/onnxruntime_go"
)

// onetSession wraps O-Net, the final cascade stage: a fixed 48x48 input
// that emits a face score, box regression, and 5-point landmark offsets.
type onetSession struct {
	sessionMu
	session     *ort.AdvancedSession
	inputTensor *ort.Tensor[float32]
	probTensor  *ort.Tensor[float32]
	regTensor   *ort.Tensor[float32]
	lmTensor    *ort.Tensor[float32]
}

func newONetSession(modelPath string) (*onetSession, error) {
	opts, err := onnxSessionOptions()
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "o-net session options", err)
	}
	defer opts.Destroy()

	inputShape := ort.NewShape(1, 3, onetInputSize, onetInputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "o-net input tensor", err)
	}

	probTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		inputTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "o-net prob tensor", err)
	}
	regTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 4))
	if err != nil {
		inputTensor.Destroy()
		probTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "o-net reg tensor", err)
	}
	lmTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 10))
	if err != nil {
		inputTensor.Destroy()
		probTensor.Destroy()
		regTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "o-net landmark tensor", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"prob1", "conv6-2", "conv6-3"},
		[]ort.Value{inputTensor},
		[]ort.Value{probTensor, regTensor, lmTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		probTensor.Destroy()
		regTensor.Destroy()
		lmTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "o-net session", err)
	}

	return &onetSession{session: session, inputTensor: inputTensor, probTensor: probTensor, regTensor: regTensor, lmTensor: lmTensor}, nil
}

func (o *onetSession) Close() {
	if o.session != nil {
		o.session.Destroy()
	}
	if o.inputTensor != nil {
		o.inputTensor.Destroy()
	}
	if o.probTensor != nil {
		o.probTensor.Destroy()
	}
	if o.regTensor != nil {
		o.regTensor.Destroy()
	}
	if o.lmTensor != nil {
		o.lmTensor.Destroy()
	}
}

// run classifies each R-Net survivor at 48x48, filters on
// mtcnnThresholds[2], decodes landmarks relative to the (already squared)
// input box before calibration,
// calibrates the box, then does a final min-mode NMS pass (the standard
// MTCNN choice at the last stage, since surviving boxes tend to be
// near-duplicates of the same face rather than distinct overlapping
// faces).
func (o *onetSession) run(ctx context.Context, im *Image, cands []candidate) ([]candidate, error) {
	var out []candidate
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		crop := cropAndResize(im, c.box, onetInputSize)
		score, reg, lm, err := o.infer(crop)
		if err != nil {
			return nil, err
		}
		if score < mtcnnThresholds[2] {
			continue
		}
		next := c
		next.box.Score = score
		next.reg = reg

		w := c.box.Width()
		h := c.box.Height()
		for i := 0; i < 5; i++ {
			next.lm[i] = Point{
				X: c.box.X1 + lm[i*2]*w,
				Y: c.box.Y1 + lm[i*2+1]*h,
			}
		}
		out = append(out, next)
	}

	for i := range out {
		out[i].box = calibrateBox(out[i])
	}
	out = nmsCandidates(out, mtcnnNMSThresholds[2], nmsMin)
	return out, nil
}

func (o *onetSession) infer(crop *Image) (score float64, reg [4]float64, lm [10]float64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	copy(o.inputTensor.GetData(), crop.ToCHWTensorMTCNN())
	if err := o.session.Run(); err != nil {
		return 0, reg, lm, newError(ErrInferenceError, "o-net run", err)
	}
	prob := o.probTensor.GetData()
	regData := o.regTensor.GetData()
	lmData := o.lmTensor.GetData()

	for i := 0; i < 4; i++ {
		reg[i] = float64(regData[i])
	}
	for i := 0; i < 10; i++ {
		lm[i] = float64(lmData[i])
	}
	return float64(prob[1]), reg, lm, nil
}
