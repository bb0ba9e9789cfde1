package vision

import (
	"context"

	ort "github.com/yalue/onnxruntime_go"
)

// rnetSession wraps R-Net, which takes a fixed-size batch-of-one
// 24x24 crop and refines one P-Net candidate at a time.
type rnetSession struct {
	sessionMu
	session     *ort.AdvancedSession
	inputTensor *ort.Tensor[float32]
	probTensor  *ort.Tensor[float32]
	regTensor   *ort.Tensor[float32]
}

func newRNetSession(modelPath string) (*rnetSession, error) {
	opts, err := onnxSessionOptions()
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "r-net session options", err)
	}
	defer opts.Destroy()

	inputShape := ort.NewShape(1, 3, rnetInputSize, rnetInputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "r-net input tensor", err)
	}

	probTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		inputTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "r-net prob tensor", err)
	}

	regTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 4))
	if err != nil {
		inputTensor.Destroy()
		probTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "r-net reg tensor", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"prob1", "conv5-2"},
		[]ort.Value{inputTensor},
		[]ort.Value{probTensor, regTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		probTensor.Destroy()
		regTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "r-net session", err)
	}

	return &rnetSession{session: session, inputTensor: inputTensor, probTensor: probTensor, regTensor: regTensor}, nil
}

func (r *rnetSession) Close() {
	if r.session != nil {
		r.session.Destroy()
	}
	if r.inputTensor != nil {
		r.inputTensor.Destroy()
	}
	if r.probTensor != nil {
		r.probTensor.Destroy()
	}
	if r.regTensor != nil {
		r.regTensor.Destroy()
	}
}

// run refines each P-Net candidate: crop+resize to 24x24, classify,
// filter on mtcnnThresholds[1], NMS (union, mtcnnNMSThresholds[1]),
// then calibrate+square for the O-Net stage.
func (r *rnetSession) run(ctx context.Context, im *Image, cands []candidate) ([]candidate, error) {
	var out []candidate
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		crop := cropAndResize(im, c.box, rnetInputSize)
		score, reg, err := r.infer(crop)
		if err != nil {
			return nil, err
		}
		if score < mtcnnThresholds[1] {
			continue
		}
		next := c
		next.box.Score = score
		next.reg = reg
		out = append(out, next)
	}

	out = nmsCandidates(out, mtcnnNMSThresholds[1], nmsUnion)
	for i := range out {
		out[i].box = calibrateBox(out[i])
		out[i].box = squareBox(out[i].box)
	}
	return out, nil
}

func (r *rnetSession) infer(crop *Image) (score float64, reg [4]float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copy(r.inputTensor.GetData(), crop.ToCHWTensorMTCNN())
	if err := r.session.Run(); err != nil {
		return 0, reg, newError(ErrInferenceError, "r-net run", err)
	}
	prob := r.probTensor.GetData()
	regData := r.regTensor.GetData()
	return float64(prob[1]), [4]float64{float64(regData[0]), float64(regData[1]), float64(regData[2]), float64(regData[3])}, nil
}
