package vision

import (
	"context"

	ort "github.com/yalue/onnxruntime_go"
)

// pnetSession wraps the P-Net ONNX model. Unlike R-Net/O-Net, P-Net runs
// once per pyramid scale with a variably-sized input, so its tensors are
// (re)allocated per call rather than held fixed at construction.
type pnetSession struct {
	sessionMu
	modelPath string
	opts      *ort.SessionOptions
}

func newPNetSession(modelPath string) (*pnetSession, error) {
	opts, err := onnxSessionOptions()
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "p-net session options", err)
	}
	return &pnetSession{modelPath: modelPath, opts: opts}, nil
}

func (p *pnetSession) Close() {
	if p.opts != nil {
		p.opts.Destroy()
	}
}

// run scans every scale in the pyramid, keeping candidates whose score
// clears mtcnnThresholds[0], NMS-ing within each scale (union, 0.5) and
// then once more across all scales (union, mtcnnNMSThresholds[0]).
func (p *pnetSession) run(ctx context.Context, im *Image) ([]candidate, error) {
	scales := scalePyramid(im.Width, im.Height)

	var all []candidate
	for _, scale := range scales {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := int(float64(im.Width) * scale)
		h := int(float64(im.Height) * scale)
		if w < pnetInputSize || h < pnetInputSize {
			continue
		}
		scaled := im.ResizeNearest(w, h)

		cands, err := p.runOnScale(scaled, scale)
		if err != nil {
			return nil, err
		}
		cands = nmsCandidates(cands, 0.5, nmsUnion)
		all = append(all, cands...)
	}

	all = nmsCandidates(all, mtcnnNMSThresholds[0], nmsUnion)
	for i := range all {
		all[i].box = calibrateBox(all[i])
		all[i].box = squareBox(all[i].box)
	}
	return all, nil
}

func (p *pnetSession) runOnScale(scaled *Image, scale float64) ([]candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tensorData := scaled.ToCHWTensorMTCNN()
	inputShape := ort.NewShape(1, 3, int64(scaled.Height), int64(scaled.Width))
	inputTensor, err := ort.NewTensor(inputShape, tensorData)
	if err != nil {
		return nil, newError(ErrInferenceError, "p-net input tensor", err)
	}
	defer inputTensor.Destroy()

	// Feature-map grid: stride 2, 12x12 receptive field.
	fmW := (scaled.Width - pnetInputSize) / 2 + 1
	fmH := (scaled.Height - pnetInputSize) / 2 + 1
	if fmW <= 0 || fmH <= 0 {
		return nil, nil
	}

	probShape := ort.NewShape(1, 2, int64(fmH), int64(fmW))
	probTensor, err := ort.NewEmptyTensor[float32](probShape)
	if err != nil {
		return nil, newError(ErrInferenceError, "p-net prob tensor", err)
	}
	defer probTensor.Destroy()

	regShape := ort.NewShape(1, 4, int64(fmH), int64(fmW))
	regTensor, err := ort.NewEmptyTensor[float32](regShape)
	if err != nil {
		return nil, newError(ErrInferenceError, "p-net reg tensor", err)
	}
	defer regTensor.Destroy()

	session, err := ort.NewAdvancedSession(p.modelPath,
		[]string{"input"},
		[]string{"prob1", "conv4-2"},
		[]ort.Value{inputTensor},
		[]ort.Value{probTensor, regTensor},
		p.opts,
	)
	if err != nil {
		return nil, newError(ErrInferenceError, "p-net session", err)
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, newError(ErrInferenceError, "p-net run", err)
	}

	prob := probTensor.GetData()
	reg := regTensor.GetData()

	var out []candidate
	cellStride := 2.0
	for y := 0; y < fmH; y++ {
		for x := 0; x < fmW; x++ {
			idx := y*fmW + x
			score := float64(prob[fmW*fmH+idx]) // channel 1 = face score
			if score < mtcnnThresholds[0] {
				continue
			}
			x1 := (cellStride*float64(x) + 1) / scale
			y1 := (cellStride*float64(y) + 1) / scale
			x2 := (cellStride*float64(x) + pnetInputSize) / scale
			y2 := (cellStride*float64(y) + pnetInputSize) / scale

			out = append(out, candidate{
				box: BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2, Score: score},
				reg: [4]float64{
					float64(reg[0*fmW*fmH+idx]),
					float64(reg[1*fmW*fmH+idx]),
					float64(reg[2*fmW*fmH+idx]),
					float64(reg[3*fmW*fmH+idx]),
				},
			})
		}
	}
	return out, nil
}
