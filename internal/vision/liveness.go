package vision

import (
	"context"

	ort "github.com/yalue/onnxruntime_go"
)

const livenessInputSize = 224

var (
	livenessMean = [3]float32{0.485, 0.456, 0.406}
	livenessStd  = [3]float32{0.229, 0.224, 0.225}
)

// livenessModel wraps a single ShuffleNet-V2-style binary liveness
// classifier. The ensemble holds two of these.
type livenessModel struct {
	sessionMu
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func newLivenessModel(modelPath string) (*livenessModel, error) {
	opts, err := onnxSessionOptions()
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "liveness session options", err)
	}
	defer opts.Destroy()

	inputShape := ort.NewShape(1, 3, livenessInputSize, livenessInputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "liveness input tensor", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		inputTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "liveness output tensor", err)
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
		return nil, newError(ErrModelLoadFailed, "liveness session", err)
	}

	return &livenessModel{session: session, inputTensor: inputTensor, outputTensor: outputTensor}, nil
}

func (m *livenessModel) Close() {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
	}
}

// infer returns the model's (live, spoof) output directly. Unlike the
// occlusion classifier, the liveness models emit already-softmaxed
// probabilities — no further normalization is applied here.
func (m *livenessModel) infer(tensor []float32) (live, spoof float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.inputTensor.GetData(), tensor)
	if err := m.session.Run(); err != nil {
		return 0, 0, newError(ErrInferenceError, "liveness run", err)
	}
	out := m.outputTensor.GetData()
	return float64(out[0]), float64(out[1]), nil
}

// LivenessEnsemble combines two independently-trained liveness models
// with fixed weights, averaging iterations rounds of both models before
// a final majority vote.
type LivenessEnsemble struct {
	modelA, modelB *livenessModel
}

// NewLivenessEnsemble loads both ensemble members.
func NewLivenessEnsemble(pathA, pathB string) (*LivenessEnsemble, error) {
	a, err := newLivenessModel(pathA)
	if err != nil {
		return nil, err
	}
	b, err := newLivenessModel(pathB)
	if err != nil {
		a.Close()
		return nil, err
	}
	return &LivenessEnsemble{modelA: a, modelB: b}, nil
}

func (e *LivenessEnsemble) Close() {
	if e.modelA != nil {
		e.modelA.Close()
	}
	if e.modelB != nil {
		e.modelB.Close()
	}
}

// Predict runs K=iterations rounds, each a weighted average of both
// models' (live,spoof) probabilities; a round's label is Live iff its
// combined_live exceeds threshold. The final label is the majority
// across rounds (a tie goes to whichever label's running count first
// reaches half the rounds); final confidence is the mean,
// across all rounds, of the combined score for the winning label.
func (e *LivenessEnsemble) Predict(ctx context.Context, face *Image, weights [2]float64, iterations int, threshold float64) (scores Scores, isLive bool, confidence float64, err error) {
	tensor := face.Resize(livenessInputSize, livenessInputSize).ToCHWTensor(livenessMean, livenessStd)

	combinedLive := make([]float64, iterations)
	combinedSpoof := make([]float64, iterations)

	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return Scores{}, false, 0, err
		}
		liveA, spoofA, err := e.modelA.infer(tensor)
		if err != nil {
			return Scores{}, false, 0, err
		}
		liveB, spoofB, err := e.modelB.infer(tensor)
		if err != nil {
			return Scores{}, false, 0, err
		}
		combinedLive[i] = weights[0]*liveA + weights[1]*liveB
		combinedSpoof[i] = weights[0]*spoofA + weights[1]*spoofB
	}

	winnerIsLive, winnerDecided := false, false
	liveVotes, spoofVotes := 0, 0
	for i := 0; i < iterations; i++ {
		if combinedLive[i] > threshold {
			liveVotes++
		} else {
			spoofVotes++
		}
		if !winnerDecided {
			if liveVotes*2 >= iterations {
				winnerIsLive, winnerDecided = true, true
			} else if spoofVotes*2 >= iterations {
				winnerIsLive, winnerDecided = false, true
			}
		}
	}
	if !winnerDecided {
		winnerIsLive = liveVotes >= spoofVotes
	}

	var sumLive, sumSpoof, sumWinner float64
	for i := 0; i < iterations; i++ {
		sumLive += combinedLive[i]
		sumSpoof += combinedSpoof[i]
		if winnerIsLive {
			sumWinner += combinedLive[i]
		} else {
			sumWinner += combinedSpoof[i]
		}
	}
	n := float64(iterations)
	scores = Scores{NameA: "live", A: sumLive / n, NameB: "spoof", B: sumSpoof / n}
	return scores, winnerIsLive, sumWinner / n, nil
}
