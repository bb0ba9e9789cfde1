package vision

import (
	ort "github.com/yalue/onnxruntime_go"
)

const (
	embedInputSize = 112
	embedDim       = 512
)

// Embedder extracts 512-D identity embeddings from an aligned 112x112
// face. Output vectors are returned raw — no L2 normalization — so
// cosine similarity is computed directly against the stored vector.
type Embedder struct {
	sessionMu
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewEmbedder loads the embedding ONNX model.
func NewEmbedder(modelPath string) (*Embedder, error) {
	opts, err := onnxSessionOptions()
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "embedder session options", err)
	}
	defer opts.Destroy()

	inputShape := ort.NewShape(1, 3, embedInputSize, embedInputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "embedder input tensor", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, embedDim))
	if err != nil {
		inputTensor.Destroy()
		return nil, newError(ErrModelLoadFailed, "embedder output tensor", err)
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
		return nil, newError(ErrModelLoadFailed, "embedder session", err)
	}

	return &Embedder{session: session, inputTensor: inputTensor, outputTensor: outputTensor}, nil
}

func (e *Embedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
}

// Extract runs the embedding model on an already-aligned 112x112 face
// and returns the raw 512-D vector. Preprocessing is the MTCNN-style
// (pixel-127.5)*0.0078125 normalization.
func (e *Embedder) Extract(alignedFace *Image) (Embedding, error) {
	if alignedFace.Width != embedInputSize || alignedFace.Height != embedInputSize {
		alignedFace = alignedFace.Resize(embedInputSize, embedInputSize)
	}
	tensor := alignedFace.ToCHWTensorMTCNN()

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputTensor.GetData(), tensor)
	if err := e.session.Run(); err != nil {
		return nil, newError(ErrInferenceError, "embedder run", err)
	}

	out := e.outputTensor.GetData()
	embedding := make(Embedding, embedDim)
	copy(embedding, out)
	return embedding, nil
}
