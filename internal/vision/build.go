package vision

// Model names recognized by ModelByteSource.load.
const (
	ModelPNet       = "pnet"
	ModelRNet       = "rnet"
	ModelONet       = "onet"
	ModelEmbedding  = "embedding"
	ModelOcclusion  = "occlusion"
	ModelLiveness1x = "liveness_1_0x"
	ModelLiveness5x = "liveness_0_5x"
)

// NewPipeline materializes every model named in DetectorConfig's
// dependencies, builds the MTCNN cascade, embedder, occlusion
// classifier, and liveness ensemble, and wires them into a Pipeline.
// A load failure for pnet/rnet/onet/embedding/liveness is fatal
// (ErrModelLoadFailed); a missing occlusion model is tolerated and
// leaves the pipeline in its documented degrade-open mode.
func NewPipeline(cfg DetectorConfig, src ModelByteSource, keys KeySource) (*Pipeline, error) {
	pnetPath, cleanupPNet, err := MaterializeModel(ModelPNet, src, keys)
	if err != nil {
		return nil, err
	}
	defer cleanupPNet()

	rnetPath, cleanupRNet, err := MaterializeModel(ModelRNet, src, keys)
	if err != nil {
		return nil, err
	}
	defer cleanupRNet()

	onetPath, cleanupONet, err := MaterializeModel(ModelONet, src, keys)
	if err != nil {
		return nil, err
	}
	defer cleanupONet()

	detector, err := NewMTCNN(pnetPath, rnetPath, onetPath)
	if err != nil {
		return nil, err
	}

	embedPath, cleanupEmbed, err := MaterializeModel(ModelEmbedding, src, keys)
	if err != nil {
		detector.Close()
		return nil, err
	}
	defer cleanupEmbed()

	embedder, err := NewEmbedder(embedPath)
	if err != nil {
		detector.Close()
		return nil, err
	}

	livenessAPath, cleanupLivA, err := MaterializeModel(ModelLiveness1x, src, keys)
	if err != nil {
		detector.Close()
		embedder.Close()
		return nil, err
	}
	defer cleanupLivA()

	livenessBPath, cleanupLivB, err := MaterializeModel(ModelLiveness5x, src, keys)
	if err != nil {
		detector.Close()
		embedder.Close()
		return nil, err
	}
	defer cleanupLivB()

	liveness, err := NewLivenessEnsemble(livenessAPath, livenessBPath)
	if err != nil {
		detector.Close()
		embedder.Close()
		return nil, err
	}

	var occlusion *OcclusionClassifier
	if occPath, cleanupOcc, err := MaterializeModel(ModelOcclusion, src, keys); err == nil {
		defer cleanupOcc()
		occlusion, _ = NewOcclusionClassifier(occPath) // nil on failure: degrade-open
	}

	return &Pipeline{
		Config:    cfg,
		Detector:  detector,
		FaceCrop:  NewFaceCropProvider(detector),
		EmbedCrop: NewEmbeddingFaceCropper(detector),
		Embedder:  embedder,
		Occlusion: occlusion,
		Liveness:  liveness,
	}, nil
}
