package vision

import "context"

// FaceCropProvider detects and crops the primary face in an image,
// isolating the MTCNN machinery behind an interface so the pipeline can
// be tested against a stub. The default provider does no landmark
// alignment.
type FaceCropProvider interface {
	CropFace(ctx context.Context, im *Image) (*AlignedFace, error)
}

// AlignedFace is the output of face cropping: the face raster (224x224
// from the default FaceCropProvider, 112x112 aligned from
// EmbeddingFaceCropper.Align) plus the detector's original
// box/landmarks/score, retained for
// diagnostics and audit snapshots.
type AlignedFace struct {
	Image     *Image
	Box       BoundingBox
	Landmarks Landmarks
}

// EmbeddingStore persists and searches identity embeddings, decoupling
// the pipeline from the concrete Postgres/pgvector-backed implementation.
type EmbeddingStore interface {
	SaveEmbedding(ctx context.Context, personID string, emb Embedding) error
	SearchNearest(ctx context.Context, emb Embedding, limit int) ([]EmbeddingMatch, error)
}

// EmbeddingMatch is one nearest-neighbor search result.
type EmbeddingMatch struct {
	PersonID   string
	Similarity float64
}

// RemoteVerifyAPI forwards a liveness verdict (and the embedding that
// produced it) to an external verification service, for deployments
// that run detection locally but centralize identity decisions.
type RemoteVerifyAPI interface {
	SubmitVerdict(ctx context.Context, verdict LivenessVerdict, emb Embedding) error
}
