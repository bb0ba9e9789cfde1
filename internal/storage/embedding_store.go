package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/faceliveness/internal/vision"
)

// VisionEmbeddingStore adapts PostgresStore to vision.EmbeddingStore,
// translating between the vision package's string person IDs and
// embedding type and the storage package's uuid.UUID/[]float32 forms.
type VisionEmbeddingStore struct {
	db *PostgresStore
}

func NewVisionEmbeddingStore(db *PostgresStore) *VisionEmbeddingStore {
	return &VisionEmbeddingStore{db: db}
}

func (s *VisionEmbeddingStore) SaveEmbedding(ctx context.Context, personID string, emb vision.Embedding) error {
	id, err := uuid.Parse(personID)
	if err != nil {
		return fmt.Errorf("parse person id: %w", err)
	}
	_, err = s.db.AddFaceEmbedding(ctx, id, []float32(emb), 0, "")
	return err
}

func (s *VisionEmbeddingStore) SearchNearest(ctx context.Context, emb vision.Embedding, limit int) ([]vision.EmbeddingMatch, error) {
	matches, err := s.db.SearchFaces(ctx, []float32(emb), nil, 0, limit)
	if err != nil {
		return nil, err
	}
	result := make([]vision.EmbeddingMatch, 0, len(matches))
	for _, m := range matches {
		result = append(result, vision.EmbeddingMatch{
			PersonID:   m.PersonID.String(),
			Similarity: float64(m.Score),
		})
	}
	return result, nil
}
