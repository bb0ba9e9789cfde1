package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceliveness/internal/models"
	"github.com/your-org/faceliveness/internal/observability"
	"github.com/your-org/faceliveness/internal/queue"
	"github.com/your-org/faceliveness/internal/storage"
	"github.com/your-org/faceliveness/internal/vision"
	"github.com/your-org/faceliveness/pkg/dto"
)

// VerifyHandler exposes the detect_liveness pipeline over HTTP.
type VerifyHandler struct {
	pipeline *vision.Pipeline
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewVerifyHandler(pipeline *vision.Pipeline, db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *VerifyHandler {
	return &VerifyHandler{pipeline: pipeline, db: db, minio: minio, producer: producer}
}

// Verify runs detect_liveness on an uploaded image and records the
// verdict to the audit trail.
func (h *VerifyHandler) Verify(c *gin.Context) {
	if h.pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision pipeline not initialized"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	im, err := vision.DecodeImage(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decode image failed: " + err.Error()})
		return
	}

	verdict, err := h.pipeline.DetectLiveness(c.Request.Context(), im)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	observability.VerdictsTotal.WithLabelValues(verdict.Prediction).Inc()

	sourceKey := ""
	if verdict.Prediction != "Live" {
		sourceKey = storage.VerifySnapshotKey(header.Filename)
		if h.minio != nil {
			_ = h.minio.PutObject(c.Request.Context(), sourceKey, data, header.Header.Get("Content-Type"))
		}
	}
	if h.db != nil {
		event := h.toEvent(verdict, nil, sourceKey)
		if err := h.db.CreateVerdictEvent(c.Request.Context(), event); err != nil {
			// Audit-trail writes never block the response.
		} else if h.producer != nil {
			_ = h.producer.PublishVerdict(c.Request.Context(), dto.WSEvent{
				Type: "verdict",
				Data: dto.VerdictEventResponse{
					ID:            event.ID,
					Prediction:    event.Prediction,
					Confidence:    event.Confidence,
					FailureReason: event.FailureReason,
					ImageURL:      "/v1/verdicts/" + event.ID.String() + "/image",
					CreatedAt:     event.CreatedAt.Format("2006-01-02T15:04:05Z"),
				},
			})
		}
	}

	c.JSON(http.StatusOK, toVerifyResponse(verdict))
}

func (h *VerifyHandler) toEvent(verdict vision.LivenessVerdict, personID *string, imageKey string) *models.VerdictEvent {
	ev := &models.VerdictEvent{
		Prediction:    verdict.Prediction,
		Confidence:    verdict.Confidence,
		FailureReason: verdict.FailureReason,
		ImageKey:      imageKey,
	}
	if verdict.LivenessScores != nil {
		ev.LivenessScores, _ = json.Marshal(verdict.LivenessScores)
	}
	if verdict.OcclusionScores != nil {
		ev.OcclusionScores, _ = json.Marshal(verdict.OcclusionScores)
	}
	return ev
}

func toVerifyResponse(v vision.LivenessVerdict) dto.VerifyResponse {
	resp := dto.VerifyResponse{
		Prediction:    v.Prediction,
		Confidence:    v.Confidence,
		FailureReason: v.FailureReason,
	}
	if v.LivenessScores != nil {
		resp.LivenessScores = &dto.ScoresDTO{NameA: v.LivenessScores.NameA, A: v.LivenessScores.A, NameB: v.LivenessScores.NameB, B: v.LivenessScores.B}
	}
	if v.OcclusionScores != nil {
		resp.OcclusionScores = &dto.ScoresDTO{NameA: v.OcclusionScores.NameA, A: v.OcclusionScores.A, NameB: v.OcclusionScores.NameB, B: v.OcclusionScores.B}
	}
	return resp
}
