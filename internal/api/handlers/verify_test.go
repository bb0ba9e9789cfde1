package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceliveness/internal/vision"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestVerifyHandlerRejectsWithoutPipeline(t *testing.T) {
	h := NewVerifyHandler(nil, nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/verify", nil)

	h.Verify(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVerifyHandlerRequiresImageField(t *testing.T) {
	h := NewVerifyHandler(&vision.Pipeline{}, nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/verify", nil)
	c.Request.Header.Set("Content-Type", "multipart/form-data; boundary=x")

	h.Verify(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToVerifyResponseMapsScores(t *testing.T) {
	v := vision.LivenessVerdict{
		Prediction:     "Live",
		Confidence:     0.91,
		LivenessScores: &vision.Scores{NameA: "live", A: 0.9, NameB: "spoof", B: 0.1},
	}
	resp := toVerifyResponse(v)
	require.Equal(t, "Live", resp.Prediction)
	require.NotNil(t, resp.LivenessScores)
	require.Equal(t, "live", resp.LivenessScores.NameA)
	require.Nil(t, resp.OcclusionScores)
}

func TestToEventCarriesScoresAsJSON(t *testing.T) {
	h := &VerifyHandler{}
	v := vision.LivenessVerdict{
		Prediction:      "Spoof",
		FailureReason:   "Liveness check failed",
		OcclusionScores: &vision.Scores{NameA: "normal", A: 0.3, NameB: "occluded", B: 0.7},
	}
	ev := h.toEvent(v, nil, "key/path.jpg")
	require.Equal(t, "Spoof", ev.Prediction)
	require.Equal(t, "key/path.jpg", ev.ImageKey)
	require.Contains(t, string(ev.OcclusionScores), "occluded")
	require.Empty(t, ev.LivenessScores)
}
