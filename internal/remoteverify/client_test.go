package remoteverify

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/faceliveness/internal/vision"
)

func TestSubmitVerdictSendsMultipartPayload(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotPayload verdictPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("verdict")), &gotPayload))
		_ = params

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	err := c.SubmitVerdict(context.Background(), vision.LivenessVerdict{
		Prediction: "Live",
		Confidence: 0.93,
	}, vision.Embedding{0.1, 0.2, 0.3})

	require.NoError(t, err)
	require.Equal(t, "/verify", gotPath)
	require.Equal(t, "secret-key", gotAPIKey)
	require.Equal(t, "Live", gotPayload.Prediction)
	require.InDelta(t, 0.93, gotPayload.Confidence, 1e-9)
	require.Len(t, gotPayload.Embedding, 3)
}

func TestSubmitVerdictPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.SubmitVerdict(context.Background(), vision.LivenessVerdict{Prediction: "Live"}, vision.Embedding{0.1})
	require.Error(t, err)
}

func TestSubmitVerdictRespectsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.SubmitVerdict(ctx, vision.LivenessVerdict{Prediction: "Live"}, vision.Embedding{0.1})
	require.Error(t, err)
}
