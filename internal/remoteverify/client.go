// Package remoteverify implements the RemoteVerifyAPI collaborator: an
// HTTP client that forwards a liveness verdict and its embedding to an
// external verification service, for deployments that run detection
// locally but centralize identity decisions.
package remoteverify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/your-org/faceliveness/internal/vision"
)

// Client posts verdicts to a remote verification service over HTTP.
// The stdlib mime/multipart writer is used directly — no pack repository
// carries a multipart-upload library, and mime/multipart is the
// idiomatic way to build this request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type verdictPayload struct {
	Prediction    string            `json:"prediction"`
	Confidence    float64           `json:"confidence"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Embedding     vision.Embedding  `json:"embedding"`
}

// SubmitVerdict forwards a locally-computed liveness verdict and
// embedding to the remote service (vision.RemoteVerifyAPI).
func (c *Client) SubmitVerdict(ctx context.Context, verdict vision.LivenessVerdict, emb vision.Embedding) error {
	payload := verdictPayload{
		Prediction:    verdict.Prediction,
		Confidence:    verdict.Confidence,
		FailureReason: verdict.FailureReason,
		Embedding:     emb,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal verdict payload: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormField("verdict")
	if err != nil {
		return fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := part.Write(encoded); err != nil {
		return fmt.Errorf("write verdict part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit verdict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote verify returned status %d: %s", resp.StatusCode, data)
	}
	return nil
}
