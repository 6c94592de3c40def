// Package embedclient implements the client side of spec.md §6's
// "Retrieval-subsystem interface": an embeddings/caption service reached
// over HTTP, used only to compute a query embedding for the visual-
// similarity path. Indexing reference imagery and ranking both stay
// out of this client's job — ranking happens in pkg/retrieval.VisualEngine
// against vectors pkg/store already has, so this client only ever calls
// /index for a query image and reads back its embedding.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a thin HTTP client for the embeddings/caption sidecar.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://localhost:8088").
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

type indexRequest struct {
	ImageRef string `json:"image_ref"`
	JobID    string `json:"job_id,omitempty"`
}

type indexResponse struct {
	Caption      string    `json:"caption"`
	EmbeddingDim int       `json:"embedding_dim"`
	Embedding    []float64 `json:"embedding"`
}

// Embed satisfies pkg/strategy.Embedder: it asks the sidecar to index
// imageRef and returns the resulting embedding, treating any transport or
// decode failure as "embeddings subsystem unavailable" per spec.md §4.B's
// never-fatal failure policy — callers translate a non-nil error directly
// into a degraded/unavailable visual path rather than a job error.
func (c *Client) Embed(ctx context.Context, imageRef string) ([]float64, error) {
	body, err := json.Marshal(indexRequest{ImageRef: imageRef})
	if err != nil {
		return nil, fmt.Errorf("marshal index request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/index", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call embeddings service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings service returned status %d", resp.StatusCode)
	}

	var out indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode index response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings service returned no embedding")
	}
	return out.Embedding, nil
}
