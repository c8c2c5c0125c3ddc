// Package pinecone is a minimal client for a Pinecone-compatible vector index
// REST API. It implements database.ReferenceWriter.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kozaktomas/faceratio/internal/database"
)

// Client talks to one index host.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

// New creates a client. host may omit the scheme, in which case https is used.
func New(host, apiKey string) (*Client, error) {
	if host == "" {
		return nil, errors.New("pinecone host is required")
	}
	if apiKey == "" {
		return nil, errors.New("pinecone API key is required")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid pinecone host: %w", err)
	}
	return &Client{
		baseURL:    u,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type upsertRequest struct {
	Vectors []vector `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type statsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
}

// readErrorBody reads the response body for error messages.
// Returns empty string if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}

// doPostJSON performs a POST request with a JSON body and unmarshals the JSON response.
func doPostJSON[T any](ctx context.Context, c *Client, endpoint string, requestBody any) (*T, error) {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(endpoint).String(), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}

// Query returns the topK nearest references in the order the index ranks them.
func (c *Client) Query(ctx context.Context, values []float32, topK int) ([]database.Neighbor, error) {
	resp, err := doPostJSON[queryResponse](ctx, c, "query", queryRequest{
		Vector:          values,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	out := make([]database.Neighbor, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, database.Neighbor{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: metadataFromMap(m.Metadata),
		})
	}
	return out, nil
}

// Upsert writes references in a single request.
func (c *Client) Upsert(ctx context.Context, refs []database.ReferenceVector) error {
	if len(refs) == 0 {
		return nil
	}
	req := upsertRequest{Vectors: make([]vector, 0, len(refs))}
	for _, r := range refs {
		req.Vectors = append(req.Vectors, vector{ID: r.ID, Values: r.Values, Metadata: metadataToMap(r.Metadata)})
	}

	resp, err := doPostJSON[upsertResponse](ctx, c, "vectors/upsert", req)
	if err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	if resp.UpsertedCount != len(refs) {
		return fmt.Errorf("pinecone upsert: stored %d of %d vectors", resp.UpsertedCount, len(refs))
	}
	return nil
}

// Count returns the total number of vectors in the index.
func (c *Client) Count(ctx context.Context) (int, error) {
	resp, err := doPostJSON[statsResponse](ctx, c, "describe_index_stats", struct{}{})
	if err != nil {
		return 0, fmt.Errorf("pinecone stats: %w", err)
	}
	return resp.TotalVectorCount, nil
}

func metadataToMap(m database.ReferenceMetadata) map[string]any {
	out := map[string]any{"name": m.Name}
	for k, v := range map[string]string{
		"description": m.Description,
		"advice":      m.Advice,
		"imageUrl":    m.ImageURL,
		"category":    m.Category,
		"era":         m.Era,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func metadataFromMap(m map[string]any) database.ReferenceMetadata {
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	md := database.ReferenceMetadata{
		Name:        str("name"),
		Description: str("description"),
		Advice:      str("advice"),
		ImageURL:    str("imageUrl"),
		Category:    str("category"),
		Era:         str("era"),
	}
	if md.Name == "" {
		md.Name = "Unknown"
	}
	return md
}
