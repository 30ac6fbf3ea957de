package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

// Client implements ports.VectorIndex over the Qdrant REST API. Collections
// are created lazily on first upsert; querying or counting an absent
// collection reports an empty collection instead of an error.
type Client struct {
	baseURL    string
	vectorSize int
	httpClient *http.Client

	mu      sync.Mutex
	ensured map[string]bool
}

func NewClient(baseURL string, vectorSize int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		vectorSize: vectorSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		ensured:    make(map[string]bool),
	}
}

type pointPayload struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, collection string, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx, collection); err != nil {
		return err
	}

	body := make([]pointPayload, len(points))
	for i, p := range points {
		payload := map[string]any{"text": p.Text}
		for k, v := range p.Metadata {
			payload[k] = v
		}
		body[i] = pointPayload{ID: p.ID, Vector: p.Vector, Payload: payload}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	return c.do(ctx, http.MethodPut, path, map[string]any{"points": body}, nil)
}

func (c *Client) Query(ctx context.Context, collection string, vector []float32, topK int) ([]domain.ContextPassage, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	var response struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", collection)
	err := c.do(ctx, http.MethodPost, path, reqBody, &response)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	passages := make([]domain.ContextPassage, 0, len(response.Result))
	for _, hit := range response.Result {
		text, _ := hit.Payload["text"].(string)
		metadata := make(map[string]any, len(hit.Payload))
		for k, v := range hit.Payload {
			if k == "text" {
				continue
			}
			metadata[k] = v
		}
		passages = append(passages, domain.ContextPassage{
			Text: text,
			// Cosine similarity from the API becomes a distance so callers
			// sort ascending.
			Distance: 1 - hit.Score,
			Metadata: metadata,
		})
	}
	return passages, nil
}

func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	var response struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/count", collection)
	err := c.do(ctx, http.MethodPost, path, map[string]any{"exact": true}, &response)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return response.Result.Count, nil
}

func (c *Client) Clear(ctx context.Context, collection string) error {
	err := c.do(ctx, http.MethodDelete, "/collections/"+collection, nil, nil)
	if isNotFound(err) {
		err = nil
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.ensured, collection)
	c.mu.Unlock()
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, collection string) error {
	c.mu.Lock()
	done := c.ensured[collection]
	c.mu.Unlock()
	if done {
		return nil
	}

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.do(ctx, http.MethodPut, "/collections/"+collection, reqBody, nil)
	// 409 means another writer created it first.
	var statusErr *statusError
	if err != nil && !(errors.As(err, &statusErr) && statusErr.code == http.StatusConflict) {
		return err
	}

	c.mu.Lock()
	c.ensured[collection] = true
	c.mu.Unlock()
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant returned status %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var reader io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > 512 {
			body = body[:512]
		}
		return &statusError{code: resp.StatusCode, body: string(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
