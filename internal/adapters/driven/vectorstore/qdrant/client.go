// Package qdrant implements the VectorStore port against the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*Client)(nil)

const backendName = "qdrant"

// payloadContentKey stores the original chunk text inside the point payload
// so query-time hydration needs no second lookup.
const payloadContentKey = "content"

// Config holds Qdrant connection configuration
type Config struct {
	// Host is the Qdrant hostname
	Host string

	// Port is the Qdrant REST port (default 6333)
	Port int

	// APIKey is sent as the api-key header when set
	APIKey string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// Client is a Qdrant-backed VectorStore over its REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Qdrant client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 6333
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", cfg.Host, port),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Initialize verifies the server is reachable.
func (c *Client) Initialize(ctx context.Context) error {
	var out struct {
		Title string `json:"title"`
	}
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return &domain.VectorStoreError{Backend: backendName, Op: "initialize", Err: err}
	}
	return nil
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	var out struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s/exists", name), nil, &out)
	if err != nil {
		return false, &domain.VectorStoreError{Backend: backendName, Op: "collection exists", Err: err}
	}
	return out.Result.Exists, nil
}

func (c *Client) CreateCollection(ctx context.Context, name string, params driven.CollectionParams) error {
	if params.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     params.Dimension,
			"distance": qdrantDistance(params.Distance),
		},
	}
	if err := c.do(ctx, http.MethodPut, "/collections/"+name, body, nil); err != nil {
		return &domain.VectorStoreError{Backend: backendName, Op: "create collection", Err: err}
	}
	return nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil); err != nil {
		return &domain.VectorStoreError{Backend: backendName, Op: "delete collection", Err: err}
	}
	return nil
}

func (c *Client) UpsertPoints(ctx context.Context, collectionName string, points []*domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]map[string]any, len(points))
	for i, p := range points {
		qdrantPoints[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": pointPayload(p),
		}
	}

	body := map[string]any{"points": qdrantPoints}
	path := fmt.Sprintf("/collections/%s/points?wait=true", collectionName)
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return c.wrapPointsError("upsert points", err)
	}
	return nil
}

func (c *Client) GetPoint(ctx context.Context, collectionName, id string) (*domain.Point, error) {
	var out struct {
		Result *qdrantPoint `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/%s", collectionName, id)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, c.wrapPointsError("get point", err)
	}
	if out.Result == nil {
		return nil, domain.ErrNotFound
	}
	return out.Result.toDomain(), nil
}

func (c *Client) DeletePoint(ctx context.Context, collectionName, id string) error {
	body := map[string]any{"points": []string{id}}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collectionName)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return c.wrapPointsError("delete point", err)
	}
	return nil
}

func (c *Client) DeleteByDocument(ctx context.Context, collectionName string, documentID int64) (int, error) {
	filter := documentFilter(documentID)

	// Count first; the delete endpoint does not report how many points matched.
	var countOut struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	countBody := map[string]any{"exact": true, "filter": filter}
	countPath := fmt.Sprintf("/collections/%s/points/count", collectionName)
	if err := c.do(ctx, http.MethodPost, countPath, countBody, &countOut); err != nil {
		return 0, c.wrapPointsError("count document points", err)
	}
	if countOut.Result.Count == 0 {
		return 0, nil
	}

	body := map[string]any{"filter": filter}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collectionName)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return 0, c.wrapPointsError("delete document points", err)
	}
	return int(countOut.Result.Count), nil
}

func (c *Client) CountPoints(ctx context.Context, collectionName string) (int64, error) {
	var out struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	path := fmt.Sprintf("/collections/%s/points/count", collectionName)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return 0, c.wrapPointsError("count points", err)
	}
	return out.Result.Count, nil
}

func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, params driven.SearchParams) ([]*domain.ScoredPoint, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if params.MinScore > 0 {
		body["score_threshold"] = params.MinScore
	}
	if params.Filter.DocumentID != 0 {
		body["filter"] = documentFilter(params.Filter.DocumentID)
	}

	var out struct {
		Result []struct {
			qdrantPoint
			Score float32 `json:"score"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", collectionName)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, c.wrapPointsError("search", err)
	}

	results := make([]*domain.ScoredPoint, 0, len(out.Result))
	for _, r := range out.Result {
		results = append(results, &domain.ScoredPoint{
			Point: *r.toDomain(),
			Score: r.Score,
		})
	}
	return results, nil
}

// Close releases the HTTP connection pool.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// wrapPointsError maps a missing collection to the non-retryable setup error
// and everything else to a retryable VectorStoreError.
func (c *Client) wrapPointsError(op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrCollectionNotFound)
	}
	return &domain.VectorStoreError{Backend: backendName, Op: op, Err: err}
}

// qdrantPoint is the wire shape of a point with payload.
type qdrantPoint struct {
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload"`
	Vector  []float32      `json:"vector,omitempty"`
}

func (p *qdrantPoint) toDomain() *domain.Point {
	out := &domain.Point{ID: p.ID, Vector: p.Vector}
	if p.Payload == nil {
		return out
	}
	if v, ok := p.Payload[payloadContentKey].(string); ok {
		out.Content = v
	}

	// Round-trip the payload map through JSON into the typed form.
	raw, err := json.Marshal(p.Payload)
	if err == nil {
		_ = json.Unmarshal(raw, &out.Payload)
	}
	return out
}

func pointPayload(p *domain.Point) map[string]any {
	payload := map[string]any{
		"document_id":     p.Payload.DocumentID,
		"title":           p.Payload.Title,
		"section_heading": p.Payload.SectionHeading,
		"heading_level":   p.Payload.HeadingLevel,
		"chunk_index":     p.Payload.ChunkIndex,
		"chunk_total":     p.Payload.ChunkTotal,
		"created_at":      p.Payload.CreatedAt.Format(time.RFC3339),
		"type":            p.Payload.Type,
		payloadContentKey: p.Content,
	}
	if p.Payload.ParentHeading != "" {
		payload["parent_heading"] = p.Payload.ParentHeading
	}
	if p.Payload.Description != "" {
		payload["description"] = p.Payload.Description
	}
	return payload
}

// documentFilter matches every point of one document.
func documentFilter(documentID int64) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "document_id", "match": map[string]any{"value": documentID}},
		},
	}
}

func qdrantDistance(d driven.Distance) string {
	switch d {
	case driven.DistanceDot:
		return "Dot"
	case driven.DistanceEuclidean:
		return "Euclid"
	default:
		return "Cosine"
	}
}

// statusError carries the HTTP status of a failed Qdrant call.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant returned status %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

// do performs one REST call and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
