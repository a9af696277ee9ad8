/*
Package qdrant is a thin REST client for a Qdrant collection, exposed as a
memory.VectorStore. Every point carries its namespace in the payload and every
operation filters on it, so tenants never see each other's records.
*/
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ybryxcapital/agentcore/pkg/memory"
)

// Client wraps an endpoint + collection.
type Client struct {
	Endpoint   string // e.g. http://localhost:6333
	Collection string // e.g. "agent_memory"
	httpClient *http.Client
}

// New returns a Client with sane defaults.
func New(endpoint, collection string) *Client {
	return &Client{
		Endpoint:   endpoint,
		Collection: collection,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// StoreRecord upserts one record as a point. A missing id is generated here so
// the caller always gets back the id it can link from the relational row.
func (client *Client) StoreRecord(ctx context.Context, record memory.Record) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	body := map[string]any{
		"points": []map[string]any{
			{
				"id":      record.ID,
				"vector":  record.Embedding,
				"payload": payloadFromRecord(record),
			},
		},
	}

	if err := client.do(ctx, http.MethodPut, "/points?wait=true", body, nil); err != nil {
		return "", err
	}

	return record.ID, nil
}

// SearchSimilar runs a scored vector search constrained to the query's
// namespace, and optionally to a session and tag set.
func (client *Client) SearchSimilar(ctx context.Context, query memory.VectorQuery) ([]memory.Record, error) {
	must := []map[string]any{
		{"key": "namespace", "match": map[string]any{"value": query.Namespace}},
	}

	if query.SessionID != "" {
		must = append(must, map[string]any{
			"key": "session_id", "match": map[string]any{"value": query.SessionID},
		})
	}

	for _, tag := range query.Tags {
		must = append(must, map[string]any{
			"key": "tags", "match": map[string]any{"value": tag},
		})
	}

	body := map[string]any{
		"vector":       query.Embedding,
		"limit":        query.Limit,
		"filter":       map[string]any{"must": must},
		"with_payload": true,
	}

	var out struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	if err := client.do(ctx, http.MethodPost, "/points/search", body, &out); err != nil {
		return nil, err
	}

	records := make([]memory.Record, 0, len(out.Result))

	for _, hit := range out.Result {
		record := recordFromPayload(hit.ID, hit.Payload)
		// Cosine scores land in [-1, 1]; the scorer wants [0, 1].
		record.Similarity = (hit.Score + 1) / 2
		records = append(records, record)
	}

	return records, nil
}

// DeleteOlderThan removes every point in the namespace created before the
// cutoff, optionally restricted to one kind. Qdrant's delete-by-filter does
// not report how many points it removed, so we count first.
func (client *Client) DeleteOlderThan(ctx context.Context, namespace string, cutoff time.Time, kind memory.Kind) (int, error) {
	must := []map[string]any{
		{"key": "namespace", "match": map[string]any{"value": namespace}},
		{"key": "created_at", "range": map[string]any{"lt": cutoff.Unix()}},
	}

	if kind != "" {
		must = append(must, map[string]any{
			"key": "kind", "match": map[string]any{"value": string(kind)},
		})
	}

	filter := map[string]any{"must": must}

	var counted struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}

	if err := client.do(ctx, http.MethodPost, "/points/count", map[string]any{
		"filter": filter,
		"exact":  true,
	}, &counted); err != nil {
		return 0, err
	}

	if counted.Result.Count == 0 {
		return 0, nil
	}

	if err := client.do(ctx, http.MethodPost, "/points/delete?wait=true", map[string]any{
		"filter": filter,
	}, nil); err != nil {
		return 0, err
	}

	return counted.Result.Count, nil
}

// Ping verifies the collection exists and the server answers.
func (client *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/collections/%s", client.Endpoint, client.Collection),
		nil,
	)

	if err != nil {
		return err
	}

	resp, err := client.httpClient.Do(req)

	if err != nil {
		return err
	}

	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: ping status %s", resp.Status)
	}

	return nil
}

// EnsureCollection creates the collection if it does not already exist.
func (client *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	if err := client.Ping(ctx); err == nil {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPut,
		fmt.Sprintf("%s/collections/%s", client.Endpoint, client.Collection),
		bytes.NewReader(b),
	)

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.httpClient.Do(req)

	if err != nil {
		return err
	}

	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: create collection status %s", resp.Status)
	}

	return nil
}

func (client *Client) do(ctx context.Context, method, path string, body any, out any) error {
	b, err := json.Marshal(body)

	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		method,
		fmt.Sprintf("%s/collections/%s%s", client.Endpoint, client.Collection, path),
		bytes.NewReader(b),
	)

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.httpClient.Do(req)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: %s %s status %s", method, path, resp.Status)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
