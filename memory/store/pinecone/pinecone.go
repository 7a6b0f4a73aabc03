// Package pinecone is a thin HTTP client for a Pinecone vector index:
// upsert and metadata-filtered query against the index host, plus an
// index-stats probe for readiness.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shellmind/shellmind-api/core"
	"github.com/shellmind/shellmind-api/memory"
)

// UpsertBatchSize caps the number of vectors per upsert call.
const UpsertBatchSize = 100

// Config holds connection settings for one index.
type Config struct {
	// Host is the index endpoint, e.g. "https://myindex-abc123.svc.us-east-1.pinecone.io".
	Host string

	// APIKey is sent as the Api-Key header.
	APIKey string

	// Namespace defaults to memory.Namespace.
	Namespace string

	// Dimensions defaults to memory.EmbeddingDim. The query vector is
	// always the all-zero vector of this length; the metadata filter is
	// the sole selection mechanism.
	Dimensions int

	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client
}

// Store implements memory.Store against the Pinecone HTTP API.
type Store struct {
	host       string
	apiKey     string
	namespace  string
	dimensions int
	httpClient *http.Client
}

// New validates cfg and returns a Store. No network call is made here;
// reachability is checked via Ready.
func New(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("pinecone: host is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: api key is required")
	}

	s := &Store{
		host:       strings.TrimRight(cfg.Host, "/"),
		apiKey:     cfg.APIKey,
		namespace:  cfg.Namespace,
		dimensions: cfg.Dimensions,
		httpClient: cfg.HTTPClient,
	}
	if s.namespace == "" {
		s.namespace = memory.Namespace
	}
	if s.dimensions <= 0 {
		s.dimensions = memory.EmbeddingDim
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if !strings.HasPrefix(s.host, "http") {
		s.host = "https://" + s.host
	}
	return s, nil
}

// recordMetadata is the closed metadata shape attached to every vector.
// Numeric fields are float64 because Pinecone metadata numbers come back
// as JSON numbers.
type recordMetadata struct {
	ConversationID string  `json:"conversationId"`
	Role           string  `json:"role"`
	Content        string  `json:"content"`
	Timestamp      float64 `json:"timestamp"`
	ChunkIndex     float64 `json:"chunkIndex"`
	TotalChunks    float64 `json:"totalChunks"`
	Source         string  `json:"source"`
}

type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata recordMetadata `json:"metadata"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace"`
}

type eqFilter struct {
	Eq string `json:"$eq"`
}

type queryFilter struct {
	ConversationID eqFilter `json:"conversationId"`
}

type queryRequest struct {
	Vector          []float32   `json:"vector"`
	TopK            int         `json:"topK"`
	Namespace       string      `json:"namespace"`
	Filter          queryFilter `json:"filter"`
	IncludeMetadata bool        `json:"includeMetadata"`
	IncludeValues   bool        `json:"includeValues"`
}

type queryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata recordMetadata `json:"metadata"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

// Upsert writes records in batches of at most UpsertBatchSize per call.
// A mid-sequence failure leaves earlier batches in place; the caller
// treats the store as best-effort and does not roll back.
func (s *Store) Upsert(ctx context.Context, records []memory.Record) error {
	for start := 0; start < len(records); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := records[start:end]
		vectors := make([]vector, len(batch))
		for i, r := range batch {
			vectors[i] = vector{
				ID:     r.ID,
				Values: r.Values,
				Metadata: recordMetadata{
					ConversationID: r.ConversationID,
					Role:           string(r.Role),
					Content:        r.Content,
					Timestamp:      float64(r.Timestamp),
					ChunkIndex:     float64(r.ChunkIndex),
					TotalChunks:    float64(r.TotalChunks),
					Source:         r.Source,
				},
			}
		}

		if err := s.post(ctx, "/vectors/upsert", upsertRequest{
			Vectors:   vectors,
			Namespace: s.namespace,
		}, nil); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
		log.Printf("[PINECONE] Upserted %d vectors (batch %d-%d)", len(batch), start, end)
	}
	return nil
}

// Query fetches up to topK records for conversationID. The query vector
// is the all-zero vector; the exact-match filter does the selecting.
func (s *Store) Query(ctx context.Context, conversationID string, topK int) ([]memory.Record, error) {
	if topK <= 0 {
		topK = memory.HistoryTopK
	}

	req := queryRequest{
		Vector:          make([]float32, s.dimensions),
		TopK:            topK,
		Namespace:       s.namespace,
		Filter:          queryFilter{ConversationID: eqFilter{Eq: conversationID}},
		IncludeMetadata: true,
	}

	var resp queryResponse
	if err := s.post(ctx, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	records := make([]memory.Record, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		records = append(records, memory.Record{
			ID:             match.ID,
			ConversationID: match.Metadata.ConversationID,
			Role:           core.Role(match.Metadata.Role),
			Content:        match.Metadata.Content,
			Timestamp:      int64(match.Metadata.Timestamp),
			ChunkIndex:     int(match.Metadata.ChunkIndex),
			TotalChunks:    int(match.Metadata.TotalChunks),
			Source:         match.Metadata.Source,
		})
	}
	return records, nil
}

// Ready probes the index stats endpoint.
func (s *Store) Ready(ctx context.Context) error {
	return s.post(ctx, "/describe_index_stats", struct{}{}, nil)
}

// Close is a no-op; the client holds no persistent connections beyond
// the shared HTTP transport.
func (s *Store) Close() error {
	return nil
}

// post issues one JSON request to the index host and decodes the
// response into out when out is non-nil.
func (s *Store) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

var _ memory.Store = (*Store)(nil)
