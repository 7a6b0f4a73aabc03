// Package chromem implements memory.Store over chromem-go, a pure Go
// embedded vector database. It lets the service run without Pinecone
// credentials and backs the conversation-store tests.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/shellmind/shellmind-api/core"
	"github.com/shellmind/shellmind-api/memory"
)

// Store keeps conversation records in a single in-process collection,
// filtered by conversationId metadata on query.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int
}

// New creates an embedded store.
func New() (*Store, error) {
	db := chromem.NewDB()

	collection, err := db.GetOrCreateCollection(
		memory.Namespace,
		nil, // no collection metadata
		nil, // embeddings are provided by the caller
	)
	if err != nil {
		return nil, fmt.Errorf("chromem: create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: collection,
		dimensions: memory.EmbeddingDim,
	}, nil
}

// Upsert stores each record as one document. Record IDs carry the
// timestamp and chunk index, so saves never collide.
func (s *Store) Upsert(ctx context.Context, records []memory.Record) error {
	for _, r := range records {
		doc := chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Embedding: r.Values,
			Metadata: map[string]string{
				"conversationId": r.ConversationID,
				"role":           string(r.Role),
				"timestamp":      strconv.FormatInt(r.Timestamp, 10),
				"chunkIndex":     strconv.Itoa(r.ChunkIndex),
				"totalChunks":    strconv.Itoa(r.TotalChunks),
				"source":         r.Source,
			},
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("chromem: add document %s: %w", r.ID, err)
		}
	}
	log.Printf("[CHROMEM] Stored %d records", len(records))
	return nil
}

// Query returns the records filtered to conversationID. chromem has no
// filter-only lookup, so the query embedding is a fixed unit basis
// vector (cosine distance is undefined for the zero vector); similarity
// scores are ignored.
func (s *Store) Query(ctx context.Context, conversationID string, topK int) ([]memory.Record, error) {
	if topK <= 0 {
		topK = memory.HistoryTopK
	}
	if count := s.collection.Count(); count < topK {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	where := map[string]string{"conversationId": conversationID}

	// chromem rejects nResults larger than the filtered document count,
	// which is unknowable up front; shrink until the query succeeds.
	var results []chromem.Result
	for limit := topK; limit >= 1; limit-- {
		var err error
		results, err = s.collection.QueryEmbedding(ctx, s.basisVector(), limit, where, nil)
		if err == nil {
			break
		}
		if isTooFewDocsError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem: query: %w", err)
	}

	records := make([]memory.Record, 0, len(results))
	for _, result := range results {
		records = append(records, recordFromResult(result))
	}
	return records, nil
}

// Ready always succeeds; the store lives in-process.
func (s *Store) Ready(context.Context) error {
	return nil
}

// Close is a no-op; chromem keeps everything in memory.
func (s *Store) Close() error {
	return nil
}

func (s *Store) basisVector() []float32 {
	vec := make([]float32, s.dimensions)
	vec[0] = 1
	return vec
}

func recordFromResult(result chromem.Result) memory.Record {
	ts, _ := strconv.ParseInt(result.Metadata["timestamp"], 10, 64)
	chunkIndex, _ := strconv.Atoi(result.Metadata["chunkIndex"])
	totalChunks, _ := strconv.Atoi(result.Metadata["totalChunks"])

	return memory.Record{
		ID:             result.ID,
		ConversationID: result.Metadata["conversationId"],
		Role:           core.Role(result.Metadata["role"]),
		Content:        result.Content,
		Timestamp:      ts,
		ChunkIndex:     chunkIndex,
		TotalChunks:    totalChunks,
		Source:         result.Metadata["source"],
	}
}

func isTooFewDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

var _ memory.Store = (*Store)(nil)
