package memory

import (
	"context"

	"github.com/shellmind/shellmind-api/core"
)

const (
	// EmbeddingDim is the fixed vector dimension shared by the embedder
	// and every configured index.
	EmbeddingDim = 1024

	// DefaultMaxChunkSize bounds the character length of a stored chunk.
	DefaultMaxChunkSize = 512

	// HistoryTopK bounds the number of chunk records fetched per
	// conversation, assumed sufficient for a conversation's total chunk
	// count.
	HistoryTopK = 100

	// Namespace is the vector-store namespace holding conversation turns.
	Namespace = "conversations"

	// SourceUser and SourceAssistant tag which side of the exchange a
	// record came from.
	SourceUser      = "user-message"
	SourceAssistant = "assistant-message"
)

// Record is one stored chunk of a conversation turn. For a given
// (ConversationID, Role, Timestamp) triple all chunks share the triple
// and are distinguished by ChunkIndex in [0, TotalChunks). Records are
// created at save time, never mutated, and never deleted by this system;
// retention is the store's concern.
type Record struct {
	ID             string
	Values         []float32
	ConversationID string
	Role           core.Role
	Content        string
	Timestamp      int64
	ChunkIndex     int
	TotalChunks    int
	Source         string
}

// Store is the vector storage backend.
// Implementations: pinecone.Store (production, raw HTTP),
// chromem.Store (embedded, local runs and tests).
type Store interface {
	// Upsert writes records, batching as the backend requires.
	Upsert(ctx context.Context, records []Record) error

	// Query returns records whose metadata matches the conversation
	// identifier, up to topK. Selection is pure metadata filtering; no
	// similarity ranking is implied.
	Query(ctx context.Context, conversationID string, topK int) ([]Record, error)

	// Ready reports whether the backend is reachable.
	Ready(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Embedder converts a text chunk to a fixed-length vector.
// The shipped implementation is pseudo.Embedder, a deterministic
// non-semantic fingerprint. Dimensions must equal the index dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
