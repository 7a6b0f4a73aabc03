package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/ristretto"

	"github.com/shellmind/shellmind-api/core"
)

const (
	readyAttempts   = 4
	readyBaseDelay  = 500 * time.Millisecond
	historyCacheTTL = 30 * time.Second
)

// Manager composes the chunker, embedder and store into the
// conversation store: it saves a conversation turn as chunk records and
// reconstructs ordered history for a conversation identifier.
//
// The manager is the absorption boundary for store failures: SaveTurn
// reports a boolean, History degrades to an empty slice, and neither
// ever escalates an error to the request path.
type Manager struct {
	store        Store
	embedder     Embedder
	cache        *ristretto.Cache
	maxChunkSize int
	now          func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxChunkSize overrides the chunk size bound.
func WithMaxChunkSize(size int) ManagerOption {
	return func(m *Manager) {
		m.maxChunkSize = size
	}
}

// WithClock overrides the turn-timestamp clock. Used by tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a conversation store over the given backend.
// Backend readiness is probed with a bounded backoff; an unreachable
// backend is logged, not fatal, since the store is best-effort.
func NewManager(ctx context.Context, store Store, embedder Embedder, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("memory: store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("memory: embedder is required")
	}

	m := &Manager{
		store:        store,
		embedder:     embedder,
		maxChunkSize: DefaultMaxChunkSize,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 12,
		MaxCost:     1 << 22,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: history cache: %w", err)
	}
	m.cache = cache

	probe := backoff.NewExponentialBackOff()
	probe.InitialInterval = readyBaseDelay
	probe.MaxElapsedTime = 0

	err = backoff.Retry(func() error {
		return store.Ready(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(probe, readyAttempts), ctx))
	if err != nil {
		log.Printf("[MEMORY] Store not ready after %d attempts, continuing degraded: %v", readyAttempts+1, err)
	}

	return m, nil
}

// SaveTurn persists one exchange: the user message and the assistant
// reply. The assistant turn is stamped one millisecond after the user
// turn so ordering stays deterministic even at millisecond collision.
// Returns false on any failure; partial uploads are possible and not
// rolled back.
func (m *Manager) SaveTurn(ctx context.Context, conversationID, userText, aiText string) bool {
	if conversationID == "" {
		return false
	}

	ts := m.now().UnixMilli()

	userRecords, err := m.buildRecords(ctx, conversationID, core.RoleUser, userText, ts, SourceUser)
	if err != nil {
		log.Printf("[MEMORY] Building user records for %s failed: %v", conversationID, err)
		return false
	}
	aiRecords, err := m.buildRecords(ctx, conversationID, core.RoleAssistant, aiText, ts+1, SourceAssistant)
	if err != nil {
		log.Printf("[MEMORY] Building assistant records for %s failed: %v", conversationID, err)
		return false
	}

	records := append(userRecords, aiRecords...)
	if len(records) == 0 {
		return false
	}

	if err := m.store.Upsert(ctx, records); err != nil {
		log.Printf("[MEMORY] Upsert for %s failed: %v", conversationID, err)
		return false
	}

	m.cache.Del(conversationID)
	log.Printf("[MEMORY] Saved turn for %s (%d records)", conversationID, len(records))
	return true
}

// History retrieves and reconstructs the prior turns of a conversation,
// ordered by timestamp ascending. A failed or empty query yields an
// empty history, never an error.
func (m *Manager) History(ctx context.Context, conversationID string) []core.ChatMessage {
	if conversationID == "" {
		return nil
	}

	if cached, ok := m.cache.Get(conversationID); ok {
		if messages, ok := cached.([]core.ChatMessage); ok {
			return messages
		}
	}

	records, err := m.store.Query(ctx, conversationID, HistoryTopK)
	if err != nil {
		log.Printf("[MEMORY] Query for %s failed, returning empty history: %v", conversationID, err)
		return nil
	}

	messages := reconstruct(records)
	if len(messages) > 0 {
		m.cache.SetWithTTL(conversationID, messages, int64(len(records)), historyCacheTTL)
	}
	return messages
}

// Close releases the cache and the underlying store.
func (m *Manager) Close() error {
	m.cache.Close()
	return m.store.Close()
}

// buildRecords chunks and embeds one side of a turn.
func (m *Manager) buildRecords(ctx context.Context, conversationID string, role core.Role, text string, ts int64, source string) ([]Record, error) {
	chunks := ChunkText(text, m.maxChunkSize)
	if len(chunks) == 0 {
		return nil, nil
	}

	records := make([]Record, 0, len(chunks))
	for i, chunk := range chunks {
		values, err := m.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		records = append(records, Record{
			ID:             fmt.Sprintf("%s-%s-%d-%d", conversationID, role, ts, i),
			Values:         values,
			ConversationID: conversationID,
			Role:           role,
			Content:        chunk,
			Timestamp:      ts,
			ChunkIndex:     i,
			TotalChunks:    len(chunks),
			Source:         source,
		})
	}
	return records, nil
}

// turnKey identifies the original turn a chunk record belongs to.
type turnKey struct {
	role core.Role
	ts   int64
}

// reconstruct regroups unordered chunk records into ordered messages:
// group by (role, timestamp), sort each group by chunk index, join chunk
// contents with single spaces, then sort messages by timestamp. The
// space join is lossy with respect to the original paragraph whitespace.
func reconstruct(records []Record) []core.ChatMessage {
	groups := make(map[turnKey][]Record)
	for _, r := range records {
		if r.Role == "" || r.Content == "" {
			continue
		}
		k := turnKey{role: r.Role, ts: r.Timestamp}
		groups[k] = append(groups[k], r)
	}
	if len(groups) == 0 {
		return nil
	}

	messages := make([]core.ChatMessage, 0, len(groups))
	for k, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].ChunkIndex < group[j].ChunkIndex
		})

		parts := make([]string, len(group))
		for i, r := range group {
			parts[i] = r.Content
		}

		messages = append(messages, core.ChatMessage{
			Role:      k.role,
			Content:   strings.Join(parts, " "),
			Timestamp: k.ts,
		})
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Timestamp != messages[j].Timestamp {
			return messages[i].Timestamp < messages[j].Timestamp
		}
		return messages[i].Role == core.RoleUser && messages[j].Role != core.RoleUser
	})
	return messages
}
