// Package vector provides embedding-backed semantic memory over the
// conversation history. Memories are persisted alongside their embeddings so
// recall works across sessions without re-embedding.
package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/pkg/embeddings"
	"github.com/mythos-rpg/mythos/pkg/storage"
)

const (
	// SimilarityThreshold is the minimum cosine similarity for a memory to
	// count as relevant. Results at or below it are dropped.
	SimilarityThreshold = 0.35

	// DefaultSearchLimit caps the number of memories returned when the
	// caller asks for zero or fewer.
	DefaultSearchLimit = 5

	// backfillDelay spaces out embedding calls during a backfill so a
	// loaded save doesn't hammer the embedding provider.
	backfillDelay = 200 * time.Millisecond
)

// MemoryVector is one persisted memory: the text of a turn plus its
// embedding and enough metadata to present it in a prompt.
type MemoryVector struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Timestamp int64     `json:"timestamp"`
	Role      string    `json:"role"`
}

// SearchResult is a memory with its similarity to the query.
type SearchResult struct {
	MemoryVector

	// Score is the cosine similarity to the query (higher = more similar).
	Score float64
}

// MemoryID derives the storage key for a turn's memory. The same turn always
// maps to the same key, which is what makes saves idempotent.
func MemoryID(timestamp int64, role string) string {
	return "msg-" + strconv.FormatInt(timestamp, 10) + "-" + role
}

// CosineSimilarity computes the cosine similarity of two vectors. Mismatched
// lengths or a zero-magnitude vector yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// IndexDocument is one entry handed to a KNN index.
type IndexDocument struct {
	ID        string
	Text      string
	Embedding []float32
}

// IndexMatch is one KNN candidate: a memory key and its similarity score.
type IndexMatch struct {
	ID    string
	Score float32
}

// Index is an optional KNN accelerator. When configured, Search asks the
// index for candidates instead of scanning every stored vector.
type Index interface {
	Add(ctx context.Context, docs []IndexDocument) error
	Query(ctx context.Context, embedding []float32, topK int) ([]IndexMatch, error)
}

// Memory stores and recalls turn memories using an embedder for similarity.
type Memory struct {
	store    storage.Driver
	embedder embeddings.Embedder
	index    Index
	logger   *zap.Logger
}

// NewMemory creates a semantic memory over the given store and embedder.
func NewMemory(store storage.Driver, embedder embeddings.Embedder, logger *zap.Logger) *Memory {
	return &Memory{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// WithIndex attaches a KNN index. Saved memories are mirrored into the index
// and Search prefers it over a full scan.
func (m *Memory) WithIndex(idx Index) *Memory {
	m.index = idx
	return m
}

// Save embeds and persists one turn's text. Saving the same turn twice is a
// no-op. Embedding failures are logged and swallowed: memory is a
// best-effort enrichment, never a reason to fail a turn.
func (m *Memory) Save(ctx context.Context, role, text string, timestamp int64) error {
	id := MemoryID(timestamp, role)

	exists, err := m.store.Has(ctx, storage.CollectionVectors, id)
	if err != nil {
		return fmt.Errorf("checking memory %s: %w", id, err)
	}
	if exists {
		return nil
	}

	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		m.logger.Warn("skipping memory, embedding failed",
			zap.String("id", id),
			zap.Error(err),
		)
		return nil
	}

	mv := MemoryVector{
		ID:        id,
		Text:      text,
		Embedding: embedding,
		Timestamp: timestamp,
		Role:      role,
	}

	value, err := json.Marshal(mv)
	if err != nil {
		return fmt.Errorf("marshaling memory %s: %w", id, err)
	}

	if err := m.store.Put(ctx, storage.CollectionVectors, id, value); err != nil {
		return err
	}

	if m.index != nil {
		doc := IndexDocument{ID: id, Text: text, Embedding: embedding}
		if err := m.index.Add(ctx, []IndexDocument{doc}); err != nil {
			m.logger.Warn("memory saved but not indexed",
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Search returns the memories most similar to the query, best first. Only
// results strictly above SimilarityThreshold are returned, at most limit of
// them. A failed query embedding fails closed: no memories, no error.
func (m *Memory) Search(ctx context.Context, query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	queryEmbedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.logger.Warn("memory search skipped, query embedding failed", zap.Error(err))
		return nil
	}

	if m.index != nil {
		results, err := m.searchIndexed(ctx, queryEmbedding, limit)
		if err == nil {
			return results
		}
		m.logger.Warn("index query failed, falling back to scan", zap.Error(err))
	}

	return m.searchScan(ctx, queryEmbedding, limit)
}

// searchIndexed asks the KNN index for candidates, then rehydrates each match
// from storage and rescores it so the similarity threshold applies uniformly.
func (m *Memory) searchIndexed(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	matches, err := m.index.Query(ctx, queryEmbedding, limit)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, match := range matches {
		value, err := m.store.Get(ctx, storage.CollectionVectors, match.ID)
		if err != nil {
			m.logger.Warn("indexed memory missing from storage",
				zap.String("id", match.ID),
				zap.Error(err),
			)
			continue
		}

		var mv MemoryVector
		if err := json.Unmarshal(value, &mv); err != nil {
			m.logger.Warn("skipping undecodable memory",
				zap.String("id", match.ID),
				zap.Error(err),
			)
			continue
		}

		score := CosineSimilarity(queryEmbedding, mv.Embedding)
		if score <= SimilarityThreshold {
			continue
		}

		results = append(results, SearchResult{MemoryVector: mv, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (m *Memory) searchScan(ctx context.Context, queryEmbedding []float32, limit int) []SearchResult {
	records, err := m.store.List(ctx, storage.CollectionVectors)
	if err != nil {
		m.logger.Warn("memory search skipped, listing vectors failed", zap.Error(err))
		return nil
	}

	var results []SearchResult
	for _, rec := range records {
		var mv MemoryVector
		if err := json.Unmarshal(rec.Value, &mv); err != nil {
			m.logger.Warn("skipping undecodable memory",
				zap.String("key", rec.Key),
				zap.Error(err),
			)
			continue
		}

		score := CosineSimilarity(queryEmbedding, mv.Embedding)
		if score <= SimilarityThreshold {
			continue
		}

		results = append(results, SearchResult{MemoryVector: mv, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results
}

// BackfillItem is one turn queued for backfill.
type BackfillItem struct {
	Role      string
	Text      string
	Timestamp int64
}

// Backfill saves memories for turns that predate vector storage, one at a
// time with a fixed delay between embedding calls. Already-vectorized turns
// pass through without delaying, so re-running over a mostly-saved history is
// cheap. Individual failures are logged and skipped. Returns the number of
// items processed without error.
func (m *Memory) Backfill(ctx context.Context, items []BackfillItem) int {
	saved := 0
	embedded := false
	for i, item := range items {
		if ctx.Err() != nil {
			m.logger.Info("backfill cancelled",
				zap.Int("processed", i),
				zap.Int("total", len(items)),
			)
			return saved
		}

		id := MemoryID(item.Timestamp, item.Role)
		if exists, err := m.store.Has(ctx, storage.CollectionVectors, id); err == nil && exists {
			saved++
			continue
		}

		// The delay only spaces out actual embedding calls.
		if embedded {
			select {
			case <-time.After(backfillDelay):
			case <-ctx.Done():
				return saved
			}
		}

		if err := m.Save(ctx, item.Role, item.Text, item.Timestamp); err != nil {
			m.logger.Warn("backfill item failed",
				zap.String("id", id),
				zap.Error(err),
			)
			continue
		}
		saved++
		embedded = true
	}

	m.logger.Info("backfill complete",
		zap.Int("saved", saved),
		zap.Int("total", len(items)),
	)

	return saved
}

// StartBackfill runs Backfill on its own goroutine. The caller keeps playing
// while older turns are embedded in the background.
func (m *Memory) StartBackfill(ctx context.Context, items []BackfillItem) {
	go m.Backfill(ctx, items)
}
