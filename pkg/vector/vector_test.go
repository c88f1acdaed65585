package vector_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/pkg/storage"
	"github.com/mythos-rpg/mythos/pkg/storage/inmemory"
	testutils "github.com/mythos-rpg/mythos/pkg/utils/test"
	"github.com/mythos-rpg/mythos/pkg/vector"
)

// fakeIndex records added documents and answers queries by cosine similarity,
// standing in for the sqlite-vec index.
type fakeIndex struct {
	docs     map[string]vector.IndexDocument
	failAdd  error
	failQry  error
	addCalls int
	qryCalls int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[string]vector.IndexDocument{}}
}

func (f *fakeIndex) Add(_ context.Context, docs []vector.IndexDocument) error {
	f.addCalls++
	if f.failAdd != nil {
		return f.failAdd
	}
	for _, doc := range docs {
		f.docs[doc.ID] = doc
	}
	return nil
}

func (f *fakeIndex) Query(_ context.Context, embedding []float32, topK int) ([]vector.IndexMatch, error) {
	f.qryCalls++
	if f.failQry != nil {
		return nil, f.failQry
	}
	var matches []vector.IndexMatch
	for id, doc := range f.docs {
		matches = append(matches, vector.IndexMatch{
			ID:    id,
			Score: float32(vector.CosineSimilarity(embedding, doc.Embedding)),
		})
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

var _ = Describe("CosineSimilarity", func() {
	It("is 1 for identical vectors", func() {
		v := []float32{0.3, 0.4, 0.5}
		Expect(vector.CosineSimilarity(v, v)).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("is symmetric", func() {
		a := []float32{1, 2, 3}
		b := []float32{-2, 0.5, 4}
		Expect(vector.CosineSimilarity(a, b)).To(Equal(vector.CosineSimilarity(b, a)))
	})

	It("is 0 for orthogonal vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1, 0}, []float32{0, 1})).To(BeZero())
	})

	It("is 0 for zero-magnitude vectors", func() {
		Expect(vector.CosineSimilarity([]float32{0, 0}, []float32{1, 1})).To(BeZero())
	})

	It("is 0 for mismatched lengths", func() {
		Expect(vector.CosineSimilarity([]float32{1}, []float32{1, 0})).To(BeZero())
	})
})

var _ = Describe("MemoryID", func() {
	It("derives the same key for the same turn", func() {
		Expect(vector.MemoryID(1700000000123, "user")).To(Equal("msg-1700000000123-user"))
	})
})

var _ = Describe("Memory", func() {
	var (
		ctx      context.Context
		store    *inmemory.Driver
		embedder *testutils.MockEmbedder
		mem      *vector.Memory
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		embedder = testutils.NewMockEmbedder()
		mem = vector.NewMemory(store, embedder, zap.NewNop())
	})

	Describe("Save", func() {
		It("persists a memory under its derived key", func() {
			Expect(mem.Save(ctx, "user", "the dragon sleeps", 100)).To(Succeed())

			ok, err := store.Has(ctx, storage.CollectionVectors, "msg-100-user")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("does not re-embed an already saved turn", func() {
			Expect(mem.Save(ctx, "user", "the dragon sleeps", 100)).To(Succeed())
			Expect(mem.Save(ctx, "user", "the dragon sleeps", 100)).To(Succeed())

			Expect(embedder.Calls).To(HaveLen(1))
		})

		It("swallows embedding failures without persisting", func() {
			embedder.FailOn = "cursed text"

			Expect(mem.Save(ctx, "user", "cursed text", 100)).To(Succeed())

			n, err := store.Count(ctx, storage.CollectionVectors)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})
	})

	Describe("Search", func() {
		BeforeEach(func() {
			embedder.Embeddings["query"] = []float32{1, 0, 0}
			embedder.Embeddings["exact match"] = []float32{1, 0, 0}
			embedder.Embeddings["close match"] = []float32{0.8, 0.6, 0}
			embedder.Embeddings["weak match"] = []float32{0.2, 0.98, 0}
			embedder.Embeddings["unrelated"] = []float32{0, 1, 0}

			Expect(mem.Save(ctx, "model", "exact match", 1)).To(Succeed())
			Expect(mem.Save(ctx, "model", "close match", 2)).To(Succeed())
			Expect(mem.Save(ctx, "model", "weak match", 3)).To(Succeed())
			Expect(mem.Save(ctx, "model", "unrelated", 4)).To(Succeed())
		})

		It("returns only memories above the similarity threshold, best first", func() {
			results := mem.Search(ctx, "query", 10)

			Expect(results).To(HaveLen(2))
			Expect(results[0].Text).To(Equal("exact match"))
			Expect(results[1].Text).To(Equal("close match"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		})

		It("truncates to the requested limit", func() {
			results := mem.Search(ctx, "query", 1)

			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("exact match"))
		})

		It("fails closed when the query embedding fails", func() {
			embedder.FailOn = "query"
			Expect(mem.Search(ctx, "query", 10)).To(BeEmpty())
		})
	})

	Describe("Backfill", func() {
		It("saves pending items and skips already saved ones", func() {
			Expect(mem.Save(ctx, "user", "already here", 1)).To(Succeed())
			embedCallsBefore := len(embedder.Calls)

			saved := mem.Backfill(ctx, []vector.BackfillItem{
				{Role: "user", Text: "already here", Timestamp: 1},
				{Role: "model", Text: "new memory", Timestamp: 2},
			})

			Expect(saved).To(Equal(2))
			Expect(embedder.Calls).To(HaveLen(embedCallsBefore + 1))

			n, err := store.Count(ctx, storage.CollectionVectors)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})

		It("continues past individual failures", func() {
			embedder.FailOn = "bad"

			saved := mem.Backfill(ctx, []vector.BackfillItem{
				{Role: "user", Text: "bad", Timestamp: 1},
				{Role: "user", Text: "good", Timestamp: 2},
			})

			// The failed embed is swallowed by Save, so both count
			Expect(saved).To(Equal(2))

			n, err := store.Count(ctx, storage.CollectionVectors)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})

		It("does not delay for already-vectorized turns", func() {
			items := []vector.BackfillItem{
				{Role: "user", Text: "one", Timestamp: 1},
				{Role: "model", Text: "two", Timestamp: 2},
				{Role: "user", Text: "three", Timestamp: 3},
			}
			for _, item := range items {
				Expect(mem.Save(ctx, item.Role, item.Text, item.Timestamp)).To(Succeed())
			}

			start := time.Now()
			saved := mem.Backfill(ctx, items)

			Expect(saved).To(Equal(3))
			// A fully vectorized history embeds nothing, so no inter-call
			// delays apply.
			Expect(time.Since(start)).To(BeNumerically("<", 100*time.Millisecond))
		})

		It("stops when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			saved := mem.Backfill(cancelled, []vector.BackfillItem{
				{Role: "user", Text: "x", Timestamp: 1},
			})

			Expect(saved).To(BeZero())
		})
	})
})

var _ = Describe("Memory with index", func() {
	var (
		ctx      context.Context
		store    *inmemory.Driver
		embedder *testutils.MockEmbedder
		idx      *fakeIndex
		mem      *vector.Memory
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		embedder = testutils.NewMockEmbedder()
		idx = newFakeIndex()
		mem = vector.NewMemory(store, embedder, zap.NewNop()).WithIndex(idx)

		embedder.Embeddings["query"] = []float32{1, 0, 0}
		embedder.Embeddings["exact match"] = []float32{1, 0, 0}
		embedder.Embeddings["unrelated"] = []float32{0, 1, 0}
	})

	It("mirrors saved memories into the index", func() {
		Expect(mem.Save(ctx, "model", "exact match", 1)).To(Succeed())

		Expect(idx.docs).To(HaveKey("msg-1-model"))
		Expect(idx.docs["msg-1-model"].Text).To(Equal("exact match"))
	})

	It("still persists when indexing fails", func() {
		idx.failAdd = errors.New("vec0 unavailable")

		Expect(mem.Save(ctx, "model", "exact match", 1)).To(Succeed())

		ok, err := store.Has(ctx, storage.CollectionVectors, "msg-1-model")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("answers searches from the index", func() {
		Expect(mem.Save(ctx, "model", "exact match", 1)).To(Succeed())
		Expect(mem.Save(ctx, "model", "unrelated", 2)).To(Succeed())

		results := mem.Search(ctx, "query", 10)

		Expect(idx.qryCalls).To(Equal(1))
		Expect(results).To(HaveLen(1))
		Expect(results[0].Text).To(Equal("exact match"))
	})

	It("falls back to the scan when the index query fails", func() {
		Expect(mem.Save(ctx, "model", "exact match", 1)).To(Succeed())
		idx.failQry = errors.New("vec0 unavailable")

		results := mem.Search(ctx, "query", 10)

		Expect(results).To(HaveLen(1))
		Expect(results[0].Text).To(Equal("exact match"))
	})

	It("drops index matches that vanished from storage", func() {
		Expect(mem.Save(ctx, "model", "exact match", 1)).To(Succeed())
		Expect(store.Delete(ctx, storage.CollectionVectors, "msg-1-model")).To(Succeed())

		Expect(mem.Search(ctx, "query", 10)).To(BeEmpty())
	})
})
