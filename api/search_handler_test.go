package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/pkg/storage/inmemory"
	testutils "github.com/mythos-rpg/mythos/pkg/utils/test"
	"github.com/mythos-rpg/mythos/pkg/vector"
)

var _ = Describe("handleSearchEndpoint", func() {
	var (
		server   *Server
		inMem    *inmemory.Driver
		embedder *testutils.MockEmbedder
		memory   *vector.Memory
		ctx      context.Context
	)

	BeforeEach(func() {
		inMem = inmemory.NewDriver()
		embedder = testutils.NewMockEmbedder()
		memory = vector.NewMemory(inMem, embedder, zap.NewNop())
		ctx = context.Background()

		server = NewServer(
			Config{
				ListenAddr: ":0",
				Memory:     memory,
			},
			inMem,
			zap.NewNop(),
		)
	})

	Context("when search is not configured", func() {
		It("returns 503 when no memory is wired", func() {
			noSearchServer := NewServer(Config{ListenAddr: ":0"}, inMem, zap.NewNop())

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := noSearchServer.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})

	Context("when query parameter is missing", func() {
		It("returns 400", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("query parameter is required"))
		})
	})

	Context("when top_k is invalid", func() {
		It("returns 400 for non-integer top_k", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k=abc", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("top_k must be a positive integer"))
		})

		It("returns 400 for zero top_k", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k=0", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 400 for negative top_k", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k=-1", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("when search succeeds with no results", func() {
		It("returns 200 with empty results", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=hello", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output SearchResponse
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &output)).To(Succeed())

			Expect(output.Query).To(Equal("hello"))
			Expect(output.Count).To(Equal(0))
			Expect(output.Results).To(BeEmpty())
		})
	})

	Context("when search succeeds with results", func() {
		It("returns 200 with scored memories", func() {
			embedder.Embeddings["the dragon attacked the village"] = []float32{1, 0, 0}
			embedder.Embeddings["dragon"] = []float32{1, 0, 0}

			Expect(memory.Save(ctx, "model", "the dragon attacked the village", 100)).To(Succeed())

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=dragon&top_k=3", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output SearchResponse
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &output)).To(Succeed())

			Expect(output.Query).To(Equal("dragon"))
			Expect(output.Count).To(Equal(1))
			Expect(output.Results).To(HaveLen(1))
			Expect(output.Results[0].ID).To(Equal("msg-100-model"))
			Expect(output.Results[0].Text).To(Equal("the dragon attacked the village"))
			Expect(output.Results[0].Role).To(Equal("model"))
			Expect(output.Results[0].Score).To(BeNumerically("~", 1.0, 1e-6))
		})
	})
})
