package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mythos-rpg/mythos/pkg/llm"
	"github.com/mythos-rpg/mythos/pkg/llm/provider/ollama"
)

// chatRequest mirrors the request body the generator sends, for assertions.
type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

var _ = Describe("Generator", func() {
	var (
		ctx      context.Context
		received chatRequest
	)

	BeforeEach(func() {
		ctx = context.Background()
		received = chatRequest{}
	})

	newServer := func(handler http.HandlerFunc) (*httptest.Server, *ollama.Generator) {
		srv := httptest.NewServer(handler)
		DeferCleanup(srv.Close)

		gen, err := ollama.NewGenerator(ollama.GeneratorConfig{
			BaseURL: srv.URL,
			Model:   "test-model",
		})
		Expect(err).NotTo(HaveOccurred())

		return srv, gen
	}

	Describe("Generate", func() {
		It("returns the full response text", func() {
			_, gen := newServer(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				w.Write([]byte(`{"message":{"role":"assistant","content":"Once upon a time."},"done":true}`))
			})

			text, err := gen.Generate(ctx, llm.Request{
				System:   "You are a narrator.",
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "begin")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Once upon a time."))

			Expect(received.Model).To(Equal("test-model"))
			Expect(received.Stream).To(BeFalse())
			Expect(received.Messages[0].Role).To(Equal("system"))
			Expect(received.Messages[1].Role).To(Equal("user"))
		})

		It("maps the model role to assistant", func() {
			_, gen := newServer(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				w.Write([]byte(`{"message":{"content":"ok"},"done":true}`))
			})

			_, err := gen.Generate(ctx, llm.Request{
				Messages: []llm.Message{
					llm.NewMessage(llm.RoleUser, "hi"),
					llm.NewMessage(llm.RoleModel, "hello"),
					llm.NewMessage(llm.RoleUser, "go on"),
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(received.Messages[1].Role).To(Equal("assistant"))
		})

		It("wraps non-200 responses in ErrGeneration", func() {
			_, gen := newServer(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			})

			_, err := gen.Generate(ctx, llm.Request{
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
			})
			Expect(err).To(MatchError(llm.ErrGeneration))
			Expect(err.Error()).To(ContainSubstring("404"))
		})
	})

	Describe("Stream", func() {
		It("forwards NDJSON lines as ordered chunks", func() {
			_, gen := newServer(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				w.Write([]byte(`{"message":{"content":"Once "},"done":false}
{"message":{"content":"upon "},"done":false}
{"message":{"content":"a time."},"done":true}
`))
			})

			chunks, err := gen.Stream(ctx, llm.Request{
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "begin")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(received.Stream).To(BeTrue())

			var got []string
			for chunk := range chunks {
				Expect(chunk.Err).NotTo(HaveOccurred())
				got = append(got, chunk.Text)
			}
			Expect(got).To(Equal([]string{"Once ", "upon ", "a time."}))
		})

		It("skips malformed lines without killing the stream", func() {
			_, gen := newServer(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"message":{"content":"good"},"done":false}
not json at all
{"message":{"content":" end"},"done":true}
`))
			})

			chunks, err := gen.Stream(ctx, llm.Request{
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "begin")},
			})
			Expect(err).NotTo(HaveOccurred())

			text, err := llm.Collect(chunks)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("good end"))
		})

		It("matches Generate output when concatenated", func() {
			handler := func(w http.ResponseWriter, r *http.Request) {
				var req chatRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				if req.Stream {
					w.Write([]byte(`{"message":{"content":"a b"},"done":false}
{"message":{"content":" c"},"done":true}
`))
					return
				}
				w.Write([]byte(`{"message":{"content":"a b c"},"done":true}`))
			}
			_, gen := newServer(handler)

			req := llm.Request{Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "x")}}

			full, err := gen.Generate(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			chunks, err := gen.Stream(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			streamed, err := llm.Collect(chunks)
			Expect(err).NotTo(HaveOccurred())

			Expect(streamed).To(Equal(full))
		})
	})
})
