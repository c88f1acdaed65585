package tags_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mythos-rpg/mythos/pkg/tags"
)

var _ = Describe("Extract", func() {
	It("returns the inner content of a tagged span", func() {
		text := "prose <branches>Go north\nGo south</branches> more prose"
		Expect(tags.Extract(text, tags.TagBranches)).To(Equal("Go north\nGo south"))
	})

	It("returns empty when the tag is absent", func() {
		Expect(tags.Extract("no tags here", tags.TagThinking)).To(BeEmpty())
	})

	It("matches across multiple lines non-greedily", func() {
		text := "<thinking>line one\nline two</thinking> tail <thinking>second</thinking>"
		Expect(tags.Extract(text, tags.TagThinking)).To(Equal("line one\nline two"))
	})

	It("takes the first match when the tag repeats", func() {
		text := "<branches>a</branches><branches>b</branches>"
		Expect(tags.Extract(text, tags.TagBranches)).To(Equal("a"))
	})
})

var _ = Describe("Wrap", func() {
	It("wraps text in the tag", func() {
		Expect(tags.Wrap("go", tags.TagUserInput)).To(Equal("<user_input>go</user_input>"))
	})

	It("does not double-wrap", func() {
		once := tags.Wrap("go", tags.TagUserInput)
		Expect(tags.Wrap(once, tags.TagUserInput)).To(Equal(once))
	})
})

var _ = Describe("Clean", func() {
	It("strips structural blocks before prose-level cleanup", func() {
		raw := "<thinking>internal</thinking>The hero *walks* on.\n\n\n\n<table_stored>#1 Char|0:Anna</table_stored>"
		Expect(tags.Clean(raw)).To(Equal("The hero walks on."))
	})

	It("removes stray content tags", func() {
		raw := "<content>Once upon a time.</content>"
		Expect(tags.Clean(raw)).To(Equal("Once upon a time."))
	})

	It("removes user input wrappers entirely", func() {
		raw := "before <user_input>secret command</user_input> after"
		out := tags.Clean(raw)
		Expect(out).NotTo(ContainSubstring("secret command"))
		Expect(out).To(ContainSubstring("before"))
	})

	It("removes state update blocks", func() {
		raw := `tail<state_update>{"inventory":[]}</state_update>`
		Expect(tags.Clean(raw)).To(Equal("tail"))
	})
})

var _ = Describe("Highlight", func() {
	It("wraps quoted spans in markers", func() {
		out := tags.Highlight(`She said "hello" and left.`, "[", "]")
		Expect(out).To(Equal(`She said ["hello"] and left.`))
	})

	It("does not corrupt markers inserted by earlier highlighting", func() {
		first := tags.Highlight(`"a" and "b"`, "[", "]")
		Expect(first).To(Equal(`["a"] and ["b"]`))
	})
})
