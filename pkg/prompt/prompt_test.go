package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mythos-rpg/mythos/pkg/preset"
	"github.com/mythos-rpg/mythos/pkg/prompt"
	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/vector"
)

var _ = Describe("FormatMemories", func() {
	It("renders timestamped role-prefixed lines, best match first", func() {
		results := []vector.SearchResult{
			{MemoryVector: vector.MemoryVector{Text: "the gate fell", Role: "model", Timestamp: 0}, Score: 0.9},
			{MemoryVector: vector.MemoryVector{Text: "I pushed it", Role: "user", Timestamp: 1000}, Score: 0.5},
		}

		out := prompt.FormatMemories(results)
		Expect(out).To(Equal("[1970-01-01 00:00:00] AI: the gate fell\n\n[1970-01-01 00:00:01] User: I pushed it"))
	})

	It("is empty for no results", func() {
		Expect(prompt.FormatMemories(nil)).To(BeEmpty())
	})
})

var _ = Describe("Build", func() {
	var in prompt.Input

	BeforeEach(func() {
		in = prompt.Input{
			World:      session.WorldInfo{Name: "Aetheria", Genre: "fantasy"},
			Player:     session.PlayerInfo{Name: "Kai"},
			TurnNumber: 3,
			Preset: preset.Config{Modules: []preset.Module{
				{ID: "a", Content: "module A text", IsActive: true},
				{ID: "b", Content: "module B text", IsActive: false},
				{ID: preset.PrefillModuleID, Content: "prefill text", IsActive: true},
			}},
		}
	})

	It("is deterministic", func() {
		Expect(prompt.Build(in)).To(Equal(prompt.Build(in)))
	})

	It("includes world, player and turn number", func() {
		out := prompt.Build(in)
		Expect(out).To(ContainSubstring("Aetheria"))
		Expect(out).To(ContainSubstring("Kai"))
		Expect(out).To(ContainSubstring("Lượt hiện tại: 3"))
	})

	It("includes only active non-prefill modules", func() {
		out := prompt.Build(in)
		Expect(out).To(ContainSubstring("module A text"))
		Expect(out).NotTo(ContainSubstring("module B text"))
		Expect(out).NotTo(ContainSubstring("prefill text"))
	})

	It("injects rules verbatim", func() {
		in.Rules = []string{"  no time travel  ", "magic has a price"}

		out := prompt.Build(in)
		Expect(out).To(ContainSubstring("  no time travel  \nmagic has a price"))
	})

	It("includes memories and world state only when present", func() {
		out := prompt.Build(in)
		Expect(out).NotTo(ContainSubstring("<relevant_memories>"))
		Expect(out).NotTo(ContainSubstring("<table_stored>"))

		in.Memories = "[ts] User: hi"
		in.WorldState = "#1 Char|0:Anna"
		out = prompt.Build(in)
		Expect(out).To(ContainSubstring("<relevant_memories>\n[ts] User: hi\n</relevant_memories>"))
		Expect(out).To(ContainSubstring("<table_stored>\n#1 Char|0:Anna\n</table_stored>"))
	})

	It("lists entities with kind and description", func() {
		in.Entities = []session.Entity{{Name: "Mira", Kind: "npc", Description: "a blacksmith"}}

		Expect(prompt.Build(in)).To(ContainSubstring("- Mira (npc): a blacksmith"))
	})
})
