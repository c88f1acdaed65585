package preset_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mythos-rpg/mythos/pkg/lsr"
	"github.com/mythos-rpg/mythos/pkg/preset"
)

var _ = Describe("Default", func() {
	It("carries a parseable table schema", func() {
		defs := lsr.ParseDefinitions(preset.SchemaBlock)
		Expect(defs).To(HaveLen(10))
		Expect(defs[0].ID).To(Equal("0"))
		Expect(defs[9].Columns).To(HaveLen(3))
	})

	It("keeps the prefill module inactive by default", func() {
		Expect(preset.Default().Prefill()).To(BeEmpty())
	})
})

var _ = Describe("Config", func() {
	Describe("ActiveModules", func() {
		It("returns active modules in order, excluding the prefill module", func() {
			cfg := preset.Config{Modules: []preset.Module{
				{ID: "a", IsActive: true},
				{ID: "b", IsActive: false},
				{ID: preset.PrefillModuleID, Content: "pre", IsActive: true},
				{ID: "c", IsActive: true},
			}}

			active := cfg.ActiveModules()
			Expect(active).To(HaveLen(2))
			Expect(active[0].ID).To(Equal("a"))
			Expect(active[1].ID).To(Equal("c"))
		})
	})

	Describe("Prefill", func() {
		It("returns the prefill content only when active", func() {
			cfg := preset.Config{Modules: []preset.Module{
				{ID: preset.PrefillModuleID, Content: "pre", IsActive: true},
			}}
			Expect(cfg.Prefill()).To(Equal("pre"))

			cfg.Modules[0].IsActive = false
			Expect(cfg.Prefill()).To(BeEmpty())
		})
	})

	Describe("ReplaceModules", func() {
		It("swaps the list wholesale and copies the input", func() {
			cfg := preset.Default()
			mods := []preset.Module{{ID: "only", IsActive: true}}

			cfg.ReplaceModules(mods)
			mods[0].ID = "mutated"

			Expect(cfg.Modules).To(HaveLen(1))
			Expect(cfg.Modules[0].ID).To(Equal("only"))
		})
	})
})
