package session_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mythos-rpg/mythos/pkg/session"
)

var _ = Describe("Turn", func() {
	Describe("Text", func() {
		It("always reflects the active alternate", func() {
			t := session.NewModelTurn("first")
			t.AppendAlternate("second")

			Expect(t.Text()).To(Equal("second"))
			t.SwipePrev()
			Expect(t.Text()).To(Equal("first"))
		})
	})

	Describe("AppendAlternate", func() {
		It("grows alternates by one and activates the new one", func() {
			t := session.NewModelTurn("first")
			t.AppendAlternate("second")

			Expect(t.Alternates).To(HaveLen(2))
			Expect(t.Active).To(Equal(1))
		})
	})

	Describe("SetActiveText", func() {
		It("replaces in place without growing alternates", func() {
			t := session.NewModelTurn("first")
			t.SetActiveText("edited")

			Expect(t.Alternates).To(Equal([]string{"edited"}))
		})

		It("recomputes choices on model turns", func() {
			t := session.NewModelTurn("no branches")
			Expect(t.Choices).To(BeEmpty())

			t.SetActiveText("tale <branches>Go north\nGo south</branches>")
			Expect(t.Choices).To(Equal([]string{"Go north", "Go south"}))
		})
	})

	Describe("swiping", func() {
		It("keeps text in sync through any prev/next sequence", func() {
			t := session.NewModelTurn("a")
			t.AppendAlternate("b")
			t.AppendAlternate("c")

			before := len(t.Alternates)

			t.SwipePrev()
			t.SwipePrev()
			t.SwipeNext()
			t.SwipePrev()
			t.SwipeNext()
			t.SwipeNext()

			Expect(t.Alternates).To(HaveLen(before))
			Expect(t.Text()).To(Equal(t.Alternates[t.Active]))
		})

		It("refuses to move before the first alternate", func() {
			t := session.NewModelTurn("only")
			Expect(t.SwipePrev()).To(BeFalse())
			Expect(t.Active).To(Equal(0))
		})

		It("refuses to move past the last alternate", func() {
			t := session.NewModelTurn("only")
			Expect(t.SwipeNext()).To(BeFalse())
			Expect(t.Active).To(Equal(0))
		})

		It("recomputes choices for the newly active alternate", func() {
			t := session.NewModelTurn("x <branches>stay</branches>")
			t.AppendAlternate("y <branches>leave\nhide</branches>")

			Expect(t.Choices).To(Equal([]string{"leave", "hide"}))
			t.SwipePrev()
			Expect(t.Choices).To(Equal([]string{"stay"}))
		})
	})

	Describe("ExtractChoices", func() {
		It("trims lines and drops empties", func() {
			text := "<branches>\n  Go north  \n\n\tGo south\n</branches>"
			Expect(session.ExtractChoices(text)).To(Equal([]string{"Go north", "Go south"}))
		})

		It("returns nil without a branches block", func() {
			Expect(session.ExtractChoices("plain prose")).To(BeNil())
		})
	})

	Describe("JSON round trip", func() {
		It("preserves alternates and the active index", func() {
			t := session.NewModelTurn("first <branches>a</branches>")
			t.AppendAlternate("second <branches>b</branches>")
			t.SwipePrev()

			data, err := json.Marshal(t)
			Expect(err).NotTo(HaveOccurred())

			var back session.Turn
			Expect(json.Unmarshal(data, &back)).To(Succeed())

			Expect(back.Alternates).To(Equal(t.Alternates))
			Expect(back.Active).To(Equal(0))
			Expect(back.Text()).To(Equal(t.Text()))
			Expect(back.Choices).To(Equal([]string{"a"}))
		})

		It("lifts text-only turns into a single alternate", func() {
			var back session.Turn
			raw := `{"role":"model","text":"solo","timestamp":5}`
			Expect(json.Unmarshal([]byte(raw), &back)).To(Succeed())

			Expect(back.Alternates).To(Equal([]string{"solo"}))
			Expect(back.Active).To(Equal(0))
		})
	})
})

var _ = Describe("ActiveChoices", func() {
	It("returns choices of the most recent model turn that has any", func() {
		history := []*session.Turn{
			session.NewModelTurn("<branches>old</branches>"),
			session.NewUserTurn("go"),
			session.NewModelTurn("<branches>newer</branches>"),
			session.NewModelTurn("no block"),
		}

		Expect(session.ActiveChoices(history)).To(Equal([]string{"newer"}))
	})

	It("returns nil when no model turn carries choices", func() {
		history := []*session.Turn{session.NewUserTurn("hello")}
		Expect(session.ActiveChoices(history)).To(BeNil())
	})
})
