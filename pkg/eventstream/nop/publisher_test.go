package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mythos-rpg/mythos/pkg/eventstream"
	"github.com/mythos-rpg/mythos/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("accepts a turn event without error", func() {
		p := nop.NewPublisher()
		event := &eventstream.TurnPersistedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeTurnPersisted,
		}

		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})

	It("rejects a nil event", func() {
		p := nop.NewPublisher()
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})
})
