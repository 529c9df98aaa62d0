package bus

import (
	"testing"

	"github.com/codefuturist/mailwatch/internal/model"
)

func TestPublishWithoutSubscriberDropsEvent(t *testing.T) {
	b := New()

	// Must not panic or block.
	b.Publish(model.NewMessageEvent{Account: "work", Folder: "INBOX"})
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New()

	var first, second []model.NewMessageEvent
	b.Subscribe(func(ev model.NewMessageEvent) { first = append(first, ev) })
	b.Subscribe(func(ev model.NewMessageEvent) { second = append(second, ev) })

	ev := model.NewMessageEvent{
		Account:  "work",
		Folder:   "INBOX",
		Messages: []model.MessageSummary{{UID: 7}},
	}
	b.Publish(ev)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("delivery counts = %d, %d; want 1, 1", len(first), len(second))
	}
	if first[0].Messages[0].UID != 7 {
		t.Fatalf("unexpected event payload: %+v", first[0])
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	var count int
	token := b.Subscribe(func(model.NewMessageEvent) { count++ })

	b.Publish(model.NewMessageEvent{})
	b.Unsubscribe(token)
	b.Publish(model.NewMessageEvent{})

	if count != 1 {
		t.Fatalf("handler called %d times, want 1", count)
	}

	// Unknown tokens are ignored.
	b.Unsubscribe(999)
}
