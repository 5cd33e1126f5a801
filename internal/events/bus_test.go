package events

import "testing"

// TestSubscribeReceivesMatchingType delivers only the subscribed event kind
func TestSubscribeReceivesMatchingType(t *testing.T) {
	bus := NewEventBus()

	var got []Event
	bus.Subscribe(EventTradeExecuted, func(e Event) {
		got = append(got, e)
	})

	bus.Publish(EventTradeExecuted, map[string]interface{}{"symbol": "SPY"})
	bus.Publish(EventCycleCompleted, map[string]interface{}{"cycle_id": "abc"})

	if len(got) != 1 {
		t.Fatalf("subscriber received %d events, want 1", len(got))
	}
	if got[0].Type != EventTradeExecuted {
		t.Errorf("event type = %s, want TRADE_EXECUTED", got[0].Type)
	}
	if got[0].Data["symbol"] != "SPY" {
		t.Errorf("event data = %v, want the published payload", got[0].Data)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("published events should be timestamped")
	}
}

// TestSubscribeAllReceivesEverything delivers every event kind
func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := NewEventBus()

	count := 0
	bus.SubscribeAll(func(e Event) { count++ })

	bus.Publish(EventCycleStarted, nil)
	bus.Publish(EventRegimeChange, nil)
	bus.Publish(EventPositionClosed, nil)

	if count != 3 {
		t.Errorf("all-subscriber received %d events, want 3", count)
	}
}

// TestPublishOrdering delivers typed subscribers before all-subscribers,
// each in registration order.
func TestPublishOrdering(t *testing.T) {
	bus := NewEventBus()

	var order []string
	bus.Subscribe(EventError, func(e Event) { order = append(order, "typed-1") })
	bus.Subscribe(EventError, func(e Event) { order = append(order, "typed-2") })
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })

	bus.Publish(EventError, nil)

	want := []string{"typed-1", "typed-2", "all"}
	if len(order) != len(want) {
		t.Fatalf("received %d deliveries, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery %d = %s, want %s", i, order[i], want[i])
		}
	}
}
