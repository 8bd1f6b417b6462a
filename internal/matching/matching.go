// Package matching maps a domain event plus the active subscription set to
// the concrete delivery targets. It performs no I/O: callers pre-load the
// candidate subscriptions and the subscribers' devices, which keeps both
// processors testable without a live event source or database.
package matching

import (
	"github.com/wavesplatform/push-notifications/internal/model"
)

// Target is one (subscription, device) pair a message must be produced for.
type Target struct {
	Subscription model.Subscription
	Device       model.Device
}

// Match returns every qualifying (subscription, device) pair for the event.
// Subscriptions of the wrong topic type, with a non-matching predicate, or
// belonging to a subscriber with no devices yield no targets.
func Match(event model.Event, subs []model.Subscription, devices map[model.Address][]model.Device) []Target {
	var targets []Target
	for _, sub := range subs {
		if !matches(event, sub) {
			continue
		}
		for _, dev := range devices[sub.Subscriber] {
			targets = append(targets, Target{Subscription: sub, Device: dev})
		}
	}
	return targets
}

func matches(event model.Event, sub model.Subscription) bool {
	switch ev := event.(type) {
	case model.OrderExecutedEvent:
		return sub.Topic.Type == model.TopicOrderExecution && sub.Subscriber == ev.Address
	case model.PriceChangedEvent:
		if sub.Topic.Type != model.TopicPriceThreshold {
			return false
		}
		if sub.Topic.Pair() != ev.Pair {
			return false
		}
		return ev.Range.Contains(sub.Topic.Threshold)
	default:
		return false
	}
}
