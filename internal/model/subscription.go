package model

import "time"

// Subscription is a subscriber's declared interest in a topic.
type Subscription struct {
	UID        int64
	Subscriber Address
	Mode       SubscriptionMode
	Topic      Topic
	CreatedAt  time.Time
}
