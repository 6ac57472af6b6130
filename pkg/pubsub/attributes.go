package pubsub

// Message attribute keys shared by the outbox publisher and its consumers.
// The message data is the outbox payload envelope; the attributes let a
// consumer route and dedupe without decoding the body first.
const (
	AttrEventType     = "event_type"
	AttrAggregateType = "aggregate_type"
	AttrAggregateID   = "aggregate_id"
	AttrEventID       = "event_id"
)
