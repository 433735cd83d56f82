package bridge

// Activity describes one bridge event for status displays. It is published
// on the channel's broker under pubsub.PublishedEvent, DeliveredEvent,
// FailedEvent or StoppedEvent.
type Activity struct {
	// Version of the envelope for published events.
	Version uint64
	// Bytes is the payload size.
	Bytes int
	// Listeners is how many listeners received a submitted payload.
	Listeners int
	// Err is the listener failure for failed events.
	Err error
}
