package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic: one
// provider payload item plus Kafka position metadata. The provider tag
// travels in the "provider" header.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Provider returns the provider tag from the message headers, or "" when the
// collector did not set one.
func (r RawEvent) Provider() string {
	return r.Headers["provider"]
}
