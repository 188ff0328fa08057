package telemetry

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
	apperrors "github.com/alignment-core/foodalign/pkg/errors"
)

// RedisSink publishes each Telemetry event to a Redis Pub/Sub channel so
// operators can tail a live run (spec.md §6.3: "live tailing") without
// reading the NDJSON file sink's growing tail. It is meant to be
// composed with FileSink via MultiSink, not used alone: the file is the
// durable record, Redis is the live view.
type RedisSink struct {
	client  *redis.Client
	channel string
}

var _ outbound.TelemetrySink = (*RedisSink)(nil)

// NewRedisSink wraps an already-constructed client. Callers own the
// client's lifecycle (Close, connection pool sizing).
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = "foodalign:telemetry"
	}
	return &RedisSink{client: client, channel: channel}
}

// Emit publishes the JSON-encoded event. Publish failures are
// non-fatal to the cascade (spec.md §7's recover-and-continue policy),
// so callers typically wrap this in MultiSink after a FileSink and log
// rather than abort on error.
func (r *RedisSink) Emit(ctx context.Context, event align.Telemetry) error {
	b, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "marshaling telemetry event for redis")
	}
	if err := r.client.Publish(ctx, r.channel, b).Err(); err != nil {
		return apperrors.Wrap(err, "publishing telemetry event")
	}
	return nil
}
