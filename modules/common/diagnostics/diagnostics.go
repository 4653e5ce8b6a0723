// Package diagnostics records developer-facing detail about failed uploads and
// generation attempts. Nothing recorded here is ever shown to the end user.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event kinds
const (
	KindUploadReadFailure = "upload_read_failure"
	KindTransportFailure  = "transport_failure"
	KindServiceRefusal    = "service_refusal"
	KindGenerated         = "generated"
)

// Event - one diagnostic record
type Event struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id"`
	AttemptID string    `json:"attempt_id,omitempty"`
	Slot      string    `json:"slot,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	At        time.Time `json:"at"`
}

// Recorder receives diagnostic events.
type Recorder interface {
	Record(ctx context.Context, evt Event)
	Recent(ctx context.Context, n int64) ([]Event, error)
}

// LogRecorder writes events to the process log and keeps nothing.
type LogRecorder struct{}

func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

func (LogRecorder) Record(_ context.Context, evt Event) {
	logEvent(evt)
}

func (LogRecorder) Recent(context.Context, int64) ([]Event, error) {
	return nil, nil
}

// RedisRecorder logs every event and mirrors it into a capped Redis list
// (newest first) so it can be inspected after the fact.
type RedisRecorder struct {
	rdb    *redis.Client
	key    string
	maxLen int64
}

func NewRedisRecorder(rdb *redis.Client, key string, maxLen int64) *RedisRecorder {
	if maxLen <= 0 {
		maxLen = 200
	}
	return &RedisRecorder{
		rdb:    rdb,
		key:    key,
		maxLen: maxLen,
	}
}

func (r *RedisRecorder) Record(ctx context.Context, evt Event) {
	logEvent(evt)

	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("⚠️  [Diagnostics] Failed to marshal event: %v", err)
		return
	}

	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, r.key, payload)
	pipe.LTrim(ctx, r.key, 0, r.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️  [Diagnostics] Failed to push event to Redis: %v", err)
	}
}

// Recent returns up to n events, newest first.
func (r *RedisRecorder) Recent(ctx context.Context, n int64) ([]Event, error) {
	if n <= 0 || n > r.maxLen {
		n = r.maxLen
	}

	raw, err := r.rdb.LRange(ctx, r.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read diagnostics: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var evt Event
		if err := json.Unmarshal([]byte(item), &evt); err != nil {
			log.Printf("⚠️  [Diagnostics] Skipping malformed entry: %v", err)
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}

func logEvent(evt Event) {
	switch evt.Kind {
	case KindGenerated:
		log.Printf("✅ [Diagnostics] %s session=%s attempt=%s took=%s", evt.Kind, evt.SessionID, evt.AttemptID, evt.Duration)
	default:
		log.Printf("❌ [Diagnostics] %s session=%s attempt=%s slot=%s: %s", evt.Kind, evt.SessionID, evt.AttemptID, evt.Slot, evt.Detail)
	}
}
