package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// wireEvent is the JSON shape shared with other processes:
// {"eventName": "...", "data": ..., "timestamp": <unix millis>}.
type wireEvent struct {
	EventName string `json:"eventName"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// MarshalEvent encodes ev in wire form. Vector-like payload values encode
// themselves with a "_type" tag.
func MarshalEvent(ev Event) ([]byte, error) {
	raw, err := json.Marshal(wireEvent{
		EventName: string(ev.Topic),
		Data:      ev.Payload,
		Timestamp: ev.Timestamp.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", ev.Topic, err)
	}
	return raw, nil
}

// UnmarshalEvent decodes wire data. Objects become map[string]any and
// numbers float64; tagged vector records are left as plain maps.
func UnmarshalEvent(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return Event{}, fmt.Errorf("%w: invalid json", ErrMalformedEvent)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Event{}, fmt.Errorf("%w: not an object", ErrMalformedEvent)
	}
	name := doc.Get("eventName")
	if name.Type != gjson.String {
		return Event{}, fmt.Errorf("%w: missing eventName", ErrMalformedEvent)
	}
	t, err := ParseTopic(name.String())
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	ev := Event{Topic: t, Payload: doc.Get("data").Value()}
	if ts := doc.Get("timestamp"); ts.Exists() {
		ev.Timestamp = time.UnixMilli(ts.Int())
	}
	return ev, nil
}

// Serialize is MarshalEvent that logs instead of returning the error.
func (b *Bus) Serialize(ev Event) ([]byte, bool) {
	raw, err := MarshalEvent(ev)
	if err != nil {
		b.log.Error("serialize event failed", zap.String("topic", string(ev.Topic)), zap.Error(err))
		return nil, false
	}
	return raw, true
}

// Deserialize is UnmarshalEvent that logs instead of returning the error.
func (b *Bus) Deserialize(data []byte) (Event, bool) {
	ev, err := UnmarshalEvent(data)
	if err != nil {
		b.log.Error("deserialize event failed", zap.Error(err), zap.Int("bytes", len(data)))
		return Event{}, false
	}
	return ev, true
}
