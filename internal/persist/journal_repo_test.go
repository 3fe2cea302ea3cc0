package persist

import (
	"io/fs"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEncodeDecodeRows(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	events := []event.Event{
		{Topic: "player.move", Payload: map[string]any{"to": value.Vector3{X: 1, Y: 2, Z: 3}}, Timestamp: at},
		{Topic: "bad.payload", Payload: func() {}, Timestamp: at},
		{Topic: "club.lights", Payload: true, Timestamp: at.Add(time.Second)},
	}

	core, logs := observer.New(zapcore.WarnLevel)
	rows := EncodeRows(events, zap.New(core))
	require.Len(t, rows, 2)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "player.move", rows[0].Topic)
	assert.Equal(t, at, rows[0].EmittedAt)
	assert.JSONEq(t,
		`{"eventName":"player.move","data":{"to":{"x":1,"y":2,"z":3,"_type":"Vector3"}},"timestamp":1700000000123}`,
		string(rows[0].Wire))

	wires := [][]byte{rows[0].Wire, []byte(`{"nope":1}`), rows[1].Wire}
	decoded := DecodeRows(wires, zap.New(core))
	require.Len(t, decoded, 2)
	assert.Equal(t, 2, logs.Len())

	assert.Equal(t, event.Topic("player.move"), decoded[0].Topic)
	assert.Equal(t, at, decoded[0].Timestamp)
	to := decoded[0].Payload.(map[string]any)["to"]
	assert.Equal(t, value.TypeVector3, value.TypeTag(to))
	assert.Equal(t, true, decoded[1].Payload)
}

func TestSessionRowID(t *testing.T) {
	id := uuid.New()
	row, err := SessionRow{Name: "live", Events: 3}.withID(id.String())
	require.NoError(t, err)
	assert.Equal(t, SessionRow{ID: id, Name: "live", Events: 3}, row)

	_, err = SessionRow{}.withID("not-a-uuid")
	assert.ErrorContains(t, err, "not-a-uuid")
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	raw, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "-- +goose Up")
	assert.Contains(t, string(raw), "-- +goose Down")
	assert.Contains(t, string(raw), "CREATE TABLE event_journal")
}
