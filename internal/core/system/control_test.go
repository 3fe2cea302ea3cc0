package system

import (
	"testing"

	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestControl_Topics(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewScheduler(zap.New(core))
	bus := event.NewBus(nil)
	require.NoError(t, s.AddPhaseBuckets())
	ctl, err := s.BindControl(bus)
	require.NoError(t, err)

	bus.Emit(TopicPause, "update")
	assert.True(t, s.IsPaused("update"))
	bus.Emit(TopicResume, map[string]any{"bucket": "update"})
	assert.False(t, s.IsPaused("update"))

	bus.Emit(TopicPauseAll, nil)
	assert.True(t, s.IsPaused("input"))
	assert.True(t, s.IsPaused("cleanup"))
	bus.Emit(TopicResumeAll, nil)
	assert.False(t, s.IsPaused("input"))

	bus.Emit(TopicDisable, nil)
	assert.False(t, s.Enabled())
	bus.Emit(TopicEnable, nil)
	assert.True(t, s.Enabled())

	bus.Emit(TopicDisable, "output")
	assert.True(t, s.Enabled())
	assert.False(t, s.Buckets()[4].Enabled)
	bus.Emit(TopicEnable, map[string]any{"bucket": "output"})
	assert.True(t, s.Buckets()[4].Enabled)

	bus.Emit(TopicPause, "nope")
	bus.Emit(TopicPause, 42)
	assert.Equal(t, 2, logs.Len())

	ctl.Close()
	ctl.Close()
	bus.Emit(TopicPause, "update")
	assert.False(t, s.IsPaused("update"))
	assert.Zero(t, bus.ListenerCount(TopicPause))
}

func TestControl_PausedFromInsideFrame(t *testing.T) {
	s := NewScheduler(nil)
	bus := event.NewBus(nil)
	require.NoError(t, s.AddBucket("input", WithBucketPriority(0)))
	require.NoError(t, s.AddBucket("physics", WithBucketPriority(10)))
	_, err := s.BindControl(bus)
	require.NoError(t, err)

	var physics int
	_, err = s.AddCallback("input", func(Frame) { bus.Emit(TopicPause, "physics") })
	require.NoError(t, err)
	_, err = s.AddCallback("physics", func(Frame) { physics++ })
	require.NoError(t, err)

	s.Run(frame60, 0, nil)
	s.Run(frame60, 0, nil)
	assert.Zero(t, physics, "pause emitted by an earlier bucket applies to the same frame")
}
