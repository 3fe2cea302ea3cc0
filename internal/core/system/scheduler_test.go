package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const frame60 = time.Second / 60

func mustBucket(t *testing.T, s *Scheduler, name string, opts ...BucketOption) {
	t.Helper()
	require.NoError(t, s.AddBucket(name, opts...))
}

func mustCallback(t *testing.T, s *Scheduler, bucket string, fn Func, opts ...CallbackOption) *Handle {
	t.Helper()
	h, err := s.AddCallback(bucket, fn, opts...)
	require.NoError(t, err)
	return h
}

func counter(n *int) Func {
	return func(Frame) { *n++ }
}

func TestScheduler_LowFrequencySkipsFrames(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "ai", WithFrequency(0.5))
	var runs int
	mustCallback(t, s, "ai", counter(&runs))

	for i := 0; i < 4; i++ {
		s.Run(frame60, 0, nil)
	}
	assert.Equal(t, 2, runs)
}

func TestScheduler_LowFrequencyRoundsUp(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "slow", WithFrequency(0.3)) // every ceil(3.33) = 4 frames
	mustBucket(t, s, "third", WithFrequency(1.0/3))
	var slow, third int
	mustCallback(t, s, "slow", counter(&slow))
	mustCallback(t, s, "third", counter(&third))

	for i := 0; i < 12; i++ {
		s.Run(frame60, 0, nil)
	}
	assert.Equal(t, 3, slow)
	assert.Equal(t, 4, third)
}

func TestScheduler_HighFrequencyCatchesUp(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "physics", WithFrequency(2.0))
	var deltas []time.Duration
	mustCallback(t, s, "physics", func(f Frame) { deltas = append(deltas, f.Delta) })

	s.Run(time.Second, time.Second, nil)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, deltas)
}

func TestScheduler_HighFrequencyCarriesRemainder(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "physics", WithFrequency(100)) // 10ms step
	var runs int
	mustCallback(t, s, "physics", counter(&runs))

	s.Run(25*time.Millisecond, 0, nil)
	assert.Equal(t, 2, runs)
	s.Run(5*time.Millisecond, 0, nil)
	assert.Equal(t, 3, runs, "5ms left over plus 5ms new makes one more step")

	// a long stall is paid back in full
	s.Run(time.Second, 0, nil)
	assert.Equal(t, 103, runs)
	assert.Zero(t, s.Buckets()[0].Accumulated)
}

func TestScheduler_UnitFrequencyUsesOuterDelta(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "update")
	var got []Frame
	mustCallback(t, s, "update", func(f Frame) { got = append(got, f) })

	s.Run(frame60, 3*time.Second, "ctx")
	require.Len(t, got, 1)
	assert.Equal(t, frame60, got[0].Delta)
	assert.Equal(t, 3*time.Second, got[0].Elapsed)
	assert.Equal(t, "ctx", got[0].Host)
	assert.Equal(t, "update", got[0].Bucket)
	assert.Equal(t, uint64(1), got[0].Tick)
}

func TestScheduler_BucketAndCallbackOrderAscending(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "render", WithBucketPriority(300))
	mustBucket(t, s, "input", WithBucketPriority(0))
	mustBucket(t, s, "update", WithBucketPriority(100))

	var order []string
	note := func(tag string) Func { return func(Frame) { order = append(order, tag) } }
	mustCallback(t, s, "update", note("update/9"), WithPriority(9))
	mustCallback(t, s, "update", note("update/1"), WithPriority(1))
	mustCallback(t, s, "update", note("update/5a"), WithPriority(5))
	mustCallback(t, s, "update", note("update/5b"), WithPriority(5))
	mustCallback(t, s, "render", note("render"))
	mustCallback(t, s, "input", note("input"))

	s.Run(frame60, 0, nil)
	assert.Equal(t, []string{"input", "update/1", "update/5a", "update/5b", "update/9", "render"}, order)

	order = nil
	require.NoError(t, s.SetBucketPriority("render", -1))
	s.Run(frame60, 0, nil)
	assert.Equal(t, "render", order[0])
}

func TestScheduler_PauseIsolation(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "input", WithBucketPriority(0))
	mustBucket(t, s, "physics", WithBucketPriority(100), WithFrequency(60))
	mustBucket(t, s, "render", WithBucketPriority(200))

	var order []string
	note := func(tag string) Func { return func(Frame) { order = append(order, tag) } }
	mustCallback(t, s, "input", note("input"))
	mustCallback(t, s, "physics", note("physics"))
	mustCallback(t, s, "render", note("render"))

	require.NoError(t, s.PauseBucket("physics"))
	for i := 0; i < 5; i++ {
		s.Run(frame60, 0, nil)
	}
	assert.NotContains(t, order, "physics")
	assert.Equal(t, []string{"input", "render", "input", "render"}, order[:4])

	info := s.Buckets()[1]
	assert.True(t, info.Paused)
	assert.Zero(t, info.Accumulated, "accumulator frozen while paused")

	order = nil
	require.NoError(t, s.ResumeBucket("physics"))
	s.Run(frame60, 0, nil)
	assert.Equal(t, []string{"input", "physics", "render"}, order, "no backlog from the paused frames")
}

func TestScheduler_PauseAllResumeAll(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.AddPhaseBuckets())
	var runs int
	mustCallback(t, s, PhaseUpdate.String(), counter(&runs))

	s.PauseAll()
	s.Run(frame60, 0, nil)
	assert.Zero(t, runs)
	assert.True(t, s.IsPaused("update"))

	s.ResumeAll()
	s.Run(frame60, 0, nil)
	assert.Equal(t, 1, runs)
}

func TestScheduler_GlobalEnable(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "update")
	var runs int
	mustCallback(t, s, "update", counter(&runs))

	s.SetEnabled(false)
	s.Run(frame60, 0, nil)
	assert.Zero(t, runs)
	assert.Zero(t, s.Ticks())

	s.SetEnabled(true)
	s.Run(frame60, 0, nil)
	assert.Equal(t, 1, runs)

	require.NoError(t, s.DisableBucket("update"))
	s.Run(frame60, 0, nil)
	assert.Equal(t, 1, runs)
	require.NoError(t, s.EnableBucket("update"))
	s.Run(frame60, 0, nil)
	assert.Equal(t, 2, runs)
}

func TestScheduler_PanicIsolation(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := NewScheduler(zap.New(core))
	mustBucket(t, s, "update")
	var after int
	mustCallback(t, s, "update", func(Frame) { panic("boom") }, WithPriority(1))
	mustCallback(t, s, "update", counter(&after), WithPriority(2))

	assert.NotPanics(t, func() { s.Run(frame60, 0, nil) })
	assert.Equal(t, 1, after)
	assert.Equal(t, uint64(1), s.CallbackPanics())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "update", logs.All()[0].ContextMap()["bucket"])
}

func TestScheduler_RemoveDuringRun(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "update")
	var second *Handle
	var ran bool
	mustCallback(t, s, "update", func(Frame) { second.Remove() }, WithPriority(1))
	second = mustCallback(t, s, "update", func(Frame) { ran = true }, WithPriority(2))

	s.Run(frame60, 0, nil)
	assert.False(t, ran)
	assert.False(t, second.Active())
	assert.NotPanics(t, second.Remove)
	assert.Equal(t, 1, s.Buckets()[0].Callbacks)
}

func TestScheduler_Loops(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "update")
	var runs int
	u := UpdaterFunc(func(Frame) { runs++ })

	h, err := s.AddLoop("crowd", u, "update")
	require.NoError(t, err)
	_, err = s.AddLoop("crowd", u, "update")
	assert.ErrorIs(t, err, ErrLoopExists)

	got, ok := s.Loop("crowd")
	require.True(t, ok)
	assert.Same(t, h, got)

	s.Run(frame60, 0, nil)
	assert.True(t, s.RemoveLoop("crowd"))
	assert.False(t, s.RemoveLoop("crowd"))
	s.Run(frame60, 0, nil)
	assert.Equal(t, 1, runs)

	_, err = s.AddLoop("crowd", u, "update")
	assert.NoError(t, err, "name is free again after removal")
}

func TestScheduler_RegistrationErrors(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "update")

	assert.ErrorIs(t, s.AddBucket("update"), ErrBucketExists)
	assert.ErrorIs(t, s.AddBucket(""), ErrInvalidBucket)
	assert.ErrorIs(t, s.AddBucket("bad", WithFrequency(0)), ErrInvalidFrequency)
	assert.ErrorIs(t, s.AddBucket("bad", WithFrequency(-1)), ErrInvalidFrequency)
	assert.False(t, s.HasBucket("bad"))

	_, err := s.AddCallback("nope", func(Frame) {})
	assert.ErrorIs(t, err, ErrUnknownBucket)
	_, err = s.AddCallback("update", nil)
	assert.ErrorIs(t, err, ErrNilCallback)
	_, err = s.AddLoop("x", nil, "update")
	assert.ErrorIs(t, err, ErrNilCallback)

	assert.ErrorIs(t, s.PauseBucket("nope"), ErrUnknownBucket)
	assert.ErrorIs(t, s.SetFrequency("update", 0), ErrInvalidFrequency)
}

func TestScheduler_SetFrequencyAndRemoveBucket(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "fx")
	var runs int
	h := mustCallback(t, s, "fx", counter(&runs))
	_, err := s.AddLoop("sparkle", UpdaterFunc(func(Frame) {}), "fx")
	require.NoError(t, err)

	require.NoError(t, s.SetFrequency("fx", 4))
	s.Run(time.Second, 0, nil)
	assert.Equal(t, 4, runs)
	assert.Equal(t, uint64(4), s.Buckets()[0].Runs)

	require.NoError(t, s.RemoveBucket("fx"))
	assert.False(t, h.Active())
	_, ok := s.Loop("sparkle")
	assert.False(t, ok)
	s.Run(time.Second, 0, nil)
	assert.Equal(t, 4, runs)
	assert.Empty(t, s.Buckets())
}

func TestScheduler_BucketAddedMidRunStartsNextFrame(t *testing.T) {
	s := NewScheduler(nil)
	mustBucket(t, s, "boot", WithBucketPriority(0))
	var late int
	mustCallback(t, s, "boot", func(Frame) {
		if !s.HasBucket("late") {
			require.NoError(t, s.AddBucket("late", WithBucketPriority(10)))
			_, err := s.AddCallback("late", counter(&late))
			require.NoError(t, err)
		}
	})

	s.Run(frame60, 0, nil)
	assert.Zero(t, late)
	s.Run(frame60, 0, nil)
	assert.Equal(t, 1, late)
}

func TestPhase(t *testing.T) {
	assert.Equal(t, "input", PhaseInput.String())
	assert.Equal(t, "cleanup", PhaseCleanup.String())
	assert.Equal(t, 600, PhaseCleanup.Priority())
	assert.Equal(t, "unknown", Phase(42).String())

	s := NewScheduler(nil)
	require.NoError(t, s.AddPhaseBuckets())
	names := make([]string, 0, 7)
	for _, b := range s.Buckets() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"input", "preUpdate", "update", "postUpdate", "output", "persist", "cleanup"}, names)
}
