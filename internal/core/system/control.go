package system

import (
	"fmt"
	"time"

	"github.com/l1jgo/simcore/internal/core/event"
	"go.uber.org/zap"
)

// Control topics. Pause and resume take the bucket name as payload, either a
// bare string or {"bucket": name}. Enable and disable act on the whole
// scheduler unless a bucket is named.
const (
	TopicPause     event.Topic = "scheduler.pause"
	TopicResume    event.Topic = "scheduler.resume"
	TopicPauseAll  event.Topic = "scheduler.pauseAll"
	TopicResumeAll event.Topic = "scheduler.resumeAll"
	TopicEnable    event.Topic = "scheduler.enable"
	TopicDisable   event.Topic = "scheduler.disable"
)

// PauseBucket stops a bucket from running. Its accumulator and frame counter
// stay where they are until it is resumed.
func (s *Scheduler) PauseBucket(name string) error {
	if _, err := s.bucket(name); err != nil {
		return err
	}
	s.paused[name] = struct{}{}
	return nil
}

func (s *Scheduler) ResumeBucket(name string) error {
	if _, err := s.bucket(name); err != nil {
		return err
	}
	delete(s.paused, name)
	return nil
}

// PauseAll pauses every bucket registered so far.
func (s *Scheduler) PauseAll() {
	for name := range s.buckets {
		s.paused[name] = struct{}{}
	}
}

func (s *Scheduler) ResumeAll() {
	clear(s.paused)
}

func (s *Scheduler) IsPaused(name string) bool {
	_, ok := s.paused[name]
	return ok
}

// SetEnabled turns the whole scheduler on or off. A disabled scheduler's Run
// returns immediately and does not count the tick.
func (s *Scheduler) SetEnabled(enabled bool) { s.enabled = enabled }
func (s *Scheduler) Enabled() bool           { return s.enabled }

// EnableBucket and DisableBucket toggle one bucket. Disabled buckets are
// skipped like paused ones.
func (s *Scheduler) EnableBucket(name string) error  { return s.setBucketEnabled(name, true) }
func (s *Scheduler) DisableBucket(name string) error { return s.setBucketEnabled(name, false) }

func (s *Scheduler) setBucketEnabled(name string, enabled bool) error {
	b, err := s.bucket(name)
	if err != nil {
		return err
	}
	b.enabled = enabled
	return nil
}

// SetFrequency changes a bucket's tempo. Accumulated time and the frame
// counter carry over.
func (s *Scheduler) SetFrequency(name string, f float64) error {
	b, err := s.bucket(name)
	if err != nil {
		return err
	}
	return b.setFrequency(f)
}

func (s *Scheduler) SetBucketPriority(name string, p int) error {
	b, err := s.bucket(name)
	if err != nil {
		return err
	}
	b.priority = p
	s.sorted = false
	return nil
}

// BucketInfo is a point-in-time view of one bucket.
type BucketInfo struct {
	Name        string
	Priority    int
	Frequency   float64
	Enabled     bool
	Paused      bool
	Callbacks   int
	Runs        uint64 // callback-list executions
	Accumulated time.Duration
}

// Buckets lists buckets in run order.
func (s *Scheduler) Buckets() []BucketInfo {
	s.ensureSorted()
	out := make([]BucketInfo, 0, len(s.order))
	for _, b := range s.order {
		out = append(out, BucketInfo{
			Name:        b.name,
			Priority:    b.priority,
			Frequency:   b.frequency,
			Enabled:     b.enabled,
			Paused:      s.IsPaused(b.name),
			Callbacks:   len(b.callbacks),
			Runs:        b.runs,
			Accumulated: b.acc,
		})
	}
	return out
}

// Ticks returns how many Run calls executed while enabled.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// CallbackPanics returns how many callbacks panicked and were recovered.
func (s *Scheduler) CallbackPanics() uint64 { return s.panics }

// Control holds the bus subscriptions made by BindControl.
type Control struct {
	subs []*event.Subscription
}

// Close unsubscribes from every control topic. Safe to call twice.
func (c *Control) Close() {
	for _, sub := range c.subs {
		sub.Cancel()
	}
	c.subs = nil
}

// BindControl lets other subsystems drive the scheduler through the bus
// without holding a reference to it.
func (s *Scheduler) BindControl(bus *event.Bus) (*Control, error) {
	c := &Control{}
	bind := func(t event.Topic, h event.Handler) error {
		sub, err := bus.On(t, h)
		if err != nil {
			c.Close()
			return fmt.Errorf("bind %s: %w", t, err)
		}
		c.subs = append(c.subs, sub)
		return nil
	}

	perBucket := func(op func(string) error) event.Handler {
		return func(ev event.Event) {
			name, ok := bucketName(ev.Payload)
			if !ok {
				s.log.Warn("scheduler control without bucket", zap.String("topic", ev.Topic.String()))
				return
			}
			if err := op(name); err != nil {
				s.log.Warn("scheduler control failed", zap.String("topic", ev.Topic.String()), zap.Error(err))
			}
		}
	}
	toggle := func(enabled bool) event.Handler {
		return func(ev event.Event) {
			if name, ok := bucketName(ev.Payload); ok {
				if err := s.setBucketEnabled(name, enabled); err != nil {
					s.log.Warn("scheduler control failed", zap.String("topic", ev.Topic.String()), zap.Error(err))
				}
				return
			}
			s.SetEnabled(enabled)
		}
	}

	steps := []struct {
		t event.Topic
		h event.Handler
	}{
		{TopicPause, perBucket(s.PauseBucket)},
		{TopicResume, perBucket(s.ResumeBucket)},
		{TopicPauseAll, func(event.Event) { s.PauseAll() }},
		{TopicResumeAll, func(event.Event) { s.ResumeAll() }},
		{TopicEnable, toggle(true)},
		{TopicDisable, toggle(false)},
	}
	for _, st := range steps {
		if err := bind(st.t, st.h); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func bucketName(payload any) (string, bool) {
	switch p := payload.(type) {
	case string:
		return p, p != ""
	case map[string]any:
		name, ok := p["bucket"].(string)
		return name, ok && name != ""
	}
	return "", false
}
