package event

import "time"

const (
	DefaultHistorySize = 100
	DefaultQueueSize   = 1000
)

// Option configures a Bus.
type Option func(*busConfig)

type busConfig struct {
	historyEnabled bool
	historySize    int
	queueEnabled   bool
	queueSize      int
	now            func() time.Time
}

// History is on by default; the outbound queue is opt-in.
func defaultBusConfig() busConfig {
	return busConfig{
		historyEnabled: true,
		historySize:    DefaultHistorySize,
		queueEnabled:   false,
		queueSize:      DefaultQueueSize,
		now:            time.Now,
	}
}

// WithHistory enables the history ring with the given capacity.
func WithHistory(size int) Option {
	return func(c *busConfig) {
		c.historyEnabled = true
		if size > 0 {
			c.historySize = size
		}
	}
}

// WithoutHistory disables history capture.
func WithoutHistory() Option {
	return func(c *busConfig) { c.historyEnabled = false }
}

// WithQueue enables the outbound queue with the given capacity.
func WithQueue(size int) Option {
	return func(c *busConfig) {
		c.queueEnabled = true
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *busConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// SubscribeOption configures a single listener.
type SubscribeOption func(*Subscription)

// WithPriority sets the listener priority. Higher values run first.
func WithPriority(p int) SubscribeOption {
	return func(s *Subscription) { s.priority = p }
}
