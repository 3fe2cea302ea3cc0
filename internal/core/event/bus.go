package event

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/value"
	"go.uber.org/zap"
)

// Event is one emitted message.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Stats is a point-in-time view of bus counters.
type Stats struct {
	Emitted        uint64           // events that passed all filters
	Filtered       uint64           // events vetoed by a filter
	ListenerPanics uint64           // recovered listener panics
	ByTopic        map[Topic]uint64 // Emitted per topic
	Listeners      int
	HistoryLen     int
	QueueLen       int
}

// Bus is a synchronous publish/subscribe hub. Listeners on a topic run in
// descending priority order; exact-topic listeners run before wildcard ones.
//
// A Bus is owned by the frame loop goroutine and is not safe for concurrent
// use. Emitting from inside a listener is allowed.
type Bus struct {
	log *zap.Logger
	cfg busConfig

	exact    map[Topic]*row
	patterns []*row // wildcard rows in first-registration order
	filters  []*Filter

	history *value.Ring[Event]
	queue   *value.Ring[Event]

	emitted  uint64
	filtered uint64
	panics   uint64
	byTopic  map[Topic]uint64

	replay    []Event
	replayPos int
}

// NewBus creates a bus. A nil logger discards log output.
func NewBus(log *zap.Logger, opts ...Option) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := defaultBusConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Bus{
		log:     log,
		cfg:     cfg,
		exact:   make(map[Topic]*row),
		byTopic: make(map[Topic]uint64),
	}
	if cfg.historyEnabled {
		b.history = value.NewRing[Event](cfg.historySize)
	}
	if cfg.queueEnabled {
		b.queue = value.NewRing[Event](cfg.queueSize)
	}
	return b
}

// On registers h for topic t, which may be a wildcard pattern.
func (b *Bus) On(t Topic, h Handler, opts ...SubscribeOption) (*Subscription, error) {
	return b.subscribe(t, h, false, opts)
}

// Once is On for a listener that removes itself after its first call.
func (b *Bus) Once(t Topic, h Handler, opts ...SubscribeOption) (*Subscription, error) {
	return b.subscribe(t, h, true, opts)
}

// Off cancels sub. Unknown or already cancelled subscriptions are ignored.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil || sub.bus != b {
		return
	}
	sub.Cancel()
}

func (b *Bus) subscribe(t Topic, h Handler, once bool, opts []SubscribeOption) (*Subscription, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNilHandler
	}
	s := &Subscription{bus: b, topic: t, handler: h, once: once}
	for _, opt := range opts {
		opt(s)
	}
	b.rowFor(t, true).insert(s)
	return s, nil
}

func (b *Bus) rowFor(t Topic, create bool) *row {
	if !t.IsPattern() {
		r := b.exact[t]
		if r == nil && create {
			r = &row{topic: t}
			b.exact[t] = r
		}
		return r
	}
	for _, r := range b.patterns {
		if r.topic == t {
			return r
		}
	}
	if !create {
		return nil
	}
	r := &row{topic: t}
	b.patterns = append(b.patterns, r)
	return r
}

func (b *Bus) remove(s *Subscription) {
	r := b.rowFor(s.topic, false)
	if r == nil || !r.delete(s) || len(r.subs) > 0 {
		return
	}
	if !s.topic.IsPattern() {
		delete(b.exact, s.topic)
		return
	}
	for i, p := range b.patterns {
		if p == r {
			b.patterns = append(b.patterns[:i:i], b.patterns[i+1:]...)
			break
		}
	}
}

// Emit delivers payload to every listener of t and of each wildcard pattern
// matching t. It returns true if at least one listener ran.
//
// Filters are consulted first; a veto leaves no trace (no queue entry, no
// counters, no history). Queue and history receive deep copies of payload.
func (b *Bus) Emit(t Topic, payload any) bool {
	if err := t.Validate(); err != nil {
		b.log.Error("emit rejected", zap.String("topic", string(t)), zap.Error(err))
		return false
	}
	if !b.passFilters(t, payload) {
		b.filtered++
		return false
	}

	ev := Event{Topic: t, Payload: payload, Timestamp: b.cfg.now()}
	if b.queue != nil {
		b.queue.Push(Event{Topic: t, Payload: value.Clone(payload), Timestamp: ev.Timestamp})
	}
	b.emitted++
	b.byTopic[t]++
	if b.history != nil {
		b.history.Push(Event{Topic: t, Payload: value.Clone(payload), Timestamp: ev.Timestamp})
	}

	ran := 0
	if r := b.exact[t]; r != nil {
		ran += b.dispatch(r.snapshot(), ev)
	}
	for _, r := range b.matchingPatterns(t) {
		ran += b.dispatch(r.snapshot(), ev)
	}
	return ran > 0
}

// matchingPatterns collects wildcard rows before dispatch so that patterns
// registered by a listener do not see the event currently in flight.
func (b *Bus) matchingPatterns(t Topic) []*row {
	var out []*row
	for _, r := range b.patterns {
		if r.topic.Matches(t) {
			out = append(out, r)
		}
	}
	return out
}

func (b *Bus) dispatch(subs []*Subscription, ev Event) int {
	ran := 0
	for _, s := range subs {
		if s.once && s.fired {
			continue
		}
		s.fired = true
		ran++
		b.invoke(s, ev)
		if s.once {
			s.Cancel()
		}
	}
	return ran
}

func (b *Bus) invoke(s *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panics++
			b.log.Error("event listener panicked",
				zap.String("topic", string(ev.Topic)),
				zap.String("listener", string(s.topic)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	s.handler(ev)
}

// ListenerCount returns the number of listeners registered under exactly t
// (a topic or a pattern string).
func (b *Bus) ListenerCount(t Topic) int {
	if r := b.rowFor(t, false); r != nil {
		return len(r.subs)
	}
	return 0
}

// HasListeners reports whether emitting t would reach any listener.
func (b *Bus) HasListeners(t Topic) bool {
	if r := b.exact[t]; r != nil && len(r.subs) > 0 {
		return true
	}
	return len(b.matchingPatterns(t)) > 0
}

// History returns the recorded events oldest first.
func (b *Bus) History() []Event {
	if b.history == nil {
		return nil
	}
	return b.history.Items()
}

func (b *Bus) ClearHistory() {
	if b.history != nil {
		b.history.Clear()
	}
}

// DrainQueue hands the queued outbound events to the caller, oldest first,
// and empties the queue.
func (b *Bus) DrainQueue() []Event {
	if b.queue == nil {
		return nil
	}
	return b.queue.Drain()
}

func (b *Bus) QueueLen() int {
	if b.queue == nil {
		return 0
	}
	return b.queue.Len()
}

func (b *Bus) Stats() Stats {
	st := Stats{
		Emitted:        b.emitted,
		Filtered:       b.filtered,
		ListenerPanics: b.panics,
		ByTopic:        make(map[Topic]uint64, len(b.byTopic)),
		QueueLen:       b.QueueLen(),
	}
	for t, n := range b.byTopic {
		st.ByTopic[t] = n
	}
	for _, r := range b.exact {
		st.Listeners += len(r.subs)
	}
	for _, r := range b.patterns {
		st.Listeners += len(r.subs)
	}
	if b.history != nil {
		st.HistoryLen = b.history.Len()
	}
	return st
}

// Clear drops every listener and filter. History, queue and counters stay.
func (b *Bus) Clear() {
	for _, r := range b.exact {
		for _, s := range r.subs {
			s.cancelled = true
		}
	}
	for _, r := range b.patterns {
		for _, s := range r.subs {
			s.cancelled = true
		}
	}
	for _, f := range b.filters {
		f.removed = true
	}
	b.exact = make(map[Topic]*row)
	b.patterns = nil
	b.filters = nil
}
