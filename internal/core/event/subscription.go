package event

// Handler receives a dispatched event. The payload is the emitter's value,
// not a copy.
type Handler func(ev Event)

// Subscription is the token returned by On and Once. Cancel is idempotent.
type Subscription struct {
	bus       *Bus
	topic     Topic
	handler   Handler
	priority  int
	once      bool
	fired     bool
	cancelled bool
}

func (s *Subscription) Topic() Topic  { return s.topic }
func (s *Subscription) Priority() int { return s.priority }
func (s *Subscription) Once() bool    { return s.once }

// Active reports whether the listener is still registered.
func (s *Subscription) Active() bool { return !s.cancelled }

// Cancel removes the listener from its bus. Calling it again is a no-op.
func (s *Subscription) Cancel() {
	if s == nil || s.cancelled {
		return
	}
	s.cancelled = true
	s.bus.remove(s)
}

// row holds the listeners registered under one topic or pattern, kept in
// descending priority order with ties in registration order.
type row struct {
	topic Topic
	subs  []*Subscription
}

func (r *row) insert(s *Subscription) {
	i := len(r.subs)
	for i > 0 && r.subs[i-1].priority < s.priority {
		i--
	}
	r.subs = append(r.subs, nil)
	copy(r.subs[i+1:], r.subs[i:])
	r.subs[i] = s
}

func (r *row) delete(s *Subscription) bool {
	for i, cur := range r.subs {
		if cur == s {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot copies the listener list so that dispatch is unaffected by
// subscriptions added or cancelled while it runs.
func (r *row) snapshot() []*Subscription {
	out := make([]*Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}
