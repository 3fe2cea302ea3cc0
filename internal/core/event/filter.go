package event

import "go.uber.org/zap"

// FilterFunc decides whether an event may proceed. Returning false drops it.
type FilterFunc func(payload any, t Topic) bool

// Filter is the handle returned by AddFilter.
type Filter struct {
	bus     *Bus
	topic   Topic
	fn      FilterFunc
	removed bool
}

func (f *Filter) Topic() Topic { return f.topic }

// Remove unregisters the filter. Calling it again is a no-op.
func (f *Filter) Remove() {
	if f == nil || f.removed {
		return
	}
	f.removed = true
	for i, cur := range f.bus.filters {
		if cur == f {
			f.bus.filters = append(f.bus.filters[:i:i], f.bus.filters[i+1:]...)
			return
		}
	}
}

// AddFilter binds fn to a topic or wildcard pattern. Every filter whose
// topic matches an emitted event must pass for the event to be delivered.
func (b *Bus) AddFilter(t Topic, fn FilterFunc) (*Filter, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNilFilter
	}
	f := &Filter{bus: b, topic: t, fn: fn}
	b.filters = append(b.filters, f)
	return f, nil
}

func (b *Bus) passFilters(t Topic, payload any) bool {
	if len(b.filters) == 0 {
		return true
	}
	active := make([]*Filter, len(b.filters))
	copy(active, b.filters)
	for _, f := range active {
		if !f.topic.Matches(t) {
			continue
		}
		if !b.runFilter(f, t, payload) {
			return false
		}
	}
	return true
}

// runFilter treats a panicking filter as a veto.
func (b *Bus) runFilter(f *Filter, t Topic, payload any) (pass bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event filter panicked",
				zap.String("topic", string(t)),
				zap.String("filter", string(f.topic)),
				zap.Any("panic", r),
			)
			pass = false
		}
	}()
	return f.fn(payload, t)
}
