package state

import "go.uber.org/zap"

// Subscription is returned by Subscribe. Cancel is idempotent.
type Subscription struct {
	store     *Store
	key       string
	path      Path
	fn        Listener
	cancelled bool
}

func (sub *Subscription) Path() Path   { return sub.path }
func (sub *Subscription) Active() bool { return !sub.cancelled }

func (sub *Subscription) Cancel() {
	if sub == nil || sub.cancelled {
		return
	}
	sub.cancelled = true
	list := sub.store.subs[sub.key]
	for i, cur := range list {
		if cur == sub {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(sub.store.subs, sub.key)
		return
	}
	sub.store.subs[sub.key] = list
}

// Subscribe registers fn for writes at p or anywhere below it. Subscribing
// at Root observes every write.
func (s *Store) Subscribe(p Path, fn Listener) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilListener
	}
	key := p.String()
	sub := &Subscription{store: s, key: key, path: p, fn: fn}
	s.subs[key] = append(s.subs[key], sub)
	return sub, nil
}

// SubscribeState is Subscribe for a dotted path string.
func (s *Store) SubscribeState(path string, fn Listener) (*Subscription, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return s.Subscribe(p, fn)
}

// SubscriberCount returns the number of listeners registered exactly at p.
func (s *Store) SubscriberCount(p Path) int {
	return len(s.subs[p.String()])
}

// notify walks from changed up to Root, calling listeners at each level in
// registration order. Each level's list is copied first, so listeners added
// or cancelled during the walk only affect later writes.
func (s *Store) notify(changed Path, newValue, oldValue any) {
	if len(s.subs) == 0 {
		return
	}
	for level := changed; ; level = level.Parent() {
		if list := s.subs[level.String()]; len(list) > 0 {
			snapshot := make([]*Subscription, len(list))
			copy(snapshot, list)
			for _, sub := range snapshot {
				s.invoke(sub, newValue, oldValue, changed)
			}
		}
		if level.IsRoot() {
			return
		}
	}
}

func (s *Store) invoke(sub *Subscription, newValue, oldValue any, changed Path) {
	defer func() {
		if r := recover(); r != nil {
			s.panics++
			s.log.Error("state listener panicked",
				zap.String("path", changed.String()),
				zap.String("listener", sub.key),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	sub.fn(newValue, oldValue, changed)
}

// ListenerPanics returns the number of recovered listener panics.
func (s *Store) ListenerPanics() uint64 { return s.panics }
