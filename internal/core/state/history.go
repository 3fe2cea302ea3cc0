package state

import "github.com/l1jgo/simcore/internal/core/value"

// History returns the recorded writes, oldest first. Nil when disabled.
func (s *Store) History() []HistoryEntry {
	if s.history == nil {
		return nil
	}
	return s.history.Items()
}

func (s *Store) ClearHistory() {
	if s.history != nil {
		s.history.Clear()
	}
}

// Rollback undoes up to steps of the most recent recorded writes, newest
// first. Old values are written back silently and the undone entries are
// dropped from history. Ancestors a write created are removed again, and a
// leaf it turned into a container gets its old value back. It returns false when history is disabled or empty.
func (s *Store) Rollback(steps int) bool {
	if s.history == nil || s.history.Len() == 0 || steps < 1 {
		return false
	}
	for i := 0; i < steps; i++ {
		e, ok := s.history.PopBack()
		if !ok {
			break
		}
		target, old := e.Path, e.OldValue
		if e.Anchor != nil {
			target, old = e.Anchor, e.AnchorOld
		}
		if IsAbsent(old) {
			s.remove(target)
			continue
		}
		s.put(target, value.Clone(old))
	}
	return true
}
