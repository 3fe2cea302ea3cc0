package state

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/core/value"
)

// Snapshot returns a deep copy of the tree.
func (s *Store) Snapshot() map[string]any {
	return value.CloneMap(s.root)
}

// RestoreSnapshot replaces the tree with a deep copy of snap after checking
// it against the validator. Listeners are not called and history is kept.
func (s *Store) RestoreSnapshot(snap map[string]any) error {
	if snap == nil {
		return fmt.Errorf("%w: nil tree", ErrInvalidSnapshot)
	}
	if s.cfg.validator != nil {
		if err := s.cfg.validator.CheckTree(snap); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
	}
	s.root = value.CloneMap(snap)
	return nil
}
