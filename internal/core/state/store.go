// Package state implements the observable state tree: a single nested
// map[string]any addressed by dotted paths, with change listeners that
// bubble from the written path up to the root, bounded write history with
// rollback, structural diff/patch and whole-tree snapshots.
package state

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/l1jgo/simcore/internal/core/value"
	"go.uber.org/zap"
)

const DefaultHistorySize = 100

// Listener receives the new and previous value at the written path, and the
// exact path that changed. A removed value is reported as nil.
type Listener func(newValue, oldValue any, changed Path)

// HistoryEntry records one non-silent write. OldValue is Absent when the
// key did not exist before; NewValue is Absent for deletions.
//
// Anchor is set when the write had to create an ancestor of Path or replace
// a leaf ancestor with a container. It names the shallowest such ancestor and
// AnchorOld holds what was there before (Absent when it was missing).
type HistoryEntry struct {
	Path      Path
	OldValue  any
	NewValue  any
	Anchor    Path
	AnchorOld any
	Timestamp time.Time
}

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	historyEnabled bool
	historySize    int
	validator      *Validator
	now            func() time.Time
}

// WithHistory sets the history capacity.
func WithHistory(size int) Option {
	return func(c *storeConfig) {
		c.historyEnabled = true
		if size > 0 {
			c.historySize = size
		}
	}
}

// WithoutHistory disables history and therefore Rollback.
func WithoutHistory() Option {
	return func(c *storeConfig) { c.historyEnabled = false }
}

// WithValidator turns on shallow validation of writes and snapshots.
func WithValidator(v *Validator) Option {
	return func(c *storeConfig) { c.validator = v }
}

// WithClock overrides the history timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// Store is the state tree. Accessed only from the frame loop goroutine, so
// there are no locks. Writes are visible immediately; two writes to the same
// path in one tick simply overwrite in call order.
type Store struct {
	log     *zap.Logger
	cfg     storeConfig
	root    map[string]any
	subs    map[string][]*Subscription
	history *value.Ring[HistoryEntry]
	panics  uint64
}

// NewStore creates an empty store. A nil logger discards output.
func NewStore(log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := storeConfig{
		historyEnabled: true,
		historySize:    DefaultHistorySize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Store{
		log:  log,
		cfg:  cfg,
		root: make(map[string]any),
		subs: make(map[string][]*Subscription),
	}
	if cfg.historyEnabled {
		s.history = value.NewRing[HistoryEntry](cfg.historySize)
	}
	return s
}

// Get returns the value at p, or def when any segment is missing or an
// intermediate is not a container. The returned value is the live stored
// value; copy it with value.Clone before mutating.
func (s *Store) Get(p Path, def any) any {
	v, ok := s.lookup(p)
	if !ok {
		return def
	}
	return v
}

// Has reports whether p exists.
func (s *Store) Has(p Path) bool {
	_, ok := s.lookup(p)
	return ok
}

// GetState is Get for a dotted path string.
func (s *Store) GetState(path string, def any) any {
	p, err := ParsePath(path)
	if err != nil {
		return def
	}
	return s.Get(p, def)
}

// Set writes v at p, creating intermediate containers, and reports whether
// the tree changed. Writing a value equal to the current one does nothing.
// A silent write skips listeners and history. The stored value is a deep
// copy of v.
func (s *Store) Set(p Path, v any, silent bool) bool {
	if p.IsRoot() {
		s.log.Warn("state write to root rejected; use RestoreSnapshot")
		return false
	}
	if s.cfg.validator != nil {
		if err := s.cfg.validator.Check(p, v); err != nil {
			s.log.Warn("state write rejected", zap.String("path", p.String()), zap.Error(err))
			return false
		}
	}
	old, existed := s.lookup(p)
	if existed && value.Equal(old, v) {
		return false
	}
	stored := value.Clone(v)
	anchor, anchorOld := s.firstMissing(p)
	s.put(p, stored)

	if silent {
		return true
	}
	s.record(p, existed, old, stored, anchor, anchorOld)
	if !existed {
		old = nil
	}
	s.notify(p, stored, old)
	return true
}

// SetState is Set for a dotted path string. An invalid path is logged and
// reported as no change.
func (s *Store) SetState(path string, v any, silent bool) bool {
	p, err := ParsePath(path)
	if err != nil {
		s.log.Warn("state write rejected", zap.String("path", path), zap.Error(err))
		return false
	}
	return s.Set(p, v, silent)
}

// Delete removes p. It reports false when p does not exist.
func (s *Store) Delete(p Path, silent bool) bool {
	if p.IsRoot() {
		return false
	}
	old, existed := s.lookup(p)
	if !existed {
		return false
	}
	s.remove(p)
	if silent {
		return true
	}
	if s.history != nil {
		s.history.Push(HistoryEntry{
			Path:      p,
			OldValue:  value.Clone(old),
			NewValue:  Absent,
			Timestamp: s.cfg.now(),
		})
	}
	s.notify(p, nil, old)
	return true
}

// BatchUpdate applies every entry through Set in sorted path order, then,
// unless silent, notifies each changed path a second time with its current
// value. Listeners therefore see two calls per changed path in a batch.
// It returns the number of paths that changed.
func (s *Store) BatchUpdate(updates map[string]any, silent bool) int {
	paths := make([]string, 0, len(updates))
	for k := range updates {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	type change struct {
		path Path
		old  any
	}
	var changed []change
	for _, raw := range paths {
		p, err := ParsePath(raw)
		if err != nil {
			s.log.Warn("batch entry rejected", zap.String("path", raw), zap.Error(err))
			continue
		}
		old := s.Get(p, nil)
		if s.Set(p, updates[raw], silent) {
			changed = append(changed, change{path: p, old: old})
		}
	}
	if !silent {
		for _, c := range changed {
			s.notify(c.path, s.Get(c.path, nil), c.old)
		}
	}
	return len(changed)
}

// Tree returns a deep copy of the whole tree.
func (s *Store) Tree() map[string]any {
	return value.CloneMap(s.root)
}

// ExportJSON encodes the subtree at p (the whole tree for Root). Vector-like
// values carry their "_type" tag.
func (s *Store) ExportJSON(p Path) ([]byte, error) {
	v, ok := s.lookup(p)
	if !ok {
		return nil, fmt.Errorf("export %s: path not found", p)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", p, err)
	}
	return raw, nil
}

func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.root)
}

// lookup walks p. Root resolves to the tree itself.
func (s *Store) lookup(p Path) (any, bool) {
	var cur any = s.root
	for _, key := range p {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// put writes without validation, history or notification. Non-container
// intermediates are replaced by containers.
func (s *Store) put(p Path, v any) {
	node := s.root
	for _, key := range p[:len(p)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[key] = next
		}
		node = next
	}
	node[p.Last()] = v
}

func (s *Store) remove(p Path) {
	parent, ok := s.lookup(p.Parent())
	if !ok {
		return
	}
	if m, ok := parent.(map[string]any); ok {
		delete(m, p.Last())
	}
}

// firstMissing returns the shallowest strict ancestor of p that put would
// create or overwrite, with its current value (Absent when missing). It
// returns nil when every ancestor is already a container.
func (s *Store) firstMissing(p Path) (Path, any) {
	node := s.root
	for i, key := range p[:len(p)-1] {
		cur, ok := node[key]
		if !ok {
			return slices.Clone(p[:i+1]), Absent
		}
		next, ok := cur.(map[string]any)
		if !ok {
			return slices.Clone(p[:i+1]), cur
		}
		node = next
	}
	return nil, nil
}

func (s *Store) record(p Path, existed bool, old, stored any, anchor Path, anchorOld any) {
	if s.history == nil {
		return
	}
	entry := HistoryEntry{
		Path:      p,
		OldValue:  Absent,
		NewValue:  value.Clone(stored),
		Anchor:    anchor,
		AnchorOld: value.Clone(anchorOld),
		Timestamp: s.cfg.now(),
	}
	if existed {
		entry.OldValue = value.Clone(old)
	}
	s.history.Push(entry)
}
