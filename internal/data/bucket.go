package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/simcore/internal/core/system"
	"gopkg.in/yaml.v3"
)

// BucketEntry is one row of buckets.yaml. Omitted fields take the scheduler
// defaults: frequency 1, priority 100, enabled.
type BucketEntry struct {
	Name      string   `yaml:"name"`
	Frequency *float64 `yaml:"frequency"`
	Priority  *int     `yaml:"priority"`
	Enabled   *bool    `yaml:"enabled"`
	Paused    bool     `yaml:"paused"`
	Note      string   `yaml:"note"`
}

func (e *BucketEntry) frequency() float64 {
	if e.Frequency == nil {
		return 1
	}
	return *e.Frequency
}

func (e *BucketEntry) priority() int {
	if e.Priority == nil {
		return system.DefaultPriority
	}
	return *e.Priority
}

func (e *BucketEntry) enabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// BucketTable is the scheduler layout loaded from yaml, in file order.
type BucketTable struct {
	entries []BucketEntry
	byName  map[string]*BucketEntry
}

// LoadBucketTable loads buckets.yaml.
func LoadBucketTable(path string) (*BucketTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bucket table: %w", err)
	}
	t, err := ParseBucketTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse bucket table %s: %w", path, err)
	}
	return t, nil
}

// ParseBucketTable decodes and validates a yaml bucket list.
func ParseBucketTable(raw []byte) (*BucketTable, error) {
	var entries []BucketEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	t := &BucketTable{
		entries: entries,
		byName:  make(map[string]*BucketEntry, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		if e.Name == "" {
			return nil, fmt.Errorf("entry %d: %w", i, system.ErrInvalidBucket)
		}
		if _, dup := t.byName[e.Name]; dup {
			return nil, fmt.Errorf("entry %d: %w: %q", i, system.ErrBucketExists, e.Name)
		}
		if f := e.frequency(); !(f > 0) {
			return nil, fmt.Errorf("bucket %q: %w: %v", e.Name, system.ErrInvalidFrequency, f)
		}
		t.byName[e.Name] = e
	}
	return t, nil
}

// Get returns the entry for name, or nil if none.
func (t *BucketTable) Get(name string) *BucketEntry {
	return t.byName[name]
}

// Entries returns the rows in file order.
func (t *BucketTable) Entries() []BucketEntry {
	out := make([]BucketEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Count returns the number of buckets in the table.
func (t *BucketTable) Count() int {
	return len(t.entries)
}

// Apply creates the buckets s is missing and brings existing ones in line
// with the table. Buckets not named in the table are left alone, so
// callbacks registered against them survive a reload.
func (t *BucketTable) Apply(s *system.Scheduler) error {
	for i := range t.entries {
		e := &t.entries[i]
		if !s.HasBucket(e.Name) {
			err := s.AddBucket(e.Name,
				system.WithFrequency(e.frequency()),
				system.WithBucketPriority(e.priority()),
				system.WithEnabled(e.enabled()),
			)
			if err != nil {
				return err
			}
		} else {
			if err := s.SetFrequency(e.Name, e.frequency()); err != nil {
				return err
			}
			if err := s.SetBucketPriority(e.Name, e.priority()); err != nil {
				return err
			}
			toggle := s.DisableBucket
			if e.enabled() {
				toggle = s.EnableBucket
			}
			if err := toggle(e.Name); err != nil {
				return err
			}
		}
		pause := s.ResumeBucket
		if e.Paused {
			pause = s.PauseBucket
		}
		if err := pause(e.Name); err != nil {
			return err
		}
	}
	return nil
}
