package state

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/l1jgo/simcore/internal/core/value"
	"github.com/pmezard/go-difflib/difflib"
)

type absentMarker struct{}

func (absentMarker) String() string { return "<absent>" }

// Absent marks a path that exists on one side of a diff (or history entry)
// but not the other.
var Absent any = absentMarker{}

func IsAbsent(v any) bool {
	_, ok := v.(absentMarker)
	return ok
}

// Diff compares two trees leaf by leaf and returns dotted path -> value in
// to. Paths present only in from map to Absent. When a container is
// replaced by a leaf (or the reverse) the whole new value is reported.
func Diff(from, to map[string]any) map[string]any {
	out := make(map[string]any)
	diffInto(out, Root, from, to)
	return out
}

func diffInto(out map[string]any, prefix Path, from, to map[string]any) {
	for k, fv := range from {
		p := prefix.Child(k)
		tv, ok := to[k]
		if !ok {
			out[p.String()] = Absent
			continue
		}
		fm, fIsMap := fv.(map[string]any)
		tm, tIsMap := tv.(map[string]any)
		if fIsMap && tIsMap {
			diffInto(out, p, fm, tm)
			continue
		}
		if !value.Equal(fv, tv) {
			out[p.String()] = value.Clone(tv)
		}
	}
	for k, tv := range to {
		if _, ok := from[k]; !ok {
			out[prefix.Child(k).String()] = value.Clone(tv)
		}
	}
}

// Diff returns the changes that turn the current tree into other.
func (s *Store) Diff(other map[string]any) map[string]any {
	return Diff(s.root, other)
}

// ApplyDiff replays a diff through Set (Delete for Absent entries) in sorted
// path order, so listeners and history see every change. It returns how many
// entries changed the tree.
func (s *Store) ApplyDiff(d map[string]any) int {
	paths := make([]string, 0, len(d))
	for k := range d {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	applied := 0
	for _, raw := range paths {
		p, err := ParsePath(raw)
		if err != nil || p.IsRoot() {
			continue
		}
		v := d[raw]
		var changed bool
		if IsAbsent(v) {
			changed = s.Delete(p, false)
		} else {
			changed = s.Set(p, v, false)
		}
		if changed {
			applied++
		}
	}
	return applied
}

// RenderDiff produces a unified diff of the indented JSON form of two trees,
// for logs and tooling.
func RenderDiff(fromName string, from map[string]any, toName string, to map[string]any) (string, error) {
	a, err := json.MarshalIndent(from, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render %s: %w", fromName, err)
	}
	b, err := json.MarshalIndent(to, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render %s: %w", toName, err)
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
}
