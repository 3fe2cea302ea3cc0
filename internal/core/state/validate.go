package state

import (
	"fmt"
	"slices"
)

// Rule is a shallow check bound to one path. Required lists keys a
// container written at Path must carry; Enum lists the strings a leaf
// written at Path may take.
type Rule struct {
	Path     Path
	Required []string
	Enum     []string
}

// Validator holds rules keyed by exact path. Writes below or above a rule's
// path are not checked.
type Validator struct {
	rules map[string]Rule
}

// DefaultRules covers the two subtrees every scene relies on: the player
// node needs a position and rotation, and the player's locomotion state is
// one of a fixed set.
func DefaultRules() []Rule {
	return []Rule{
		{Path: Path{"player"}, Required: []string{"position", "rotation"}},
		{Path: Path{"player", "state"}, Enum: []string{"idle", "walk", "run", "jump", "dance"}},
	}
}

func NewValidator(rules ...Rule) *Validator {
	v := &Validator{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		v.rules[r.Path.String()] = r
	}
	return v
}

// Check validates a value about to be written at p.
func (v *Validator) Check(p Path, val any) error {
	r, ok := v.rules[p.String()]
	if !ok {
		return nil
	}
	if len(r.Required) > 0 {
		m, ok := val.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s must be a container", ErrValidation, p)
		}
		for _, key := range r.Required {
			if _, ok := m[key]; !ok {
				return fmt.Errorf("%w: %s missing %q", ErrValidation, p, key)
			}
		}
	}
	if len(r.Enum) > 0 {
		str, ok := val.(string)
		if !ok || !slices.Contains(r.Enum, str) {
			return fmt.Errorf("%w: %s = %v not in %v", ErrValidation, p, val, r.Enum)
		}
	}
	return nil
}

// CheckTree validates every rule whose path exists in tree.
func (v *Validator) CheckTree(tree map[string]any) error {
	for _, r := range v.rules {
		var cur any = tree
		found := true
		for _, key := range r.Path {
			m, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			if cur, ok = m[key]; !ok {
				found = false
				break
			}
		}
		if !found {
			continue
		}
		if err := v.Check(r.Path, cur); err != nil {
			return err
		}
	}
	return nil
}
