package state

import (
	"fmt"
	"strings"
)

// Path addresses a node in the state tree. The zero Path is the root.
// Treat a Path as immutable; Child and Parent return new values.
type Path []string

// Root is the empty path.
var Root = Path(nil)

// ParsePath splits a dotted path such as "player.state". The empty string
// parses to Root.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Root, nil
	}
	return PathOf(strings.Split(s, ".")...)
}

// PathOf builds a Path from explicit keys. Keys must be non-empty and may
// not contain a dot, so that every Path has exactly one dotted spelling.
func PathOf(keys ...string) (Path, error) {
	p := make(Path, len(keys))
	for i, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("%w: empty key at %d", ErrInvalidPath, i)
		}
		if strings.Contains(k, ".") {
			return nil, fmt.Errorf("%w: key %q contains '.'", ErrInvalidPath, k)
		}
		p[i] = k
	}
	return p, nil
}

// MustPath is ParsePath for constants.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return strings.Join(p, ".") }
func (p Path) IsRoot() bool   { return len(p) == 0 }

// Parent drops the last key. The parent of Root is Root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Root
	}
	return p[:len(p)-1:len(p)-1]
}

// Child appends key without touching p's backing array.
func (p Path) Child(key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

// Last returns the final key, or "" for Root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}
