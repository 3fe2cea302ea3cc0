package event

import (
	"fmt"
	"strings"
	"unicode"
)

// Topic names a pub/sub channel using dot notation, e.g. "player.move".
// A topic containing '*' (any run of characters, dots included) or '?'
// (exactly one character) is a pattern and is matched against the whole
// emitted topic.
type Topic string

const (
	// Separator splits topic segments.
	Separator = "."

	wildcardAny  = '*'
	wildcardOne  = '?'
	wildcardRune = "*?"
)

func (t Topic) String() string { return string(t) }

// IsPattern reports whether t contains a wildcard.
func (t Topic) IsPattern() bool {
	return strings.ContainsAny(string(t), wildcardRune)
}

// Validate rejects empty topics, empty segments and whitespace.
func (t Topic) Validate() error {
	s := string(t)
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	for _, seg := range strings.Split(s, Separator) {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidTopic, s)
		}
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: whitespace in %q", ErrInvalidTopic, s)
	}
	return nil
}

// ParseTopic validates s and returns it as a Topic.
func ParseTopic(s string) (Topic, error) {
	t := Topic(s)
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

// MustTopic is ParseTopic for constants; it panics on an invalid topic.
func MustTopic(s string) Topic {
	t, err := ParseTopic(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Matches reports whether the concrete topic is matched by pattern t.
// A topic without wildcards only matches itself.
func (t Topic) Matches(concrete Topic) bool {
	if !t.IsPattern() {
		return t == concrete
	}
	return globMatch([]rune(string(t)), []rune(string(concrete)))
}

// globMatch is an anchored '*'/'?' match with single-star backtracking.
func globMatch(pattern, s []rune) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && pattern[p] == wildcardAny:
			star, mark = p, i
			p++
		case p < len(pattern) && (pattern[p] == wildcardOne || pattern[p] == s[i]):
			p++
			i++
		case star >= 0:
			// Let the last '*' swallow one more character and retry.
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == wildcardAny {
		p++
	}
	return p == len(pattern)
}
