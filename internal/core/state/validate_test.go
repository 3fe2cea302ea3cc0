package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Check(t *testing.T) {
	v := NewValidator(DefaultRules()...)

	assert.NoError(t, v.Check(MustPath("player"), map[string]any{"position": 0, "rotation": 0, "extra": 1}))
	assert.ErrorIs(t, v.Check(MustPath("player"), map[string]any{"position": 0}), ErrValidation)
	assert.ErrorIs(t, v.Check(MustPath("player"), "nope"), ErrValidation)

	assert.NoError(t, v.Check(MustPath("player.state"), "dance"))
	assert.ErrorIs(t, v.Check(MustPath("player.state"), "fly"), ErrValidation)
	assert.ErrorIs(t, v.Check(MustPath("player.state"), 3), ErrValidation)

	assert.NoError(t, v.Check(MustPath("player.hp"), "anything"))
}

func TestStore_ValidatorGatesWrites(t *testing.T) {
	s := NewStore(nil, WithValidator(NewValidator(DefaultRules()...)))

	assert.False(t, s.SetState("player.state", "fly", false))
	assert.False(t, s.Has(MustPath("player.state")))
	assert.True(t, s.SetState("player.state", "run", false))

	assert.False(t, s.SetState("player", map[string]any{"position": 1}, false))
	assert.True(t, s.SetState("player.position", 1, false), "writes below a rule path are not checked")
}

func TestStore_ValidatorGatesSnapshots(t *testing.T) {
	s := NewStore(nil, WithValidator(NewValidator(DefaultRules()...)))

	err := s.RestoreSnapshot(map[string]any{"player": map[string]any{"state": "fly", "position": 0, "rotation": 0}})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, s.RestoreSnapshot(map[string]any{"player": map[string]any{"state": "idle", "position": 0, "rotation": 0}}))
	require.NoError(t, s.RestoreSnapshot(map[string]any{"club": 1}))
}

func TestPath(t *testing.T) {
	p, err := ParsePath("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", p.String())
	assert.Equal(t, "a.b", p.Parent().String())
	assert.Equal(t, "c", p.Last())
	assert.True(t, p.Parent().Parent().Parent().IsRoot())
	assert.True(t, Root.Parent().IsRoot())

	child := p.Parent().Child("x")
	assert.Equal(t, "a.b.x", child.String())
	assert.Equal(t, "a.b.c", p.String(), "Child must not clobber the parent's backing array")

	root, err := ParsePath("")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	_, err = ParsePath("a..b")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = PathOf("a", "b.c")
	assert.ErrorIs(t, err, ErrInvalidPath)

	explicit, err := PathOf("player", "state")
	require.NoError(t, err)
	assert.Equal(t, MustPath("player.state"), explicit)
	assert.Panics(t, func() { MustPath(".") })
}
