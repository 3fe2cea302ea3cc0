package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeds(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte("player:\n  hp: 100\n  state: idle\nclub:\n  music: on\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("player:\n  hp: 90\n  state: idle\n"), 0o644))
	return a, b
}

func TestRun_Flat(t *testing.T) {
	a, b := seeds(t)
	var out bytes.Buffer

	differ, err := run(&out, a, b, false, false)
	require.NoError(t, err)
	assert.True(t, differ)

	text := out.String()
	assert.Contains(t, text, "- club\n")
	assert.Contains(t, text, "+ player.hp = 90\n")
	assert.NotContains(t, text, "player.state")
	assert.Contains(t, text, "--- "+a)
	assert.Contains(t, text, "+++ "+b)
}

func TestRun_JSON(t *testing.T) {
	a, b := seeds(t)
	var out bytes.Buffer

	_, err := run(&out, a, b, true, false)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, map[string]any{"club": nil, "player.hp": 90.0}, got)
}

func TestRun_Same(t *testing.T) {
	a, _ := seeds(t)
	var out bytes.Buffer

	differ, err := run(&out, a, a, false, false)
	require.NoError(t, err)
	assert.False(t, differ)
	assert.Empty(t, out.String())

	_, err = run(&out, a, filepath.Join(t.TempDir(), "nope.yaml"), false, false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
