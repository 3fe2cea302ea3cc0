package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_OverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[kernel]
name = "club"
tick_rate = "20ms"

[bus]
queue = true
queue_size = 64

[journal]
enabled = true
frequency = 0.5
`))
	require.NoError(t, err)

	assert.Equal(t, "club", cfg.Kernel.Name)
	assert.Equal(t, 20*time.Millisecond, cfg.Kernel.TickRate)
	assert.True(t, cfg.Bus.Queue)
	assert.Equal(t, 64, cfg.Bus.QueueSize)
	assert.Equal(t, 100, cfg.Bus.HistorySize, "untouched keys keep defaults")
	assert.Equal(t, "persist", cfg.Journal.Bucket)
	assert.Equal(t, 0.5, cfg.Journal.Frequency)
	assert.NotZero(t, cfg.Kernel.StartTime)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"tick rate":        "[kernel]\ntick_rate = \"0s\"",
		"bus history size": "[bus]\nhistory_size = 0",
		"journal no queue": "[journal]\nenabled = true",
		"journal freq":     "[bus]\nqueue = true\n[journal]\nenabled = true\nfrequency = 0.0",
		"syntax":           "[kernel",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simcore.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nformat = \"json\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logging.Format)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPath_Env(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv(EnvPath, "/etc/simcore.toml")
	assert.Equal(t, "/etc/simcore.toml", Path())
}

func TestFileWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buckets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))

	fw, err := WatchFile(path, nil)
	require.NoError(t, err)
	defer fw.Close()

	assert.False(t, fw.Poll())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("- name: update\n"), 0o644))

	select {
	case <-fw.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal")
	}

	require.NoError(t, fw.Close())
	require.NoError(t, fw.Close())
}
