package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsNil(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")
	in := &Config{
		CurrentContext: "lab",
		Contexts: map[string]*Context{
			"lab": {Host: "10.0.0.5", Port: 9000, IdleTimeoutMs: 500},
		},
	}
	require.NoError(t, in.Save(path))

	out, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, out)
}

func TestResolve(t *testing.T) {
	cfg := &Config{
		CurrentContext: "lab",
		Contexts: map[string]*Context{
			"lab":   {Host: "10.0.0.5", Port: 9000},
			"local": {Host: "127.0.0.1", Port: 4444},
		},
	}

	ctx, name, err := cfg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "lab", name)
	assert.Equal(t, "10.0.0.5", ctx.Host)

	ctx, _, err = cfg.Resolve("local")
	require.NoError(t, err)
	assert.Equal(t, 4444, ctx.Port)

	_, _, err = cfg.Resolve("nope")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestResolveNilConfig(t *testing.T) {
	var cfg *Config
	ctx, name, err := cfg.Resolve("anything")
	require.NoError(t, err)
	assert.Nil(t, ctx)
	assert.Empty(t, name)
}
