package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

func TestRegistry_Build(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &mockProcessor{name: name}, nil
	})

	t.Run("registered", func(t *testing.T) {
		proc, err := r.Build("test", map[string]any{"name": "custom"})
		require.NoError(t, err)
		assert.Equal(t, "custom", proc.Name())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := r.Build("unknown", nil)
		assert.Error(t, err)
	})
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, logger.Nop())

	assert.Equal(t, []string{NameAliases, NameSchema}, r.Names())
	assert.True(t, r.Has(NameAliases))
	assert.False(t, r.Has("chunker"))
}

func TestRegistry_BuildPipeline(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, logger.Nop())

	p, err := r.BuildPipeline([]string{NameAliases, NameSchema}, map[string]map[string]any{
		NameAliases: {"extra": map[string]any{"roomName": "name"}},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{NameAliases, NameSchema}, p.Names())

	_, err = r.BuildPipeline([]string{"missing"}, nil)
	assert.Error(t, err)
}

func TestGetStringMapFromConfig(t *testing.T) {
	cfg := map[string]any{
		"extra": map[string]any{"a": "b", "n": 3},
		"flat":  "x",
	}

	assert.Equal(t, map[string]string{"a": "b"}, getStringMapFromConfig(cfg, "extra"))
	assert.Nil(t, getStringMapFromConfig(cfg, "flat"))
	assert.Nil(t, getStringMapFromConfig(nil, "extra"))
}
