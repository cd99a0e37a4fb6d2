package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "deep")

	store, err := NewConfigStore(nestedPath)

	require.NoError(t, err)
	info, err := os.Stat(nestedPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	assert.Equal(t, filepath.Join(nestedPath, "config.toml"), store.Path())
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("llm.max_tokens", 32000))
	require.NoError(t, store.Set("llm.temperature", 0.2))
	require.NoError(t, store.Set("processing.json_mode", true))
	require.NoError(t, store.Set("processing.postprocessors", []string{"aliases", "schema"}))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("llm.provider"), "openai"},
		{"int", store.GetInt("llm.max_tokens"), 32000},
		{"float", store.GetFloat("llm.temperature"), 0.2},
		{"int as float", store.GetFloat("llm.max_tokens"), 32000.0},
		{"bool", store.GetBool("processing.json_mode"), true},
		{"slice", store.GetStringSlice("processing.postprocessors"), []string{"aliases", "schema"}},
		{"wrong type string", store.GetString("llm.max_tokens"), ""},
		{"wrong type int", store.GetInt("llm.provider"), 0},
		{"wrong type bool", store.GetBool("llm.provider"), false},
		{"missing float", store.GetFloat("nope"), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_Persistence_NestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store1.Set("llm.provider", "anthropic"))
	require.NoError(t, store1.Set("llm.max_tokens", 8000))
	require.NoError(t, store1.Set("processing.concurrency", 3))
	require.NoError(t, store1.Set("postprocessors.aliases.extra.roomName", "name"))

	data, err := os.ReadFile(store1.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[llm]")
	assert.NotContains(t, string(data), `"llm.provider"`)

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", store2.GetString("llm.provider"))
	assert.Equal(t, 8000, store2.GetInt("llm.max_tokens"))
	assert.Equal(t, 3, store2.GetInt("processing.concurrency"))
	assert.Equal(t, "name", store2.GetString("postprocessors.aliases.extra.roomName"))
}

func TestConfigStore_Keys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.model", "m"))
	require.NoError(t, store.Set("llm.base_url", "u"))
	require.NoError(t, store.Set("processing.window_size", 100))

	assert.Equal(t, []string{"llm.base_url", "llm.model"}, store.Keys("llm."))
	assert.Nil(t, store.Keys("storage."))
}

func TestConfigStore_EnvOverride(t *testing.T) {
	env := map[string]string{"SECOND": "from-env"}
	store, err := NewConfigStore(t.TempDir(),
		WithEnv("llm.api_key", "FIRST", "SECOND"),
		WithGetenv(func(k string) string { return env[k] }),
	)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.api_key", "from-file"))
	assert.Equal(t, "from-env", store.GetString("llm.api_key"))

	env["FIRST"] = "first-wins"
	assert.Equal(t, "first-wins", store.GetString("llm.api_key"))

	delete(env, "FIRST")
	delete(env, "SECOND")
	assert.Equal(t, "from-file", store.GetString("llm.api_key"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("# Just a comment\n\n"), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory to cause write error
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	// Channels cannot be marshaled to TOML
	assert.Error(t, store.Set("channel", make(chan int)))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := "processing.key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.Keys("processing.")
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestUnflattenMap(t *testing.T) {
	got := unflattenMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
		"f":     "scalar",
		"f.g":   "dropped",
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
		"f": "scalar",
	}, got)
}
