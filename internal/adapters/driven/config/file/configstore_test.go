package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(vars map[string]string) Option {
	return WithEnvLookup(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
}

func newTestStore(t *testing.T, vars map[string]string) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir(), envFrom(vars))
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestStore(t, nil)

	require.NoError(t, store.Set("figures.min_segments", 40))
	require.NoError(t, store.Set("figures.area_frac", 0.008))
	require.NoError(t, store.Set("figures.strict_captions", true))
	require.NoError(t, store.Set("figures.caption_tokens", []string{"figure", "chart"}))
	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))

	assert.Equal(t, 40, store.GetInt("figures.min_segments"))
	assert.Equal(t, 40.0, store.GetFloat("figures.min_segments"))
	assert.InDelta(t, 0.008, store.GetFloat("figures.area_frac"), 1e-12)
	assert.True(t, store.GetBool("figures.strict_captions"))
	assert.Equal(t, []string{"figure", "chart"}, store.GetStringSlice("figures.caption_tokens"))
	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
}

func TestConfigStore_WrongTypesYieldZero(t *testing.T) {
	store := newTestStore(t, nil)
	require.NoError(t, store.Set("a", true))

	assert.Equal(t, "", store.GetString("a"))
	assert.Equal(t, 0, store.GetInt("a"))
	assert.Equal(t, 0.0, store.GetFloat("a"))
	assert.Nil(t, store.GetStringSlice("a"))
	assert.False(t, store.GetBool("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir, envFrom(nil))
	require.NoError(t, err)

	require.NoError(t, store.Set("figures.min_segments", 25))
	require.NoError(t, store.Set("retrieval.chunk_weights.lexical", 0.4))
	require.NoError(t, store.Set("session.active_document", "abc"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[figures]")
	assert.Contains(t, string(raw), "[retrieval.chunk_weights]")

	reloaded, err := NewConfigStore(tmpDir, envFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, 25, reloaded.GetInt("figures.min_segments"))
	assert.InDelta(t, 0.4, reloaded.GetFloat("retrieval.chunk_weights.lexical"), 1e-12)
	assert.Equal(t, "abc", reloaded.GetString("session.active_document"))
}

func TestConfigStore_ReadsHandWrittenTOML(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[figures]
min_segments = 12
caption_tokens = ["fig.", "plot"]

[vector]
backend = "qdrant"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir, envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 12, store.GetInt("figures.min_segments"))
	assert.Equal(t, []string{"fig.", "plot"}, store.GetStringSlice("figures.caption_tokens"))
	assert.Equal(t, "qdrant", store.GetString("vector.backend"))
}

func TestConfigStore_KeyCollidingWithLeafSurvivesReload(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir, envFrom(nil))
	require.NoError(t, err)

	require.NoError(t, store.Set("a", "leaf"))
	require.NoError(t, store.Set("a.b", "nested"))

	reloaded, err := NewConfigStore(tmpDir, envFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, "leaf", reloaded.GetString("a"))
	assert.Equal(t, "nested", reloaded.GetString("a.b"))
}

func TestConfigStore_EnvOverridesFile(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"SERCHA_PDF_FIGURES_MIN_SEGMENTS":    "7",
		"SERCHA_PDF_FIGURES_AREA_FRAC":       "0.5",
		"SERCHA_PDF_FIGURES_STRICT_CAPTIONS": "true",
		"SERCHA_PDF_FIGURES_CAPTION_TOKENS":  "fig., plot ,",
	})
	require.NoError(t, store.Set("figures.min_segments", 40))

	assert.Equal(t, 7, store.GetInt("figures.min_segments"))
	assert.Equal(t, 0.5, store.GetFloat("figures.area_frac"))
	assert.True(t, store.GetBool("figures.strict_captions"))
	assert.Equal(t, []string{"fig.", "plot"}, store.GetStringSlice("figures.caption_tokens"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "min_segments = 40")
}

func TestConfigStore_ProviderKeyAliases(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"OPENAI_API_KEY":             "sk-openai",
		"ANTHROPIC_API_KEY":          "sk-ant",
		"SERCHA_PDF_UPLOADS_API_KEY": "sk-prefixed",
		"QDRANT_API_KEY":             "",
	})

	assert.Equal(t, "sk-openai", store.GetString("embedding.api_key"))
	assert.Equal(t, "sk-prefixed", store.GetString("uploads.api_key"))
	assert.Equal(t, "", store.GetString("vector.qdrant_api_key"))
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "SERCHA_PDF_RETRIEVAL_CHUNK_WEIGHTS_LEXICAL", EnvName("retrieval.chunk_weights.lexical"))
	assert.Equal(t, "SERCHA_PDF_A_B", EnvName("a-b"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERCHA_PDF_TEST_DOTENV=loaded\n"), 0600))
	t.Setenv("SERCHA_PDF_TEST_DOTENV_PRESET", "kept")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "preset.env"),
		[]byte("SERCHA_PDF_TEST_DOTENV_PRESET=overwritten\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("SERCHA_PDF_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path, filepath.Join(dir, "preset.env")))

	assert.Equal(t, "loaded", os.Getenv("SERCHA_PDF_TEST_DOTENV"))
	assert.Equal(t, "kept", os.Getenv("SERCHA_PDF_TEST_DOTENV_PRESET"))
}

func TestConfigStore_SaveWriteFileError(t *testing.T) {
	store := newTestStore(t, nil)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store := newTestStore(t, nil)

	assert.Error(t, store.Set("channel", make(chan int)))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestStore(t, nil)
	require.NoError(t, store.Set("k", "v"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("counter")
		}()
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}
