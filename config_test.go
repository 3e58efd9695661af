package calcforge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calcforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
commentMarker: "//"
referenceFps: 24
debounceMillis: 100
currency:
  endpoint: "http://localhost:9000/latest/%s"
  timeoutSeconds: 1
  rates:
    EUR: 0.5
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "//", cfg.CommentMarker)
	assert.Equal(t, 24.0, cfg.ReferenceFPS)
	assert.Equal(t, 100, cfg.DebounceMillis)
	assert.Equal(t, "http://localhost:9000/latest/%s", cfg.Currency.Endpoint)
	assert.Equal(t, 1, cfg.Currency.TimeoutSeconds)
	assert.Equal(t, 0.5, cfg.Currency.Rates["EUR"])

	assert.Len(t, cfg.Options(), 6)
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Options())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "commentMarker: [this is not\n  a string")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigOptionsApply(t *testing.T) {
	cfg := &Config{CommentMarker: "//", ReferenceFPS: 24}

	book := NewWorkbook()
	ws, err := book.AddSheet("Main")
	require.NoError(t, err)
	ws.SetText("// note\n1 + 1")

	opts := append(cfg.Options(), WithCurrencyEndpoint(""))
	calc := New(book, opts...)
	lines, err := calc.EvaluateSheet(context.Background(), "Main")
	require.NoError(t, err)
	assert.True(t, lines[0].Value.IsNone())
	assert.Equal(t, "2", lines[1].Value.String())
}
