package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	want := []Document{
		{Content: "NSE opens at 9am", Source: "trading-hours"},
		{Content: "Dividends are paid quarterly"},
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "passages.yaml",
			content: `
- content: "  NSE opens at 9am  "
  source: trading-hours
- content: Dividends are paid quarterly
`,
		},
		{
			name:    "yml extension",
			file:    "passages.YML",
			content: "- {content: NSE opens at 9am, source: trading-hours}\n- content: Dividends are paid quarterly\n",
		},
		{
			name:    "json",
			file:    "passages.json",
			content: `[{"content":"NSE opens at 9am","source":"trading-hours"},{"content":"Dividends are paid quarterly"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := LoadFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, want, docs)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errMsg  string
	}{
		{"unsupported extension", "passages.txt", "NSE opens at 9am", "unsupported passage file extension"},
		{"blank content", "p.yaml", "- content: ok\n- content: '   '\n", "document 1: content is empty"},
		{"empty list", "p.json", "[]", "no documents found"},
		{"malformed yaml", "p.yaml", "- content: [unclosed", "invalid YAML"},
		{"unknown json field", "p.json", `[{"content":"x","url":"y"}]`, "invalid JSON"},
		{"not a list", "p.json", `{"content":"x"}`, "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_ErrNoDocuments(t *testing.T) {
	_, err := Parse([]byte(""), FormatYAML)
	assert.ErrorIs(t, err, ErrNoDocuments)
}
