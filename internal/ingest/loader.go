// Package ingest reads knowledge base passages from YAML or JSON files.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a passage file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrNoDocuments is returned for a file without entries
var ErrNoDocuments = errors.New("no documents found")

// Document is one passage to be embedded and stored
type Document struct {
	Content string `yaml:"content" json:"content"`
	Source  string `yaml:"source,omitempty" json:"source,omitempty"`
}

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported passage file extension %q (want .yaml, .yml or .json)", filepath.Ext(path))
	}
}

// LoadFile reads and validates a passage file
func LoadFile(path string) ([]Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	docs, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return docs, nil
}

// Parse decodes a list of documents. Content and source are trimmed and
// blank contents are rejected with their index.
func Parse(data []byte, format Format) ([]Document, error) {
	var docs []Document

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	for i := range docs {
		docs[i].Content = strings.TrimSpace(docs[i].Content)
		docs[i].Source = strings.TrimSpace(docs[i].Source)
		if docs[i].Content == "" {
			return nil, fmt.Errorf("document %d: content is empty", i)
		}
	}
	return docs, nil
}
