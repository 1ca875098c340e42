package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the serialisation used by Parse and Marshal.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFromPath picks a Format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("schema: unsupported file extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Load reads a schema file. Unknown fields are rejected so that typos in
// check parameters do not silently disable a check.
func Load(path string) (Schema, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return Schema{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	s, err := Parse(b, f)
	if err != nil {
		return Schema{}, fmt.Errorf("schema: %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document.
func Parse(b []byte, f Format) (Schema, error) {
	var s Schema
	switch f {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return Schema{}, fmt.Errorf("decode json: %w", err)
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return Schema{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return Schema{}, fmt.Errorf("unknown format %q", f)
	}
	// Loose type spellings ("integer", "double") are normalised here; anything
	// unrecognised is left for Lint to report.
	for i, c := range s.Columns {
		if t, err := ParseType(string(c.Type)); err == nil {
			s.Columns[i].Type = t
		}
	}
	return s, nil
}

// Marshal encodes s for inspection or for use as a starting point.
func Marshal(s Schema, f Format) ([]byte, error) {
	switch f {
	case JSON:
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("schema: unknown format %q", f)
	}
}
