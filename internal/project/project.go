// Package project reads and writes activity networks as files. It checks the
// shape of a document only; the graph enforces the scheduling invariants.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/joshharrison/crashpath/internal/graph"
)

// Format is a project file encoding.
type Format string

const (
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatTOML       Format = "toml"
	FormatLegacyJSON Format = "legacy-json" // {"activities": [...names], "data": {...}}
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported project file extension %q (want .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// document is the on-disk records layout shared by JSON, YAML and TOML.
type document struct {
	Activities []activity `json:"activities" yaml:"activities" toml:"activities"`
}

type activity struct {
	ID             string   `json:"id" yaml:"id" toml:"id"`
	Predecessors   []string `json:"predecessors" yaml:"predecessors" toml:"predecessors"`
	NormalDuration float64  `json:"normal_duration" yaml:"normal_duration" toml:"normal_duration"`
	CrashDuration  float64  `json:"crash_duration" yaml:"crash_duration" toml:"crash_duration"`
	NormalCost     float64  `json:"normal_cost" yaml:"normal_cost" toml:"normal_cost"`
	CrashCost      float64  `json:"crash_cost" yaml:"crash_cost" toml:"crash_cost"`
}

// Decode parses data in format f. JSON input in the legacy layout is
// recognised and accepted under FormatJSON as well.
func Decode(data []byte, f Format) ([]graph.Record, error) {
	var doc document
	switch f {
	case FormatJSON:
		if isLegacy(data) {
			return decodeLegacy(data)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json project: %w", err)
		}
	case FormatLegacyJSON:
		return decodeLegacy(data)
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml project: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("decode toml project: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode toml project: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unknown project format %q", f)
	}
	return doc.records()
}

// Encode renders records in format f.
func Encode(records []graph.Record, f Format) ([]byte, error) {
	doc := newDocument(records)
	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case FormatLegacyJSON:
		return encodeLegacy(records)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode yaml project: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("encode toml project: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown project format %q", f)
	}
}

// ReadFile loads records from path, choosing the format by extension.
func ReadFile(path string) ([]graph.Record, error) {
	records, _, err := Open(path)
	return records, err
}

// Open is ReadFile that also reports the layout the file was found in, so a
// legacy JSON file can be saved back in the same layout.
func Open(path string) ([]graph.Record, Format, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read project: %w", err)
	}
	if f == FormatJSON && isLegacy(data) {
		f = FormatLegacyJSON
	}
	records, err := Decode(data, f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return records, f, nil
}

// WriteFile saves records to path. The file is written to a temporary sibling
// first and renamed into place.
func WriteFile(path string, records []graph.Record, f Format) error {
	data, err := Encode(records, f)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write project: %w", err)
	}
	return nil
}

func newDocument(records []graph.Record) document {
	doc := document{Activities: make([]activity, 0, len(records))}
	for _, r := range records {
		preds := make([]string, len(r.Predecessors))
		for i, p := range r.Predecessors {
			preds[i] = string(p)
		}
		doc.Activities = append(doc.Activities, activity{
			ID:             string(r.ID),
			Predecessors:   preds,
			NormalDuration: r.NormalDuration,
			CrashDuration:  r.CrashDuration,
			NormalCost:     r.NormalCost,
			CrashCost:      r.CrashCost,
		})
	}
	return doc
}

func (d document) records() ([]graph.Record, error) {
	out := make([]graph.Record, 0, len(d.Activities))
	for i, a := range d.Activities {
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("activity #%d: missing id", i+1)
		}
		preds := make([]graph.ActivityID, len(a.Predecessors))
		for j, p := range a.Predecessors {
			preds[j] = graph.ActivityID(p)
		}
		out = append(out, graph.Record{
			ID:             graph.ActivityID(a.ID),
			Predecessors:   preds,
			NormalDuration: a.NormalDuration,
			CrashDuration:  a.CrashDuration,
			NormalCost:     a.NormalCost,
			CrashCost:      a.CrashCost,
		})
	}
	return out, nil
}
