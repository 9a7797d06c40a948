package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

// Record is the loader's view of one catalog entry.
type Record struct {
	ID        string         `json:"id" yaml:"id"`
	Scale     string         `json:"scale" yaml:"scale"`
	Name      string         `json:"name" yaml:"name"`
	Data      map[string]any `json:"data" yaml:"data"`
	Tags      []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Directory string         `json:"catalog,omitempty" yaml:"catalog,omitempty"`
}

// Validate checks the fields the loader guarantees: id, scale and name.
func (r Record) Validate() error {
	var missing []string
	if strings.TrimSpace(r.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(r.Scale) == "" {
		missing = append(missing, "scale")
	}
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return errors.NewInvalidRequestError("record %q missing fields: %s", r.ID, strings.Join(missing, ", "))
	}
	if _, err := ParseScale(r.Scale); err != nil {
		return errors.Wrapf(err, "record %q", r.ID)
	}
	return nil
}

// Source yields catalog records.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
	Describe() string
}

// BuildEntities validates records and turns them into entities. Invalid
// records and duplicate ids are skipped and counted.
func BuildEntities(records []Record) ([]*Entity, int) {
	entities := make([]*Entity, 0, len(records))
	seen := make(map[string]bool, len(records))
	skipped := 0
	for i, r := range records {
		if err := r.Validate(); err != nil {
			logger.Warnw("Skipping invalid catalog record",
				"index", i,
				logger.FieldError, err)
			skipped++
			continue
		}
		if seen[r.ID] {
			logger.Warnw("Skipping duplicate catalog id",
				logger.FieldEntityID, r.ID)
			skipped++
			continue
		}
		seen[r.ID] = true

		scale, _ := ParseScale(r.Scale)
		e := NewEntity(r.ID, scale, r.Name, r.Data)
		e.Tags = append([]string(nil), r.Tags...)
		e.Directory = r.Directory
		entities = append(entities, e)
	}
	return entities, skipped
}

// FileSource reads records from a JSON or YAML file. JSON files hold either
// a bare list of records or an object with an "objects" list.
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Describe returns the file path.
func (f *FileSource) Describe() string {
	return f.Path
}

// Load reads and decodes the file.
func (f *FileSource) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog file %s", f.Path)
	}
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		return decodeYAML(raw)
	default:
		return DecodeJSON(raw)
	}
}

type recordEnvelope struct {
	Objects []Record `json:"objects" yaml:"objects"`
}

// DecodeJSON decodes a catalog document. Numbers are decoded as float64.
func DecodeJSON(raw []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("catalog document is empty")
	}
	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, errors.Wrap(err, "failed to decode catalog list")
		}
		return records, nil
	}
	var env recordEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog document")
	}
	if env.Objects == nil {
		return nil, errors.WithHint(
			errors.New("catalog document has no objects list"),
			`expected {"objects": [...]} or a bare list of records`,
		)
	}
	return env.Objects, nil
}

func decodeYAML(raw []byte) ([]Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog yaml")
	}
	if len(node.Content) == 0 {
		return nil, errors.New("catalog document is empty")
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var records []Record
		if err := root.Decode(&records); err != nil {
			return nil, errors.Wrap(err, "failed to decode catalog list")
		}
		return normalizeYAML(records), nil
	}
	var env recordEnvelope
	if err := root.Decode(&env); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog document")
	}
	return normalizeYAML(env.Objects), nil
}

// normalizeYAML widens YAML integers to float64 so both formats produce the
// same property values.
func normalizeYAML(records []Record) []Record {
	for i := range records {
		for k, v := range records[i].Data {
			switch n := v.(type) {
			case int:
				records[i].Data[k] = float64(n)
			case int64:
				records[i].Data[k] = float64(n)
			case uint64:
				records[i].Data[k] = float64(n)
			}
		}
	}
	return records
}
