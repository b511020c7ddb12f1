// Package metadata parses caller-supplied field values from JSON, YAML and
// name=value assignments.
//
// Two document shapes are accepted:
//
//	[{"name": "Vendor ID", "values": ["V-1"]}]   list of fields
//	{"Vendor ID": "V-1", "Tags": ["a", "b"]}     mapping, in document order
//
// A scalar value is one value; a list is a multi-select value list; an
// empty list or null clears the field.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// Fields is an ordered list of parsed fields. It unmarshals from either
// document shape in YAML or JSON.
type Fields []model.FieldValue

// ParseJSON parses a JSON metadata document. Numbers are kept as json.Number.
func ParseJSON(data []byte) (Fields, error) {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, invalid("invalid metadata JSON", err)
	}
	return f, nil
}

// ParseYAML parses a YAML metadata document.
func ParseYAML(data []byte) (Fields, error) {
	var f Fields
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, invalid("invalid metadata YAML", err)
	}
	return f, nil
}

// ParseFile reads a metadata file, choosing YAML for .yaml/.yml and JSON otherwise.
func ParseFile(path string) (Fields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, edmerrors.New(edmerrors.ErrCodeFileNotFound, "metadata file not found: "+path, err)
		}
		return nil, edmerrors.IOError("failed to read metadata file "+path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseAssignments parses name=value pairs. Repeating a name adds values to
// a multi-select field; "name=" clears the field.
func ParseAssignments(pairs []string) (Fields, error) {
	var out Fields
	index := make(map[string]int)
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, edmerrors.ValidationError(fmt.Sprintf("invalid field %q: expected name=value", p), nil)
		}
		i, seen := index[name]
		if !seen {
			index[name] = len(out)
			out = append(out, model.FieldValue{Name: name})
			i = len(out) - 1
		}
		if value != "" {
			out[i].Values = append(out[i].Values, value)
		}
	}
	for i := range out {
		if len(out[i].Values) == 0 {
			out[i].Values = []any{nil}
		}
	}
	return out, nil
}

// Merge combines field lists into FieldValues. A name supplied by more than
// one source is a DuplicateField error.
func Merge(sources ...Fields) (model.FieldValues, error) {
	var fv model.FieldValues
	for _, src := range sources {
		for _, f := range src {
			if err := fv.Add(f); err != nil {
				return model.FieldValues{}, err
			}
		}
	}
	return fv, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case json.Delim('['):
		var list []model.DocumentField
		dec2 := json.NewDecoder(bytes.NewReader(data))
		dec2.UseNumber()
		if err := dec2.Decode(&list); err != nil {
			return err
		}
		out, err := fromList(list)
		if err != nil {
			return err
		}
		*f = out
		return nil
	case json.Delim('{'):
		var out Fields
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			var raw any
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			out = append(out, fieldOf(keyTok.(string), raw))
		}
		*f = out
		return nil
	case nil:
		*f = nil
		return nil
	default:
		return fmt.Errorf("metadata must be a list or an object, got %v", tok)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []model.DocumentField
		if err := node.Decode(&list); err != nil {
			return err
		}
		out, err := fromList(list)
		if err != nil {
			return err
		}
		*f = out
		return nil
	case yaml.MappingNode:
		out := make(Fields, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var raw any
			if err := node.Content[i+1].Decode(&raw); err != nil {
				return err
			}
			out = append(out, fieldOf(node.Content[i].Value, raw))
		}
		*f = out
		return nil
	default:
		return fmt.Errorf("line %d: metadata must be a list or a mapping", node.Line)
	}
}

func fromList(list []model.DocumentField) (Fields, error) {
	out := make(Fields, 0, len(list))
	for i, d := range list {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("field %d has no name", i+1)
		}
		out = append(out, model.NewFieldValue(d.Name, d.Values...))
	}
	return out, nil
}

func fieldOf(name string, raw any) model.FieldValue {
	if list, ok := raw.([]any); ok {
		return model.NewFieldValue(name, list...)
	}
	return model.NewFieldValue(name, raw)
}

func invalid(msg string, err error) error {
	return edmerrors.ValidationError(msg+": "+err.Error(), err).
		WithSuggestion(`Use [{"name": "...", "values": [...]}] or {"name": value}`)
}
