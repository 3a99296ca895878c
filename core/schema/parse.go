package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseFile parses a schema from a YAML file.
func ParseFile(path string, opts ...Option) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	s, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse parses a schema from YAML bytes. The document is a mapping of field
// name to field spec, either a type name or an object:
//
//	PORT: number
//	HOST: { type: string, default: localhost }
//	PASS: { type: string, destruct: 10m }
//
// Field order follows the document.
func Parse(data []byte, opts ...Option) (*Schema, error) {
	entries, err := ParseEntries(data)
	if err != nil {
		return nil, err
	}
	return New(entries, opts...)
}

// ParseEntries decodes a YAML schema document into entries without
// normalizing them. Scalar defaults are kept as their source text so they
// are cast like any other raw input.
func ParseEntries(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse yaml: schema must be a mapping, got %s", nodeKind(root))
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		spec, err := decodeSpec(value)
		if err != nil {
			return nil, fmt.Errorf("field %q (line %d): %w", key.Value, key.Line, err)
		}
		entries = append(entries, F(key.Value, spec))
	}
	return entries, nil
}

func decodeSpec(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return map[string]any{}, nil
		}
		return n.Value, nil

	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if (key.Value == "default" || key.Value == "defaultRaw" || key.Value == "default_raw") &&
				value.Kind == yaml.ScalarNode && value.Tag != "!!null" {
				m[key.Value] = value.Value
				continue
			}
			var v any
			if err := value.Decode(&v); err != nil {
				return nil, fmt.Errorf("%s: %w", key.Value, err)
			}
			m[key.Value] = v
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFieldShape, nodeKind(n))
	}
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
