// Package schemafile reads and writes entity type definitions in the
// schema DSL, YAML, TOML and JSON formats.
package schemafile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/services/parser"
)

// Format identifies a schema file format
type Format string

const (
	FormatDSL  Format = "schema"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Formats returns the supported formats
func Formats() []Format {
	return []Format{FormatDSL, FormatYAML, FormatTOML, FormatJSON}
}

// document is the structured file layout:
//
//	entityTypes:
//	  - id: book
//	    idAttribute: isbn
//	    attributes: [...]
type document struct {
	EntityTypes []entities.EntityTypeDefinition `json:"entityTypes" yaml:"entityTypes" toml:"entityTypes"`
}

// ParseFormat returns the format with the given name. "yml" is accepted
// for YAML.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	if name == "yml" {
		return FormatYAML, nil
	}
	for _, f := range Formats() {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported schema format: %s", name)
}

// FormatOf returns the format of a file from its extension
func FormatOf(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("schema file %s has no extension", path)
	}
	return ParseFormat(ext)
}

// Load reads and validates the definitions in a schema file.
// known names stored entity types the file may reference.
func Load(path string, known ...string) ([]*entities.EntityTypeDefinition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	defs, err := Decode(f, format, known...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Decode reads and validates definitions in the given format
func Decode(r io.Reader, format Format, known ...string) ([]*entities.EntityTypeDefinition, error) {
	if format == FormatDSL {
		input, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		return parser.ParseDefinitions(string(input), known...)
	}

	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported schema format: %s", format)
	}

	defs := make([]*entities.EntityTypeDefinition, len(doc.EntityTypes))
	for i := range doc.EntityTypes {
		defs[i] = &doc.EntityTypes[i]
	}
	if err := validate(defs, known); err != nil {
		return nil, err
	}
	return defs, nil
}

// Encode writes definitions in the given format
func Encode(w io.Writer, format Format, defs []*entities.EntityTypeDefinition) error {
	if format == FormatDSL {
		ast, err := parser.DefinitionsToAST(defs)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, parser.NewGenerator().Generate(ast))
		return err
	}

	doc := document{EntityTypes: make([]entities.EntityTypeDefinition, len(defs))}
	for i, d := range defs {
		doc.EntityTypes[i] = *d
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode TOML: %w", err)
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported schema format: %s", format)
	}
}

// validate applies the DSL validation rules to structured definitions
func validate(defs []*entities.EntityTypeDefinition, known []string) error {
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("entity type without id")
		}
	}
	ast, err := parser.DefinitionsToAST(defs)
	if err != nil {
		return err
	}
	return parser.NewValidator(ast).WithKnownEntities(known...).Validate()
}
