package parser

import (
	"fmt"
	"strings"

	"github.com/asakaida/entitystore/internal/entities"
)

// Validator validates the parsed schema AST
type Validator struct {
	schema   *SchemaAST
	errors   []string
	entities map[string]*EntityAST
	known    map[string]bool
}

// NewValidator creates a new Validator
func NewValidator(schema *SchemaAST) *Validator {
	entities := make(map[string]*EntityAST)
	for _, entity := range schema.Entities {
		entities[entity.Name] = entity
	}
	return &Validator{
		schema:   schema,
		errors:   []string{},
		entities: entities,
		known:    make(map[string]bool),
	}
}

// WithKnownEntities declares entity types defined outside the document,
// such as already stored ones, as valid reference targets
func (v *Validator) WithKnownEntities(names ...string) *Validator {
	for _, n := range names {
		v.known[n] = true
	}
	return v
}

// Validate validates the schema and returns error if invalid
func (v *Validator) Validate() error {
	v.validateUniqueEntityNames()
	for _, entity := range v.schema.Entities {
		v.validateIdentifier(entity)
		v.validateAttributes(entity, entity.Attributes, make(map[string]bool))
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *Validator) errorf(entity *EntityAST, format string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf("entity %s: ", entity.Name)+fmt.Sprintf(format, args...))
}

// validateUniqueEntityNames checks for duplicate entity names
func (v *Validator) validateUniqueEntityNames() {
	seen := make(map[string]bool)
	for _, entity := range v.schema.Entities {
		if seen[entity.Name] {
			v.errors = append(v.errors, fmt.Sprintf("duplicate entity name: %s", entity.Name))
		}
		seen[entity.Name] = true
	}
}

// validateIdentifier checks that exactly one top-level id is declared
func (v *Validator) validateIdentifier(entity *EntityAST) {
	var ids []*AttributeAST
	for _, a := range entity.Attributes {
		if a.Kind == KindID {
			ids = append(ids, a)
		}
	}
	switch len(ids) {
	case 0:
		v.errorf(entity, "missing id attribute")
		return
	case 1:
	default:
		v.errorf(entity, "multiple id attributes: %s, %s", ids[0].Name, ids[1].Name)
		return
	}

	id := ids[0]
	t, err := entities.ParseAttributeType(id.Type)
	if err != nil {
		return // reported by validateAttributes
	}
	if !t.IsValidIDType() {
		v.errorf(entity, "id attribute %s has illegal type %s", id.Name, id.Type)
	}
	if id.Nullable {
		v.errorf(entity, "id attribute %s cannot be nullable", id.Name)
	}
	if id.Auto && t != entities.AttributeTypeString {
		v.errorf(entity, "auto id attribute %s must be of type string", id.Name)
	}
}

// validateAttributes validates attribute declarations, recursing into
// compounds; names must be unique across the whole entity
func (v *Validator) validateAttributes(entity *EntityAST, attrs []*AttributeAST, seen map[string]bool) {
	for _, a := range attrs {
		if seen[a.Name] {
			v.errorf(entity, "duplicate attribute name: %s", a.Name)
		}
		seen[a.Name] = true

		t, err := entities.ParseAttributeType(a.Type)
		if err != nil {
			v.errorf(entity, "invalid attribute type: %s (attribute: %s)", a.Type, a.Name)
			continue
		}

		if a.Kind != KindID && a.Auto {
			v.errorf(entity, "attribute %s: auto is only allowed on the id attribute", a.Name)
		}
		if a.MaxLength > 0 && !t.IsBoundedString() {
			v.errorf(entity, "attribute %s: length is only allowed on bounded string types, not %s", a.Name, a.Type)
		}

		switch {
		case t.IsReference():
			v.validateReference(entity, a, t)
		case a.Target != "":
			v.errorf(entity, "attribute %s of type %s cannot reference %s", a.Name, a.Type, a.Target)
		case t == entities.AttributeTypeEnum && len(a.EnumOptions) == 0:
			v.errorf(entity, "enum attribute %s requires options", a.Name)
		case t == entities.AttributeTypeCompound:
			if len(a.Children) == 0 {
				v.errorf(entity, "compound attribute %s requires children", a.Name)
			}
			for _, c := range a.Children {
				if c.Kind == KindID {
					v.errorf(entity, "compound attribute %s cannot contain the id attribute %s", a.Name, c.Name)
				}
			}
			v.validateAttributes(entity, a.Children, seen)
		}
	}
}

// validateReference checks reference targets and the mappedby side of a
// onetomany
func (v *Validator) validateReference(entity *EntityAST, a *AttributeAST, t entities.AttributeType) {
	if a.Target == "" {
		v.errorf(entity, "attribute %s of type %s requires a referenced entity", a.Name, a.Type)
		return
	}
	target, inDocument := v.entities[a.Target]
	if !inDocument && !v.known[a.Target] {
		v.errorf(entity, "attribute %s references undefined entity: %s", a.Name, a.Target)
		return
	}
	if t != entities.AttributeTypeOneToMany {
		return
	}
	if a.MappedBy == "" {
		v.errorf(entity, "onetomany attribute %s requires mappedby", a.Name)
		return
	}
	if !inDocument {
		return
	}
	mapped := findAttribute(target.Attributes, a.MappedBy)
	if mapped == nil {
		v.errorf(entity, "onetomany attribute %s is mapped by undefined attribute %s.%s", a.Name, a.Target, a.MappedBy)
		return
	}
	mt, err := entities.ParseAttributeType(mapped.Type)
	if err != nil || !mt.IsSingleReference() || mapped.Target != entity.Name {
		v.errorf(entity, "onetomany attribute %s is mapped by %s.%s which is not a single reference to %s",
			a.Name, a.Target, a.MappedBy, entity.Name)
	}
}

func findAttribute(attrs []*AttributeAST, name string) *AttributeAST {
	for _, a := range attrs {
		if a.Name == name {
			return a
		}
		if c := findAttribute(a.Children, name); c != nil {
			return c
		}
	}
	return nil
}
