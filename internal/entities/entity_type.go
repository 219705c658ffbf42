package entities

import (
	"fmt"
)

// EntityType is a runtime defined schema: an ordered list of attributes
// with one designated identifier attribute.
// Instances are treated as immutable once built; WithAttribute and
// WithoutAttribute return new instances.
type EntityType struct {
	ID              string // Globally unique entity type identifier (e.g., "book")
	Label           string
	IDAttributeName string
	attributes      []*Attribute
}

// NewEntityType creates a new entity type with the given attributes
func NewEntityType(id, idAttributeName string, attrs ...*Attribute) *EntityType {
	return &EntityType{
		ID:              id,
		IDAttributeName: idAttributeName,
		attributes:      append([]*Attribute(nil), attrs...),
	}
}

// Attributes returns the top-level attributes in declaration order
func (et *EntityType) Attributes() []*Attribute {
	return append([]*Attribute(nil), et.attributes...)
}

// AtomicAttributes returns all non-compound attributes, compound
// attributes replaced by their leaves
func (et *EntityType) AtomicAttributes() []*Attribute {
	var atomic []*Attribute
	var walk func(attrs []*Attribute)
	walk = func(attrs []*Attribute) {
		for _, a := range attrs {
			if a.Type.IsCompound() {
				walk(a.Children)
				continue
			}
			atomic = append(atomic, a)
		}
	}
	walk(et.attributes)
	return atomic
}

// Attribute returns the attribute by name, searching compound children too
func (et *EntityType) Attribute(name string) *Attribute {
	var find func(attrs []*Attribute) *Attribute
	find = func(attrs []*Attribute) *Attribute {
		for _, a := range attrs {
			if a.Name == name {
				return a
			}
			if a.Type.IsCompound() {
				if c := find(a.Children); c != nil {
					return c
				}
			}
		}
		return nil
	}
	return find(et.attributes)
}

// IDAttribute returns the identifier attribute
func (et *EntityType) IDAttribute() *Attribute {
	return et.Attribute(et.IDAttributeName)
}

// MappedByAttributes returns the inverse one-to-many attributes
func (et *EntityType) MappedByAttributes() []*Attribute {
	var mapped []*Attribute
	for _, a := range et.AtomicAttributes() {
		if a.IsMappedBy() {
			mapped = append(mapped, a)
		}
	}
	return mapped
}

// HasMappedByAttributes reports whether the type has inverse attributes
func (et *EntityType) HasMappedByAttributes() bool {
	return len(et.MappedByAttributes()) > 0
}

// JunctionAttributes returns the attributes stored in junction tables
func (et *EntityType) JunctionAttributes() []*Attribute {
	var junction []*Attribute
	for _, a := range et.AtomicAttributes() {
		if a.Type.HasJunctionTable() {
			junction = append(junction, a)
		}
	}
	return junction
}

// StoredAttributes returns the attributes owning a column in the entity table
func (et *EntityType) StoredAttributes() []*Attribute {
	var stored []*Attribute
	for _, a := range et.AtomicAttributes() {
		if a.Type.IsStored() {
			stored = append(stored, a)
		}
	}
	return stored
}

// WithAttribute returns a copy of the entity type in which the attribute
// with the same name is replaced by attr, or attr is appended.
func (et *EntityType) WithAttribute(attr *Attribute) *EntityType {
	attrs := make([]*Attribute, 0, len(et.attributes)+1)
	replaced := false
	for _, a := range et.attributes {
		if a.Name == attr.Name {
			attrs = append(attrs, attr)
			replaced = true
			continue
		}
		attrs = append(attrs, a)
	}
	if !replaced {
		attrs = append(attrs, attr)
	}
	return &EntityType{ID: et.ID, Label: et.Label, IDAttributeName: et.IDAttributeName, attributes: attrs}
}

// WithoutAttribute returns a copy of the entity type without the named
// top-level attribute.
func (et *EntityType) WithoutAttribute(name string) *EntityType {
	attrs := make([]*Attribute, 0, len(et.attributes))
	for _, a := range et.attributes {
		if a.Name != name {
			attrs = append(attrs, a)
		}
	}
	return &EntityType{ID: et.ID, Label: et.Label, IDAttributeName: et.IDAttributeName, attributes: attrs}
}

// Validate checks if the entity type is well formed
func (et *EntityType) Validate() error {
	if et.ID == "" {
		return fmt.Errorf("entity type ID is required")
	}
	if et.IDAttributeName == "" {
		return fmt.Errorf("entity type %s: identifier attribute is required", et.ID)
	}

	seen := make(map[string]bool)
	for _, a := range et.AtomicAttributes() {
		if seen[a.Name] {
			return fmt.Errorf("entity type %s: duplicate attribute %s", et.ID, a.Name)
		}
		seen[a.Name] = true
		if err := a.Validate(); err != nil {
			return fmt.Errorf("entity type %s: %w", et.ID, err)
		}
	}

	idAttr := et.IDAttribute()
	if idAttr == nil {
		return fmt.Errorf("entity type %s: identifier attribute %s does not exist", et.ID, et.IDAttributeName)
	}
	if !idAttr.Type.IsValidIDType() {
		return fmt.Errorf("entity type %s: identifier attribute %s has illegal type %s", et.ID, idAttr.Name, idAttr.Type)
	}
	if idAttr.Nullable {
		return fmt.Errorf("entity type %s: identifier attribute %s must not be nullable", et.ID, idAttr.Name)
	}
	if idAttr.Auto && idAttr.Type != AttributeTypeString {
		return fmt.Errorf("entity type %s: auto identifier attribute %s must be of type string", et.ID, idAttr.Name)
	}
	return nil
}
