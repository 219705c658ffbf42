package entities

import (
	"fmt"
	"sort"
)

// EntityTypeDefinition is the serializable form of an entity type.
// References to other entity types and attributes are by identifier.
type EntityTypeDefinition struct {
	ID          string                `json:"id" yaml:"id" toml:"id"`
	Label       string                `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	IDAttribute string                `json:"idAttribute" yaml:"idAttribute" toml:"idAttribute"`
	Attributes  []AttributeDefinition `json:"attributes" yaml:"attributes" toml:"attributes"`
}

// AttributeDefinition is the serializable form of an attribute
type AttributeDefinition struct {
	Name          string                `json:"name" yaml:"name" toml:"name"`
	Label         string                `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Type          string                `json:"type" yaml:"type" toml:"type"`
	Nullable      bool                  `json:"nullable,omitempty" yaml:"nullable,omitempty" toml:"nullable,omitempty"`
	Unique        bool                  `json:"unique,omitempty" yaml:"unique,omitempty" toml:"unique,omitempty"`
	Auto          bool                  `json:"auto,omitempty" yaml:"auto,omitempty" toml:"auto,omitempty"`
	ReadOnly      bool                  `json:"readOnly,omitempty" yaml:"readOnly,omitempty" toml:"readOnly,omitempty"`
	MaxLength     int                   `json:"maxLength,omitempty" yaml:"maxLength,omitempty" toml:"maxLength,omitempty"`
	EnumOptions   []string              `json:"enumOptions,omitempty" yaml:"enumOptions,omitempty" toml:"enumOptions,omitempty"`
	RefEntityType string                `json:"refEntityType,omitempty" yaml:"refEntityType,omitempty" toml:"refEntityType,omitempty"`
	MappedBy      string                `json:"mappedBy,omitempty" yaml:"mappedBy,omitempty" toml:"mappedBy,omitempty"`
	Children      []AttributeDefinition `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`
}

type pendingRef struct {
	attr    *Attribute
	def     AttributeDefinition
	ownerID string
}

// ResolveDefinitions builds a connected entity type graph from definitions.
// References may be cyclic and may point to the defining type itself; every
// referenced entity type must be part of defs.
func ResolveDefinitions(defs []*EntityTypeDefinition) (map[string]*EntityType, error) {
	types := make(map[string]*EntityType, len(defs))
	attrIndex := make(map[string]map[string]*Attribute, len(defs))
	var pending []pendingRef

	var build func(ownerID string, d AttributeDefinition) (*Attribute, error)
	build = func(ownerID string, d AttributeDefinition) (*Attribute, error) {
		t, err := ParseAttributeType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("entity type %s attribute %s: %w", ownerID, d.Name, err)
		}
		attr := &Attribute{
			Name:        d.Name,
			Label:       d.Label,
			Type:        t,
			Nullable:    d.Nullable,
			Unique:      d.Unique,
			Auto:        d.Auto,
			ReadOnly:    d.ReadOnly,
			MaxLength:   d.MaxLength,
			EnumOptions: append([]string(nil), d.EnumOptions...),
		}
		for _, cd := range d.Children {
			child, err := build(ownerID, cd)
			if err != nil {
				return nil, err
			}
			attr.Children = append(attr.Children, child)
		}
		attrIndex[ownerID][d.Name] = attr
		if t.IsReference() {
			pending = append(pending, pendingRef{attr: attr, def: d, ownerID: ownerID})
		}
		return attr, nil
	}

	for _, def := range defs {
		if def == nil {
			return nil, fmt.Errorf("entity type definition is nil")
		}
		if _, exists := types[def.ID]; exists {
			return nil, fmt.Errorf("duplicate entity type: %s", def.ID)
		}
		attrIndex[def.ID] = make(map[string]*Attribute)
		attrs := make([]*Attribute, 0, len(def.Attributes))
		for _, ad := range def.Attributes {
			attr, err := build(def.ID, ad)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, attr)
		}
		et := NewEntityType(def.ID, def.IDAttribute, attrs...)
		et.Label = def.Label
		types[def.ID] = et
	}

	for _, p := range pending {
		ref, ok := types[p.def.RefEntityType]
		if !ok {
			return nil, fmt.Errorf("entity type %s attribute %s references unknown entity type %q",
				p.ownerID, p.def.Name, p.def.RefEntityType)
		}
		p.attr.RefEntityType = ref
		if p.attr.Type == AttributeTypeOneToMany {
			mappedBy, ok := attrIndex[ref.ID][p.def.MappedBy]
			if !ok {
				return nil, fmt.Errorf("entity type %s attribute %s is mapped by unknown attribute %s.%s",
					p.ownerID, p.def.Name, ref.ID, p.def.MappedBy)
			}
			p.attr.MappedBy = mappedBy
		}
	}

	ids := make([]string, 0, len(types))
	for id := range types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := types[id].Validate(); err != nil {
			return nil, err
		}
	}

	return types, nil
}

// ToDefinition converts an entity type into its serializable form
func ToDefinition(et *EntityType) *EntityTypeDefinition {
	def := &EntityTypeDefinition{
		ID:          et.ID,
		Label:       et.Label,
		IDAttribute: et.IDAttributeName,
	}
	for _, a := range et.Attributes() {
		def.Attributes = append(def.Attributes, toAttributeDefinition(a))
	}
	return def
}

func toAttributeDefinition(a *Attribute) AttributeDefinition {
	d := AttributeDefinition{
		Name:        a.Name,
		Label:       a.Label,
		Type:        a.Type.String(),
		Nullable:    a.Nullable,
		Unique:      a.Unique,
		Auto:        a.Auto,
		ReadOnly:    a.ReadOnly,
		MaxLength:   a.MaxLength,
		EnumOptions: append([]string(nil), a.EnumOptions...),
	}
	if a.RefEntityType != nil {
		d.RefEntityType = a.RefEntityType.ID
	}
	if a.MappedBy != nil {
		d.MappedBy = a.MappedBy.Name
	}
	for _, c := range a.Children {
		d.Children = append(d.Children, toAttributeDefinition(c))
	}
	return d
}
