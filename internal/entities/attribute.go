package entities

import (
	"fmt"
)

// Attribute is a typed field of an entity type.
// Example: book.author xref @author
// For reference types RefEntityType is the referenced entity type. For
// onetomany attributes RefEntityType is the type owning the forward xref
// and MappedBy is that xref attribute.
type Attribute struct {
	Name          string
	Label         string
	Type          AttributeType
	Nullable      bool
	Unique        bool
	Auto          bool // identifier value is generated on add
	ReadOnly      bool
	MaxLength     int // 0 means the type default
	EnumOptions   []string
	RefEntityType *EntityType
	MappedBy      *Attribute
	Children      []*Attribute // compound only
}

// String returns a string representation of the attribute
// Format: name:type[@ref]
func (a *Attribute) String() string {
	if a.RefEntityType != nil {
		return fmt.Sprintf("%s:%s@%s", a.Name, a.Type, a.RefEntityType.ID)
	}
	return fmt.Sprintf("%s:%s", a.Name, a.Type)
}

// IsMappedBy reports whether the attribute is the inverse side of an xref.
func (a *Attribute) IsMappedBy() bool {
	return a.Type == AttributeTypeOneToMany && a.MappedBy != nil
}

// MaxStringLength returns the effective column length for bounded strings,
// or 0 when the type is unbounded.
func (a *Attribute) MaxStringLength() int {
	if !a.Type.IsBoundedString() {
		return 0
	}
	if a.MaxLength > 0 {
		return a.MaxLength
	}
	return DefaultMaxStringLength
}

// HasEnumOption reports whether value is a declared enum option.
func (a *Attribute) HasEnumOption(value string) bool {
	for _, o := range a.EnumOptions {
		if o == value {
			return true
		}
	}
	return false
}

// Validate checks if the attribute is well formed
func (a *Attribute) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("attribute name is required")
	}
	if !a.Type.IsKnown() {
		return fmt.Errorf("attribute %s has unknown type %s", a.Name, a.Type)
	}
	switch {
	case a.Type.IsReference():
		if a.RefEntityType == nil {
			return fmt.Errorf("attribute %s of type %s requires a referenced entity type", a.Name, a.Type)
		}
		if a.Type == AttributeTypeOneToMany {
			if a.MappedBy == nil {
				return fmt.Errorf("attribute %s of type onetomany requires a mappedBy attribute", a.Name)
			}
			if !a.MappedBy.Type.IsSingleReference() {
				return fmt.Errorf("attribute %s is mapped by %s which is not a single reference", a.Name, a.MappedBy.Name)
			}
			if a.RefEntityType.Attribute(a.MappedBy.Name) == nil {
				return fmt.Errorf("attribute %s is mapped by %s which does not exist in %s",
					a.Name, a.MappedBy.Name, a.RefEntityType.ID)
			}
		}
	case a.Type == AttributeTypeEnum:
		if len(a.EnumOptions) == 0 {
			return fmt.Errorf("enum attribute %s requires options", a.Name)
		}
	case a.Type.IsCompound():
		if len(a.Children) == 0 {
			return fmt.Errorf("compound attribute %s requires children", a.Name)
		}
		for _, c := range a.Children {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("compound attribute %s: %w", a.Name, err)
			}
		}
	}
	if a.MaxLength < 0 {
		return fmt.Errorf("attribute %s has negative max length", a.Name)
	}
	return nil
}

// clone returns a shallow copy; referenced entity types are shared.
func (a *Attribute) clone() *Attribute {
	c := *a
	if a.EnumOptions != nil {
		c.EnumOptions = append([]string(nil), a.EnumOptions...)
	}
	if a.Children != nil {
		c.Children = append([]*Attribute(nil), a.Children...)
	}
	return &c
}
