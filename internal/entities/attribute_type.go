package entities

import (
	"fmt"
	"strings"
)

// AttributeType is the data type of an attribute.
// The set is closed: every switch over AttributeType must handle all
// constants below and treat anything else as a schema invariant violation.
type AttributeType int

const (
	AttributeTypeUnknown AttributeType = iota
	AttributeTypeBool
	AttributeTypeInt
	AttributeTypeLong
	AttributeTypeDecimal
	AttributeTypeString
	AttributeTypeText
	AttributeTypeEmail
	AttributeTypeHyperlink
	AttributeTypeHTML
	AttributeTypeScript
	AttributeTypeEnum
	AttributeTypeDate
	AttributeTypeDateTime
	AttributeTypeXref
	AttributeTypeCategorical
	AttributeTypeFile
	AttributeTypeMref
	AttributeTypeCategoricalMref
	AttributeTypeOneToMany
	AttributeTypeCompound
)

// DefaultMaxStringLength is the column length of the varchar string family.
const DefaultMaxStringLength = 255

type attributeTypeInfo struct {
	name   string
	family typeFamily
}

type typeFamily int

const (
	familyScalar typeFamily = iota
	familyString
	familyTextual // unbounded strings
	familySingleRef
	familyMultiRef
	familyInverse
	familyCompound
)

var attributeTypes = map[AttributeType]attributeTypeInfo{
	AttributeTypeBool:            {"bool", familyScalar},
	AttributeTypeInt:             {"int", familyScalar},
	AttributeTypeLong:            {"long", familyScalar},
	AttributeTypeDecimal:         {"decimal", familyScalar},
	AttributeTypeString:          {"string", familyString},
	AttributeTypeText:            {"text", familyTextual},
	AttributeTypeEmail:           {"email", familyString},
	AttributeTypeHyperlink:       {"hyperlink", familyString},
	AttributeTypeHTML:            {"html", familyTextual},
	AttributeTypeScript:          {"script", familyTextual},
	AttributeTypeEnum:            {"enum", familyString},
	AttributeTypeDate:            {"date", familyScalar},
	AttributeTypeDateTime:        {"datetime", familyScalar},
	AttributeTypeXref:            {"xref", familySingleRef},
	AttributeTypeCategorical:     {"categorical", familySingleRef},
	AttributeTypeFile:            {"file", familySingleRef},
	AttributeTypeMref:            {"mref", familyMultiRef},
	AttributeTypeCategoricalMref: {"categorical_mref", familyMultiRef},
	AttributeTypeOneToMany:       {"onetomany", familyInverse},
	AttributeTypeCompound:        {"compound", familyCompound},
}

var attributeTypesByName = func() map[string]AttributeType {
	m := make(map[string]AttributeType, len(attributeTypes))
	for t, info := range attributeTypes {
		m[info.name] = t
	}
	// aliases
	m["boolean"] = AttributeTypeBool
	m["integer"] = AttributeTypeInt
	m["date_time"] = AttributeTypeDateTime
	m["one_to_many"] = AttributeTypeOneToMany
	return m
}()

// AttributeTypes returns all known attribute types in declaration order.
func AttributeTypes() []AttributeType {
	types := make([]AttributeType, 0, len(attributeTypes))
	for t := AttributeTypeBool; t <= AttributeTypeCompound; t++ {
		types = append(types, t)
	}
	return types
}

// ParseAttributeType parses a lowercase type name such as "string" or "mref".
func ParseAttributeType(name string) (AttributeType, error) {
	t, ok := attributeTypesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return AttributeTypeUnknown, fmt.Errorf("unknown attribute type: %s", name)
	}
	return t, nil
}

// String returns the lowercase type name.
func (t AttributeType) String() string {
	if info, ok := attributeTypes[t]; ok {
		return info.name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// IsKnown reports whether t is one of the declared constants.
func (t AttributeType) IsKnown() bool {
	_, ok := attributeTypes[t]
	return ok
}

func (t AttributeType) family() (typeFamily, bool) {
	info, ok := attributeTypes[t]
	return info.family, ok
}

// IsReference reports whether values of t point to other entities.
func (t AttributeType) IsReference() bool {
	return t.IsSingleReference() || t.IsMultipleReference()
}

// IsSingleReference: xref, categorical, file.
func (t AttributeType) IsSingleReference() bool {
	f, ok := t.family()
	return ok && f == familySingleRef
}

// IsMultipleReference: mref, categorical_mref, onetomany.
func (t AttributeType) IsMultipleReference() bool {
	f, ok := t.family()
	return ok && (f == familyMultiRef || f == familyInverse)
}

// HasJunctionTable reports whether values of t live in a junction table.
func (t AttributeType) HasJunctionTable() bool {
	f, ok := t.family()
	return ok && f == familyMultiRef
}

// IsStringType reports whether t is stored as character data.
func (t AttributeType) IsStringType() bool {
	f, ok := t.family()
	return ok && (f == familyString || f == familyTextual)
}

// IsBoundedString reports whether t is stored in a length limited column.
func (t AttributeType) IsBoundedString() bool {
	f, ok := t.family()
	return ok && f == familyString
}

// IsStored reports whether t owns a column in the entity's own table.
func (t AttributeType) IsStored() bool {
	f, ok := t.family()
	return ok && (f == familyScalar || f == familyString || f == familyTextual || f == familySingleRef)
}

// IsCompound reports whether t only groups other attributes.
func (t AttributeType) IsCompound() bool {
	return t == AttributeTypeCompound
}

// IsValidIDType reports whether t can be used for an identifier attribute.
func (t AttributeType) IsValidIDType() bool {
	switch t {
	case AttributeTypeString, AttributeTypeEmail, AttributeTypeHyperlink, AttributeTypeInt, AttributeTypeLong:
		return true
	default:
		return false
	}
}
