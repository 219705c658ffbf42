package parser

import (
	"fmt"

	"github.com/asakaida/entitystore/internal/entities"
)

// ASTToDefinitions converts SchemaAST to entity type definitions
func ASTToDefinitions(ast *SchemaAST) ([]*entities.EntityTypeDefinition, error) {
	defs := make([]*entities.EntityTypeDefinition, 0, len(ast.Entities))
	for _, entityAST := range ast.Entities {
		def, err := convertEntity(entityAST)
		if err != nil {
			return nil, fmt.Errorf("failed to convert entity %s: %w", entityAST.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// DefinitionsToAST converts entity type definitions to SchemaAST
func DefinitionsToAST(defs []*entities.EntityTypeDefinition) (*SchemaAST, error) {
	ast := &SchemaAST{
		Entities: make([]*EntityAST, 0, len(defs)),
	}
	for _, def := range defs {
		entityAST := &EntityAST{Name: def.ID, Label: def.Label}
		for _, ad := range def.Attributes {
			attrAST, err := convertAttributeToAST(ad, ad.Name == def.IDAttribute)
			if err != nil {
				return nil, fmt.Errorf("failed to convert entity %s: %w", def.ID, err)
			}
			entityAST.Attributes = append(entityAST.Attributes, attrAST)
		}
		ast.Entities = append(ast.Entities, entityAST)
	}
	return ast, nil
}

// ParseDefinitions parses, validates and converts a DSL document.
// known names entity types that may be referenced without being declared
// in the document.
func ParseDefinitions(input string, known ...string) ([]*entities.EntityTypeDefinition, error) {
	ast, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if err := NewValidator(ast).WithKnownEntities(known...).Validate(); err != nil {
		return nil, err
	}
	return ASTToDefinitions(ast)
}

// convertEntity converts EntityAST to an entity type definition
func convertEntity(ast *EntityAST) (*entities.EntityTypeDefinition, error) {
	def := &entities.EntityTypeDefinition{
		ID:         ast.Name,
		Label:      ast.Label,
		Attributes: make([]entities.AttributeDefinition, 0, len(ast.Attributes)),
	}
	for _, a := range ast.Attributes {
		if a.Kind == KindID {
			if def.IDAttribute != "" {
				return nil, fmt.Errorf("multiple id attributes: %s, %s", def.IDAttribute, a.Name)
			}
			def.IDAttribute = a.Name
		}
		def.Attributes = append(def.Attributes, convertAttribute(a))
	}
	if def.IDAttribute == "" {
		return nil, fmt.Errorf("missing id attribute")
	}
	return def, nil
}

func convertAttribute(a *AttributeAST) entities.AttributeDefinition {
	d := entities.AttributeDefinition{
		Name:          a.Name,
		Label:         a.Label,
		Type:          a.Type,
		Nullable:      a.Nullable,
		Unique:        a.Unique,
		Auto:          a.Auto,
		ReadOnly:      a.ReadOnly,
		MaxLength:     a.MaxLength,
		EnumOptions:   append([]string(nil), a.EnumOptions...),
		RefEntityType: a.Target,
		MappedBy:      a.MappedBy,
	}
	if a.Kind == KindOneToMany {
		// no column of its own
		d.Nullable = true
	}
	for _, c := range a.Children {
		d.Children = append(d.Children, convertAttribute(c))
	}
	return d
}

// convertAttributeToAST chooses the most specific declaration keyword
func convertAttributeToAST(d entities.AttributeDefinition, isID bool) (*AttributeAST, error) {
	t, err := entities.ParseAttributeType(d.Type)
	if err != nil {
		return nil, err
	}
	a := &AttributeAST{
		Kind:        KindAttribute,
		Name:        d.Name,
		Type:        t.String(),
		MaxLength:   d.MaxLength,
		Target:      d.RefEntityType,
		MappedBy:    d.MappedBy,
		EnumOptions: append([]string(nil), d.EnumOptions...),
		Label:       d.Label,
		Nullable:    d.Nullable,
		Unique:      d.Unique,
		Auto:        d.Auto,
		ReadOnly:    d.ReadOnly,
	}
	switch {
	case isID:
		a.Kind = KindID
	case t == entities.AttributeTypeXref:
		a.Kind = KindXref
	case t == entities.AttributeTypeMref:
		a.Kind = KindMref
	case t == entities.AttributeTypeOneToMany:
		a.Kind = KindOneToMany
		a.Nullable = false
	case t == entities.AttributeTypeEnum:
		a.Kind = KindEnum
	case t == entities.AttributeTypeCompound:
		a.Kind = KindCompound
		for _, cd := range d.Children {
			c, err := convertAttributeToAST(cd, false)
			if err != nil {
				return nil, err
			}
			a.Children = append(a.Children, c)
		}
	}
	return a, nil
}
