package parser

import (
	"fmt"
	"strings"
)

// Generator generates DSL from AST
type Generator struct {
	indent string
}

// NewGenerator creates a new Generator
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
	}
}

// Generate generates DSL string from SchemaAST
func (g *Generator) Generate(schema *SchemaAST) string {
	var sb strings.Builder

	for i, entity := range schema.Entities {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(g.generateEntity(entity))
	}

	return sb.String()
}

// generateEntity generates DSL for an entity
func (g *Generator) generateEntity(entity *EntityAST) string {
	var sb strings.Builder

	sb.WriteString("entity " + entity.Name)
	if entity.Label != "" {
		sb.WriteString(" label " + quote(entity.Label))
	}
	sb.WriteString(" {\n")
	for _, attr := range entity.Attributes {
		g.writeAttribute(&sb, attr, 1)
	}
	sb.WriteString("}\n")

	return sb.String()
}

func (g *Generator) writeAttribute(sb *strings.Builder, attr *AttributeAST, depth int) {
	prefix := strings.Repeat(g.indent, depth)
	sb.WriteString(prefix)
	sb.WriteString(g.generateAttribute(attr))

	if attr.Kind == KindCompound {
		sb.WriteString(" {\n")
		for _, c := range attr.Children {
			g.writeAttribute(sb, c, depth+1)
		}
		sb.WriteString(prefix + "}")
	}
	sb.WriteString("\n")
}

// generateAttribute generates the declaration of an attribute without the
// children of a compound
func (g *Generator) generateAttribute(attr *AttributeAST) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", attr.Kind, attr.Name)

	switch attr.Kind {
	case KindID, KindAttribute:
		sb.WriteString(": " + attr.Type)
		if attr.MaxLength > 0 {
			fmt.Fprintf(&sb, "(%d)", attr.MaxLength)
		}
		if attr.Target != "" {
			sb.WriteString(" @" + attr.Target)
		}
	case KindXref, KindMref:
		sb.WriteString(": " + attr.Target)
	case KindOneToMany:
		fmt.Fprintf(&sb, ": %s mappedby %s", attr.Target, attr.MappedBy)
	case KindEnum:
		options := make([]string, len(attr.EnumOptions))
		for i, o := range attr.EnumOptions {
			options[i] = quote(o)
		}
		fmt.Fprintf(&sb, ": (%s)", strings.Join(options, ", "))
	}

	if attr.Nullable {
		sb.WriteString(" nullable")
	}
	if attr.Unique {
		sb.WriteString(" unique")
	}
	if attr.Auto {
		sb.WriteString(" auto")
	}
	if attr.ReadOnly {
		sb.WriteString(" readonly")
	}
	if attr.Label != "" {
		sb.WriteString(" label " + quote(attr.Label))
	}
	return sb.String()
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
