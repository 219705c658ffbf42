package parser

// SchemaAST represents the parsed schema AST
type SchemaAST struct {
	Entities []*EntityAST
}

// EntityAST represents an entity type definition in the AST
type EntityAST struct {
	Name       string
	Label      string
	Attributes []*AttributeAST
	Line       int
}

// AttributeKind is the declaration keyword of an attribute
type AttributeKind string

const (
	KindID        AttributeKind = "id"
	KindAttribute AttributeKind = "attribute"
	KindXref      AttributeKind = "xref"
	KindMref      AttributeKind = "mref"
	KindOneToMany AttributeKind = "onetomany"
	KindEnum      AttributeKind = "enum"
	KindCompound  AttributeKind = "compound"
)

// AttributeAST represents an attribute declaration in the AST.
//
// Examples:
//
//	id isbn: string auto
//	attribute summary: text nullable
//	attribute code: string(16) unique
//	attribute tags: categorical_mref @tag
//	xref author: author
//	onetomany books: book mappedby author
//	enum status: ("draft", "published")
//	compound address { attribute street: string }
type AttributeAST struct {
	Kind        AttributeKind
	Name        string
	Type        string // attribute type name; derived from Kind for xref, mref, onetomany, enum, compound
	MaxLength   int
	Target      string // referenced entity type
	MappedBy    string
	EnumOptions []string
	Children    []*AttributeAST
	Label       string
	Nullable    bool
	Unique      bool
	Auto        bool
	ReadOnly    bool
	Line        int
	Column      int
}
