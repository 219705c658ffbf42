package entities

import (
	"testing"
)

func libraryDefinitions() []*EntityTypeDefinition {
	return []*EntityTypeDefinition{
		{
			ID:          "author",
			IDAttribute: "name",
			Attributes: []AttributeDefinition{
				{Name: "name", Type: "string", Unique: true},
				{Name: "books", Type: "onetomany", RefEntityType: "book", MappedBy: "author", Nullable: true},
				{Name: "mentor", Type: "xref", RefEntityType: "author", Nullable: true},
			},
		},
		{
			ID:          "book",
			IDAttribute: "isbn",
			Attributes: []AttributeDefinition{
				{Name: "isbn", Type: "string", Unique: true, Auto: true},
				{Name: "title", Type: "string"},
				{Name: "author", Type: "xref", RefEntityType: "author", Nullable: true},
				{Name: "status", Type: "enum", EnumOptions: []string{"draft", "published"}},
			},
		},
	}
}

func TestResolveDefinitions(t *testing.T) {
	types, err := ResolveDefinitions(libraryDefinitions())
	if err != nil {
		t.Fatalf("ResolveDefinitions() error = %v", err)
	}

	author, book := types["author"], types["book"]
	if author == nil || book == nil {
		t.Fatalf("ResolveDefinitions() = %v, want author and book", types)
	}

	books := author.Attribute("books")
	if books.RefEntityType != book {
		t.Errorf("books.RefEntityType = %v, want book", books.RefEntityType)
	}
	if books.MappedBy != book.Attribute("author") {
		t.Errorf("books.MappedBy = %v, want book.author", books.MappedBy)
	}
	if book.Attribute("author").RefEntityType != author {
		t.Errorf("book.author.RefEntityType = %v, want author", book.Attribute("author").RefEntityType)
	}
	if author.Attribute("mentor").RefEntityType != author {
		t.Errorf("self reference not resolved")
	}
	if !book.IDAttribute().Auto {
		t.Errorf("book.isbn must be auto")
	}
}

func TestResolveDefinitions_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(defs []*EntityTypeDefinition) []*EntityTypeDefinition
	}{
		{
			name: "unknown referenced type",
			mutate: func(defs []*EntityTypeDefinition) []*EntityTypeDefinition {
				defs[1].Attributes[2].RefEntityType = "publisher"
				return defs
			},
		},
		{
			name: "unknown mappedBy",
			mutate: func(defs []*EntityTypeDefinition) []*EntityTypeDefinition {
				defs[0].Attributes[1].MappedBy = "writer"
				return defs
			},
		},
		{
			name: "unknown attribute type",
			mutate: func(defs []*EntityTypeDefinition) []*EntityTypeDefinition {
				defs[1].Attributes[1].Type = "varchar"
				return defs
			},
		},
		{
			name: "duplicate entity type",
			mutate: func(defs []*EntityTypeDefinition) []*EntityTypeDefinition {
				return append(defs, defs[0])
			},
		},
		{
			name: "invalid entity type",
			mutate: func(defs []*EntityTypeDefinition) []*EntityTypeDefinition {
				defs[1].IDAttribute = "missing"
				return defs
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ResolveDefinitions(tt.mutate(libraryDefinitions())); err == nil {
				t.Error("ResolveDefinitions() expected error, got nil")
			}
		})
	}
}

func TestToDefinition(t *testing.T) {
	types, err := ResolveDefinitions(libraryDefinitions())
	if err != nil {
		t.Fatalf("ResolveDefinitions() error = %v", err)
	}

	def := ToDefinition(types["author"])
	if def.ID != "author" || def.IDAttribute != "name" {
		t.Errorf("ToDefinition() = %+v", def)
	}
	if len(def.Attributes) != 3 {
		t.Fatalf("ToDefinition() has %d attributes, want 3", len(def.Attributes))
	}
	books := def.Attributes[1]
	if books.Type != "onetomany" || books.RefEntityType != "book" || books.MappedBy != "author" {
		t.Errorf("books definition = %+v", books)
	}

	again, err := ResolveDefinitions([]*EntityTypeDefinition{ToDefinition(types["author"]), ToDefinition(types["book"])})
	if err != nil {
		t.Fatalf("ResolveDefinitions(ToDefinition()) error = %v", err)
	}
	if again["book"].Attribute("status").EnumOptions[1] != "published" {
		t.Errorf("enum options lost in round trip")
	}
}
