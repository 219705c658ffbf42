package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/asakaida/entitystore/internal/entities"
)

func TestParseDefinitions_Library(t *testing.T) {
	defs, err := ParseDefinitions(librarySchema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}

	author := defs[0]
	if author.ID != "author" || author.IDAttribute != "name" || author.Label != "Author" {
		t.Errorf("unexpected author definition %+v", author)
	}
	wantBooks := entities.AttributeDefinition{
		Name:          "books",
		Type:          "onetomany",
		Nullable:      true,
		RefEntityType: "book",
		MappedBy:      "author",
	}
	if !reflect.DeepEqual(author.Attributes[2], wantBooks) {
		t.Errorf("expected %+v, got %+v", wantBooks, author.Attributes[2])
	}

	book := defs[1]
	if book.IDAttribute != "isbn" || !book.Attributes[0].Auto {
		t.Errorf("unexpected book id in %+v", book)
	}
	if got := book.Attributes[1]; got.MaxLength != 500 || !got.Unique || got.Label != "Title" {
		t.Errorf("unexpected title definition %+v", got)
	}
	if got := book.Attributes[7]; got.Type != "compound" || len(got.Children) != 2 || got.Children[0].Name != "pages" {
		t.Errorf("unexpected compound definition %+v", got)
	}

	types, err := entities.ResolveDefinitions(defs)
	if err != nil {
		t.Fatalf("failed to resolve definitions: %v", err)
	}
	if types["book"].Attribute("author").RefEntityType != types["author"] {
		t.Error("expected book.author to reference the author entity type")
	}
	if types["author"].Attribute("books").MappedBy != types["book"].Attribute("author") {
		t.Error("expected author.books to be mapped by book.author")
	}
}

func TestParseDefinitions_ValidationError(t *testing.T) {
	_, err := ParseDefinitions(`entity book { id isbn: string xref author: author }`)
	if err == nil || !strings.Contains(err.Error(), "undefined entity: author") {
		t.Errorf("expected undefined entity error, got %v", err)
	}

	defs, err := ParseDefinitions(`entity book { id isbn: string xref author: author }`, "author")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if defs[0].Attributes[1].RefEntityType != "author" {
		t.Errorf("unexpected reference %+v", defs[0].Attributes[1])
	}
}

func TestDefinitionsToAST_RoundTrip(t *testing.T) {
	defs, err := ParseDefinitions(librarySchema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ast, err := DefinitionsToAST(defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kinds := []AttributeKind{KindID, KindAttribute, KindAttribute, KindXref, KindMref, KindAttribute, KindEnum, KindCompound}
	for i, k := range kinds {
		if got := ast.Entities[1].Attributes[i].Kind; got != k {
			t.Errorf("attribute %d: expected kind %s, got %s", i, k, got)
		}
	}
	if ast.Entities[0].Attributes[2].Nullable {
		t.Error("expected onetomany to be generated without nullable")
	}

	back, err := ASTToDefinitions(ast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(defs, back) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", defs, back)
	}
}

func TestDefinitionsToAST_UnknownType(t *testing.T) {
	_, err := DefinitionsToAST([]*entities.EntityTypeDefinition{{
		ID:          "book",
		IDAttribute: "isbn",
		Attributes:  []entities.AttributeDefinition{{Name: "isbn", Type: "uuid"}},
	}})
	if err == nil {
		t.Error("expected error for unknown attribute type")
	}
}
