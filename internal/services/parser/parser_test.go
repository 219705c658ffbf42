package parser

import (
	"reflect"
	"strings"
	"testing"
)

const librarySchema = `
entity author label "Author" {
  id name: string
  attribute born: date nullable
  onetomany books: book mappedby author
}

entity book {
  id isbn: string auto
  attribute title: string(500) unique label "Title"
  attribute summary: text nullable readonly
  xref author: author
  mref coauthors: author nullable
  attribute genre: categorical @genre nullable
  enum status: ("draft", "published")
  compound printing {
    attribute pages: int nullable
    attribute printed: datetime nullable
  }
}

entity genre {
  id code: string(16)
}
`

func TestParser_SimpleEntity(t *testing.T) {
	input := `entity user {
  id id: long
}`

	schema, err := Parse(input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(schema.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(schema.Entities))
	}

	entity := schema.Entities[0]
	if entity.Name != "user" {
		t.Errorf("expected entity name 'user', got %s", entity.Name)
	}
	if len(entity.Attributes) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(entity.Attributes))
	}
	want := &AttributeAST{Kind: KindID, Name: "id", Type: "long", Line: 2, Column: 3}
	if !reflect.DeepEqual(entity.Attributes[0], want) {
		t.Errorf("expected %+v, got %+v", want, entity.Attributes[0])
	}
}

func TestParser_Library(t *testing.T) {
	schema, err := Parse(librarySchema)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(schema.Entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(schema.Entities))
	}

	author := schema.Entities[0]
	if author.Label != "Author" {
		t.Errorf("expected label 'Author', got %q", author.Label)
	}
	books := author.Attributes[2]
	if books.Kind != KindOneToMany || books.Type != "onetomany" || books.Target != "book" || books.MappedBy != "author" {
		t.Errorf("unexpected onetomany attribute %+v", books)
	}

	book := schema.Entities[1]
	tests := []struct {
		index int
		check func(a *AttributeAST) bool
	}{
		{0, func(a *AttributeAST) bool { return a.Kind == KindID && a.Auto && a.Type == "string" }},
		{1, func(a *AttributeAST) bool { return a.MaxLength == 500 && a.Unique && a.Label == "Title" }},
		{2, func(a *AttributeAST) bool { return a.Type == "text" && a.Nullable && a.ReadOnly }},
		{3, func(a *AttributeAST) bool { return a.Kind == KindXref && a.Type == "xref" && a.Target == "author" && !a.Nullable }},
		{4, func(a *AttributeAST) bool { return a.Kind == KindMref && a.Target == "author" && a.Nullable }},
		{5, func(a *AttributeAST) bool { return a.Kind == KindAttribute && a.Type == "categorical" && a.Target == "genre" }},
		{6, func(a *AttributeAST) bool {
			return a.Kind == KindEnum && reflect.DeepEqual(a.EnumOptions, []string{"draft", "published"})
		}},
		{7, func(a *AttributeAST) bool {
			return a.Kind == KindCompound && len(a.Children) == 2 && a.Children[1].Type == "datetime"
		}},
	}
	if len(book.Attributes) != len(tests) {
		t.Fatalf("expected %d attributes, got %d", len(tests), len(book.Attributes))
	}
	for _, tt := range tests {
		if a := book.Attributes[tt.index]; !tt.check(a) {
			t.Errorf("attribute %d: unexpected %+v", tt.index, a)
		}
	}
}

func TestParser_KeywordsAsNames(t *testing.T) {
	schema, err := Parse(`entity label {
  id id: string
  attribute auto: bool
}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	entity := schema.Entities[0]
	if entity.Name != "label" || entity.Attributes[0].Name != "id" || entity.Attributes[1].Name != "auto" {
		t.Errorf("unexpected names in %+v", entity)
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "missing entity keyword",
			input:   `book { id isbn: string }`,
			wantErr: "expected 'entity'",
		},
		{
			name:    "missing colon",
			input:   `entity book { id isbn string }`,
			wantErr: "expected next token to be :",
		},
		{
			name:    "missing closing brace",
			input:   `entity book { id isbn: string`,
			wantErr: "expected '}' at end of entity",
		},
		{
			name:    "onetomany without mappedby",
			input:   `entity author { id name: string onetomany books: book }`,
			wantErr: "expected next token to be mappedby",
		},
		{
			name:    "enum without options",
			input:   `entity book { id isbn: string enum status: () }`,
			wantErr: "expected next token to be STRING",
		},
		{
			name:    "unknown member",
			input:   `entity book { relation owner @user }`,
			wantErr: "in entity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
