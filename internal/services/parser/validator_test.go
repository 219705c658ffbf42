package parser

import (
	"strings"
	"testing"
)

func TestValidator_ValidSchema(t *testing.T) {
	schema, err := Parse(librarySchema)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := NewValidator(schema).Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name: "duplicate entity",
			input: `entity book { id isbn: string }
entity book { id isbn: string }`,
			wantErr: "duplicate entity name: book",
		},
		{
			name:    "missing id",
			input:   `entity book { attribute title: string }`,
			wantErr: "entity book: missing id attribute",
		},
		{
			name:    "multiple ids",
			input:   `entity book { id isbn: string id code: string }`,
			wantErr: "multiple id attributes: isbn, code",
		},
		{
			name:    "illegal id type",
			input:   `entity book { id isbn: decimal }`,
			wantErr: "id attribute isbn has illegal type decimal",
		},
		{
			name:    "nullable id",
			input:   `entity book { id isbn: string nullable }`,
			wantErr: "id attribute isbn cannot be nullable",
		},
		{
			name:    "auto long id",
			input:   `entity book { id isbn: long auto }`,
			wantErr: "auto id attribute isbn must be of type string",
		},
		{
			name:    "auto on attribute",
			input:   `entity book { id isbn: string attribute title: string auto }`,
			wantErr: "auto is only allowed on the id attribute",
		},
		{
			name:    "duplicate attribute in compound",
			input:   `entity book { id isbn: string compound c { attribute isbn: string } }`,
			wantErr: "duplicate attribute name: isbn",
		},
		{
			name:    "invalid type",
			input:   `entity book { id isbn: string attribute pages: float }`,
			wantErr: "invalid attribute type: float (attribute: pages)",
		},
		{
			name:    "length on int",
			input:   `entity book { id isbn: string attribute pages: int(4) }`,
			wantErr: "length is only allowed on bounded string types",
		},
		{
			name:    "undefined reference",
			input:   `entity book { id isbn: string xref author: author }`,
			wantErr: "attribute author references undefined entity: author",
		},
		{
			name:    "reference type without target",
			input:   `entity book { id isbn: string attribute author: xref }`,
			wantErr: "attribute author of type xref requires a referenced entity",
		},
		{
			name:    "target on scalar",
			input:   `entity book { id isbn: string attribute pages: int @book }`,
			wantErr: "attribute pages of type int cannot reference book",
		},
		{
			name: "mappedby unknown attribute",
			input: `entity author { id name: string onetomany books: book mappedby writer }
entity book { id isbn: string xref author: author }`,
			wantErr: "onetomany attribute books is mapped by undefined attribute book.writer",
		},
		{
			name: "mappedby not a reference to the owner",
			input: `entity author { id name: string onetomany books: book mappedby title }
entity book { id isbn: string attribute title: string }`,
			wantErr: "is mapped by book.title which is not a single reference to author",
		},
		{
			name:    "empty compound",
			input:   `entity book { id isbn: string compound c { } }`,
			wantErr: "compound attribute c requires children",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			err = NewValidator(schema).Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidator_KnownEntities(t *testing.T) {
	schema, err := Parse(`entity book { id isbn: string xref author: author }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := NewValidator(schema).WithKnownEntities("author").Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
