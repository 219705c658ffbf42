package parser

import (
	"testing"
)

func TestLexer_Keywords(t *testing.T) {
	input := `entity id attribute xref mref onetomany enum compound mappedby nullable unique auto readonly label`

	expected := []struct {
		tokenType TokenType
		value     string
	}{
		{TOKEN_ENTITY, "entity"},
		{TOKEN_ID, "id"},
		{TOKEN_ATTRIBUTE, "attribute"},
		{TOKEN_XREF, "xref"},
		{TOKEN_MREF, "mref"},
		{TOKEN_ONETOMANY, "onetomany"},
		{TOKEN_ENUM, "enum"},
		{TOKEN_COMPOUND, "compound"},
		{TOKEN_MAPPEDBY, "mappedby"},
		{TOKEN_NULLABLE, "nullable"},
		{TOKEN_UNIQUE, "unique"},
		{TOKEN_AUTO, "auto"},
		{TOKEN_READONLY, "readonly"},
		{TOKEN_LABEL, "label"},
		{TOKEN_EOF, ""},
	}

	lexer := NewLexer(input)

	for i, exp := range expected {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("test[%d]: unexpected error: %v", i, err)
		}

		if tok.Type != exp.tokenType {
			t.Errorf("test[%d]: expected token type %v, got %v", i, exp.tokenType, tok.Type)
		}

		if tok.Value != exp.value {
			t.Errorf("test[%d]: expected value %q, got %q", i, exp.value, tok.Value)
		}
	}
}

func TestLexer_Delimiters(t *testing.T) {
	input := `: { } ( ) , @`

	expected := []TokenType{
		TOKEN_COLON,
		TOKEN_LBRACE,
		TOKEN_RBRACE,
		TOKEN_LPAREN,
		TOKEN_RPAREN,
		TOKEN_COMMA,
		TOKEN_AT,
		TOKEN_EOF,
	}

	lexer := NewLexer(input)

	for i, exp := range expected {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("test[%d]: unexpected error: %v", i, err)
		}

		if tok.Type != exp {
			t.Errorf("test[%d]: expected token type %v, got %v", i, exp, tok.Type)
		}
	}
}

func TestLexer_IdentifiersNumbersStrings(t *testing.T) {
	input := `book categorical_mref field123 255 "draft" "say \"hi\""`

	expected := []struct {
		tokenType TokenType
		value     string
	}{
		{TOKEN_IDENTIFIER, "book"},
		{TOKEN_IDENTIFIER, "categorical_mref"},
		{TOKEN_IDENTIFIER, "field123"},
		{TOKEN_NUMBER, "255"},
		{TOKEN_STRING, "draft"},
		{TOKEN_STRING, `say "hi"`},
		{TOKEN_EOF, ""},
	}

	lexer := NewLexer(input)

	for i, exp := range expected {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("test[%d]: unexpected error: %v", i, err)
		}
		if tok.Type != exp.tokenType || tok.Value != exp.value {
			t.Errorf("test[%d]: expected %v(%q), got %v(%q)", i, exp.tokenType, exp.value, tok.Type, tok.Value)
		}
	}
}

func TestLexer_Comments(t *testing.T) {
	input := `// leading comment
entity book { // trailing comment
}`

	expected := []TokenType{TOKEN_ENTITY, TOKEN_IDENTIFIER, TOKEN_LBRACE, TOKEN_RBRACE, TOKEN_EOF}

	lexer := NewLexer(input)
	for i, exp := range expected {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("test[%d]: unexpected error: %v", i, err)
		}
		if tok.Type != exp {
			t.Errorf("test[%d]: expected token type %v, got %v", i, exp, tok.Type)
		}
	}
}

func TestLexer_LineNumbers(t *testing.T) {
	input := "entity book {\n  id isbn: string\n}"

	lexer := NewLexer(input)
	var idTok *Token
	for {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.Type == TOKEN_ID {
			idTok = tok
		}
		if tok.Type == TOKEN_EOF {
			break
		}
	}
	if idTok == nil {
		t.Fatal("expected an id token")
	}
	if idTok.Line != 2 {
		t.Errorf("expected id token on line 2, got %d", idTok.Line)
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "illegal character", input: `entity book # {}`},
		{name: "unterminated string", input: `enum status: ("draft`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			for {
				tok, err := lexer.NextToken()
				if err != nil {
					return
				}
				if tok.Type == TOKEN_EOF {
					t.Fatal("expected a lexer error")
				}
			}
		})
	}
}
