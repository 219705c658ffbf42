package parser

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	// Identifiers and literals
	TOKEN_IDENTIFIER
	TOKEN_STRING // String literals (quoted)
	TOKEN_NUMBER

	// Declaration keywords
	TOKEN_ENTITY
	TOKEN_ID
	TOKEN_ATTRIBUTE
	TOKEN_XREF
	TOKEN_MREF
	TOKEN_ONETOMANY
	TOKEN_ENUM
	TOKEN_COMPOUND

	// Modifier keywords
	TOKEN_MAPPEDBY
	TOKEN_NULLABLE
	TOKEN_UNIQUE
	TOKEN_AUTO
	TOKEN_READONLY
	TOKEN_LABEL

	// Delimiters
	TOKEN_COLON
	TOKEN_LBRACE
	TOKEN_RBRACE
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_COMMA
	TOKEN_AT
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL:    "ILLEGAL",
	TOKEN_EOF:        "EOF",
	TOKEN_IDENTIFIER: "IDENTIFIER",
	TOKEN_STRING:     "STRING",
	TOKEN_NUMBER:     "NUMBER",
	TOKEN_ENTITY:     "entity",
	TOKEN_ID:         "id",
	TOKEN_ATTRIBUTE:  "attribute",
	TOKEN_XREF:       "xref",
	TOKEN_MREF:       "mref",
	TOKEN_ONETOMANY:  "onetomany",
	TOKEN_ENUM:       "enum",
	TOKEN_COMPOUND:   "compound",
	TOKEN_MAPPEDBY:   "mappedby",
	TOKEN_NULLABLE:   "nullable",
	TOKEN_UNIQUE:     "unique",
	TOKEN_AUTO:       "auto",
	TOKEN_READONLY:   "readonly",
	TOKEN_LABEL:      "label",
	TOKEN_COLON:      ":",
	TOKEN_LBRACE:     "{",
	TOKEN_RBRACE:     "}",
	TOKEN_LPAREN:     "(",
	TOKEN_RPAREN:     ")",
	TOKEN_COMMA:      ",",
	TOKEN_AT:         "@",
}

var keywords = map[string]TokenType{
	"entity":    TOKEN_ENTITY,
	"id":        TOKEN_ID,
	"attribute": TOKEN_ATTRIBUTE,
	"xref":      TOKEN_XREF,
	"mref":      TOKEN_MREF,
	"onetomany": TOKEN_ONETOMANY,
	"enum":      TOKEN_ENUM,
	"compound":  TOKEN_COMPOUND,
	"mappedby":  TOKEN_MAPPEDBY,
	"nullable":  TOKEN_NULLABLE,
	"unique":    TOKEN_UNIQUE,
	"auto":      TOKEN_AUTO,
	"readonly":  TOKEN_READONLY,
	"label":     TOKEN_LABEL,
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// String returns a string representation of the token
func (t *Token) String() string {
	typeName := tokenNames[t.Type]
	if typeName == "" {
		typeName = fmt.Sprintf("UNKNOWN(%d)", t.Type)
	}
	return fmt.Sprintf("%s(%s) at %d:%d", typeName, t.Value, t.Line, t.Column)
}

// Lexer performs lexical analysis
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

// NewLexer creates a new Lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment skips single-line comments starting with //
func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readString reads a string literal enclosed in double quotes; \" and \\
// are the only escapes. The closing quote is left as the current char.
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0, '\n':
			return sb.String(), false
		case '"':
			return sb.String(), true
		case '\\':
			if next := l.peekChar(); next == '"' || next == '\\' {
				l.readChar()
			}
		}
		sb.WriteByte(l.ch)
	}
}

// NextToken returns the next token
func (l *Lexer) NextToken() (*Token, error) {
	for {
		l.skipWhitespace()
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipComment()
		} else {
			break
		}
	}

	line := l.line
	column := l.column
	single := func(t TokenType) *Token {
		tok := &Token{Type: t, Value: string(l.ch), Line: line, Column: column}
		l.readChar()
		return tok
	}

	switch l.ch {
	case ':':
		return single(TOKEN_COLON), nil
	case '{':
		return single(TOKEN_LBRACE), nil
	case '}':
		return single(TOKEN_RBRACE), nil
	case '(':
		return single(TOKEN_LPAREN), nil
	case ')':
		return single(TOKEN_RPAREN), nil
	case ',':
		return single(TOKEN_COMMA), nil
	case '@':
		return single(TOKEN_AT), nil
	case '"':
		value, ok := l.readString()
		if !ok {
			return nil, fmt.Errorf("unterminated string at %d:%d", line, column)
		}
		l.readChar() // Skip closing quote
		return &Token{Type: TOKEN_STRING, Value: value, Line: line, Column: column}, nil
	case 0:
		return &Token{Type: TOKEN_EOF, Value: "", Line: line, Column: column}, nil
	}

	switch {
	case isLetter(l.ch) || l.ch == '_':
		value := l.readIdentifier()
		tokenType := TOKEN_IDENTIFIER
		if kw, ok := keywords[value]; ok {
			tokenType = kw
		}
		return &Token{Type: tokenType, Value: value, Line: line, Column: column}, nil
	case isDigit(l.ch):
		return &Token{Type: TOKEN_NUMBER, Value: l.readNumber(), Line: line, Column: column}, nil
	default:
		return nil, fmt.Errorf("illegal character '%c' at %d:%d", l.ch, line, column)
	}
}

// isLetter checks if a character is a letter
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit checks if a character is a digit
func isDigit(ch byte) bool {
	return unicode.IsDigit(rune(ch))
}
