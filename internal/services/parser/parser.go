package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses the DSL into an AST
type Parser struct {
	lexer   *Lexer
	current *Token
	peek    *Token
	errors  []string
}

// NewParser creates a new Parser
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{
		lexer:  lexer,
		errors: []string{},
	}

	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()

	return p
}

// Parse parses a DSL document
func Parse(input string) (*SchemaAST, error) {
	return NewParser(NewLexer(input)).Parse()
}

// nextToken advances to the next token
func (p *Parser) nextToken() {
	p.current = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil {
		p.errors = append(p.errors, err.Error())
		p.peek = &Token{Type: TOKEN_EOF}
	} else {
		p.peek = tok
	}
}

func (p *Parser) currentTokenIs(t TokenType) bool {
	return p.current != nil && p.current.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peek != nil && p.peek.Type == t
}

// expectPeek checks if the next token is of the expected type and advances
func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(tokenNames[t])
	return false
}

// expectName advances over a name. Keywords are valid names, so an
// attribute may be called "id" or "label".
func (p *Parser) expectName() bool {
	if p.peekTokenIs(TOKEN_IDENTIFIER) {
		p.nextToken()
		return true
	}
	if _, ok := keywords[p.peek.Value]; ok && p.peek.Type != TOKEN_STRING {
		p.nextToken()
		return true
	}
	p.peekError("name")
	return false
}

func (p *Parser) peekError(expected string) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead at %d:%d",
		expected, tokenNames[p.peek.Type], p.peek.Line, p.peek.Column)
	p.errors = append(p.errors, msg)
}

func (p *Parser) currentError(context string) {
	p.errors = append(p.errors, fmt.Sprintf("unexpected token %s %s at %d:%d",
		tokenNames[p.current.Type], context, p.current.Line, p.current.Column))
}

// Parse parses the entire schema
func (p *Parser) Parse() (*SchemaAST, error) {
	schema := &SchemaAST{
		Entities: []*EntityAST{},
	}

	for !p.currentTokenIs(TOKEN_EOF) {
		if p.currentTokenIs(TOKEN_ENTITY) {
			entity := p.parseEntity()
			if entity != nil {
				schema.Entities = append(schema.Entities, entity)
			} else {
				// If parseEntity failed, skip to next token to avoid infinite loop
				p.nextToken()
			}
		} else {
			p.currentError("expected 'entity'")
			p.nextToken()
		}
	}

	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse errors:\n%s", strings.Join(p.errors, "\n"))
	}

	return schema, nil
}

// parseEntity parses an entity definition
// Syntax: entity name [label "Label"] { members }
func (p *Parser) parseEntity() *EntityAST {
	entity := &EntityAST{
		Attributes: []*AttributeAST{},
		Line:       p.current.Line,
	}

	if !p.expectName() {
		return nil
	}
	entity.Name = p.current.Value

	if p.peekTokenIs(TOKEN_LABEL) {
		p.nextToken()
		if !p.expectPeek(TOKEN_STRING) {
			return nil
		}
		entity.Label = p.current.Value
	}

	attrs, ok := p.parseBlock("entity")
	if !ok {
		return nil
	}
	entity.Attributes = attrs
	return entity
}

// parseBlock parses "{ members }" and leaves the token after "}" current
func (p *Parser) parseBlock(context string) ([]*AttributeAST, bool) {
	if !p.expectPeek(TOKEN_LBRACE) {
		return nil, false
	}

	attrs := []*AttributeAST{}
	p.nextToken()
	for !p.currentTokenIs(TOKEN_RBRACE) && !p.currentTokenIs(TOKEN_EOF) {
		attr := p.parseMember()
		if attr != nil {
			attrs = append(attrs, attr)
		} else {
			p.nextToken()
		}
	}

	if !p.currentTokenIs(TOKEN_RBRACE) {
		p.errors = append(p.errors, fmt.Sprintf("expected '}' at end of %s, got %s at %d:%d",
			context, tokenNames[p.current.Type], p.current.Line, p.current.Column))
		return nil, false
	}

	p.nextToken()
	return attrs, true
}

// parseMember parses one attribute declaration and leaves the token after
// it current
func (p *Parser) parseMember() *AttributeAST {
	attr := &AttributeAST{Line: p.current.Line, Column: p.current.Column}

	switch p.current.Type {
	case TOKEN_ID:
		attr.Kind = KindID
	case TOKEN_ATTRIBUTE:
		attr.Kind = KindAttribute
	case TOKEN_XREF:
		attr.Kind = KindXref
	case TOKEN_MREF:
		attr.Kind = KindMref
	case TOKEN_ONETOMANY:
		attr.Kind = KindOneToMany
	case TOKEN_ENUM:
		attr.Kind = KindEnum
	case TOKEN_COMPOUND:
		attr.Kind = KindCompound
	default:
		p.currentError("in entity")
		return nil
	}

	if !p.expectName() {
		return nil
	}
	attr.Name = p.current.Value

	if attr.Kind == KindCompound {
		attr.Type = string(KindCompound)
		if !p.parseModifiers(attr) {
			return nil
		}
		children, ok := p.parseBlock("compound " + attr.Name)
		if !ok {
			return nil
		}
		attr.Children = children
		return attr
	}

	if !p.expectPeek(TOKEN_COLON) {
		return nil
	}

	switch attr.Kind {
	case KindID, KindAttribute:
		if !p.parseType(attr) {
			return nil
		}
	case KindXref, KindMref, KindOneToMany:
		attr.Type = string(attr.Kind)
		if !p.expectName() {
			return nil
		}
		attr.Target = p.current.Value
		if attr.Kind == KindOneToMany {
			if !p.expectPeek(TOKEN_MAPPEDBY) || !p.expectName() {
				return nil
			}
			attr.MappedBy = p.current.Value
		}
	case KindEnum:
		attr.Type = string(KindEnum)
		options, ok := p.parseEnumOptions()
		if !ok {
			return nil
		}
		attr.EnumOptions = options
	}

	if !p.parseModifiers(attr) {
		return nil
	}
	p.nextToken()
	return attr
}

// parseType parses "type [(length)] [@target]"
func (p *Parser) parseType(attr *AttributeAST) bool {
	if !p.expectName() {
		return false
	}
	attr.Type = p.current.Value

	if p.peekTokenIs(TOKEN_LPAREN) {
		p.nextToken()
		if !p.expectPeek(TOKEN_NUMBER) {
			return false
		}
		n, err := strconv.Atoi(p.current.Value)
		if err != nil {
			p.errors = append(p.errors, fmt.Sprintf("invalid length %s at %d:%d", p.current.Value, p.current.Line, p.current.Column))
			return false
		}
		attr.MaxLength = n
		if !p.expectPeek(TOKEN_RPAREN) {
			return false
		}
	}

	if p.peekTokenIs(TOKEN_AT) {
		p.nextToken()
		if !p.expectName() {
			return false
		}
		attr.Target = p.current.Value
	}
	return true
}

// parseEnumOptions parses ("a", "b", ...)
func (p *Parser) parseEnumOptions() ([]string, bool) {
	if !p.expectPeek(TOKEN_LPAREN) {
		return nil, false
	}
	var options []string
	for {
		if !p.expectPeek(TOKEN_STRING) {
			return nil, false
		}
		options = append(options, p.current.Value)
		if !p.peekTokenIs(TOKEN_COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(TOKEN_RPAREN) {
		return nil, false
	}
	return options, true
}

// parseModifiers consumes the modifiers following a declaration
func (p *Parser) parseModifiers(attr *AttributeAST) bool {
	for {
		switch {
		case p.peekTokenIs(TOKEN_NULLABLE):
			attr.Nullable = true
		case p.peekTokenIs(TOKEN_UNIQUE):
			attr.Unique = true
		case p.peekTokenIs(TOKEN_AUTO):
			attr.Auto = true
		case p.peekTokenIs(TOKEN_READONLY):
			attr.ReadOnly = true
		case p.peekTokenIs(TOKEN_LABEL):
			p.nextToken()
			if !p.expectPeek(TOKEN_STRING) {
				return false
			}
			attr.Label = p.current.Value
			continue
		default:
			return true
		}
		p.nextToken()
	}
}
