package entities

import (
	"fmt"
	"strings"
)

// Operator is a query rule operator
type Operator int

const (
	OperatorEquals Operator = iota + 1
	OperatorNotEquals
	OperatorIn
	OperatorRange
	OperatorLike
	OperatorSearch
	OperatorGreater
	OperatorGreaterEqual
	OperatorLess
	OperatorLessEqual
	OperatorNot
	OperatorAnd
	OperatorOr
	OperatorNested
)

var operatorNames = map[Operator]string{
	OperatorEquals:       "EQUALS",
	OperatorNotEquals:    "NOT_EQUALS",
	OperatorIn:           "IN",
	OperatorRange:        "RANGE",
	OperatorLike:         "LIKE",
	OperatorSearch:       "SEARCH",
	OperatorGreater:      "GREATER",
	OperatorGreaterEqual: "GREATER_EQUAL",
	OperatorLess:         "LESS",
	OperatorLessEqual:    "LESS_EQUAL",
	OperatorNot:          "NOT",
	OperatorAnd:          "AND",
	OperatorOr:           "OR",
	OperatorNested:       "NESTED",
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(o))
}

// IsConnective reports whether the operator joins or negates rules
// instead of testing an attribute.
func (o Operator) IsConnective() bool {
	return o == OperatorAnd || o == OperatorOr || o == OperatorNot
}

// QueryRule is one atomic condition or connective of a query.
// Field is an attribute name or a dotted relationship path such as
// "author.name".
type QueryRule struct {
	Field       string
	Operator    Operator
	Value       interface{}
	NestedRules []QueryRule
}

// String returns a string representation of the rule
func (r QueryRule) String() string {
	switch r.Operator {
	case OperatorAnd, OperatorOr, OperatorNot:
		return r.Operator.String()
	case OperatorNested:
		parts := make([]string, len(r.NestedRules))
		for i, n := range r.NestedRules {
			parts[i] = n.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("%s %s %v", r.Field, r.Operator, r.Value)
	}
}

// PathSegments splits the field on dots
func (r QueryRule) PathSegments() []string {
	return strings.Split(r.Field, ".")
}

// Direction is a sort direction
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// SortOrder orders by one attribute
type SortOrder struct {
	Attribute string
	Direction Direction
}

// Sort is an ordered list of sort orders
type Sort struct {
	Orders []SortOrder
}

// Query is a generic, attribute name addressed query
type Query struct {
	Rules    []QueryRule
	PageSize int // 0 means the repository default
	Offset   int
	Sort     *Sort
}

// NewQuery creates an empty query
func NewQuery() *Query {
	return &Query{}
}

// String returns a string representation of the query
func (q *Query) String() string {
	parts := make([]string, len(q.Rules))
	for i, r := range q.Rules {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

func (q *Query) add(r QueryRule) *Query {
	q.Rules = append(q.Rules, r)
	return q
}

// Eq adds an equals rule
func (q *Query) Eq(field string, value interface{}) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorEquals, Value: value})
}

// NotEq adds a not-equals rule
func (q *Query) NotEq(field string, value interface{}) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorNotEquals, Value: value})
}

// In adds an in rule; values must be a slice
func (q *Query) In(field string, values interface{}) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorIn, Value: values})
}

// Range adds an inclusive range rule
func (q *Query) Range(field string, from, to interface{}) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorRange, Value: []interface{}{from, to}})
}

// Like adds a case sensitive substring rule
func (q *Query) Like(field string, value string) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorLike, Value: value})
}

// Search adds a case insensitive text search rule; an empty field searches
// all string attributes
func (q *Query) Search(field string, value string) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorSearch, Value: value})
}

// Gt adds a greater-than rule
func (q *Query) Gt(field string, value interface{}) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorGreater, Value: value})
}

// Ge adds a greater-or-equal rule
func (q *Query) Ge(field string, value interface{}) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorGreaterEqual, Value: value})
}

// Lt adds a less-than rule
func (q *Query) Lt(field string, value interface{}) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorLess, Value: value})
}

// Le adds a less-or-equal rule
func (q *Query) Le(field string, value interface{}) *Query {
	return q.add(QueryRule{Field: field, Operator: OperatorLessEqual, Value: value})
}

// And adds an AND connective
func (q *Query) And() *Query {
	return q.add(QueryRule{Operator: OperatorAnd})
}

// Or adds an OR connective
func (q *Query) Or() *Query {
	return q.add(QueryRule{Operator: OperatorOr})
}

// Not negates the next rule
func (q *Query) Not() *Query {
	return q.add(QueryRule{Operator: OperatorNot})
}

// Nest adds the rules of the nested query as a parenthesized group
func (q *Query) Nest(nested *Query) *Query {
	return q.add(QueryRule{Operator: OperatorNested, NestedRules: append([]QueryRule(nil), nested.Rules...)})
}

// WithPageSize sets the page size
func (q *Query) WithPageSize(size int) *Query {
	q.PageSize = size
	return q
}

// WithOffset sets the offset
func (q *Query) WithOffset(offset int) *Query {
	q.Offset = offset
	return q
}

// SortBy appends a sort order
func (q *Query) SortBy(attribute string, direction Direction) *Query {
	if q.Sort == nil {
		q.Sort = &Sort{}
	}
	q.Sort.Orders = append(q.Sort.Orders, SortOrder{Attribute: attribute, Direction: direction})
	return q
}

// Copy returns a shallow copy that can be modified independently
func (q *Query) Copy() *Query {
	c := *q
	c.Rules = append([]QueryRule(nil), q.Rules...)
	if q.Sort != nil {
		s := Sort{Orders: append([]SortOrder(nil), q.Sort.Orders...)}
		c.Sort = &s
	}
	return &c
}
