package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
)

const (
	// DefaultPageSize is the LIMIT of queries without a page size
	DefaultPageSize = 1000

	// MaxParameters is the maximum number of bind parameters of one
	// PostgreSQL statement
	MaxParameters = 65535

	thisAlias = "this"
)

// Statement is SQL text with its positional ($n) arguments
type Statement struct {
	SQL  string
	Args []interface{}
}

// QueryGenerator compiles entity queries and mutations into SQL.
// It holds no per-query state and is safe for concurrent use.
type QueryGenerator struct {
	namer    *Namer
	pageSize int
}

// NewQueryGenerator creates a query generator. A pageSize <= 0 uses
// DefaultPageSize.
func NewQueryGenerator(namer *Namer, pageSize int) *QueryGenerator {
	if namer == nil {
		namer = DefaultNamer()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &QueryGenerator{namer: namer, pageSize: pageSize}
}

// Namer returns the namer used for table and column names
func (g *QueryGenerator) Namer() *Namer {
	return g.namer
}

// SelectedAttributes returns the attributes projected by SelectSQL, in
// projection order: every stored attribute plus a correlated array
// aggregate for every multi-valued reference.
func SelectedAttributes(et *entities.EntityType) []*entities.Attribute {
	var selected []*entities.Attribute
	for _, a := range et.AtomicAttributes() {
		if a.Type.IsStored() || a.Type.IsMultipleReference() {
			selected = append(selected, a)
		}
	}
	return selected
}

// SelectSQL compiles a query into a paged select of entities
func (g *QueryGenerator) SelectSQL(et *entities.EntityType, q *entities.Query) (*Statement, error) {
	if q == nil {
		q = entities.NewQuery()
	}
	idAttr, err := idAttribute(et)
	if err != nil {
		return nil, err
	}

	b := &sqlBuilder{g: g}
	where, err := b.where(scope{et: et, alias: thisAlias, joins: true}, q.Rules)
	if err != nil {
		return nil, err
	}
	orderBy, err := g.orderBy(et, q.Sort)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(b.joins) > 0 {
		sb.WriteString("DISTINCT ")
	}
	projections := make([]string, 0, len(et.AtomicAttributes()))
	for _, a := range SelectedAttributes(et) {
		p, err := g.projection(et, idAttr, a)
		if err != nil {
			return nil, err
		}
		projections = append(projections, p)
	}
	sb.WriteString(strings.Join(projections, ", "))
	b.writeFrom(&sb, et, where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy)

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = g.pageSize
	}
	sb.WriteString(" LIMIT ")
	sb.WriteString(strconv.Itoa(pageSize))
	if q.Offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(q.Offset))
	}

	return &Statement{SQL: sb.String(), Args: b.args}, nil
}

// CountSQL compiles a query into a count of distinct entity ids over the
// same join structure as SelectSQL
func (g *QueryGenerator) CountSQL(et *entities.EntityType, q *entities.Query) (*Statement, error) {
	if q == nil {
		q = entities.NewQuery()
	}
	idAttr, err := idAttribute(et)
	if err != nil {
		return nil, err
	}

	b := &sqlBuilder{g: g}
	where, err := b.where(scope{et: et, alias: thisAlias, joins: true}, q.Rules)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(DISTINCT ")
	sb.WriteString(qualify(thisAlias, g.namer.ColumnName(idAttr)))
	sb.WriteString(")")
	b.writeFrom(&sb, et, where)

	return &Statement{SQL: sb.String(), Args: b.args}, nil
}

// SelectIDsSQL selects which of the given ids exist
func (g *QueryGenerator) SelectIDsSQL(et *entities.EntityType, ids []interface{}) (*Statement, error) {
	idAttr, err := idAttribute(et)
	if err != nil {
		return nil, err
	}
	idCol := Quote(g.namer.ColumnName(idAttr))
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		idCol, Quote(g.namer.TableName(et)), idCol, placeholders(1, len(ids)))
	return &Statement{SQL: sql, Args: ids}, nil
}

// InsertSQL inserts rows of storage values, one row per entity, columns in
// StoredAttributes order
func (g *QueryGenerator) InsertSQL(et *entities.EntityType, rows [][]interface{}) *Statement {
	attrs := et.StoredAttributes()
	cols := make([]string, len(attrs))
	for i, a := range attrs {
		cols[i] = Quote(g.namer.ColumnName(a))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", Quote(g.namer.TableName(et)), strings.Join(cols, ", "))
	args := make([]interface{}, 0, len(rows)*len(attrs))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		sb.WriteString(placeholders(len(args)+1, len(row)))
		sb.WriteString(")")
		args = append(args, row...)
	}
	return &Statement{SQL: sb.String(), Args: args}
}

// UpdateSQL returns the statement updating all stored non-id columns of
// one row, identified by the last argument. It returns false when the
// entity type has no column besides its id.
func (g *QueryGenerator) UpdateSQL(et *entities.EntityType) (string, []*entities.Attribute, bool) {
	var sets []string
	var attrs []*entities.Attribute
	for _, a := range et.StoredAttributes() {
		if a.Name == et.IDAttributeName {
			continue
		}
		attrs = append(attrs, a)
		sets = append(sets, fmt.Sprintf("%s = $%d", Quote(g.namer.ColumnName(a)), len(attrs)))
	}
	if len(sets) == 0 {
		return "", nil, false
	}
	idCol := Quote(g.namer.ColumnName(et.IDAttribute()))
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		Quote(g.namer.TableName(et)), strings.Join(sets, ", "), idCol, len(attrs)+1)
	return sql, attrs, true
}

// DeleteSQL deletes the rows with the given ids
func (g *QueryGenerator) DeleteSQL(et *entities.EntityType, ids []interface{}) (*Statement, error) {
	idAttr, err := idAttribute(et)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		Quote(g.namer.TableName(et)), Quote(g.namer.ColumnName(idAttr)), placeholders(1, len(ids)))
	return &Statement{SQL: sql, Args: ids}, nil
}

// DeleteAllSQL deletes every row of the entity table
func (g *QueryGenerator) DeleteAllSQL(et *entities.EntityType) string {
	return "DELETE FROM " + Quote(g.namer.TableName(et))
}

func (g *QueryGenerator) projection(et *entities.EntityType, idAttr, a *entities.Attribute) (string, error) {
	idCol := g.namer.ColumnName(idAttr)
	switch {
	case a.Type.IsStored():
		return qualify(thisAlias, g.namer.ColumnName(a)), nil
	case a.Type.HasJunctionTable():
		junction := Quote(g.namer.JunctionTableName(et, a))
		col := Quote(g.namer.ColumnName(a))
		return fmt.Sprintf("(SELECT array_agg(%s ORDER BY %s ASC) FROM %s WHERE %s = %s) AS %s",
			col, col, junction, qualify(thisAlias, idCol), junction+"."+Quote(idCol), col), nil
	case a.IsMappedBy():
		ref := a.RefEntityType
		refTable := Quote(g.namer.TableName(ref))
		refID := Quote(g.namer.ColumnName(ref.IDAttribute()))
		return fmt.Sprintf("(SELECT array_agg(%s ORDER BY %s ASC) FROM %s WHERE %s = %s) AS %s",
			refID, refID, refTable, qualify(thisAlias, idCol), refTable+"."+Quote(g.namer.ColumnName(a.MappedBy)),
			Quote(g.namer.ColumnName(a))), nil
	default:
		return "", errors.AssertionFailedf("illegal attribute type [%s] of attribute [%s] in projection of entity type [%s]",
			a.Type, a.Name, et.ID)
	}
}

func (g *QueryGenerator) orderBy(et *entities.EntityType, sort *entities.Sort) (string, error) {
	idCol := g.namer.ColumnName(et.IDAttribute())
	if sort == nil || len(sort.Orders) == 0 {
		return Quote(idCol) + " ASC", nil
	}

	parts := make([]string, 0, len(sort.Orders)+1)
	hasID := false
	for _, o := range sort.Orders {
		attr := et.Attribute(o.Attribute)
		if attr == nil {
			return "", &errors.UnsupportedQueryError{EntityType: et.ID, Attribute: o.Attribute, Reason: "unknown attribute"}
		}
		if !attr.Type.IsStored() {
			return "", &errors.UnsupportedQueryError{EntityType: et.ID, Attribute: o.Attribute,
				Reason: fmt.Sprintf("cannot sort by attribute of type %s", attr.Type)}
		}
		if attr.Name == et.IDAttributeName {
			hasID = true
		}
		parts = append(parts, Quote(g.namer.ColumnName(attr))+" "+o.Direction.String())
	}
	if !hasID {
		parts = append(parts, Quote(idCol)+" ASC")
	}
	return strings.Join(parts, ", "), nil
}

// scope is the entity type and table alias a rule is compiled against.
// Joins are only emitted in the outermost scope; relationship paths are
// compiled to subqueries.
type scope struct {
	et    *entities.EntityType
	alias string
	joins bool
}

// sqlBuilder accumulates the arguments and joins of one statement
type sqlBuilder struct {
	g       *QueryGenerator
	args    []interface{}
	joins   []string
	filters int
	paths   int
}

func (b *sqlBuilder) bind(v interface{}) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *sqlBuilder) writeFrom(sb *strings.Builder, et *entities.EntityType, where string) {
	sb.WriteString(" FROM ")
	sb.WriteString(Quote(b.g.namer.TableName(et)))
	sb.WriteString(" AS ")
	sb.WriteString(thisAlias)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
}

// where compiles a rule list; adjacent predicates without a connective are
// joined with AND.
func (b *sqlBuilder) where(s scope, rules []entities.QueryRule) (string, error) {
	var sb strings.Builder
	operand := false
	negate := false

	for _, r := range rules {
		switch r.Operator {
		case entities.OperatorAnd, entities.OperatorOr:
			if !operand || negate {
				return "", &errors.UnsupportedQueryError{EntityType: s.et.ID, Operator: r.Operator.String(),
					Reason: "connective without left operand"}
			}
			sb.WriteString(" ")
			sb.WriteString(r.Operator.String())
			sb.WriteString(" ")
			operand = false
			continue
		case entities.OperatorNot:
			if operand {
				sb.WriteString(" AND ")
				operand = false
			}
			negate = !negate
			continue
		}

		if operand {
			sb.WriteString(" AND ")
		}
		expr, err := b.rule(s, r, negate)
		if err != nil {
			return "", err
		}
		negate = false
		sb.WriteString(expr)
		operand = true
	}

	if sb.Len() > 0 && (!operand || negate) {
		return "", &errors.UnsupportedQueryError{EntityType: s.et.ID, Reason: "query ends with a connective"}
	}
	if negate {
		return "", &errors.UnsupportedQueryError{EntityType: s.et.ID, Operator: entities.OperatorNot.String(),
			Reason: "NOT without operand"}
	}
	return sb.String(), nil
}

// rule compiles one rule, negated when negate is set
func (b *sqlBuilder) rule(s scope, r entities.QueryRule, negate bool) (string, error) {
	if r.Operator == entities.OperatorNested {
		inner, err := b.where(s, r.NestedRules)
		if err != nil {
			return "", err
		}
		if inner == "" {
			inner = "TRUE"
		} else {
			inner = "(" + inner + ")"
		}
		return negated(negate, inner), nil
	}
	if r.Operator == entities.OperatorSearch && r.Field == "" {
		expr, err := b.searchAll(s, r)
		if err != nil {
			return "", err
		}
		return negated(negate, expr), nil
	}

	segs := r.PathSegments()
	attr := s.et.Attribute(segs[0])
	if attr == nil {
		return "", &errors.UnsupportedQueryError{EntityType: s.et.ID, Attribute: r.Field,
			Operator: r.Operator.String(), Reason: "unknown attribute"}
	}
	if !attr.Type.IsKnown() || attr.Type.IsCompound() {
		return "", errors.AssertionFailedf("illegal attribute type [%s] of attribute [%s] in query on entity type [%s]",
			attr.Type, attr.Name, s.et.ID)
	}

	// a multi-valued attribute matches NOT_EQUALS when none of its
	// references equals the operand
	multi := len(segs) == 1 && (attr.Type.HasJunctionTable() || attr.IsMappedBy())
	if multi && r.Operator == entities.OperatorNotEquals {
		r.Operator = entities.OperatorEquals
		negate = !negate
	}

	var expr string
	var err error
	switch {
	case len(segs) > 1:
		expr, err = b.path(s, attr, r, segs[1:])
	case attr.Type.IsStored():
		expr, err = b.predicate(attr, qualify(s.alias, b.g.namer.ColumnName(attr)), r)
	case multi && negate:
		expr, err = b.excludeReferences(s, attr, r)
	case attr.Type.HasJunctionTable():
		expr, err = b.junctionPredicate(s, attr, r)
	case attr.IsMappedBy():
		expr, err = b.mappedByPredicate(s, attr, r)
	default:
		err = errors.AssertionFailedf("illegal attribute type [%s] of attribute [%s] in query on entity type [%s]",
			attr.Type, attr.Name, s.et.ID)
	}
	if err != nil {
		var tm *errors.TypeMismatchError
		if errors.As(err, &tm) && tm.EntityType == "" {
			tm.EntityType = s.et.ID
		}
		var uq *errors.UnsupportedQueryError
		if errors.As(err, &uq) && uq.EntityType == "" {
			uq.EntityType = s.et.ID
		}
		return "", err
	}
	if multi {
		return expr, nil
	}
	return negated(negate, expr), nil
}

func negated(negate bool, expr string) string {
	if negate {
		return "NOT " + expr
	}
	return expr
}

// excludeReferences compiles a negated rule on a multi-valued attribute:
// an entity matches when none of its references satisfies the rule, which
// includes entities without references.
func (b *sqlBuilder) excludeReferences(s scope, attr *entities.Attribute, r entities.QueryRule) (string, error) {
	var table, ownerCol, refCol string
	if attr.Type.HasJunctionTable() {
		table = Quote(b.g.namer.JunctionTableName(s.et, attr))
		ownerCol = b.g.namer.ColumnName(s.et.IDAttribute())
		refCol = b.g.namer.ColumnName(attr)
	} else {
		table = Quote(b.g.namer.TableName(attr.RefEntityType))
		ownerCol = b.g.namer.ColumnName(attr.MappedBy)
		refCol = b.g.namer.ColumnName(attr.RefEntityType.IDAttribute())
	}
	alias := b.pathAlias(attr)
	correlation := qualify(alias, ownerCol) + " = " + qualify(s.alias, b.g.namer.ColumnName(s.et.IDAttribute()))

	// NOT (attr = null) holds for entities with at least one reference
	if r.Operator == entities.OperatorEquals && isNil(r.Value) {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s)", table, alias, correlation), nil
	}
	cond, err := b.predicate(attr, qualify(alias, refCol), r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s AS %s WHERE %s AND %s)", table, alias, correlation, cond), nil
}

// junctionPredicate filters on the referenced ids of a junction table
func (b *sqlBuilder) junctionPredicate(s scope, attr *entities.Attribute, r entities.QueryRule) (string, error) {
	idCol := b.g.namer.ColumnName(s.et.IDAttribute())
	refCol := b.g.namer.ColumnName(attr)
	junction := Quote(b.g.namer.JunctionTableName(s.et, attr))

	if s.joins {
		alias := b.filterAlias(attr)
		b.joins = append(b.joins, fmt.Sprintf("LEFT JOIN %s AS %s ON (%s = %s)",
			junction, alias, qualify(s.alias, idCol), qualify(alias, idCol)))
		return b.predicate(attr, qualify(alias, refCol), r)
	}

	alias := b.pathAlias(attr)
	cond, err := b.predicate(attr, qualify(alias, refCol), r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s IN (SELECT %s FROM %s AS %s WHERE %s)",
		qualify(s.alias, idCol), qualify(alias, idCol), junction, alias, cond), nil
}

// mappedByPredicate filters on the ids of the entities whose forward
// reference points back to this entity
func (b *sqlBuilder) mappedByPredicate(s scope, attr *entities.Attribute, r entities.QueryRule) (string, error) {
	ref := attr.RefEntityType
	idCol := b.g.namer.ColumnName(s.et.IDAttribute())
	mappedCol := b.g.namer.ColumnName(attr.MappedBy)
	refIDCol := b.g.namer.ColumnName(ref.IDAttribute())
	refTable := Quote(b.g.namer.TableName(ref))

	if s.joins {
		alias := b.filterAlias(attr)
		b.joins = append(b.joins, fmt.Sprintf("LEFT JOIN %s AS %s ON (%s = %s)",
			refTable, alias, qualify(s.alias, idCol), qualify(alias, mappedCol)))
		return b.predicate(attr, qualify(alias, refIDCol), r)
	}

	alias := b.pathAlias(attr)
	cond, err := b.predicate(attr, qualify(alias, refIDCol), r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s IN (SELECT %s FROM %s AS %s WHERE %s)",
		qualify(s.alias, idCol), qualify(alias, mappedCol), refTable, alias, cond), nil
}

// path compiles a rule on an attribute of a referenced entity type, e.g.
// author.name, into a subquery on the referenced table
func (b *sqlBuilder) path(s scope, attr *entities.Attribute, r entities.QueryRule, rest []string) (string, error) {
	if !attr.Type.IsReference() {
		return "", &errors.UnsupportedQueryError{EntityType: s.et.ID, Attribute: r.Field,
			Operator: r.Operator.String(), Reason: fmt.Sprintf("attribute %s is not a reference", attr.Name)}
	}
	ref := attr.RefEntityType
	alias := b.pathAlias(attr)
	nested := r
	nested.Field = strings.Join(rest, ".")
	cond, err := b.rule(scope{et: ref, alias: alias, joins: false}, nested, false)
	if err != nil {
		return "", err
	}

	refTable := Quote(b.g.namer.TableName(ref))
	refIDCol := b.g.namer.ColumnName(ref.IDAttribute())
	idCol := b.g.namer.ColumnName(s.et.IDAttribute())

	switch {
	case attr.Type.IsSingleReference():
		return fmt.Sprintf("%s IN (SELECT %s FROM %s AS %s WHERE %s)",
			qualify(s.alias, b.g.namer.ColumnName(attr)), qualify(alias, refIDCol), refTable, alias, cond), nil
	case attr.Type.HasJunctionTable():
		jAlias := b.pathAlias(attr)
		return fmt.Sprintf("%s IN (SELECT %s FROM %s AS %s WHERE %s IN (SELECT %s FROM %s AS %s WHERE %s))",
			qualify(s.alias, idCol), qualify(jAlias, idCol), Quote(b.g.namer.JunctionTableName(s.et, attr)), jAlias,
			qualify(jAlias, b.g.namer.ColumnName(attr)), qualify(alias, refIDCol), refTable, alias, cond), nil
	default:
		return fmt.Sprintf("%s IN (SELECT %s FROM %s AS %s WHERE %s)",
			qualify(s.alias, idCol), qualify(alias, b.g.namer.ColumnName(attr.MappedBy)), refTable, alias, cond), nil
	}
}

// searchAll matches the operand case-insensitively against every string
// attribute
func (b *sqlBuilder) searchAll(s scope, r entities.QueryRule) (string, error) {
	text, ok := r.Value.(string)
	if !ok {
		return "", &errors.TypeMismatchError{EntityType: s.et.ID, Attribute: "*", Expected: "string",
			Actual: fmt.Sprintf("%T", r.Value)}
	}
	var cols []string
	for _, a := range s.et.StoredAttributes() {
		if a.Type.IsStringType() {
			cols = append(cols, qualify(s.alias, b.g.namer.ColumnName(a)))
		}
	}
	if len(cols) == 0 {
		return "FALSE", nil
	}
	p := b.bind("%" + escapeLike(text) + "%")
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " ILIKE " + p
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// predicate compiles one operator against a column expression. Operands of
// multi-valued attributes are single referenced ids (or entities).
func (b *sqlBuilder) predicate(attr *entities.Attribute, col string, r entities.QueryRule) (string, error) {
	multi := attr.Type.IsMultipleReference()
	convert := func(v interface{}) (interface{}, error) {
		if !multi {
			return QueryValue(v, attr)
		}
		idAttr, err := refIDAttribute(attr)
		if err != nil {
			return nil, err
		}
		if isNil(v) {
			return nil, nil
		}
		return convertReferenceID(v, attr, idAttr, true)
	}
	unsupported := func(reason string) error {
		return &errors.UnsupportedQueryError{Attribute: attr.Name, Operator: r.Operator.String(), Reason: reason}
	}

	switch r.Operator {
	case entities.OperatorEquals, entities.OperatorNotEquals:
		v, err := convert(r.Value)
		if err != nil {
			return "", err
		}
		if v == nil {
			if r.Operator == entities.OperatorEquals {
				return col + " IS NULL", nil
			}
			return col + " IS NOT NULL", nil
		}
		if r.Operator == entities.OperatorEquals {
			return col + " = " + b.bind(v), nil
		}
		return col + " <> " + b.bind(v), nil

	case entities.OperatorIn:
		items, ok := sliceElements(r.Value)
		if !ok {
			return "", unsupported("IN operand must be a slice")
		}
		if len(items) == 0 {
			return "FALSE", nil
		}
		ps := make([]string, len(items))
		for i, item := range items {
			v, err := convert(item)
			if err != nil {
				return "", err
			}
			ps[i] = b.bind(v)
		}
		return col + " IN (" + strings.Join(ps, ", ") + ")", nil

	case entities.OperatorRange:
		if multi {
			return "", unsupported("not supported on multi-valued attributes")
		}
		items, ok := sliceElements(r.Value)
		if !ok || len(items) != 2 {
			return "", unsupported("RANGE operand must be a [from, to] pair")
		}
		from, err := convert(items[0])
		if err != nil {
			return "", err
		}
		to, err := convert(items[1])
		if err != nil {
			return "", err
		}
		switch {
		case from != nil && to != nil:
			return "(" + col + " >= " + b.bind(from) + " AND " + col + " <= " + b.bind(to) + ")", nil
		case from != nil:
			return col + " >= " + b.bind(from), nil
		case to != nil:
			return col + " <= " + b.bind(to), nil
		default:
			return "", unsupported("RANGE requires at least one bound")
		}

	case entities.OperatorLike, entities.OperatorSearch:
		if multi || !attr.Type.IsStringType() {
			return "", unsupported(fmt.Sprintf("not supported on attribute of type %s", attr.Type))
		}
		text, ok := r.Value.(string)
		if !ok {
			return "", mismatch(attr, "string", r.Value)
		}
		op := " LIKE "
		if r.Operator == entities.OperatorSearch {
			op = " ILIKE "
		}
		return col + op + b.bind("%"+escapeLike(text)+"%"), nil

	case entities.OperatorGreater, entities.OperatorGreaterEqual, entities.OperatorLess, entities.OperatorLessEqual:
		if multi {
			return "", unsupported("not supported on multi-valued attributes")
		}
		v, err := convert(r.Value)
		if err != nil {
			return "", err
		}
		if v == nil {
			return "", unsupported("operand is required")
		}
		return col + comparisonOperators[r.Operator] + b.bind(v), nil
	}

	return "", unsupported("unknown operator")
}

var comparisonOperators = map[entities.Operator]string{
	entities.OperatorGreater:      " > ",
	entities.OperatorGreaterEqual: " >= ",
	entities.OperatorLess:         " < ",
	entities.OperatorLessEqual:    " <= ",
}

func (b *sqlBuilder) filterAlias(attr *entities.Attribute) string {
	b.filters++
	return b.alias(attr, "_filter"+strconv.Itoa(b.filters))
}

func (b *sqlBuilder) pathAlias(attr *entities.Attribute) string {
	b.paths++
	return b.alias(attr, "_path"+strconv.Itoa(b.paths))
}

// alias cuts the attribute name so that the alias, counter suffix
// included, stays within the identifier bound
func (b *sqlBuilder) alias(attr *entities.Attribute, suffix string) string {
	return Quote(truncate(attr.Name, b.g.namer.MaxLength()-len(suffix)) + suffix)
}

func idAttribute(et *entities.EntityType) (*entities.Attribute, error) {
	idAttr := et.IDAttribute()
	if idAttr == nil {
		return nil, errors.AssertionFailedf("entity type [%s] has no identifier attribute", et.ID)
	}
	return idAttr, nil
}

// placeholders returns "$start, $start+1, ..." for n parameters
func placeholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(start+i)
	}
	return strings.Join(ps, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
