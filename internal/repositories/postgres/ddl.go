package postgres

import (
	"fmt"
	"strings"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
)

// Constraint name suffixes
const (
	constraintPrimaryKey = "pkey"
	constraintUnique     = "key"
	constraintForeignKey = "fkey"
	constraintCheck      = "check"
	constraintIndex      = "idx"
)

// DDL generates the table definitions of entity types
type DDL struct {
	namer *Namer
}

// NewDDL creates a DDL generator
func NewDDL(namer *Namer) *DDL {
	if namer == nil {
		namer = DefaultNamer()
	}
	return &DDL{namer: namer}
}

// ColumnType returns the PostgreSQL column type of a stored attribute.
// Single references use the column type of the referenced identifier.
func (d *DDL) ColumnType(attr *entities.Attribute) (string, error) {
	switch attr.Type {
	case entities.AttributeTypeBool:
		return "boolean", nil
	case entities.AttributeTypeInt:
		return "integer", nil
	case entities.AttributeTypeLong:
		return "bigint", nil
	case entities.AttributeTypeDecimal:
		return "double precision", nil
	case entities.AttributeTypeString, entities.AttributeTypeEmail, entities.AttributeTypeHyperlink, entities.AttributeTypeEnum:
		return fmt.Sprintf("character varying(%d)", attr.MaxStringLength()), nil
	case entities.AttributeTypeText, entities.AttributeTypeHTML, entities.AttributeTypeScript:
		return "text", nil
	case entities.AttributeTypeDate:
		return "date", nil
	case entities.AttributeTypeDateTime:
		return "timestamp with time zone", nil
	case entities.AttributeTypeXref, entities.AttributeTypeCategorical, entities.AttributeTypeFile,
		entities.AttributeTypeMref, entities.AttributeTypeCategoricalMref:
		idAttr, err := refIDAttribute(attr)
		if err != nil {
			return "", err
		}
		return d.ColumnType(idAttr)
	case entities.AttributeTypeOneToMany, entities.AttributeTypeCompound:
		return "", errors.AssertionFailedf("attribute [%s] of type [%s] has no column", attr.Name, attr.Type)
	default:
		return "", errors.AssertionFailedf("unknown attribute type [%s] of attribute [%s]", attr.Type, attr.Name)
	}
}

// CreateTableSQL returns the CREATE TABLE statement of an entity type.
// Foreign keys are created separately by ForeignKeysSQL so that tables
// can reference each other in any order.
func (d *DDL) CreateTableSQL(et *entities.EntityType) (string, error) {
	idAttr, err := idAttribute(et)
	if err != nil {
		return "", err
	}
	table := d.namer.TableName(et)

	var defs []string
	for _, a := range et.StoredAttributes() {
		def, err := d.columnDefinition(a, a == idAttr)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}
	idCol := d.namer.ColumnName(idAttr)
	defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)",
		Quote(d.namer.ConstraintName(table, constraintPrimaryKey, idCol)), Quote(idCol)))
	for _, a := range et.StoredAttributes() {
		if a == idAttr {
			continue
		}
		defs = append(defs, d.columnConstraints(table, a)...)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", Quote(table), strings.Join(defs, ", ")), nil
}

// ForeignKeysSQL returns the statements adding the foreign keys of the
// single reference attributes of an entity type
func (d *DDL) ForeignKeysSQL(et *entities.EntityType) ([]string, error) {
	var stmts []string
	for _, a := range et.StoredAttributes() {
		if !a.Type.IsSingleReference() {
			continue
		}
		stmt, err := d.foreignKeySQL(et, a)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (d *DDL) foreignKeySQL(et *entities.EntityType, attr *entities.Attribute) (string, error) {
	idAttr, err := refIDAttribute(attr)
	if err != nil {
		return "", err
	}
	table := d.namer.TableName(et)
	col := d.namer.ColumnName(attr)
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) DEFERRABLE INITIALLY DEFERRED",
		Quote(table), Quote(d.namer.ConstraintName(table, constraintForeignKey, col)), Quote(col),
		Quote(d.namer.TableName(attr.RefEntityType)), Quote(d.namer.ColumnName(idAttr))), nil
}

// CreateJunctionTableSQL returns the CREATE TABLE statement of the junction
// table of a multi-valued attribute
func (d *DDL) CreateJunctionTableSQL(et *entities.EntityType, attr *entities.Attribute) (string, error) {
	if !attr.Type.HasJunctionTable() {
		return "", errors.AssertionFailedf("attribute [%s] of type [%s] has no junction table", attr.Name, attr.Type)
	}
	idAttr, err := idAttribute(et)
	if err != nil {
		return "", err
	}
	refIDAttr, err := refIDAttribute(attr)
	if err != nil {
		return "", err
	}
	idType, err := d.ColumnType(idAttr)
	if err != nil {
		return "", err
	}
	refType, err := d.ColumnType(refIDAttr)
	if err != nil {
		return "", err
	}

	junction := d.namer.JunctionTableName(et, attr)
	idCol := d.namer.ColumnName(idAttr)
	refCol := d.namer.ColumnName(attr)
	defs := []string{
		fmt.Sprintf("%s %s NOT NULL", Quote(idCol), idType),
		fmt.Sprintf("%s %s NOT NULL", Quote(refCol), refType),
		fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s, %s)",
			Quote(d.namer.ConstraintName(junction, constraintPrimaryKey, idCol, refCol)), Quote(idCol), Quote(refCol)),
		fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED",
			Quote(d.namer.ConstraintName(junction, constraintForeignKey, idCol)), Quote(idCol),
			Quote(d.namer.TableName(et)), Quote(idCol)),
		fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) DEFERRABLE INITIALLY DEFERRED",
			Quote(d.namer.ConstraintName(junction, constraintForeignKey, refCol)), Quote(refCol),
			Quote(d.namer.TableName(attr.RefEntityType)), Quote(d.namer.ColumnName(refIDAttr))),
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", Quote(junction), strings.Join(defs, ", ")), nil
}

// CreateJunctionIndexSQL returns the index supporting reverse lookups on
// the referenced ids of a junction table
func (d *DDL) CreateJunctionIndexSQL(et *entities.EntityType, attr *entities.Attribute) string {
	junction := d.namer.JunctionTableName(et, attr)
	refCol := d.namer.ColumnName(attr)
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		Quote(d.namer.ConstraintName(junction, constraintIndex, refCol)), Quote(junction), Quote(refCol))
}

// DropTableSQL returns the statement dropping the table of an entity type
func (d *DDL) DropTableSQL(et *entities.EntityType) string {
	return "DROP TABLE " + Quote(d.namer.TableName(et))
}

// DropJunctionTableSQL returns the statement dropping a junction table
func (d *DDL) DropJunctionTableSQL(et *entities.EntityType, attr *entities.Attribute) string {
	return "DROP TABLE " + Quote(d.namer.JunctionTableName(et, attr))
}

// AddColumnSQL returns the statements adding a stored attribute to an
// existing table. The column is added nullable first so that existing
// rows do not violate NOT NULL.
func (d *DDL) AddColumnSQL(et *entities.EntityType, attr *entities.Attribute) ([]string, error) {
	colType, err := d.ColumnType(attr)
	if err != nil {
		return nil, err
	}
	table := d.namer.TableName(et)
	col := d.namer.ColumnName(attr)
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", Quote(table), Quote(col), colType)}
	if !attr.Nullable {
		stmts = append(stmts, d.SetNullableSQL(et, attr))
	}
	for _, c := range d.columnConstraints(table, attr) {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD %s", Quote(table), c))
	}
	if attr.Type.IsSingleReference() {
		fk, err := d.foreignKeySQL(et, attr)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fk)
	}
	return stmts, nil
}

// DropColumnSQL returns the statement dropping a stored attribute's column
func (d *DDL) DropColumnSQL(et *entities.EntityType, attr *entities.Attribute) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", Quote(d.namer.TableName(et)), Quote(d.namer.ColumnName(attr)))
}

// SetNullableSQL returns the statement matching the column's NOT NULL
// constraint to attr.Nullable
func (d *DDL) SetNullableSQL(et *entities.EntityType, attr *entities.Attribute) string {
	action := "SET NOT NULL"
	if attr.Nullable {
		action = "DROP NOT NULL"
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", Quote(d.namer.TableName(et)), Quote(d.namer.ColumnName(attr)), action)
}

// SetUniqueSQL returns the statement matching the column's UNIQUE
// constraint to attr.Unique
func (d *DDL) SetUniqueSQL(et *entities.EntityType, attr *entities.Attribute) string {
	table := d.namer.TableName(et)
	col := d.namer.ColumnName(attr)
	name := Quote(d.namer.ConstraintName(table, constraintUnique, col))
	if attr.Unique {
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", Quote(table), name, Quote(col))
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", Quote(table), name)
}

// SetEnumOptionsSQL returns the statements replacing the enum CHECK
// constraint of a column with one matching attr.EnumOptions
func (d *DDL) SetEnumOptionsSQL(et *entities.EntityType, attr *entities.Attribute) []string {
	table := d.namer.TableName(et)
	col := d.namer.ColumnName(attr)
	stmts := []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s",
		Quote(table), Quote(d.namer.ConstraintName(table, constraintCheck, col)))}
	if c := d.checkConstraint(table, attr); c != "" {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD %s", Quote(table), c))
	}
	return stmts
}

func (d *DDL) columnDefinition(attr *entities.Attribute, isID bool) (string, error) {
	colType, err := d.ColumnType(attr)
	if err != nil {
		return "", err
	}
	def := Quote(d.namer.ColumnName(attr)) + " " + colType
	if isID || !attr.Nullable {
		def += " NOT NULL"
	}
	return def, nil
}

// columnConstraints returns the UNIQUE and enum CHECK constraints of a
// non-id column
func (d *DDL) columnConstraints(table string, attr *entities.Attribute) []string {
	col := d.namer.ColumnName(attr)
	var cs []string
	if attr.Unique {
		cs = append(cs, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)",
			Quote(d.namer.ConstraintName(table, constraintUnique, col)), Quote(col)))
	}
	if c := d.checkConstraint(table, attr); c != "" {
		cs = append(cs, c)
	}
	return cs
}

func (d *DDL) checkConstraint(table string, attr *entities.Attribute) string {
	if attr.Type != entities.AttributeTypeEnum || len(attr.EnumOptions) == 0 {
		return ""
	}
	col := d.namer.ColumnName(attr)
	options := make([]string, len(attr.EnumOptions))
	for i, o := range attr.EnumOptions {
		options[i] = quoteLiteral(o)
	}
	return fmt.Sprintf("CONSTRAINT %s CHECK (%s IN (%s))",
		Quote(d.namer.ConstraintName(table, constraintCheck, col)), Quote(col), strings.Join(options, ", "))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
