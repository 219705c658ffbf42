package postgres

import (
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
)

// PostgreSQL error codes translated into validation errors
const (
	codeStringDataRightTruncation = "22001"
	codeInvalidTextRepresentation = "22P02"
	codeInvalidDatetimeFormat     = "22007"
	codeDatetimeFieldOverflow     = "22008"
	codeDatatypeMismatch          = "42804"
	codeUniqueViolation           = "23505"
	codeForeignKeyViolation       = "23503"
	codeNotNullViolation          = "23502"
	codeCheckViolation            = "23514"
)

var (
	keyDetailPattern      = regexp.MustCompile(`Key \((.+?)\)=\((.*?)\)`)
	invalidSyntaxPattern  = regexp.MustCompile(`(?:invalid input syntax for (?:type )?|invalid input value for )([\w ]+?)(?:: "(.*)")?$`)
	datatypeMismatchRegex = regexp.MustCompile(`column "(.+?)" is of type (.+?) but expression is of type (.+?)$`)
	notNullColumnPattern  = regexp.MustCompile(`null value in column "(.+?)"`)
)

// ExceptionTranslator maps PostgreSQL errors onto the validation error
// taxonomy. Errors are never retried here.
type ExceptionTranslator struct {
	namer *Namer
}

// NewExceptionTranslator creates an exception translator resolving column
// names with namer
func NewExceptionTranslator(namer *Namer) *ExceptionTranslator {
	if namer == nil {
		namer = DefaultNamer()
	}
	return &ExceptionTranslator{namer: namer}
}

// Translate converts err raised while processing attr of et (attr may be
// nil). Validation and schema-invariant errors pass through unchanged;
// unrecognized errors are wrapped with the entity type and attribute.
func (t *ExceptionTranslator) Translate(err error, et *entities.EntityType, attr *entities.Attribute) error {
	if err == nil {
		return nil
	}
	if errors.IsValidationError(err) || errors.IsSchemaInvariant(err) {
		return err
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return t.wrap(err, et, attr)
	}

	switch pqErr.Code {
	case codeStringDataRightTruncation:
		tooLong := &errors.ValueTooLongError{EntityType: et.ID}
		if attr != nil {
			tooLong.Attribute = attr.Name
			tooLong.Multiple = attr.Type.IsMultipleReference()
		}
		return errors.WithStack(tooLong)

	case codeInvalidTextRepresentation, codeInvalidDatetimeFormat, codeDatetimeFieldOverflow, codeDatatypeMismatch:
		return errors.WithStack(t.typeMismatch(pqErr, et, attr))

	case codeUniqueViolation, codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
		return errors.WithStack(t.constraintViolation(pqErr, et, attr))
	}

	return t.wrap(err, et, attr)
}

func (t *ExceptionTranslator) wrap(err error, et *entities.EntityType, attr *entities.Attribute) error {
	if attr != nil {
		return errors.Wrapf(err, "failed to process entity type [%s] attribute [%s]", et.ID, attr.Name)
	}
	return errors.Wrapf(err, "failed to process entity type [%s]", et.ID)
}

func (t *ExceptionTranslator) typeMismatch(pqErr *pq.Error, et *entities.EntityType, attr *entities.Attribute) *errors.TypeMismatchError {
	tm := &errors.TypeMismatchError{EntityType: et.ID, Expected: "unknown", Actual: "unknown"}
	if attr != nil {
		tm.Attribute = attr.Name
	}

	if m := datatypeMismatchRegex.FindStringSubmatch(pqErr.Message); m != nil {
		if a := t.attributeForColumn(et, m[1]); a != nil {
			tm.Attribute = a.Name
		} else if tm.Attribute == "" {
			tm.Attribute = m[1]
		}
		tm.Expected, tm.Actual = m[2], m[3]
		return tm
	}
	if m := invalidSyntaxPattern.FindStringSubmatch(pqErr.Message); m != nil {
		tm.Expected = m[1]
		tm.Actual = "string"
	}
	if tm.Attribute == "" && pqErr.Column != "" {
		tm.Attribute = t.attributeName(et, pqErr.Column)
	}
	return tm
}

func (t *ExceptionTranslator) constraintViolation(pqErr *pq.Error, et *entities.EntityType, attr *entities.Attribute) *errors.ConstraintViolationError {
	cv := &errors.ConstraintViolationError{EntityType: et.ID, Detail: pqErr.Detail}
	switch pqErr.Code {
	case codeUniqueViolation:
		cv.Kind = errors.ConstraintUnique
	case codeForeignKeyViolation:
		cv.Kind = errors.ConstraintForeignKey
	case codeNotNullViolation:
		cv.Kind = errors.ConstraintNotNull
	case codeCheckViolation:
		cv.Kind = errors.ConstraintCheck
	}

	if m := keyDetailPattern.FindStringSubmatch(pqErr.Detail); m != nil {
		cv.Attribute = t.attributeName(et, strings.Trim(m[1], `"`))
		cv.Value = m[2]
	}
	if cv.Attribute == "" && pqErr.Column != "" {
		cv.Attribute = t.attributeName(et, pqErr.Column)
	}
	if cv.Attribute == "" {
		if m := notNullColumnPattern.FindStringSubmatch(pqErr.Message); m != nil {
			cv.Attribute = t.attributeName(et, m[1])
		}
	}
	if cv.Attribute == "" && pqErr.Constraint != "" {
		if a := t.attributeForConstraint(et, pqErr.Constraint); a != nil {
			cv.Attribute = a.Name
		}
	}
	if cv.Attribute == "" && attr != nil {
		cv.Attribute = attr.Name
	}
	return cv
}

// attributeName maps a column back to its attribute name, falling back to
// the column itself
func (t *ExceptionTranslator) attributeName(et *entities.EntityType, column string) string {
	if a := t.attributeForColumn(et, column); a != nil {
		return a.Name
	}
	return column
}

func (t *ExceptionTranslator) attributeForColumn(et *entities.EntityType, column string) *entities.Attribute {
	for _, a := range et.AtomicAttributes() {
		if t.namer.ColumnName(a) == column {
			return a
		}
	}
	return nil
}

// attributeForConstraint resolves constraints named by DDL
func (t *ExceptionTranslator) attributeForConstraint(et *entities.EntityType, constraint string) *entities.Attribute {
	table := t.namer.TableName(et)
	for _, a := range et.StoredAttributes() {
		col := t.namer.ColumnName(a)
		for _, suffix := range []string{constraintCheck, constraintUnique, constraintForeignKey} {
			if t.namer.ConstraintName(table, suffix, col) == constraint {
				return a
			}
		}
	}
	return nil
}
