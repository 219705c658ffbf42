package errors

import (
	"fmt"
	"strings"
)

// ValidationError is implemented by every caller-correctable error in the
// taxonomy.
type ValidationError interface {
	error
	validation()
}

// IsValidationError checks whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var v ValidationError
	return As(err, &v)
}

// IsNotFound checks whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf *NotFoundError
	if As(err, &nf) {
		return true
	}
	var ue *UnknownEntityTypeError
	return As(err, &ue)
}

// ValueTooLongError is returned when a value exceeds the column length.
// It always names the owning entity type and attribute, also when the
// offending value was written to an internal junction table.
type ValueTooLongError struct {
	EntityType string
	Attribute  string
	Value      interface{}
	Multiple   bool // value belongs to a multi-valued reference
}

func (e *ValueTooLongError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("One of the values in entity type [%s] is too long.", e.EntityType)
	}
	if e.Multiple {
		return fmt.Sprintf("One of the mref values in entity type [%s] attribute [%s] is too long.", e.EntityType, e.Attribute)
	}
	return fmt.Sprintf("Value [%v] of entity type [%s] attribute [%s] is too long.", e.Value, e.EntityType, e.Attribute)
}

func (*ValueTooLongError) validation() {}

// TypeMismatchError is returned when a value cannot be coerced to the
// attribute's data type.
type TypeMismatchError struct {
	EntityType string
	Attribute  string
	Expected   string
	Actual     string
}

func (e *TypeMismatchError) Error() string {
	if e.EntityType != "" {
		return fmt.Sprintf("Attribute [%s] of entity type [%s] value is of type [%s] instead of [%s]",
			e.Attribute, e.EntityType, e.Actual, e.Expected)
	}
	return fmt.Sprintf("Attribute [%s] value is of type [%s] instead of [%s]", e.Attribute, e.Actual, e.Expected)
}

func (*TypeMismatchError) validation() {}

// NotFoundError is returned when an update targets a row that does not exist.
type NotFoundError struct {
	EntityType string
	ID         interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Cannot update [%s] with id [%v] because it does not exist", e.EntityType, e.ID)
}

func (*NotFoundError) validation() {}

// UnknownEntityTypeError is returned when no entity type is registered
// under an identifier.
type UnknownEntityTypeError struct {
	ID string
}

func (e *UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("Unknown entity type [%s]", e.ID)
}

func (*UnknownEntityTypeError) validation() {}

// ConstraintKind classifies a ConstraintViolationError.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintCheck      ConstraintKind = "check"
)

// ConstraintViolationError is returned when the engine rejects a mutation
// because of a declared constraint.
type ConstraintViolationError struct {
	Kind       ConstraintKind
	EntityType string
	Attribute  string
	Value      string
	Detail     string
}

func (e *ConstraintViolationError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case ConstraintUnique:
		fmt.Fprintf(&b, "Duplicate value [%s] for unique attribute [%s] from entity type [%s]", e.Value, e.Attribute, e.EntityType)
	case ConstraintForeignKey:
		fmt.Fprintf(&b, "Unknown or referenced value [%s] for attribute [%s] of entity type [%s]", e.Value, e.Attribute, e.EntityType)
	case ConstraintNotNull:
		fmt.Fprintf(&b, "The attribute [%s] of entity type [%s] can not be null", e.Attribute, e.EntityType)
	case ConstraintCheck:
		fmt.Fprintf(&b, "Value [%s] of attribute [%s] of entity type [%s] violates a check constraint", e.Value, e.Attribute, e.EntityType)
	default:
		fmt.Fprintf(&b, "Constraint violation in entity type [%s]", e.EntityType)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (*ConstraintViolationError) validation() {}

// UnsupportedQueryError is returned when a query rule cannot be applied to
// the attribute it names, e.g. LIKE on a numeric attribute.
type UnsupportedQueryError struct {
	EntityType string
	Attribute  string
	Operator   string
	Reason     string
}

func (e *UnsupportedQueryError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("Unsupported query on entity type [%s] attribute [%s]: %s", e.EntityType, e.Attribute, e.Reason)
	}
	return fmt.Sprintf("Unsupported query operator [%s] on entity type [%s] attribute [%s]: %s",
		e.Operator, e.EntityType, e.Attribute, e.Reason)
}

func (*UnsupportedQueryError) validation() {}
