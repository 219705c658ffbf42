package postgres

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
)

const dateLayout = "2006-01-02"

// converter turns a value into its PostgreSQL representation. Strict
// conversion only accepts the attribute's exact Go type and is used for
// query operands; lenient conversion also widens numbers and parses
// strings and is used for entity values.
type converter func(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error)

var converters map[entities.AttributeType]converter

func init() {
	converters = map[entities.AttributeType]converter{
		entities.AttributeTypeBool:            convertBool,
		entities.AttributeTypeInt:             convertInt,
		entities.AttributeTypeLong:            convertLong,
		entities.AttributeTypeDecimal:         convertDecimal,
		entities.AttributeTypeString:          convertString,
		entities.AttributeTypeText:            convertString,
		entities.AttributeTypeEmail:           convertString,
		entities.AttributeTypeHyperlink:       convertString,
		entities.AttributeTypeHTML:            convertString,
		entities.AttributeTypeScript:          convertString,
		entities.AttributeTypeEnum:            convertEnum,
		entities.AttributeTypeDate:            convertDate,
		entities.AttributeTypeDateTime:        convertDateTime,
		entities.AttributeTypeXref:            convertReference,
		entities.AttributeTypeCategorical:     convertReference,
		entities.AttributeTypeFile:            convertReference,
		entities.AttributeTypeMref:            convertReferences,
		entities.AttributeTypeCategoricalMref: convertReferences,
		entities.AttributeTypeOneToMany:       convertReferences,
	}
}

// StorageValue returns the PostgreSQL value of an entity's attribute.
// Single references resolve to the referenced identifier, multi-valued
// references to a []interface{} of identifiers in value order.
func StorageValue(entity *entities.Entity, attr *entities.Attribute) (interface{}, error) {
	v, err := convertValue(entity.Get(attr.Name), attr, false)
	if err != nil {
		var tm *errors.TypeMismatchError
		if errors.As(err, &tm) && tm.EntityType == "" {
			tm.EntityType = entity.EntityType().ID
		}
		return nil, err
	}
	return v, nil
}

// QueryValue validates a query operand against the attribute type and
// returns its PostgreSQL value. Reference operands may be entities or
// identifiers; multi-valued reference operands must be slices of either.
func QueryValue(value interface{}, attr *entities.Attribute) (interface{}, error) {
	return convertValue(value, attr, true)
}

func convertValue(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	if attr.Type.IsCompound() {
		return nil, errors.AssertionFailedf("illegal attribute type [%s] of attribute [%s]", attr.Type, attr.Name)
	}
	conv, ok := converters[attr.Type]
	if !ok {
		return nil, errors.AssertionFailedf("unknown attribute type [%s] of attribute [%s]", attr.Type, attr.Name)
	}
	if isNil(value) {
		return nil, nil
	}
	return conv(value, attr, strict)
}

func mismatch(attr *entities.Attribute, expected string, value interface{}) error {
	return &errors.TypeMismatchError{
		Attribute: attr.Name,
		Expected:  expected,
		Actual:    fmt.Sprintf("%T", value),
	}
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map:
		return rv.IsNil()
	}
	return false
}

func convertBool(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		if !strict {
			if b, err := strconv.ParseBool(v); err == nil {
				return b, nil
			}
		}
	}
	return nil, mismatch(attr, "bool", value)
}

func convertInt(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	if strict {
		switch v := value.(type) {
		case int:
			if v >= math.MinInt32 && v <= math.MaxInt32 {
				return int64(v), nil
			}
		case int32:
			return int64(v), nil
		}
		return nil, mismatch(attr, "int", value)
	}
	n, ok := toInt64(value)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return nil, mismatch(attr, "int", value)
	}
	return n, nil
}

func convertLong(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	if strict {
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		}
		return nil, mismatch(attr, "int64", value)
	}
	n, ok := toInt64(value)
	if !ok {
		return nil, mismatch(attr, "int64", value)
	}
	return n, nil
}

func convertDecimal(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	}
	if !strict {
		if n, ok := toInt64(value); ok {
			return float64(n), nil
		}
		if s, ok := value.(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, nil
			}
		}
	}
	return nil, mismatch(attr, "float64", value)
}

func convertString(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		if !strict {
			return string(v), nil
		}
	case fmt.Stringer:
		if !strict {
			return v.String(), nil
		}
	}
	return nil, mismatch(attr, "string", value)
}

// Enum values may be given as option strings or as values implementing
// fmt.Stringer.
func convertEnum(value interface{}, attr *entities.Attribute, _ bool) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, mismatch(attr, "string or fmt.Stringer", value)
}

func convertDate(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return truncateToDay(v), nil
	case string:
		if !strict {
			if t, err := time.Parse(dateLayout, v); err == nil {
				return t, nil
			}
		}
	}
	return nil, mismatch(attr, "time.Time", value)
}

func convertDateTime(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		if !strict {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return nil, mismatch(attr, "time.Time", value)
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// convertReference resolves an entity or raw identifier to the storage
// value of the referenced identifier attribute.
func convertReference(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	idAttr, err := refIDAttribute(attr)
	if err != nil {
		return nil, err
	}
	return convertReferenceID(value, attr, idAttr, strict)
}

func convertReferences(value interface{}, attr *entities.Attribute, strict bool) (interface{}, error) {
	idAttr, err := refIDAttribute(attr)
	if err != nil {
		return nil, err
	}
	items, ok := sliceElements(value)
	if !ok {
		return nil, mismatch(attr, "slice", value)
	}
	ids := make([]interface{}, 0, len(items))
	for _, item := range items {
		id, err := convertReferenceID(item, attr, idAttr, strict)
		if err != nil {
			return nil, err
		}
		if id != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func convertReferenceID(value interface{}, attr, idAttr *entities.Attribute, strict bool) (interface{}, error) {
	if e, ok := value.(*entities.Entity); ok {
		if e == nil {
			return nil, nil
		}
		value = e.IDValue()
	}
	id, err := convertValue(value, idAttr, strict)
	if err != nil {
		var tm *errors.TypeMismatchError
		if errors.As(err, &tm) {
			tm.Attribute = attr.Name
		}
		return nil, err
	}
	return id, nil
}

func refIDAttribute(attr *entities.Attribute) (*entities.Attribute, error) {
	if attr.RefEntityType == nil {
		return nil, errors.AssertionFailedf("reference attribute [%s] has no referenced entity type", attr.Name)
	}
	idAttr := attr.RefEntityType.IDAttribute()
	if idAttr == nil {
		return nil, errors.AssertionFailedf("entity type [%s] referenced by attribute [%s] has no identifier attribute",
			attr.RefEntityType.ID, attr.Name)
	}
	return idAttr, nil
}

// sliceElements returns the elements of any slice or array value
func sliceElements(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []*entities.Entity:
		items := make([]interface{}, len(v))
		for i, e := range v {
			items[i] = e
		}
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case float64:
		return floatToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// floatToInt64 converts integral floats within the int64 range.
// float64(math.MaxInt64) rounds up to 2^63, which is out of range.
func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
