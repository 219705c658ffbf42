package postgres

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
	"github.com/asakaida/entitystore/internal/repositories"
)

// EntityMapper maps rows produced by QueryGenerator.SelectSQL onto
// entities. References are mapped to stubs holding only the referenced id.
type EntityMapper struct {
	et    *entities.EntityType
	attrs []*entities.Attribute
}

// NewEntityMapper creates the default row mapper of an entity type
func NewEntityMapper(et *entities.EntityType) *EntityMapper {
	return &EntityMapper{et: et, attrs: SelectedAttributes(et)}
}

// MapRow implements repositories.RowMapper
func (m *EntityMapper) MapRow(row repositories.RowScanner) (*entities.Entity, error) {
	targets := make([]*scanTarget, len(m.attrs))
	dests := make([]interface{}, len(m.attrs))
	for i, a := range m.attrs {
		t, err := newScanTarget(a)
		if err != nil {
			return nil, err
		}
		targets[i] = t
		dests[i] = t.dest
	}

	if err := row.Scan(dests...); err != nil {
		return nil, errors.Wrapf(err, "failed to scan row of entity type [%s]", m.et.ID)
	}

	e := entities.NewEntity(m.et)
	for i, a := range m.attrs {
		if v := targets[i].value(); v != nil {
			e.Set(a.Name, v)
		}
	}
	return e, nil
}

// scanTarget is a typed scan destination and the accessor of its value,
// nil for SQL NULL
type scanTarget struct {
	dest  interface{}
	value func() interface{}
}

func newScanTarget(attr *entities.Attribute) (*scanTarget, error) {
	switch {
	case attr.Type == entities.AttributeTypeBool:
		var b sql.NullBool
		return &scanTarget{dest: &b, value: func() interface{} {
			if !b.Valid {
				return nil
			}
			return b.Bool
		}}, nil

	case attr.Type == entities.AttributeTypeDecimal:
		var f sql.NullFloat64
		return &scanTarget{dest: &f, value: func() interface{} {
			if !f.Valid {
				return nil
			}
			return f.Float64
		}}, nil

	case attr.Type == entities.AttributeTypeDate, attr.Type == entities.AttributeTypeDateTime:
		var t pq.NullTime
		date := attr.Type == entities.AttributeTypeDate
		return &scanTarget{dest: &t, value: func() interface{} {
			if !t.Valid {
				return nil
			}
			if date {
				return truncateToDay(t.Time)
			}
			return t.Time.UTC()
		}}, nil

	case attr.Type == entities.AttributeTypeInt, attr.Type == entities.AttributeTypeLong, attr.Type.IsStringType():
		return newIDTarget(attr.Type)

	case attr.Type.IsSingleReference():
		idAttr, err := refIDAttribute(attr)
		if err != nil {
			return nil, err
		}
		id, err := newIDTarget(idAttr.Type)
		if err != nil {
			return nil, err
		}
		ref := attr.RefEntityType
		return &scanTarget{dest: id.dest, value: func() interface{} {
			v := id.value()
			if v == nil {
				return nil
			}
			return entities.NewReference(ref, v)
		}}, nil

	case attr.Type.IsMultipleReference():
		return newReferencesTarget(attr)

	default:
		return nil, errors.AssertionFailedf("illegal attribute type [%s] of attribute [%s] in row", attr.Type, attr.Name)
	}
}

// newReferencesTarget scans an array_agg projection. The value is never
// nil: an attribute without references maps to an empty slice.
func newReferencesTarget(attr *entities.Attribute) (*scanTarget, error) {
	idAttr, err := refIDAttribute(attr)
	if err != nil {
		return nil, err
	}
	ref := attr.RefEntityType

	switch {
	case idAttr.Type.IsStringType():
		var ids pq.StringArray
		return &scanTarget{dest: &ids, value: func() interface{} {
			refs := make([]*entities.Entity, 0, len(ids))
			for _, id := range ids {
				refs = append(refs, entities.NewReference(ref, id))
			}
			return refs
		}}, nil
	case idAttr.Type == entities.AttributeTypeInt, idAttr.Type == entities.AttributeTypeLong:
		var ids pq.Int64Array
		asInt := idAttr.Type == entities.AttributeTypeInt
		return &scanTarget{dest: &ids, value: func() interface{} {
			refs := make([]*entities.Entity, 0, len(ids))
			for _, id := range ids {
				if asInt {
					refs = append(refs, entities.NewReference(ref, int(id)))
				} else {
					refs = append(refs, entities.NewReference(ref, id))
				}
			}
			return refs
		}}, nil
	default:
		return nil, errors.AssertionFailedf("unexpected identifier type [%s] of entity type [%s]", idAttr.Type, ref.ID)
	}
}

// newIDTarget scans identifier-like values: the string family, int (mapped
// to int) and long (mapped to int64). Other types are schema invariant
// violations.
func newIDTarget(t entities.AttributeType) (*scanTarget, error) {
	switch {
	case t.IsStringType():
		var s sql.NullString
		return &scanTarget{dest: &s, value: func() interface{} {
			if !s.Valid {
				return nil
			}
			return s.String
		}}, nil
	case t == entities.AttributeTypeInt:
		var n sql.NullInt64
		return &scanTarget{dest: &n, value: func() interface{} {
			if !n.Valid {
				return nil
			}
			return int(n.Int64)
		}}, nil
	case t == entities.AttributeTypeLong:
		var n sql.NullInt64
		return &scanTarget{dest: &n, value: func() interface{} {
			if !n.Valid {
				return nil
			}
			return n.Int64
		}}, nil
	default:
		return nil, errors.AssertionFailedf("unexpected identifier type [%s]", t)
	}
}
