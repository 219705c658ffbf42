package entities

import (
	"fmt"
	"sort"
)

// Entity is a row: attribute values conforming to an entity type.
// Reference attributes hold *Entity values (or raw identifiers); multi
// valued references hold []*Entity (or a slice of raw identifiers).
type Entity struct {
	entityType *EntityType
	values     map[string]interface{}
}

// NewEntity creates an empty entity of the given type
func NewEntity(et *EntityType) *Entity {
	return &Entity{entityType: et, values: make(map[string]interface{})}
}

// NewEntityWithValues creates an entity with initial values
func NewEntityWithValues(et *EntityType, values map[string]interface{}) *Entity {
	e := NewEntity(et)
	for k, v := range values {
		e.values[k] = v
	}
	return e
}

// NewReference creates a reference stub holding only an identifier value
func NewReference(et *EntityType, id interface{}) *Entity {
	e := NewEntity(et)
	e.SetIDValue(id)
	return e
}

// EntityType returns the entity's type
func (e *Entity) EntityType() *EntityType {
	return e.entityType
}

// Get returns the value of the named attribute, nil when unset
func (e *Entity) Get(name string) interface{} {
	return e.values[name]
}

// Set sets the value of the named attribute
func (e *Entity) Set(name string, value interface{}) {
	e.values[name] = value
}

// IDValue returns the identifier value
func (e *Entity) IDValue() interface{} {
	return e.values[e.entityType.IDAttributeName]
}

// SetIDValue sets the identifier value
func (e *Entity) SetIDValue(id interface{}) {
	e.values[e.entityType.IDAttributeName] = id
}

// GetEntity returns a single reference value as an entity.
// Raw identifiers are wrapped into reference stubs of the attribute's
// referenced type.
func (e *Entity) GetEntity(name string) *Entity {
	switch v := e.values[name].(type) {
	case nil:
		return nil
	case *Entity:
		return v
	default:
		if attr := e.entityType.Attribute(name); attr != nil && attr.RefEntityType != nil {
			return NewReference(attr.RefEntityType, v)
		}
		return nil
	}
}

// GetEntities returns a multi reference value as entities
func (e *Entity) GetEntities(name string) []*Entity {
	switch v := e.values[name].(type) {
	case nil:
		return nil
	case []*Entity:
		return append([]*Entity(nil), v...)
	case []interface{}:
		attr := e.entityType.Attribute(name)
		refs := make([]*Entity, 0, len(v))
		for _, item := range v {
			switch ref := item.(type) {
			case *Entity:
				refs = append(refs, ref)
			default:
				if attr != nil && attr.RefEntityType != nil {
					refs = append(refs, NewReference(attr.RefEntityType, ref))
				}
			}
		}
		return refs
	default:
		return nil
	}
}

// Values returns a copy of all attribute values
func (e *Entity) Values() map[string]interface{} {
	values := make(map[string]interface{}, len(e.values))
	for k, v := range e.values {
		values[k] = v
	}
	return values
}

// AttributeNames returns the names of the attributes that have a value, sorted
func (e *Entity) AttributeNames() []string {
	names := make([]string, 0, len(e.values))
	for k := range e.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String returns a string representation of the entity
// Format: entity_type:id
func (e *Entity) String() string {
	return fmt.Sprintf("%s:%v", e.entityType.ID, e.IDValue())
}
