package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
	"github.com/asakaida/entitystore/internal/repositories"
)

// EntityTypesChannel is the NOTIFY channel signalled with the entity type
// id whenever a definition is saved or deleted
const EntityTypesChannel = "entity_types_changed"

// EntityTypeStore implements EntityTypeRegistry using the entity_types table
type EntityTypeStore struct {
	db  repositories.DBTX
	now func() time.Time
}

// NewEntityTypeStore creates a new PostgreSQL entity type registry
func NewEntityTypeStore(db repositories.DBTX) *EntityTypeStore {
	return &EntityTypeStore{db: db, now: time.Now}
}

var _ repositories.EntityTypeRegistry = (*EntityTypeStore)(nil)

// Get resolves the entity type with its full reference graph
func (s *EntityTypeStore) Get(ctx context.Context, id string) (*entities.EntityType, error) {
	types, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	et, ok := types[id]
	if !ok {
		return nil, &errors.UnknownEntityTypeError{ID: id}
	}
	return et, nil
}

// LoadAll resolves every stored definition
func (s *EntityTypeStore) LoadAll(ctx context.Context) (map[string]*entities.EntityType, error) {
	defs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	types, err := entities.ResolveDefinitions(defs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve entity types")
	}
	return types, nil
}

// List retrieves all stored definitions ordered by id
func (s *EntityTypeStore) List(ctx context.Context) ([]*entities.EntityTypeDefinition, error) {
	query := `SELECT id, definition FROM entity_types ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list entity types")
	}
	defer rows.Close()

	var defs []*entities.EntityTypeDefinition
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan entity type")
		}
		def := &entities.EntityTypeDefinition{}
		if err := json.Unmarshal(raw, def); err != nil {
			return nil, errors.Wrapf(err, "failed to decode entity type [%s]", id)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate entity types")
	}
	return defs, nil
}

// Save creates or replaces definitions
func (s *EntityTypeStore) Save(ctx context.Context, defs ...*entities.EntityTypeDefinition) error {
	query := `INSERT INTO entity_types (id, definition, created_at, updated_at) VALUES ($1, $2, $3, $3) ` +
		`ON CONFLICT (id) DO UPDATE SET definition = EXCLUDED.definition, updated_at = EXCLUDED.updated_at`
	now := s.now()
	for _, def := range defs {
		if def == nil {
			return errors.AssertionFailedf("entity type definition is nil")
		}
		raw, err := json.Marshal(def)
		if err != nil {
			return errors.Wrapf(err, "failed to encode entity type [%s]", def.ID)
		}
		if _, err := s.db.ExecContext(ctx, query, def.ID, raw, now); err != nil {
			return errors.Wrapf(err, "failed to save entity type [%s]", def.ID)
		}
		if err := s.notify(ctx, def.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a definition
func (s *EntityTypeStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entity_types WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete entity type [%s]", id)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return &errors.UnknownEntityTypeError{ID: id}
	}
	return s.notify(ctx, id)
}

// notify is delivered to listeners when the surrounding transaction commits
func (s *EntityTypeStore) notify(ctx context.Context, id string) error {
	var ignored sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT pg_notify($1, $2)`, EntityTypesChannel, id).Scan(&ignored); err != nil {
		return errors.Wrapf(err, "failed to notify change of entity type [%s]", id)
	}
	return nil
}
