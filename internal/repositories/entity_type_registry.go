package repositories

import (
	"context"

	"github.com/asakaida/entitystore/internal/entities"
)

// EntityTypeRegistry defines the interface for entity type metadata access
type EntityTypeRegistry interface {
	// Get retrieves a resolved entity type by id.
	// Returns a NotFoundError when the entity type does not exist.
	Get(ctx context.Context, id string) (*entities.EntityType, error)

	// LoadAll resolves every stored definition into a connected graph
	LoadAll(ctx context.Context) (map[string]*entities.EntityType, error)

	// List retrieves all stored definitions ordered by id
	List(ctx context.Context) ([]*entities.EntityTypeDefinition, error)

	// Save creates or replaces definitions
	Save(ctx context.Context, defs ...*entities.EntityTypeDefinition) error

	// Delete removes a definition
	Delete(ctx context.Context, id string) error
}
