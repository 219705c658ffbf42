package repositories

import (
	"context"
	"database/sql"

	"github.com/asakaida/entitystore/internal/entities"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by the repositories.
// Repositories never begin or commit transactions themselves: pass a
// *sql.Tx to group several calls into one unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// RowScanner is implemented by *sql.Rows and *sql.Row
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// RowMapper converts one result row of a select into an entity
type RowMapper interface {
	MapRow(row RowScanner) (*entities.Entity, error)
}

// EntityRepository defines the interface for entity data access of one
// entity type
type EntityRepository interface {
	// EntityType returns the entity type served by the repository
	EntityType() *entities.EntityType

	// Count returns the number of distinct entities matching the query
	Count(ctx context.Context, q *entities.Query) (int64, error)

	// FindAll returns one page of entities matching the query
	FindAll(ctx context.Context, q *entities.Query) ([]*entities.Entity, error)

	// FindOneByID returns the entity with the given id, nil when missing
	FindOneByID(ctx context.Context, id interface{}) (*entities.Entity, error)

	// ForEachBatch streams all entities matching the query in pages of
	// batchSize entities
	ForEachBatch(ctx context.Context, q *entities.Query, batchSize int, fn func([]*entities.Entity) error) error

	// Add inserts one entity
	Add(ctx context.Context, entity *entities.Entity) error

	// AddBatch inserts entities and returns the number of inserted rows
	AddBatch(ctx context.Context, batch []*entities.Entity) (int, error)

	// Update updates one existing entity
	Update(ctx context.Context, entity *entities.Entity) error

	// UpdateBatch updates existing entities; it fails before any mutation
	// when one of them does not exist
	UpdateBatch(ctx context.Context, batch []*entities.Entity) error

	// Delete removes one entity
	Delete(ctx context.Context, entity *entities.Entity) error

	// DeleteBatch removes entities; missing entities are ignored
	DeleteBatch(ctx context.Context, batch []*entities.Entity) error

	// DeleteByID removes the entity with the given id
	DeleteByID(ctx context.Context, id interface{}) error

	// DeleteByIDs removes the entities with the given ids
	DeleteByIDs(ctx context.Context, ids []interface{}) error

	// DeleteAll removes every entity of the type
	DeleteAll(ctx context.Context) error
}
