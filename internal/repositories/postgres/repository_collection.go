package postgres

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
	"github.com/asakaida/entitystore/internal/infrastructure/logger"
	"github.com/asakaida/entitystore/internal/repositories"
)

// RepositoryCollection creates, alters and drops the tables backing entity
// types and hands out their repositories. Like EntityRepository it never
// begins a transaction; pass a *sql.Tx to apply schema changes atomically.
type RepositoryCollection struct {
	db         repositories.DBTX
	namer      *Namer
	ddl        *DDL
	translator *ExceptionTranslator
	logger     *zap.SugaredLogger
	opts       []Option
}

// NewRepositoryCollection creates a collection on db. opts are applied to
// every repository handed out by GetRepository.
func NewRepositoryCollection(db repositories.DBTX, opts ...Option) *RepositoryCollection {
	probe := &EntityRepository{}
	for _, opt := range opts {
		opt(probe)
	}
	namer := probe.namer
	if namer == nil {
		namer = DefaultNamer()
	}
	l := probe.logger
	if l == nil {
		l = logger.Named("collection")
	}
	return &RepositoryCollection{
		db:         db,
		namer:      namer,
		ddl:        NewDDL(namer),
		translator: NewExceptionTranslator(namer),
		logger:     l,
		opts:       opts,
	}
}

// GetRepository returns the repository of et; it does not touch the database
func (c *RepositoryCollection) GetRepository(et *entities.EntityType) *EntityRepository {
	return NewEntityRepository(c.db, et, c.opts...)
}

// HasRepository reports whether the table of et exists in the current schema
func (c *RepositoryCollection) HasRepository(ctx context.Context, et *entities.EntityType) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)`,
		c.namer.TableName(et)).Scan(&exists)
	if err != nil {
		return false, c.translator.Translate(err, et, nil)
	}
	return exists, nil
}

// CreateRepository creates the tables of et and returns its repository
func (c *RepositoryCollection) CreateRepository(ctx context.Context, et *entities.EntityType) (*EntityRepository, error) {
	if err := c.CreateRepositories(ctx, et); err != nil {
		return nil, err
	}
	return c.GetRepository(et), nil
}

// CreateRepositories creates the tables of several entity types that may
// reference each other. Entity tables are created first, then junction
// tables, then foreign keys.
func (c *RepositoryCollection) CreateRepositories(ctx context.Context, ets ...*entities.EntityType) error {
	for _, et := range ets {
		stmt, err := c.ddl.CreateTableSQL(et)
		if err != nil {
			return err
		}
		if err := c.exec(ctx, et, nil, stmt); err != nil {
			return err
		}
	}
	for _, et := range ets {
		for _, attr := range et.JunctionAttributes() {
			if err := c.createJunctionTable(ctx, et, attr); err != nil {
				return err
			}
		}
	}
	for _, et := range ets {
		stmts, err := c.ddl.ForeignKeysSQL(et)
		if err != nil {
			return err
		}
		if err := c.exec(ctx, et, nil, stmts...); err != nil {
			return err
		}
		c.logger.Infow("Created entity table",
			logger.FieldEntityType, et.ID,
			"table", c.namer.TableName(et))
	}
	return nil
}

// DeleteRepository drops the junction tables and the table of et
func (c *RepositoryCollection) DeleteRepository(ctx context.Context, et *entities.EntityType) error {
	for _, attr := range et.JunctionAttributes() {
		if err := c.exec(ctx, et, attr, c.ddl.DropJunctionTableSQL(et, attr)); err != nil {
			return err
		}
	}
	if err := c.exec(ctx, et, nil, c.ddl.DropTableSQL(et)); err != nil {
		return err
	}
	c.logger.Infow("Dropped entity table", logger.FieldEntityType, et.ID)
	return nil
}

// AddAttribute adds the storage of attr to the existing tables of et.
// Attributes without storage of their own need no change.
func (c *RepositoryCollection) AddAttribute(ctx context.Context, et *entities.EntityType, attr *entities.Attribute) error {
	switch {
	case attr.Type.HasJunctionTable():
		return c.createJunctionTable(ctx, et, attr)
	case attr.Type.IsStored():
		stmts, err := c.ddl.AddColumnSQL(et, attr)
		if err != nil {
			return err
		}
		return c.exec(ctx, et, attr, stmts...)
	default:
		return nil
	}
}

// UpdateAttribute alters the column of an attribute to match updated.
// Only nullability, uniqueness and enum options can change.
func (c *RepositoryCollection) UpdateAttribute(ctx context.Context, et *entities.EntityType, current, updated *entities.Attribute) error {
	if current.Name != updated.Name {
		return errors.Newf("renaming attribute [%s] of entity type [%s] is not supported", current.Name, et.ID)
	}
	if current.Type != updated.Type || refID(current) != refID(updated) || current.MaxStringLength() != updated.MaxStringLength() {
		return errors.Newf("changing the type of attribute [%s] of entity type [%s] from [%s] to [%s] is not supported",
			current.Name, et.ID, current, updated)
	}
	if !updated.Type.IsStored() || updated.Type.HasJunctionTable() {
		return nil
	}

	var stmts []string
	if current.Nullable != updated.Nullable && updated.Name != et.IDAttributeName {
		stmts = append(stmts, c.ddl.SetNullableSQL(et, updated))
	}
	if current.Unique != updated.Unique && updated.Name != et.IDAttributeName {
		stmts = append(stmts, c.ddl.SetUniqueSQL(et, updated))
	}
	if updated.Type == entities.AttributeTypeEnum && !reflect.DeepEqual(current.EnumOptions, updated.EnumOptions) {
		stmts = append(stmts, c.ddl.SetEnumOptionsSQL(et, updated)...)
	}
	return c.exec(ctx, et, updated, stmts...)
}

// DeleteAttribute drops the storage of attr
func (c *RepositoryCollection) DeleteAttribute(ctx context.Context, et *entities.EntityType, attr *entities.Attribute) error {
	if attr.Name == et.IDAttributeName {
		return errors.Newf("cannot delete identifier attribute [%s] of entity type [%s]", attr.Name, et.ID)
	}
	switch {
	case attr.Type.HasJunctionTable():
		return c.exec(ctx, et, attr, c.ddl.DropJunctionTableSQL(et, attr))
	case attr.Type.IsStored():
		return c.exec(ctx, et, attr, c.ddl.DropColumnSQL(et, attr))
	default:
		return nil
	}
}

func (c *RepositoryCollection) createJunctionTable(ctx context.Context, et *entities.EntityType, attr *entities.Attribute) error {
	stmt, err := c.ddl.CreateJunctionTableSQL(et, attr)
	if err != nil {
		return err
	}
	return c.exec(ctx, et, attr, stmt, c.ddl.CreateJunctionIndexSQL(et, attr))
}

func (c *RepositoryCollection) exec(ctx context.Context, et *entities.EntityType, attr *entities.Attribute, stmts ...string) error {
	for _, stmt := range stmts {
		c.logger.Debugw("Executing DDL", logger.FieldEntityType, et.ID, logger.FieldSQL, stmt)
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return c.translator.Translate(err, et, attr)
		}
	}
	return nil
}

func refID(attr *entities.Attribute) string {
	if attr.RefEntityType == nil {
		return ""
	}
	return attr.RefEntityType.ID
}
