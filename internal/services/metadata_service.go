package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
	"github.com/asakaida/entitystore/internal/infrastructure/database"
	"github.com/asakaida/entitystore/internal/infrastructure/logger"
	"github.com/asakaida/entitystore/internal/infrastructure/metrics"
	"github.com/asakaida/entitystore/internal/repositories"
	"github.com/asakaida/entitystore/internal/repositories/postgres"
	"github.com/asakaida/entitystore/internal/services/parser"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 5 * time.Minute
)

// MetadataServiceInterface defines the interface for entity type management
type MetadataServiceInterface interface {
	ApplySchema(ctx context.Context, defs ...*entities.EntityTypeDefinition) ([]*entities.EntityType, error)
	ApplyDSL(ctx context.Context, dsl string) ([]*entities.EntityType, error)
	ValidateDSL(ctx context.Context, dsl string) error
	ExportDSL(ctx context.Context) (string, error)
	GetEntityType(ctx context.Context, id string) (*entities.EntityType, error)
	ListEntityTypes(ctx context.Context) ([]*entities.EntityTypeDefinition, error)
	DeleteEntityType(ctx context.Context, id string) error
	Repository(ctx context.Context, db repositories.DBTX, id string) (*postgres.EntityRepository, error)
	Invalidate(id string)
}

// MetadataOption configures a MetadataService
type MetadataOption func(*MetadataService)

// WithCacheSize sets the maximum number of cached entity types
func WithCacheSize(size int) MetadataOption {
	return func(s *MetadataService) { s.cacheSize = size }
}

// WithCacheTTL sets how long a resolved entity type stays cached
func WithCacheTTL(ttl time.Duration) MetadataOption {
	return func(s *MetadataService) { s.cacheTTL = ttl }
}

// WithRecorder sets the recorder of cache events
func WithRecorder(recorder metrics.Recorder) MetadataOption {
	return func(s *MetadataService) { s.recorder = recorder }
}

// WithServiceLogger sets the logger
func WithServiceLogger(l *zap.SugaredLogger) MetadataOption {
	return func(s *MetadataService) { s.logger = l }
}

// WithRepositoryOptions sets the options of every repository and
// repository collection created by the service
func WithRepositoryOptions(opts ...postgres.Option) MetadataOption {
	return func(s *MetadataService) { s.repoOpts = append(s.repoOpts, opts...) }
}

// MetadataService manages entity types: it applies schema changes to the
// entity_types table and the entity tables in one transaction, and serves
// resolved entity types from an expirable LRU cache.
type MetadataService struct {
	db        *sql.DB
	registry  repositories.EntityTypeRegistry
	cache     *expirable.LRU[string, *entities.EntityType]
	recorder  metrics.Recorder
	logger    *zap.SugaredLogger
	repoOpts  []postgres.Option
	cacheSize int
	cacheTTL  time.Duration
}

var _ MetadataServiceInterface = (*MetadataService)(nil)

// NewMetadataService creates a new MetadataService
func NewMetadataService(db *sql.DB, opts ...MetadataOption) *MetadataService {
	s := &MetadataService{
		db:        db,
		registry:  postgres.NewEntityTypeStore(db),
		cacheSize: DefaultCacheSize,
		cacheTTL:  DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder == nil {
		s.recorder = metrics.Nop()
	}
	if s.logger == nil {
		s.logger = logger.Named("metadata")
	}
	if s.cacheSize <= 0 {
		s.cacheSize = DefaultCacheSize
	}
	s.cache = expirable.NewLRU[string, *entities.EntityType](s.cacheSize, func(string, *entities.EntityType) {
		s.recorder.RecordCacheEviction()
	}, s.cacheTTL)
	return s
}

// CacheLen returns the number of cached entity types
func (s *MetadataService) CacheLen() int {
	return s.cache.Len()
}

// GetEntityType returns the resolved entity type with the given id
func (s *MetadataService) GetEntityType(ctx context.Context, id string) (*entities.EntityType, error) {
	if et, ok := s.cache.Get(id); ok {
		s.recorder.RecordCacheHit()
		return et, nil
	}
	s.recorder.RecordCacheMiss()

	types, err := s.registry.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	et, ok := types[id]
	if !ok {
		return nil, &errors.UnknownEntityTypeError{ID: id}
	}
	// types of one graph are cached together so references stay consistent
	for _, t := range types {
		s.cache.Add(t.ID, t)
	}
	return et, nil
}

// ListEntityTypes returns the stored definitions ordered by id
func (s *MetadataService) ListEntityTypes(ctx context.Context) ([]*entities.EntityTypeDefinition, error) {
	return s.registry.List(ctx)
}

// Repository returns the repository of the entity type on db, which may be
// a transaction
func (s *MetadataService) Repository(ctx context.Context, db repositories.DBTX, id string) (*postgres.EntityRepository, error) {
	et, err := s.GetEntityType(ctx, id)
	if err != nil {
		return nil, err
	}
	return postgres.NewEntityRepository(db, et, s.repoOpts...), nil
}

// Invalidate drops the cached entity types. Resolved types reference each
// other, so a change of one type invalidates the whole cached graph.
func (s *MetadataService) Invalidate(id string) {
	s.logger.Debugw("Invalidating entity type cache", logger.FieldEntityType, id)
	s.cache.Purge()
}

// ValidateDSL parses and validates a DSL document against the stored
// entity types without applying it
func (s *MetadataService) ValidateDSL(ctx context.Context, dsl string) error {
	_, err := s.parseDSL(ctx, dsl)
	return err
}

// ApplyDSL parses a DSL document and applies its entity types
func (s *MetadataService) ApplyDSL(ctx context.Context, dsl string) ([]*entities.EntityType, error) {
	defs, err := s.parseDSL(ctx, dsl)
	if err != nil {
		return nil, err
	}
	return s.ApplySchema(ctx, defs...)
}

// ExportDSL renders all stored entity types as a DSL document
func (s *MetadataService) ExportDSL(ctx context.Context) (string, error) {
	defs, err := s.registry.List(ctx)
	if err != nil {
		return "", err
	}
	ast, err := parser.DefinitionsToAST(defs)
	if err != nil {
		return "", fmt.Errorf("failed to convert entity types: %w", err)
	}
	return parser.NewGenerator().Generate(ast), nil
}

func (s *MetadataService) parseDSL(ctx context.Context, dsl string) ([]*entities.EntityTypeDefinition, error) {
	if dsl == "" {
		return nil, fmt.Errorf("schema DSL is required")
	}
	stored, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make([]string, 0, len(stored))
	for _, d := range stored {
		known = append(known, d.ID)
	}
	return parser.ParseDefinitions(dsl, known...)
}

// ApplySchema creates or alters entity types. New types get their tables,
// changed types are altered attribute by attribute, and the definitions are
// stored, all in one transaction.
func (s *MetadataService) ApplySchema(ctx context.Context, defs ...*entities.EntityTypeDefinition) ([]*entities.EntityType, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	var applied []*entities.EntityType
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		registry := postgres.NewEntityTypeStore(tx)
		tables := postgres.NewRepositoryCollection(tx, s.repoOpts...)

		stored, err := registry.List(ctx)
		if err != nil {
			return err
		}
		current, err := entities.ResolveDefinitions(stored)
		if err != nil {
			return errors.Wrap(err, "failed to resolve stored entity types")
		}
		next, err := entities.ResolveDefinitions(mergeDefinitions(stored, defs))
		if err != nil {
			return err
		}

		var created []*entities.EntityType
		for _, def := range defs {
			et := next[def.ID]
			applied = append(applied, et)
			if _, exists := current[def.ID]; !exists {
				created = append(created, et)
			}
		}
		if len(created) > 0 {
			if err := tables.CreateRepositories(ctx, created...); err != nil {
				return err
			}
		}
		for _, def := range defs {
			if old, exists := current[def.ID]; exists {
				if err := alterEntityType(ctx, tables, old, next[def.ID]); err != nil {
					return err
				}
			}
		}

		return registry.Save(ctx, defs...)
	})
	if err != nil {
		return nil, err
	}

	for _, et := range applied {
		s.logger.Infow("Applied entity type", logger.FieldEntityType, et.ID, logger.FieldCount, len(et.AtomicAttributes()))
	}
	s.Invalidate("")
	return applied, nil
}

// DeleteEntityType drops the tables and the definition of an entity type.
// Types still referenced by other types cannot be deleted.
func (s *MetadataService) DeleteEntityType(ctx context.Context, id string) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		registry := postgres.NewEntityTypeStore(tx)
		types, err := registry.LoadAll(ctx)
		if err != nil {
			return err
		}
		et, ok := types[id]
		if !ok {
			return &errors.UnknownEntityTypeError{ID: id}
		}
		if refs := referencesTo(types, id); len(refs) > 0 {
			return fmt.Errorf("entity type %s is referenced by %s", id, strings.Join(refs, ", "))
		}

		if err := postgres.NewRepositoryCollection(tx, s.repoOpts...).DeleteRepository(ctx, et); err != nil {
			return err
		}
		return registry.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Infow("Deleted entity type", logger.FieldEntityType, id)
	s.Invalidate(id)
	return nil
}

// alterEntityType applies the attribute differences between two versions
// of an entity type: additions and updates in the new order, then
// deletions in the old order
func alterEntityType(ctx context.Context, tables *postgres.RepositoryCollection, old, updated *entities.EntityType) error {
	if old.IDAttributeName != updated.IDAttributeName {
		return fmt.Errorf("changing the id attribute of entity type %s from %s to %s is not supported",
			old.ID, old.IDAttributeName, updated.IDAttributeName)
	}

	for _, attr := range updated.AtomicAttributes() {
		current := old.Attribute(attr.Name)
		if current == nil {
			if err := tables.AddAttribute(ctx, updated, attr); err != nil {
				return err
			}
			continue
		}
		if err := tables.UpdateAttribute(ctx, updated, current, attr); err != nil {
			return err
		}
	}
	for _, attr := range old.AtomicAttributes() {
		if updated.Attribute(attr.Name) == nil {
			if err := tables.DeleteAttribute(ctx, old, attr); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergeDefinitions returns stored with the definitions of the same id
// replaced by updates, and new definitions appended
func mergeDefinitions(stored, updates []*entities.EntityTypeDefinition) []*entities.EntityTypeDefinition {
	byID := make(map[string]*entities.EntityTypeDefinition, len(updates))
	for _, d := range updates {
		byID[d.ID] = d
	}
	merged := make([]*entities.EntityTypeDefinition, 0, len(stored)+len(updates))
	for _, d := range stored {
		if u, ok := byID[d.ID]; ok {
			merged = append(merged, u)
			delete(byID, d.ID)
			continue
		}
		merged = append(merged, d)
	}
	for _, d := range updates {
		if _, pending := byID[d.ID]; pending {
			merged = append(merged, d)
			delete(byID, d.ID)
		}
	}
	return merged
}

// referencesTo lists the attributes of other entity types referencing id
// as "type.attribute", sorted
func referencesTo(types map[string]*entities.EntityType, id string) []string {
	var refs []string
	for _, et := range types {
		if et.ID == id {
			continue
		}
		for _, a := range et.AtomicAttributes() {
			if a.RefEntityType != nil && a.RefEntityType.ID == id {
				refs = append(refs, et.ID+"."+a.Name)
			}
		}
	}
	sort.Strings(refs)
	return refs
}
