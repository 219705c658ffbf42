package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
	"github.com/asakaida/entitystore/internal/infrastructure/logger"
	"github.com/asakaida/entitystore/internal/infrastructure/metrics"
	"github.com/asakaida/entitystore/internal/repositories"
)

// DefaultBatchSize is the number of rows written per statement
const DefaultBatchSize = 1000

// Operation names recorded in metrics and logs
const (
	opCount        = "count"
	opFindAll      = "find_all"
	opFindOne      = "find_one"
	opForEachBatch = "for_each_batch"
	opAdd          = "add"
	opUpdate       = "update"
	opDelete       = "delete"
	opDeleteAll    = "delete_all"
)

// Option configures an EntityRepository
type Option func(*EntityRepository)

// WithNamer sets the namer of table and column names
func WithNamer(namer *Namer) Option {
	return func(r *EntityRepository) { r.namer = namer }
}

// WithLogger sets the logger; statements are logged at debug level
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *EntityRepository) { r.logger = l }
}

// WithMetrics sets the recorder of operation metrics
func WithMetrics(recorder metrics.Recorder) Option {
	return func(r *EntityRepository) { r.metrics = recorder }
}

// WithBatchSize sets the maximum number of rows per write statement
func WithBatchSize(size int) Option {
	return func(r *EntityRepository) { r.batchSize = size }
}

// WithPageSize sets the page size of queries without one
func WithPageSize(size int) Option {
	return func(r *EntityRepository) { r.pageSize = size }
}

// WithRowMapper replaces the default EntityMapper
func WithRowMapper(mapper repositories.RowMapper) Option {
	return func(r *EntityRepository) { r.mapper = mapper }
}

// WithIDGenerator sets the generator of auto string identifiers
func WithIDGenerator(gen func() string) Option {
	return func(r *EntityRepository) { r.newID = gen }
}

// EntityRepository implements repositories.EntityRepository for one entity
// type. It runs every statement on the given DBTX; callers pass a *sql.Tx
// to make several calls atomic.
type EntityRepository struct {
	db         repositories.DBTX
	et         *entities.EntityType
	namer      *Namer
	generator  *QueryGenerator
	translator *ExceptionTranslator
	junctions  *JunctionManager
	mapper     repositories.RowMapper
	logger     *zap.SugaredLogger
	metrics    metrics.Recorder
	batchSize  int
	pageSize   int
	newID      func() string
}

var _ repositories.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a repository of et on db
func NewEntityRepository(db repositories.DBTX, et *entities.EntityType, opts ...Option) *EntityRepository {
	r := &EntityRepository{
		db:        db,
		et:        et,
		batchSize: DefaultBatchSize,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.namer == nil {
		r.namer = DefaultNamer()
	}
	if r.logger == nil {
		r.logger = logger.Named("repository")
	}
	if r.metrics == nil {
		r.metrics = metrics.Nop()
	}
	if r.batchSize <= 0 {
		r.batchSize = DefaultBatchSize
	}
	if r.mapper == nil {
		r.mapper = NewEntityMapper(et)
	}
	r.generator = NewQueryGenerator(r.namer, r.pageSize)
	r.translator = NewExceptionTranslator(r.namer)
	r.junctions = NewJunctionManager(db, r.namer, r.translator, r.batchSize)
	return r
}

// EntityType returns the entity type served by the repository
func (r *EntityRepository) EntityType() *entities.EntityType {
	return r.et
}

// Count returns the number of distinct entities matching q
func (r *EntityRepository) Count(ctx context.Context, q *entities.Query) (int64, error) {
	var count int64
	err := r.observe(opCount, func() (int, error) {
		stmt, err := r.generator.CountSQL(r.et, q)
		if err != nil {
			return 0, err
		}
		r.debug(opCount, stmt.SQL)
		if err := r.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&count); err != nil {
			return 0, r.translator.Translate(err, r.et, nil)
		}
		return int(count), nil
	})
	return count, err
}

// FindAll returns one page of entities matching q
func (r *EntityRepository) FindAll(ctx context.Context, q *entities.Query) ([]*entities.Entity, error) {
	var found []*entities.Entity
	err := r.observe(opFindAll, func() (int, error) {
		var err error
		found, err = r.findAll(ctx, opFindAll, q)
		return len(found), err
	})
	return found, err
}

// FindOneByID returns the entity with the given id, nil when it does not
// exist
func (r *EntityRepository) FindOneByID(ctx context.Context, id interface{}) (*entities.Entity, error) {
	var found *entities.Entity
	err := r.observe(opFindOne, func() (int, error) {
		q := entities.NewQuery().Eq(r.et.IDAttributeName, id).WithPageSize(1)
		page, err := r.findAll(ctx, opFindOne, q)
		if err != nil || len(page) == 0 {
			return 0, err
		}
		found = page[0]
		return 1, nil
	})
	return found, err
}

// ForEachBatch streams the entities matching q to fn in pages of
// batchSize, starting at q.Offset. Iteration stops at the first error.
func (r *EntityRepository) ForEachBatch(ctx context.Context, q *entities.Query, batchSize int, fn func([]*entities.Entity) error) error {
	if batchSize <= 0 {
		batchSize = r.batchSize
	}
	page := entities.NewQuery()
	if q != nil {
		page = q.Copy()
	}
	page.PageSize = batchSize

	return r.observe(opForEachBatch, func() (int, error) {
		total := 0
		for {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			batch, err := r.findAll(ctx, opForEachBatch, page)
			if err != nil {
				return total, err
			}
			if len(batch) == 0 {
				return total, nil
			}
			total += len(batch)
			if err := fn(batch); err != nil {
				return total, err
			}
			if len(batch) < batchSize {
				return total, nil
			}
			page.Offset += len(batch)
		}
	})
}

func (r *EntityRepository) findAll(ctx context.Context, op string, q *entities.Query) ([]*entities.Entity, error) {
	stmt, err := r.generator.SelectSQL(r.et, q)
	if err != nil {
		return nil, err
	}
	r.debug(op, stmt.SQL)

	rows, err := r.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, r.translator.Translate(err, r.et, nil)
	}
	defer rows.Close()

	var found []*entities.Entity
	for rows.Next() {
		e, err := r.mapper.MapRow(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return nil, r.translator.Translate(err, r.et, nil)
	}
	return found, nil
}

// Add inserts one entity
func (r *EntityRepository) Add(ctx context.Context, entity *entities.Entity) error {
	return r.observe(opAdd, func() (int, error) {
		return r.add(ctx, []*entities.Entity{entity})
	})
}

// AddBatch inserts entities and returns the number of inserted entities.
// Rows are written with multi-row inserts bounded by the batch size and
// the bind parameter limit; junction rows follow the owner rows.
func (r *EntityRepository) AddBatch(ctx context.Context, batch []*entities.Entity) (int, error) {
	var added int
	err := r.observe(opAdd, func() (int, error) {
		var err error
		added, err = r.add(ctx, batch)
		return added, err
	})
	return added, err
}

func (r *EntityRepository) add(ctx context.Context, batch []*entities.Entity) (n int, err error) {
	if err := checkEntities(batch); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}
	idAttr, err := idAttribute(r.et)
	if err != nil {
		return 0, err
	}

	// generated ids are taken back when the batch is not stored
	var generated []*entities.Entity
	defer func() {
		if err != nil {
			for _, e := range generated {
				e.SetIDValue(nil)
			}
		}
	}()

	stored := r.et.StoredAttributes()
	values := make([][]interface{}, 0, len(batch))
	for _, e := range batch {
		if idAttr.Auto && idAttr.Type.IsStringType() && isNil(e.IDValue()) {
			e.SetIDValue(r.newID())
			generated = append(generated, e)
		}
		row := make([]interface{}, len(stored))
		for i, a := range stored {
			v, err := StorageValue(e, a)
			if err != nil {
				return 0, err
			}
			row[i] = v
		}
		values = append(values, row)
	}

	for start := 0; start < len(values); {
		end := start + chunkSize(r.batchSize, len(stored))
		if end > len(values) {
			end = len(values)
		}
		stmt := r.generator.InsertSQL(r.et, values[start:end])
		r.debug(opAdd, stmt.SQL)
		if _, err := r.db.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			return 0, r.translator.Translate(err, r.et, nil)
		}
		start = end
	}

	for _, attr := range r.et.JunctionAttributes() {
		rows, err := JunctionRows(batch, attr)
		if err != nil {
			return 0, err
		}
		if err := r.junctions.Insert(ctx, r.et, attr, rows); err != nil {
			return 0, err
		}
	}
	return len(batch), nil
}

// Update updates one existing entity
func (r *EntityRepository) Update(ctx context.Context, entity *entities.Entity) error {
	return r.observe(opUpdate, func() (int, error) {
		return r.update(ctx, []*entities.Entity{entity})
	})
}

// UpdateBatch updates existing entities. The existence of every entity is
// checked before any row is changed; the first missing entity in batch
// order fails the batch with a NotFoundError.
func (r *EntityRepository) UpdateBatch(ctx context.Context, batch []*entities.Entity) error {
	return r.observe(opUpdate, func() (int, error) {
		return r.update(ctx, batch)
	})
}

func (r *EntityRepository) update(ctx context.Context, batch []*entities.Entity) (int, error) {
	if err := checkEntities(batch); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}
	idAttr, err := idAttribute(r.et)
	if err != nil {
		return 0, err
	}

	ids := make([]interface{}, len(batch))
	for i, e := range batch {
		id, err := StorageValue(e, idAttr)
		if err != nil {
			return 0, err
		}
		ids[i] = id
	}
	if err := r.checkExists(ctx, batch, ids); err != nil {
		return 0, err
	}

	if query, attrs, ok := r.generator.UpdateSQL(r.et); ok {
		if err := r.updateRows(ctx, query, attrs, batch, ids); err != nil {
			return 0, err
		}
	}

	for _, attr := range r.et.JunctionAttributes() {
		rows, err := JunctionRows(batch, attr)
		if err != nil {
			return 0, err
		}
		if err := r.junctions.Replace(ctx, r.et, attr, ids, rows); err != nil {
			return 0, err
		}
	}
	return len(batch), nil
}

// checkExists selects the ids of the batch in chunks and fails for the
// first entity whose id was not found
func (r *EntityRepository) checkExists(ctx context.Context, batch []*entities.Entity, ids []interface{}) error {
	idType := r.et.IDAttribute().Type
	found := make(map[string]bool, len(ids))

	var lookup []interface{}
	for _, id := range ids {
		if id != nil {
			lookup = append(lookup, id)
		}
	}
	for _, chunk := range chunkValues(lookup, chunkSize(r.batchSize, 1)) {
		stmt, err := r.generator.SelectIDsSQL(r.et, chunk)
		if err != nil {
			return err
		}
		r.debug(opUpdate, stmt.SQL)
		if err := r.scanIDs(ctx, stmt, idType, found); err != nil {
			return r.translator.Translate(err, r.et, nil)
		}
	}

	for i, e := range batch {
		if ids[i] == nil || !found[idKey(ids[i])] {
			return errors.WithStack(&errors.NotFoundError{EntityType: r.et.ID, ID: e.IDValue()})
		}
	}
	return nil
}

func (r *EntityRepository) scanIDs(ctx context.Context, stmt *Statement, idType entities.AttributeType, found map[string]bool) error {
	rows, err := r.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		target, err := newIDTarget(idType)
		if err != nil {
			return err
		}
		if err := rows.Scan(target.dest); err != nil {
			return err
		}
		found[idKey(target.value())] = true
	}
	return rows.Err()
}

func (r *EntityRepository) updateRows(ctx context.Context, query string, attrs []*entities.Attribute, batch []*entities.Entity, ids []interface{}) error {
	r.debug(opUpdate, query)
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return r.translator.Translate(err, r.et, nil)
	}
	defer stmt.Close()

	args := make([]interface{}, len(attrs)+1)
	for i, e := range batch {
		for j, a := range attrs {
			v, err := StorageValue(e, a)
			if err != nil {
				return err
			}
			args[j] = v
		}
		args[len(attrs)] = ids[i]
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return r.translator.Translate(err, r.et, nil)
		}
	}
	return nil
}

// Delete removes one entity
func (r *EntityRepository) Delete(ctx context.Context, entity *entities.Entity) error {
	return r.DeleteBatch(ctx, []*entities.Entity{entity})
}

// DeleteBatch removes entities; entities that do not exist are ignored
func (r *EntityRepository) DeleteBatch(ctx context.Context, batch []*entities.Entity) error {
	if err := checkEntities(batch); err != nil {
		return err
	}
	ids := make([]interface{}, len(batch))
	for i, e := range batch {
		ids[i] = e.IDValue()
	}
	return r.DeleteByIDs(ctx, ids)
}

// DeleteByID removes the entity with the given id
func (r *EntityRepository) DeleteByID(ctx context.Context, id interface{}) error {
	return r.DeleteByIDs(ctx, []interface{}{id})
}

// DeleteByIDs removes the entities with the given ids, junction rows first
func (r *EntityRepository) DeleteByIDs(ctx context.Context, ids []interface{}) error {
	return r.observe(opDelete, func() (int, error) {
		idAttr, err := idAttribute(r.et)
		if err != nil {
			return 0, err
		}
		values := make([]interface{}, 0, len(ids))
		for _, id := range ids {
			v, err := convertValue(id, idAttr, false)
			if err != nil {
				return 0, err
			}
			if v != nil {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return 0, nil
		}

		for _, attr := range r.et.JunctionAttributes() {
			if err := r.junctions.Delete(ctx, r.et, attr, values); err != nil {
				return 0, err
			}
		}

		deleted := 0
		for _, chunk := range chunkValues(values, chunkSize(r.batchSize, 1)) {
			stmt, err := r.generator.DeleteSQL(r.et, chunk)
			if err != nil {
				return deleted, err
			}
			r.debug(opDelete, stmt.SQL)
			res, err := r.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
			if err != nil {
				return deleted, r.translator.Translate(err, r.et, nil)
			}
			if n, err := res.RowsAffected(); err == nil {
				deleted += int(n)
			}
		}
		return deleted, nil
	})
}

// DeleteAll removes every entity of the type, junction rows first
func (r *EntityRepository) DeleteAll(ctx context.Context) error {
	return r.observe(opDeleteAll, func() (int, error) {
		for _, attr := range r.et.JunctionAttributes() {
			if err := r.junctions.DeleteAll(ctx, r.et, attr); err != nil {
				return 0, err
			}
		}
		query := r.generator.DeleteAllSQL(r.et)
		r.debug(opDeleteAll, query)
		res, err := r.db.ExecContext(ctx, query)
		if err != nil {
			return 0, r.translator.Translate(err, r.et, nil)
		}
		n, _ := res.RowsAffected()
		return int(n), nil
	})
}

// Junctions returns the junction manager of the repository
func (r *EntityRepository) Junctions() *JunctionManager {
	return r.junctions
}

func (r *EntityRepository) observe(op string, fn func() (int, error)) error {
	start := time.Now()
	err := metrics.Observe(r.metrics, r.et.ID, op, fn)
	if err != nil {
		r.logger.Debugw("repository operation failed",
			logger.FieldEntityType, r.et.ID,
			logger.FieldOperation, op,
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
			logger.FieldError, err)
	}
	return err
}

func (r *EntityRepository) debug(op, query string) {
	r.logger.Debugw("executing statement",
		logger.FieldEntityType, r.et.ID,
		logger.FieldOperation, op,
		logger.FieldSQL, query)
}

func checkEntities(batch []*entities.Entity) error {
	for _, e := range batch {
		if e == nil {
			return errors.AssertionFailedf("entity was null")
		}
	}
	return nil
}

// idKey normalizes an identifier for set membership; int ids scan as int
// but convert to int64 for storage
func idKey(id interface{}) string {
	return fmt.Sprintf("%v", id)
}
