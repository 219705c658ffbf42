package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
	"github.com/asakaida/entitystore/internal/repositories"
)

// JunctionRow is one (owner id, referenced id) pair of a multi-valued
// attribute
type JunctionRow struct {
	OwnerID interface{}
	RefID   interface{}
}

// JunctionManager keeps the junction tables of multi-valued attributes in
// sync with their owning entities. Failures are reported against the
// owning entity type and attribute, never the junction table.
type JunctionManager struct {
	db         repositories.DBTX
	namer      *Namer
	translator *ExceptionTranslator
	batchSize  int
}

// NewJunctionManager creates a junction manager
func NewJunctionManager(db repositories.DBTX, namer *Namer, translator *ExceptionTranslator, batchSize int) *JunctionManager {
	if namer == nil {
		namer = DefaultNamer()
	}
	if translator == nil {
		translator = NewExceptionTranslator(namer)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &JunctionManager{db: db, namer: namer, translator: translator, batchSize: batchSize}
}

// JunctionRows returns the junction rows of attr for entities, in entity
// and value order; duplicate references of one owner are dropped
func JunctionRows(batch []*entities.Entity, attr *entities.Attribute) ([]JunctionRow, error) {
	var rows []JunctionRow
	for _, e := range batch {
		v, err := StorageValue(e, attr)
		if err != nil {
			return nil, err
		}
		refs, _ := v.([]interface{})
		seen := make(map[interface{}]bool, len(refs))
		for _, ref := range refs {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			ownerID, err := StorageValue(e, e.EntityType().IDAttribute())
			if err != nil {
				return nil, err
			}
			rows = append(rows, JunctionRow{OwnerID: ownerID, RefID: ref})
		}
	}
	return rows, nil
}

// Insert inserts junction rows with one multi-row INSERT per chunk
func (m *JunctionManager) Insert(ctx context.Context, et *entities.EntityType, attr *entities.Attribute, rows []JunctionRow) error {
	if len(rows) == 0 {
		return nil
	}
	idAttr, err := idAttribute(et)
	if err != nil {
		return err
	}
	junction := Quote(m.namer.JunctionTableName(et, attr))
	cols := Quote(m.namer.ColumnName(idAttr)) + ", " + Quote(m.namer.ColumnName(attr))

	for _, chunk := range chunkRows(rows, chunkSize(m.batchSize, 2)) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", junction, cols)
		args := make([]interface{}, 0, len(chunk)*2)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "($%d, $%d)", len(args)+1, len(args)+2)
			args = append(args, r.OwnerID, r.RefID)
		}
		if _, err := m.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return m.translator.Translate(err, et, attr)
		}
	}
	return nil
}

// Delete removes the junction rows of the given owners
func (m *JunctionManager) Delete(ctx context.Context, et *entities.EntityType, attr *entities.Attribute, ownerIDs []interface{}) error {
	idAttr, err := idAttribute(et)
	if err != nil {
		return err
	}
	junction := Quote(m.namer.JunctionTableName(et, attr))
	idCol := Quote(m.namer.ColumnName(idAttr))

	for _, chunk := range chunkValues(ownerIDs, chunkSize(m.batchSize, 1)) {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", junction, idCol, placeholders(1, len(chunk)))
		if _, err := m.db.ExecContext(ctx, query, chunk...); err != nil {
			return m.translator.Translate(err, et, attr)
		}
	}
	return nil
}

// DeleteAll removes every junction row of attr
func (m *JunctionManager) DeleteAll(ctx context.Context, et *entities.EntityType, attr *entities.Attribute) error {
	if _, err := m.db.ExecContext(ctx, "DELETE FROM "+Quote(m.namer.JunctionTableName(et, attr))); err != nil {
		return m.translator.Translate(err, et, attr)
	}
	return nil
}

// Replace replaces the junction rows of the given owners with rows
func (m *JunctionManager) Replace(ctx context.Context, et *entities.EntityType, attr *entities.Attribute, ownerIDs []interface{}, rows []JunctionRow) error {
	if err := m.Delete(ctx, et, attr, ownerIDs); err != nil {
		return err
	}
	return m.Insert(ctx, et, attr, rows)
}

// Load returns the referenced ids of attr per owner id, ordered by
// referenced id
func (m *JunctionManager) Load(ctx context.Context, et *entities.EntityType, attr *entities.Attribute, ownerIDs []interface{}) (map[interface{}][]interface{}, error) {
	idAttr, err := idAttribute(et)
	if err != nil {
		return nil, err
	}
	refIDAttr, err := refIDAttribute(attr)
	if err != nil {
		return nil, err
	}
	junction := Quote(m.namer.JunctionTableName(et, attr))
	idCol := Quote(m.namer.ColumnName(idAttr))
	refCol := Quote(m.namer.ColumnName(attr))

	refs := make(map[interface{}][]interface{})
	for _, chunk := range chunkValues(ownerIDs, chunkSize(m.batchSize, 1)) {
		query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s) ORDER BY %s, %s",
			idCol, refCol, junction, idCol, placeholders(1, len(chunk)), idCol, refCol)
		if err := m.scan(ctx, query, chunk, idAttr.Type, refIDAttr.Type, refs); err != nil {
			return nil, m.translator.Translate(err, et, attr)
		}
	}
	return refs, nil
}

func (m *JunctionManager) scan(ctx context.Context, query string, args []interface{}, idType, refType entities.AttributeType, refs map[interface{}][]interface{}) error {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	handle := junctionRowHandler(idType, refType, refs)
	for rows.Next() {
		if err := handle(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// junctionRowHandler returns a row callback collecting (id, ref) pairs
// into refs. Identifier types other than the string family, int and long
// are schema invariant violations.
func junctionRowHandler(idType, refType entities.AttributeType, refs map[interface{}][]interface{}) func(repositories.RowScanner) error {
	return func(row repositories.RowScanner) error {
		id, err := newIDTarget(idType)
		if err != nil {
			return err
		}
		ref, err := newIDTarget(refType)
		if err != nil {
			return err
		}
		if err := row.Scan(id.dest, ref.dest); err != nil {
			return errors.Wrap(err, "failed to scan junction row")
		}
		owner := id.value()
		refs[owner] = append(refs[owner], ref.value())
		return nil
	}
}

// chunkSize bounds the rows per statement by the batch size and the bind
// parameter limit
func chunkSize(batchSize, paramsPerRow int) int {
	size := batchSize
	if paramsPerRow > 0 && size*paramsPerRow > MaxParameters {
		size = MaxParameters / paramsPerRow
	}
	if size < 1 {
		size = 1
	}
	return size
}

func chunkValues(values []interface{}, size int) [][]interface{} {
	var chunks [][]interface{}
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

func chunkRows(rows []JunctionRow, size int) [][]JunctionRow {
	var chunks [][]JunctionRow
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
