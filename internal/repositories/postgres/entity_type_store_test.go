package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
)

const (
	listEntityTypesSQL = `SELECT id, definition FROM entity_types ORDER BY id`
	saveEntityTypeSQL  = `INSERT INTO entity_types (id, definition, created_at, updated_at) VALUES ($1, $2, $3, $3) ` +
		`ON CONFLICT (id) DO UPDATE SET definition = EXCLUDED.definition, updated_at = EXCLUDED.updated_at`
	notifySQL = `SELECT pg_notify($1, $2)`
)

func libraryDefinitionRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	author, book := newLibrary()
	rows := sqlmock.NewRows([]string{"id", "definition"})
	for _, et := range []*entities.EntityType{author, book} {
		raw, err := json.Marshal(entities.ToDefinition(et))
		require.NoError(t, err)
		rows.AddRow(et.ID, raw)
	}
	return rows
}

func TestEntityTypeStore_Get(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEntityTypeStore(db)

	mock.ExpectQuery(listEntityTypesSQL).WillReturnRows(libraryDefinitionRows(t))

	book, err := store.Get(context.Background(), "book")
	require.NoError(t, err)
	assert.Equal(t, "isbn", book.IDAttributeName)

	author := book.Attribute("author").RefEntityType
	require.NotNil(t, author)
	assert.Equal(t, "author", author.ID)
	assert.Same(t, author, book.Attribute("coauthors").RefEntityType)
	assert.Same(t, book.Attribute("author"), author.Attribute("books").MappedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityTypeStore_GetUnknown(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEntityTypeStore(db)

	mock.ExpectQuery(listEntityTypesSQL).WillReturnRows(sqlmock.NewRows([]string{"id", "definition"}))

	_, err := store.Get(context.Background(), "missing")
	var unknown *errors.UnknownEntityTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "missing", unknown.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestEntityTypeStore_ListCorruptDefinition(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEntityTypeStore(db)

	mock.ExpectQuery(listEntityTypesSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id", "definition"}).AddRow("book", []byte("{")))

	_, err := store.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode entity type [book]")
}

func TestEntityTypeStore_Save(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEntityTypeStore(db)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return now }

	author, _ := newLibrary()
	def := entities.ToDefinition(author)
	raw, err := json.Marshal(def)
	require.NoError(t, err)

	mock.ExpectExec(saveEntityTypeSQL).
		WithArgs("author", raw, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(notifySQL).
		WithArgs(EntityTypesChannel, "author").
		WillReturnRows(sqlmock.NewRows([]string{"pg_notify"}).AddRow(""))

	require.NoError(t, store.Save(context.Background(), def))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, errors.IsSchemaInvariant(store.Save(context.Background(), nil)))
}

func TestEntityTypeStore_Delete(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewEntityTypeStore(db)

		mock.ExpectExec(`DELETE FROM entity_types WHERE id = $1`).
			WithArgs("book").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(notifySQL).
			WithArgs(EntityTypesChannel, "book").
			WillReturnRows(sqlmock.NewRows([]string{"pg_notify"}).AddRow(""))

		require.NoError(t, store.Delete(context.Background(), "book"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewEntityTypeStore(db)

		mock.ExpectExec(`DELETE FROM entity_types WHERE id = $1`).
			WithArgs("book").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Delete(context.Background(), "book")
		assert.True(t, errors.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
