package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
	"github.com/asakaida/entitystore/internal/infrastructure/database"
)

func TestIntegration_LibraryRoundTrip(t *testing.T) {
	db := SetupTestDB(t)
	author, book := newLibrary()
	namer := DefaultNamer()
	defer CleanupTestDB(t, db,
		namer.JunctionTableName(book, book.Attribute("coauthors")),
		namer.TableName(book),
		namer.TableName(author))

	ctx := context.Background()
	collection := NewRepositoryCollection(db)
	require.NoError(t, collection.CreateRepositories(ctx, author, book))

	authors := collection.GetRepository(author)
	books := collection.GetRepository(book)

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		txBooks := NewRepositoryCollection(tx).GetRepository(book)
		txAuthors := NewRepositoryCollection(tx).GetRepository(author)

		// books first: the foreign keys are checked at commit
		if _, err := txBooks.AddBatch(ctx, []*entities.Entity{
			entities.NewEntityWithValues(book, map[string]interface{}{
				"isbn":      "978-1",
				"title":     "Dune",
				"author":    entities.NewReference(author, "herbert"),
				"coauthors": []*entities.Entity{entities.NewReference(author, "anderson")},
				"status":    "published",
			}),
		}); err != nil {
			return err
		}
		_, err := txAuthors.AddBatch(ctx, []*entities.Entity{
			entities.NewEntityWithValues(author, map[string]interface{}{"name": "herbert"}),
			entities.NewEntityWithValues(author, map[string]interface{}{"name": "anderson"}),
		})
		return err
	})
	require.NoError(t, err)

	found, err := books.FindOneByID(ctx, "978-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Dune", found.Get("title"))
	assert.Equal(t, "herbert", found.GetEntity("author").IDValue())

	herbert, err := authors.FindOneByID(ctx, "herbert")
	require.NoError(t, err)
	require.Len(t, herbert.GetEntities("books"), 1)
	assert.Equal(t, "978-1", herbert.GetEntities("books")[0].IDValue())

	count, err := books.Count(ctx, entities.NewQuery().Eq("coauthors", "anderson"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	err = books.Update(ctx, entities.NewEntityWithValues(book, map[string]interface{}{"isbn": "missing", "title": "x"}))
	assert.True(t, errors.IsNotFound(err))

	_, err = books.AddBatch(ctx, []*entities.Entity{
		entities.NewEntityWithValues(book, map[string]interface{}{"isbn": "978-2", "title": "Draft", "status": "lost"}),
	})
	var cv *errors.ConstraintViolationError
	require.True(t, errors.As(err, &cv))
	assert.Equal(t, errors.ConstraintCheck, cv.Kind)

	require.NoError(t, books.DeleteAll(ctx))
	count, err = books.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}
