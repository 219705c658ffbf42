package postgres

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakaida/entitystore/internal/errors"
)

func TestExceptionTranslator_ValueTooLong(t *testing.T) {
	_, book := newLibrary()
	tr := NewExceptionTranslator(nil)
	pqErr := &pq.Error{Code: "22001", Message: "value too long for type character varying(255)"}

	err := tr.Translate(pqErr, book, nil)
	var tooLong *errors.ValueTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.Equal(t, "One of the values in entity type [book] is too long.", err.Error())

	err = tr.Translate(pqErr, book, book.Attribute("coauthors"))
	require.True(t, errors.As(err, &tooLong))
	assert.True(t, tooLong.Multiple)
	assert.Equal(t, "One of the mref values in entity type [book] attribute [coauthors] is too long.", err.Error())
}

func TestExceptionTranslator_TypeMismatch(t *testing.T) {
	_, book := newLibrary()
	tr := NewExceptionTranslator(nil)

	tests := []struct {
		name          string
		err           *pq.Error
		wantAttribute string
		wantExpected  string
		wantActual    string
	}{
		{
			name:          "invalid syntax",
			err:           &pq.Error{Code: "22P02", Message: `invalid input syntax for type integer: "many"`, Column: "pages"},
			wantAttribute: "pages",
			wantExpected:  "integer",
			wantActual:    "string",
		},
		{
			name:          "datatype mismatch",
			err:           &pq.Error{Code: "42804", Message: `column "pages" is of type integer but expression is of type boolean`},
			wantAttribute: "pages",
			wantExpected:  "integer",
			wantActual:    "boolean",
		},
		{
			name:          "invalid date",
			err:           &pq.Error{Code: "22007", Message: `invalid input syntax for type date: "tomorrow"`},
			wantAttribute: "",
			wantExpected:  "date",
			wantActual:    "string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.Translate(tt.err, book, nil)
			var tm *errors.TypeMismatchError
			require.True(t, errors.As(err, &tm))
			assert.True(t, errors.IsValidationError(err))
			assert.Equal(t, "book", tm.EntityType)
			assert.Equal(t, tt.wantAttribute, tm.Attribute)
			assert.Equal(t, tt.wantExpected, tm.Expected)
			assert.Equal(t, tt.wantActual, tm.Actual)
		})
	}
}

func TestExceptionTranslator_ConstraintViolation(t *testing.T) {
	_, book := newLibrary()
	tr := NewExceptionTranslator(nil)
	table := DefaultNamer().TableName(book)

	tests := []struct {
		name          string
		err           *pq.Error
		wantKind      errors.ConstraintKind
		wantAttribute string
		wantValue     string
	}{
		{
			name:          "unique from key detail",
			err:           &pq.Error{Code: "23505", Detail: "Key (isbn)=(978) already exists."},
			wantKind:      errors.ConstraintUnique,
			wantAttribute: "isbn",
			wantValue:     "978",
		},
		{
			name:          "foreign key",
			err:           &pq.Error{Code: "23503", Detail: `Key (author)=(nobody) is not present in table "author#c8d8afbd".`},
			wantKind:      errors.ConstraintForeignKey,
			wantAttribute: "author",
			wantValue:     "nobody",
		},
		{
			name:          "not null from column",
			err:           &pq.Error{Code: "23502", Column: "title", Message: `null value in column "title" violates not-null constraint`},
			wantKind:      errors.ConstraintNotNull,
			wantAttribute: "title",
		},
		{
			name:          "not null from message",
			err:           &pq.Error{Code: "23502", Message: `null value in column "title" of relation "book#31a3e5cb" violates not-null constraint`},
			wantKind:      errors.ConstraintNotNull,
			wantAttribute: "title",
		},
		{
			name:          "check from constraint name",
			err:           &pq.Error{Code: "23514", Constraint: DefaultNamer().ConstraintName(table, constraintCheck, "status")},
			wantKind:      errors.ConstraintCheck,
			wantAttribute: "status",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.Translate(tt.err, book, nil)
			var cv *errors.ConstraintViolationError
			require.True(t, errors.As(err, &cv))
			assert.True(t, errors.IsValidationError(err))
			assert.Equal(t, tt.wantKind, cv.Kind)
			assert.Equal(t, "book", cv.EntityType)
			assert.Equal(t, tt.wantAttribute, cv.Attribute)
			assert.Equal(t, tt.wantValue, cv.Value)
		})
	}

	t.Run("falls back to the attribute", func(t *testing.T) {
		err := tr.Translate(&pq.Error{Code: "23505"}, book, book.Attribute("coauthors"))
		var cv *errors.ConstraintViolationError
		require.True(t, errors.As(err, &cv))
		assert.Equal(t, "coauthors", cv.Attribute)
	})
}

func TestExceptionTranslator_PassThroughAndWrap(t *testing.T) {
	_, book := newLibrary()
	tr := NewExceptionTranslator(nil)

	assert.NoError(t, tr.Translate(nil, book, nil))

	validation := &errors.NotFoundError{EntityType: "book", ID: "1"}
	assert.Same(t, validation, tr.Translate(validation, book, nil))

	invariant := errors.AssertionFailedf("broken")
	assert.Equal(t, invariant, tr.Translate(invariant, book, nil))

	err := tr.Translate(sql.ErrConnDone, book, book.Attribute("title"))
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.False(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "failed to process entity type [book] attribute [title]")

	err = tr.Translate(&pq.Error{Code: "40001", Message: "could not serialize access"}, book, nil)
	assert.Contains(t, err.Error(), "failed to process entity type [book]")
	var pqErr *pq.Error
	assert.True(t, errors.As(err, &pqErr))
}
