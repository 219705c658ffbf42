package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/errors"
)

func TestDDL_ColumnType(t *testing.T) {
	author, book := newLibrary()
	d := NewDDL(nil)

	tests := []struct {
		name string
		attr *entities.Attribute
		want string
	}{
		{"bool", &entities.Attribute{Name: "a", Type: entities.AttributeTypeBool}, "boolean"},
		{"int", &entities.Attribute{Name: "a", Type: entities.AttributeTypeInt}, "integer"},
		{"long", &entities.Attribute{Name: "a", Type: entities.AttributeTypeLong}, "bigint"},
		{"decimal", &entities.Attribute{Name: "a", Type: entities.AttributeTypeDecimal}, "double precision"},
		{"string", &entities.Attribute{Name: "a", Type: entities.AttributeTypeString}, "character varying(255)"},
		{"email with length", &entities.Attribute{Name: "a", Type: entities.AttributeTypeEmail, MaxLength: 100}, "character varying(100)"},
		{"text", &entities.Attribute{Name: "a", Type: entities.AttributeTypeText}, "text"},
		{"html", &entities.Attribute{Name: "a", Type: entities.AttributeTypeHTML}, "text"},
		{"date", &entities.Attribute{Name: "a", Type: entities.AttributeTypeDate}, "date"},
		{"datetime", &entities.Attribute{Name: "a", Type: entities.AttributeTypeDateTime}, "timestamp with time zone"},
		{"xref uses referenced id type", book.Attribute("author"), "character varying(255)"},
		{"mref uses referenced id type", book.Attribute("coauthors"), "character varying(255)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ColumnType(tt.attr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, attr := range []*entities.Attribute{
		author.Attribute("books"),
		{Name: "c", Type: entities.AttributeTypeCompound},
		{Name: "u", Type: entities.AttributeTypeUnknown},
		{Name: "x", Type: entities.AttributeTypeXref},
	} {
		_, err := d.ColumnType(attr)
		assert.True(t, errors.IsSchemaInvariant(err), "attribute %s", attr.Name)
	}
}

func TestDDL_CreateTableSQL(t *testing.T) {
	_, book := newLibrary()
	d := NewDDL(DefaultNamer())

	sql, err := d.CreateTableSQL(book)
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "book#31a3e5cb" (`+
		`"isbn" character varying(255) NOT NULL, `+
		`"title" character varying(255) NOT NULL, `+
		`"pages" integer, `+
		`"author" character varying(255), `+
		`"status" character varying(255), `+
		`CONSTRAINT "book31a3e5cb_isbn_pkey#45522889" PRIMARY KEY ("isbn"), `+
		`CONSTRAINT "book31a3e5cb_status_check#f30f1952" CHECK ("status" IN ('draft', 'published')))`, sql)
}

func TestDDL_ForeignKeysSQL(t *testing.T) {
	author, book := newLibrary()
	d := NewDDL(nil)

	stmts, err := d.ForeignKeysSQL(book)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "book#31a3e5cb" ADD CONSTRAINT "book31a3e5cb_author_fkey#a427946a" FOREIGN KEY ("author") ` +
			`REFERENCES "author#c8d8afbd"("name") DEFERRABLE INITIALLY DEFERRED`,
	}, stmts)

	stmts, err = d.ForeignKeysSQL(author)
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestDDL_JunctionTable(t *testing.T) {
	_, book := newLibrary()
	d := NewDDL(nil)
	coauthors := book.Attribute("coauthors")

	sql, err := d.CreateJunctionTableSQL(book, coauthors)
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "book_coauthors#7425fdc3" (`+
		`"isbn" character varying(255) NOT NULL, `+
		`"coauthors" character varying(255) NOT NULL, `+
		`CONSTRAINT "book_coauthors7425fdc3_isbn_coauthors_pkey#025dc0fb" PRIMARY KEY ("isbn", "coauthors"), `+
		`CONSTRAINT "book_coauthors7425fdc3_isbn_fkey#d40d7e2c" FOREIGN KEY ("isbn") REFERENCES "book#31a3e5cb"("isbn") ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED, `+
		`CONSTRAINT "book_coauthors7425fdc3_coauthors_fkey#7fa2a800" FOREIGN KEY ("coauthors") REFERENCES "author#c8d8afbd"("name") DEFERRABLE INITIALLY DEFERRED)`, sql)

	assert.Equal(t, `CREATE INDEX "book_coauthors7425fdc3_coauthors_idx#74380a48" ON "book_coauthors#7425fdc3" ("coauthors")`,
		d.CreateJunctionIndexSQL(book, coauthors))
	assert.Equal(t, `DROP TABLE "book_coauthors#7425fdc3"`, d.DropJunctionTableSQL(book, coauthors))

	_, err = d.CreateJunctionTableSQL(book, book.Attribute("author"))
	assert.True(t, errors.IsSchemaInvariant(err))
}

func TestDDL_AlterStatements(t *testing.T) {
	_, book := newLibrary()
	d := NewDDL(nil)

	t.Run("add nullable column", func(t *testing.T) {
		stmts, err := d.AddColumnSQL(book, book.Attribute("pages"))
		require.NoError(t, err)
		assert.Equal(t, []string{`ALTER TABLE "book#31a3e5cb" ADD COLUMN "pages" integer`}, stmts)
	})

	t.Run("add required enum column", func(t *testing.T) {
		status := &entities.Attribute{Name: "status", Type: entities.AttributeTypeEnum, EnumOptions: []string{"it's"}}
		stmts, err := d.AddColumnSQL(book, status)
		require.NoError(t, err)
		assert.Equal(t, []string{
			`ALTER TABLE "book#31a3e5cb" ADD COLUMN "status" character varying(255)`,
			`ALTER TABLE "book#31a3e5cb" ALTER COLUMN "status" SET NOT NULL`,
			`ALTER TABLE "book#31a3e5cb" ADD CONSTRAINT "book31a3e5cb_status_check#f30f1952" CHECK ("status" IN ('it''s'))`,
		}, stmts)
	})

	t.Run("add xref column", func(t *testing.T) {
		stmts, err := d.AddColumnSQL(book, book.Attribute("author"))
		require.NoError(t, err)
		require.Len(t, stmts, 2)
		assert.Equal(t, `ALTER TABLE "book#31a3e5cb" ADD COLUMN "author" character varying(255)`, stmts[0])
		assert.Contains(t, stmts[1], `FOREIGN KEY ("author") REFERENCES "author#c8d8afbd"("name")`)
	})

	t.Run("toggles", func(t *testing.T) {
		pages := *book.Attribute("pages")
		assert.Equal(t, `ALTER TABLE "book#31a3e5cb" ALTER COLUMN "pages" DROP NOT NULL`, d.SetNullableSQL(book, &pages))
		pages.Nullable = false
		assert.Equal(t, `ALTER TABLE "book#31a3e5cb" ALTER COLUMN "pages" SET NOT NULL`, d.SetNullableSQL(book, &pages))

		pages.Unique = true
		assert.Equal(t, `ALTER TABLE "book#31a3e5cb" ADD CONSTRAINT "book31a3e5cb_pages_key#30324a73" UNIQUE ("pages")`, d.SetUniqueSQL(book, &pages))
		pages.Unique = false
		assert.Equal(t, `ALTER TABLE "book#31a3e5cb" DROP CONSTRAINT "book31a3e5cb_pages_key#30324a73"`, d.SetUniqueSQL(book, &pages))
	})

	t.Run("enum options", func(t *testing.T) {
		status := *book.Attribute("status")
		status.EnumOptions = []string{"draft", "published", "retired"}
		assert.Equal(t, []string{
			`ALTER TABLE "book#31a3e5cb" DROP CONSTRAINT IF EXISTS "book31a3e5cb_status_check#f30f1952"`,
			`ALTER TABLE "book#31a3e5cb" ADD CONSTRAINT "book31a3e5cb_status_check#f30f1952" CHECK ("status" IN ('draft', 'published', 'retired'))`,
		}, d.SetEnumOptionsSQL(book, &status))
	})

	t.Run("drops", func(t *testing.T) {
		assert.Equal(t, `ALTER TABLE "book#31a3e5cb" DROP COLUMN "pages"`, d.DropColumnSQL(book, book.Attribute("pages")))
		assert.Equal(t, `DROP TABLE "book#31a3e5cb"`, d.DropTableSQL(book))
	})
}
