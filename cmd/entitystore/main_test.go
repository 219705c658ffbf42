package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakaida/entitystore/internal/entities"
	"github.com/asakaida/entitystore/internal/repositories/postgres"
)

func newLibrary() (author, book *entities.EntityType) {
	author = entities.NewEntityType("author", "name",
		&entities.Attribute{Name: "name", Type: entities.AttributeTypeString},
	)
	book = entities.NewEntityType("book", "isbn",
		&entities.Attribute{Name: "isbn", Type: entities.AttributeTypeString, Auto: true},
		&entities.Attribute{Name: "author", Type: entities.AttributeTypeXref, RefEntityType: author, Nullable: true},
		&entities.Attribute{Name: "coauthors", Type: entities.AttributeTypeMref, RefEntityType: author, Nullable: true},
		&entities.Attribute{Name: "status", Type: entities.AttributeTypeEnum, EnumOptions: []string{"draft", "published"}},
		&entities.Attribute{Name: "published", Type: entities.AttributeTypeDateTime, Nullable: true},
	)
	return author, book
}

func TestQueryFlags(t *testing.T) {
	f := queryFlags{
		eq:     []string{"author.name=Ann", "status=draft"},
		like:   []string{"title=Go"},
		sort:   []string{"title", "isbn:desc"},
		limit:  10,
		offset: 20,
	}

	q, err := f.query()
	require.NoError(t, err)
	assert.Equal(t, "author.name EQUALS Ann status EQUALS draft title LIKE Go", q.String())
	assert.Equal(t, 10, q.PageSize)
	assert.Equal(t, 20, q.Offset)
	require.NotNil(t, q.Sort)
	assert.Equal(t, []entities.SortOrder{
		{Attribute: "title", Direction: entities.Ascending},
		{Attribute: "isbn", Direction: entities.Descending},
	}, q.Sort.Orders)
}

func TestQueryFlags_Errors(t *testing.T) {
	tests := []struct {
		name    string
		flags   queryFlags
		wantErr string
	}{
		{"missing value", queryFlags{eq: []string{"status"}}, `invalid --eq filter "status"`},
		{"missing attribute", queryFlags{like: []string{"=Go"}}, `invalid --like filter "=Go"`},
		{"bad direction", queryFlags{sort: []string{"title:up"}}, `invalid sort direction "up"`},
		{"negative limit", queryFlags{limit: -1}, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.query()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRenderEntity(t *testing.T) {
	author, book := newLibrary()
	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	e := entities.NewEntityWithValues(book, map[string]interface{}{
		"isbn":      "978-0",
		"author":    entities.NewReference(author, "Ann"),
		"coauthors": []*entities.Entity{entities.NewReference(author, "Bob"), entities.NewReference(author, "Cy")},
		"status":    "draft",
		"published": published,
	})

	assert.Equal(t, map[string]interface{}{
		"isbn":      "978-0",
		"author":    "Ann",
		"coauthors": []interface{}{"Bob", "Cy"},
		"status":    "draft",
		"published": "2024-05-01T12:00:00Z",
	}, renderEntity(e))
}

func TestDescribeHelpers(t *testing.T) {
	_, book := newLibrary()
	namer := postgres.DefaultNamer()

	assert.Equal(t, "xref @author", describeType(book.Attribute("author")))
	assert.Equal(t, "enum (draft, published)", describeType(book.Attribute("status")))
	assert.Equal(t, "column author", describeStorage(book, book.Attribute("author"), namer))
	assert.Equal(t, "table book_coauthors#7425fdc3", describeStorage(book, book.Attribute("coauthors"), namer))
	assert.Equal(t, "id auto", describeFlags(book, book.Attribute("isbn")))
	assert.Equal(t, "nullable", describeFlags(book, book.Attribute("published")))

	table, err := describeTable(book, namer)
	require.NoError(t, err)
	assert.Contains(t, table, "coauthors")
}
