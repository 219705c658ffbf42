package postgres

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/asakaida/entitystore/internal/entities"
)

func TestNamer_TableName(t *testing.T) {
	n := DefaultNamer()

	tests := []struct {
		id   string
		want string
	}{
		{"entityId", "entityId#fc2928f6"},
		{"refEntityId", "refEntityId#07f902bf"},
		{"book", "book#31a3e5cb"},
		{"author", "author#c8d8afbd"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			et := entities.NewEntityType(tt.id, "id")
			assert.Equal(t, tt.want, n.TableName(et))
			assert.Equal(t, n.TableName(et), n.TableName(et), "naming must be stable")
		})
	}
}

func TestNamer_JunctionTableName(t *testing.T) {
	n := DefaultNamer()
	et := entities.NewEntityType("book", "isbn")
	attr := &entities.Attribute{Name: "coauthors", Type: entities.AttributeTypeMref}

	assert.Equal(t, "book_coauthors#7425fdc3", n.JunctionTableName(et, attr))

	// "a_b"+"c" and "a"+"b_c" share the readable prefix but not the key
	left := n.JunctionTableName(entities.NewEntityType("a_b", "id"), &entities.Attribute{Name: "c"})
	right := n.JunctionTableName(entities.NewEntityType("a", "id"), &entities.Attribute{Name: "b_c"})
	assert.NotEqual(t, left, right)
}

func TestNamer_LengthBound(t *testing.T) {
	n := DefaultNamer()

	long := strings.Repeat("a", 200)
	name := n.TableName(entities.NewEntityType(long, "id"))
	assert.Len(t, name, MaxIdentifierLength)
	assert.True(t, strings.HasSuffix(name, "#"+Hash(long)))

	// shared long prefix, distinct suffixes
	seen := make(map[string]string)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("%s%d", long, i)
		got := n.TableName(entities.NewEntityType(id, "id"))
		assert.LessOrEqual(t, len(got), MaxIdentifierLength)
		if prev, dup := seen[got]; dup {
			t.Fatalf("TableName(%s) collides with TableName(%s): %s", id, prev, got)
		}
		seen[got] = id
	}
}

func TestNamer_MultiByteTruncation(t *testing.T) {
	n := NewNamer(20)
	id := strings.Repeat("é", 30)

	got := n.TableName(entities.NewEntityType(id, "id"))
	assert.LessOrEqual(t, len(got), 20)
	assert.True(t, utf8.ValidString(got), "truncation must not split runes")
}

func TestNamer_ColumnName(t *testing.T) {
	n := DefaultNamer()

	short := &entities.Attribute{Name: "title"}
	assert.Equal(t, "title", n.ColumnName(short))

	long := &entities.Attribute{Name: strings.Repeat("x", 80)}
	got := n.ColumnName(long)
	assert.Len(t, got, MaxIdentifierLength)
	assert.NotEqual(t, got, n.ColumnName(&entities.Attribute{Name: strings.Repeat("x", 81)}))
}

func TestNamer_ConstraintName(t *testing.T) {
	n := DefaultNamer()

	pk := n.ConstraintName("book#31a3e5cb", "pkey", "isbn")
	assert.True(t, strings.HasPrefix(pk, "book31a3e5cb_isbn_pkey#"))
	assert.NotEqual(t, pk, n.ConstraintName("book#31a3e5cb", "key", "isbn"))
	assert.LessOrEqual(t, len(n.ConstraintName(strings.Repeat("t", 70), "fkey", "c")), MaxIdentifierLength)
}

func TestNewNamer_Bounds(t *testing.T) {
	assert.Equal(t, MaxIdentifierLength, NewNamer(0).MaxLength())
	assert.Equal(t, MaxIdentifierLength, NewNamer(1000).MaxLength())
	assert.Equal(t, 32, NewNamer(32).MaxLength())
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"entityId#fc2928f6"`, Quote("entityId#fc2928f6"))
	assert.Equal(t, `"a""b"`, Quote(`a"b`))
}
