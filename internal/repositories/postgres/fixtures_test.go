package postgres

import (
	"github.com/asakaida/entitystore/internal/entities"
)

const (
	bookTable      = `"book#31a3e5cb"`
	authorTable    = `"author#c8d8afbd"`
	coauthorsTable = `"book_coauthors#7425fdc3"`
)

// newLibrary returns the author and book entity types:
//
//	author(name string id, born date, books onetomany book.author)
//	book(isbn string auto id, title string, pages int, author xref author,
//	     coauthors mref author, status enum)
func newLibrary() (author, book *entities.EntityType) {
	books := &entities.Attribute{Name: "books", Type: entities.AttributeTypeOneToMany, Nullable: true}
	author = entities.NewEntityType("author", "name",
		&entities.Attribute{Name: "name", Type: entities.AttributeTypeString, Unique: true},
		&entities.Attribute{Name: "born", Type: entities.AttributeTypeDate, Nullable: true},
		books,
	)
	bookAuthor := &entities.Attribute{Name: "author", Type: entities.AttributeTypeXref, RefEntityType: author, Nullable: true}
	book = entities.NewEntityType("book", "isbn",
		&entities.Attribute{Name: "isbn", Type: entities.AttributeTypeString, Unique: true, Auto: true},
		&entities.Attribute{Name: "title", Type: entities.AttributeTypeString},
		&entities.Attribute{Name: "pages", Type: entities.AttributeTypeInt, Nullable: true},
		bookAuthor,
		&entities.Attribute{Name: "coauthors", Type: entities.AttributeTypeMref, RefEntityType: author, Nullable: true},
		&entities.Attribute{Name: "status", Type: entities.AttributeTypeEnum, EnumOptions: []string{"draft", "published"}, Nullable: true},
	)
	books.RefEntityType = book
	books.MappedBy = bookAuthor
	return author, book
}

// newOneToMany returns the entityId type with a one-to-many attribute
// oneToManyAttr mapped by refEntityId.xrefAttr
func newOneToMany() (et, ref *entities.EntityType) {
	xrefAttr := &entities.Attribute{Name: "xrefAttr", Type: entities.AttributeTypeXref, Nullable: true}
	ref = entities.NewEntityType("refEntityId", "refEntityId",
		&entities.Attribute{Name: "refEntityId", Type: entities.AttributeTypeInt, Unique: true},
		xrefAttr,
	)
	et = entities.NewEntityType("entityId", "entityId",
		&entities.Attribute{Name: "entityId", Type: entities.AttributeTypeString},
		&entities.Attribute{Name: "oneToManyAttr", Type: entities.AttributeTypeOneToMany, RefEntityType: ref, MappedBy: xrefAttr},
	)
	xrefAttr.RefEntityType = et
	return et, ref
}
