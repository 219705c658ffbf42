package postgres

import (
	"encoding/binary"
	"encoding/hex"
	"hash/crc32"
	"strings"
	"unicode/utf8"

	"github.com/asakaida/entitystore/internal/entities"
)

// MaxIdentifierLength is the maximum identifier length of PostgreSQL in
// bytes (NAMEDATALEN - 1).
const MaxIdentifierLength = 63

// hashSuffixLength is len("#") + 8 hex characters
const hashSuffixLength = 9

const minIdentifierLength = hashSuffixLength + 1

// Namer derives storage identifiers from logical entity type and attribute
// names. Names are stable across calls and never exceed the maximum length.
type Namer struct {
	maxLength int
}

// NewNamer creates a namer producing identifiers of at most maxLength
// bytes. Values outside the supported range fall back to
// MaxIdentifierLength.
func NewNamer(maxLength int) *Namer {
	if maxLength < minIdentifierLength || maxLength > MaxIdentifierLength {
		maxLength = MaxIdentifierLength
	}
	return &Namer{maxLength: maxLength}
}

// DefaultNamer returns a namer using MaxIdentifierLength
func DefaultNamer() *Namer {
	return NewNamer(MaxIdentifierLength)
}

// MaxLength returns the identifier length bound
func (n *Namer) MaxLength() int {
	return n.maxLength
}

// Hash returns the 8 character content hash of name: the CRC-32 (IEEE)
// checksum rendered as hex of its little-endian bytes.
func Hash(name string) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], crc32.ChecksumIEEE([]byte(name)))
	return hex.EncodeToString(b[:])
}

// TableName returns the table name of an entity type.
// Example: entityId -> entityId#fc2928f6
func (n *Namer) TableName(et *entities.EntityType) string {
	return n.hashed(et.ID, et.ID)
}

// JunctionTableName returns the table holding the (owner, reference) pairs
// of a multi-valued attribute.
func (n *Namer) JunctionTableName(et *entities.EntityType, attr *entities.Attribute) string {
	return n.hashed(et.ID+"_"+attr.Name, et.ID+"\x00"+attr.Name)
}

// ColumnName returns the column name of an attribute. Names within the
// bound are used verbatim.
func (n *Namer) ColumnName(attr *entities.Attribute) string {
	if len(attr.Name) <= n.maxLength {
		return attr.Name
	}
	return n.hashed(attr.Name, attr.Name)
}

// ConstraintName returns the name of a constraint or index on table.
// Example: ConstraintName("book#31a3e5cb", "pkey", "isbn")
func (n *Namer) ConstraintName(table, suffix string, columns ...string) string {
	parts := append([]string{table}, columns...)
	parts = append(parts, suffix)
	logical := strings.Join(parts, "_")
	// drop the table hash from the readable prefix; it remains part of the key
	readable := strings.ReplaceAll(logical, "#", "")
	return n.hashed(readable, logical)
}

func (n *Namer) hashed(readable, key string) string {
	suffix := "#" + Hash(key)
	return truncate(readable, n.maxLength-len(suffix)) + suffix
}

// truncate cuts s to at most max bytes without splitting a rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Quote quotes an identifier
func Quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// qualify returns alias."column"
func qualify(alias, column string) string {
	return alias + "." + Quote(column)
}
