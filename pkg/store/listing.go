package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxResults is the page size used when ListOptions.MaxResults is zero.
const DefaultMaxResults = 5000

// Cursor is a resume position inside an ordered key space: the key and the
// index of the version (snapshots first, live last) to resume at.
type Cursor struct {
	Key     string
	Version int
}

// EncodeToken turns a cursor into an opaque continuation token.
func EncodeToken(c Cursor) string {
	raw := c.Key + "\x00" + strconv.Itoa(c.Version)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeToken parses a token produced by EncodeToken. The empty token
// decodes to the zero cursor.
func DecodeToken(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid continuation token: %w", err)
	}

	key, version, ok := strings.Cut(string(raw), "\x00")
	if !ok {
		return Cursor{}, fmt.Errorf("invalid continuation token")
	}

	n, err := strconv.Atoi(version)
	if err != nil || n < 0 {
		return Cursor{}, fmt.Errorf("invalid continuation token version %q", version)
	}

	return Cursor{Key: key, Version: n}, nil
}

// PageBuilder assembles one ListPage from entries visited in ascending key
// order. It applies delimiter roll-up, the kind filter and the page size.
//
// Stores that keep their keys ordered locally (memory, badger) feed every
// version of every key under the prefix through Add until it returns false.
type PageBuilder struct {
	opts       ListOptions
	max        int
	page       ListPage
	lastPrefix string
	full       bool
}

// NewPageBuilder creates a builder for one page of the given listing.
func NewPageBuilder(opts ListOptions) *PageBuilder {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	return &PageBuilder{opts: opts, max: limit}
}

// Add offers the version-th version of entry. It returns false once the page
// is full; the page token then points at the rejected entry.
func (b *PageBuilder) Add(entry ObjectEntry, version int) bool {
	if b.full {
		return false
	}
	if !strings.HasPrefix(entry.Name, b.opts.Prefix) {
		return true
	}

	if prefix, ok := b.rollUp(entry.Name); ok {
		if prefix == b.lastPrefix {
			return true
		}
		if b.opts.Kind == ListObjects {
			return true
		}
		if b.page.Len() >= b.max {
			b.stop(entry.Name, version)
			return false
		}
		b.lastPrefix = prefix
		b.page.Prefixes = append(b.page.Prefixes, prefix)
		return true
	}

	if b.opts.Kind == ListPrefixes {
		return true
	}
	if b.page.Len() >= b.max {
		b.stop(entry.Name, version)
		return false
	}
	b.page.Objects = append(b.page.Objects, entry)
	return true
}

// Page returns the assembled page.
func (b *PageBuilder) Page() *ListPage {
	return &b.page
}

// Skip reports whether key falls under a prefix already emitted on this
// page. Callers use it to avoid loading values they would discard.
func (b *PageBuilder) Skip(key string) bool {
	return b.lastPrefix != "" && strings.HasPrefix(key, b.lastPrefix)
}

func (b *PageBuilder) rollUp(name string) (string, bool) {
	if b.opts.Delimiter == "" {
		return "", false
	}
	rest := name[len(b.opts.Prefix):]
	i := strings.Index(rest, b.opts.Delimiter)
	if i < 0 {
		return "", false
	}
	return b.opts.Prefix + rest[:i+len(b.opts.Delimiter)], true
}

func (b *PageBuilder) stop(key string, version int) {
	b.full = true
	b.page.Token = EncodeToken(Cursor{Key: key, Version: version})
}
