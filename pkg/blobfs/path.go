package blobfs

import (
	"path"
	"strings"
)

// markerName is the name of the zero-length object that witnesses an empty
// directory. Any real object whose name ends in it is treated as a marker.
const markerName = "$$$.$$$"

// Normalize canonicalizes a user supplied path into a store key.
//
// Backslashes become forward slashes, "." and ".." segments are resolved
// (".." never climbs above the root), repeated and trailing slashes are
// collapsed and the leading slash is stripped. "", "/" and "." all denote
// the root and normalize to "".
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// EntryKind classifies a name returned by a listing.
type EntryKind int

const (
	// EntryFile is a user object.
	EntryFile EntryKind = iota
	// EntryMarker is a directory marker object. Never shown to callers.
	EntryMarker
	// EntryDirectory is a directory inferred from a rolled-up prefix.
	EntryDirectory
)

func (k EntryKind) String() string {
	switch k {
	case EntryFile:
		return "file"
	case EntryMarker:
		return "marker"
	case EntryDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// classify tells markers, synthetic directories and files apart.
func (fsys *FS) classify(name string) EntryKind {
	switch {
	case strings.HasSuffix(name, markerName):
		return EntryMarker
	case strings.HasSuffix(name, fsys.delim):
		return EntryDirectory
	default:
		return EntryFile
	}
}

// childPrefix is the listing prefix for the children of directory p.
func (fsys *FS) childPrefix(p string) string {
	if p == "" {
		return ""
	}
	return p + fsys.delim
}

// markerKey is the key of the marker object of directory p.
func (fsys *FS) markerKey(p string) string {
	return fsys.childPrefix(p) + markerName
}

// childName returns the first segment of name below prefix.
func (fsys *FS) childName(prefix, name string) string {
	rest := strings.TrimPrefix(name, prefix)
	first, _, _ := strings.Cut(rest, fsys.delim)
	return first
}

// Join returns the path of entry name inside directory dir, as ReadDir
// names it.
func (fsys *FS) Join(dir, name string) string {
	return fsys.childPrefix(Normalize(dir)) + name
}
