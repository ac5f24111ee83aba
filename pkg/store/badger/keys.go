package badger

import (
	"bytes"
	"strings"
)

// Database Key Namespace Design
// ==============================
//
// Every version of an object gets two entries: a JSON record with its
// properties and a raw data entry. Both share the same suffix so the record
// and data of a version can be addressed together.
//
// Data Type          Prefix   Key Format                          Value
// =========================================================================
// Version record     "o:"     o:<key>\x00<snapshotID>             record (JSON)
// Live record        "o:"     o:<key>\x01                         record (JSON)
// Version data       "d:"     d:<key>\x00<snapshotID>             raw bytes
// Live data          "d:"     d:<key>\x01                         raw bytes
// Container          "meta:"  meta:container                      containerRecord (JSON)
//
// Ordering:
// Object keys may not contain \x00 or \x01, so a scan over "o:<prefix>"
// visits keys in ascending order and, for each key, its snapshots (in id
// order, which is creation order for v7 UUIDs) before its live version.
// That is exactly the order ObjectStore.List promises.

const (
	prefixRecord    = "o:"
	prefixData      = "d:"
	keyContainer    = "meta:container"
	snapshotSep     = '\x00'
	liveMarker      = '\x01'
	invalidKeyChars = "\x00\x01"
)

func versionSuffix(key, snapshot string) string {
	if snapshot == "" {
		return key + string(liveMarker)
	}
	return key + string(snapshotSep) + snapshot
}

func keyRecord(key, snapshot string) []byte {
	return []byte(prefixRecord + versionSuffix(key, snapshot))
}

func keyData(key, snapshot string) []byte {
	return []byte(prefixData + versionSuffix(key, snapshot))
}

// keySnapshotPrefix covers the records of every snapshot of key.
func keySnapshotPrefix(key string) []byte {
	return []byte(prefixRecord + key + string(snapshotSep))
}

// parseRecordKey splits a record key into object key and snapshot id.
func parseRecordKey(raw []byte) (key, snapshot string, ok bool) {
	rest := bytes.TrimPrefix(raw, []byte(prefixRecord))
	if i := bytes.IndexByte(rest, liveMarker); i >= 0 && i == len(rest)-1 {
		return string(rest[:i]), "", true
	}
	if i := bytes.IndexByte(rest, snapshotSep); i >= 0 {
		return string(rest[:i]), string(rest[i+1:]), true
	}
	return "", "", false
}

func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, invalidKeyChars)
}
