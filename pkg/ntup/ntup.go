// Package ntup reads and writes flat ntuple files: a named tree of
// fixed-width records whose columns are named float64 variables.
//
// The on-disk layout is a header followed by
// the records:
//
//	magic "NTUP" (4) | version u16 | ncols u16 | entries i64 |
//	tree name (u16 len + bytes) | per column: u16 len + bytes
//
// Each record is ncols little-endian float64 values followed by a CRC32
// (IEEE) of the value bytes. Files are immutable once written; readers map
// them read-only and validate sizes up front so per-entry reads only have
// to check the record checksum.
package ntup

import (
	"errors"
)

// Format constants.
const (
	fileMagic   = "NTUP"
	fileVersion = 1

	// fixedHeaderSize covers magic, version, ncols and entries; the
	// variable tail (tree and column names) follows immediately.
	fixedHeaderSize = 4 + 2 + 2 + 8

	// entriesOffset is where the entry count lives, rewritten on Close.
	entriesOffset = 8

	crcSize = 4

	// maxColumns and maxNameLen are sanity bounds, far above anything a
	// flat ntuple realistically carries.
	maxColumns = 4096
	maxNameLen = 255
)

// Errors reported by readers and writers.
var (
	ErrBadMagic        = errors.New("not an ntuple file (bad magic)")
	ErrVersionMismatch = errors.New("unsupported ntuple version")
	ErrTruncated       = errors.New("ntuple file truncated")
	ErrSizeMismatch    = errors.New("ntuple file size does not match header")
	ErrCorruptRecord   = errors.New("corrupt record (checksum mismatch)")
	ErrEntryRange      = errors.New("entry out of range")
	ErrColumnCount     = errors.New("value count does not match column count")
	ErrNoColumns       = errors.New("ntuple needs at least one column")
	ErrBadName         = errors.New("invalid tree or column name")
	ErrDupColumn       = errors.New("duplicate column name")
	ErrWriterClosed    = errors.New("ntuple writer is closed")
)

// validIdent reports whether s works both as a header name and as a
// variable in selection expressions: a letter or underscore followed by
// letters, digits or underscores.
func validIdent(s string) bool {
	if s == "" || len(s) > maxNameLen {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// validateSchema checks the tree name and column set shared by Create.
func validateSchema(tree string, cols []string) error {
	if !validIdent(tree) {
		return ErrBadName
	}

	if len(cols) == 0 {
		return ErrNoColumns
	}

	if len(cols) > maxColumns {
		return errors.New("too many columns")
	}

	seen := make(map[string]struct{}, len(cols))

	for _, c := range cols {
		if !validIdent(c) {
			return ErrBadName
		}

		if _, dup := seen[c]; dup {
			return ErrDupColumn
		}

		seen[c] = struct{}{}
	}

	return nil
}
