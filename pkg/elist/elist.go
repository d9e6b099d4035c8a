// Package elist implements persisted entry lists: named sets of
// non-negative record positions.
//
// The set itself is a roaring bitmap; files carry a small header (magic,
// version, list name, list title) followed by the bitmap's portable
// serialization, so the membership payload stays compatible with every
// other roaring implementation:
//
//	magic "ELST" (4) | version u16 | name u16 len + bytes |
//	title u16 len + bytes | payload u32 len + roaring64 bytes
//
// Lists are written atomically (temp file + rename); a crash never leaves
// a half-written list behind.
package elist

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Errors reported by entry lists.
var (
	ErrBadMagic        = errors.New("not an entry-list file (bad magic)")
	ErrVersionMismatch = errors.New("unsupported entry-list version")
	ErrCorrupt         = errors.New("entry-list file corrupt")
	ErrNegativeEntry   = errors.New("entry number must be non-negative")
	ErrNameTooLong     = errors.New("entry-list name or title too long")
)

const (
	fileMagic   = "ELST"
	fileVersion = 1

	maxNameLen  = 255
	maxTitleLen = 1 << 14
)

// List is a set of entry numbers with a name and a free-form title. By
// convention the title records the selection expression the list was built
// from, but nothing interprets it.
type List struct {
	name  string
	title string
	bm    *roaring64.Bitmap
}

// New returns an empty list.
func New(name, title string) *List {
	return &List{name: name, title: title, bm: roaring64.New()}
}

// Name returns the list name.
func (l *List) Name() string {
	return l.name
}

// Title returns the list title.
func (l *List) Title() string {
	return l.title
}

// Enter adds an entry number to the list. Adding an entry twice is a no-op.
func (l *List) Enter(entry int64) error {
	if entry < 0 {
		return ErrNegativeEntry
	}

	l.bm.Add(uint64(entry))

	return nil
}

// EnterRange adds every entry in [lo, hi). An empty range is a no-op.
func (l *List) EnterRange(lo, hi int64) error {
	if lo < 0 {
		return ErrNegativeEntry
	}

	if hi <= lo {
		return nil
	}

	l.bm.AddRange(uint64(lo), uint64(hi))

	return nil
}

// Contains reports whether the list holds the given entry.
func (l *List) Contains(entry int64) bool {
	if entry < 0 {
		return false
	}

	return l.bm.Contains(uint64(entry))
}

// Len returns the number of entries in the list.
func (l *List) Len() int64 {
	return int64(l.bm.GetCardinality())
}

// Min returns the smallest entry, or -1 when the list is empty.
func (l *List) Min() int64 {
	if l.bm.IsEmpty() {
		return -1
	}

	return int64(l.bm.Minimum())
}

// Max returns the largest entry, or -1 when the list is empty.
func (l *List) Max() int64 {
	if l.bm.IsEmpty() {
		return -1
	}

	return int64(l.bm.Maximum())
}

// Entries returns all entries in ascending order.
func (l *List) Entries() []int64 {
	raw := l.bm.ToArray()
	out := make([]int64, len(raw))

	for i, v := range raw {
		out[i] = int64(v)
	}

	return out
}

// Iterator returns an ascending iterator over the list. The iterator is
// invalidated by later Enter calls.
func (l *List) Iterator() *Iterator {
	return &Iterator{it: l.bm.Iterator()}
}

// Iterator walks a list in ascending entry order.
type Iterator struct {
	it roaring64.IntPeekable64
}

// Next returns the next entry, or ok=false when the list is exhausted.
func (it *Iterator) Next() (int64, bool) {
	if !it.it.HasNext() {
		return 0, false
	}

	return int64(it.it.Next()), true
}
