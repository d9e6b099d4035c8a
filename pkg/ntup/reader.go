package ntup

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// Reader provides random access to the records of an ntuple file via a
// read-only memory mapping.
//
// Open validates the header and that the file size matches the declared
// entry count, so per-entry reads only verify the record checksum. Must be
// closed after use to unmap memory. After Close, read methods panic.
type Reader struct {
	f       *os.File
	data    []byte // mmap'd file contents, nil after Close
	tree    string
	cols    []string
	entries int64
	dataOff int64
	recSize int64
}

// Open opens an ntuple file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ntuple file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("stat ntuple file: %w", err)
	}

	size := info.Size()
	if size < fixedHeaderSize {
		_ = f.Close()

		return nil, ErrTruncated
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("mmap ntuple file: %w", err)
	}

	r := &Reader{f: f, data: data}

	err = r.parseHeader()
	if err != nil {
		_ = unix.Munmap(data)
		_ = f.Close()

		return nil, err
	}

	return r, nil
}

// parseHeader validates the mapped header and fills in the reader fields.
func (r *Reader) parseHeader() error {
	data := r.data

	if string(data[0:4]) != fileMagic {
		return ErrBadMagic
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != fileVersion {
		return fmt.Errorf("%w: %d", ErrVersionMismatch, version)
	}

	ncols := int(binary.LittleEndian.Uint16(data[6:8]))
	if ncols == 0 || ncols > maxColumns {
		return ErrSizeMismatch
	}

	r.entries = int64(binary.LittleEndian.Uint64(data[8:16]))
	if r.entries < 0 {
		return ErrSizeMismatch
	}

	off := int64(fixedHeaderSize)

	tree, off, err := readName(data, off)
	if err != nil {
		return err
	}

	r.tree = tree
	r.cols = make([]string, ncols)

	for i := range ncols {
		r.cols[i], off, err = readName(data, off)
		if err != nil {
			return err
		}
	}

	r.dataOff = off
	r.recSize = int64(ncols)*8 + crcSize

	// Compare record counts, not byte counts: a declared entry count near
	// the int64 maximum would overflow entries*recSize and could wrap to
	// the real file size.
	payload := int64(len(data)) - r.dataOff

	switch got := payload / r.recSize; {
	case got < r.entries:
		return ErrTruncated
	case got > r.entries || payload%r.recSize != 0:
		return ErrSizeMismatch
	}

	return nil
}

// readName reads a u16-length-prefixed name at off.
func readName(data []byte, off int64) (string, int64, error) {
	if off+2 > int64(len(data)) {
		return "", 0, ErrTruncated
	}

	n := int64(binary.LittleEndian.Uint16(data[off : off+2]))
	off += 2

	if n == 0 || n > maxNameLen {
		return "", 0, ErrBadName
	}

	if off+n > int64(len(data)) {
		return "", 0, ErrTruncated
	}

	return string(data[off : off+n]), off + n, nil
}

// Tree returns the tree name stored in the header.
func (r *Reader) Tree() string {
	return r.tree
}

// Columns returns the column names in file order.
func (r *Reader) Columns() []string {
	return append([]string(nil), r.cols...)
}

// Entries returns the number of records in the file.
func (r *Reader) Entries() int64 {
	return r.entries
}

// ReadEntry reads record i into dst, whose length must match the column
// count. The record checksum is verified on every read.
func (r *Reader) ReadEntry(i int64, dst []float64) error {
	if r.data == nil {
		panic("ntup: read from closed reader")
	}

	if i < 0 || i >= r.entries {
		return fmt.Errorf("%w: %d of %d", ErrEntryRange, i, r.entries)
	}

	if len(dst) != len(r.cols) {
		return fmt.Errorf("%w: got %d, want %d", ErrColumnCount, len(dst), len(r.cols))
	}

	off := r.dataOff + i*r.recSize
	payload := r.data[off : off+int64(len(r.cols))*8]
	stored := binary.LittleEndian.Uint32(r.data[off+int64(len(payload)):])

	if crc32.ChecksumIEEE(payload) != stored {
		return fmt.Errorf("%w: entry %d", ErrCorruptRecord, i)
	}

	for c := range dst {
		dst[c] = math.Float64frombits(binary.LittleEndian.Uint64(payload[c*8:]))
	}

	return nil
}

// Event reads record i into a freshly allocated Event.
func (r *Reader) Event(i int64) (Event, error) {
	vals := make([]float64, len(r.cols))

	err := r.ReadEntry(i, vals)
	if err != nil {
		return Event{}, err
	}

	return Event{cols: r.cols, vals: vals}, nil
}

// Close unmaps the file and releases resources. Safe to call multiple
// times. The reader cannot be reopened; Open a new one instead.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}

	err := unix.Munmap(r.data)
	r.data = nil

	closeErr := r.f.Close()

	if err != nil {
		return fmt.Errorf("munmap ntuple file: %w", err)
	}

	if closeErr != nil {
		return fmt.Errorf("closing ntuple file: %w", closeErr)
	}

	return nil
}

// Event is one record's variables by name.
type Event struct {
	cols []string
	vals []float64
}

// Columns returns the column names in file order.
func (e Event) Columns() []string {
	return e.cols
}

// Values returns the raw values in column order.
func (e Event) Values() []float64 {
	return e.vals
}

// Get returns the value of the named column.
func (e Event) Get(col string) (float64, bool) {
	for i, c := range e.cols {
		if c == col {
			return e.vals[i], true
		}
	}

	return 0, false
}

// Vars returns the event as a variable map for expression evaluation.
func (e Event) Vars() map[string]any {
	vars := make(map[string]any, len(e.cols))

	for i, c := range e.cols {
		vars[c] = e.vals[i]
	}

	return vars
}
