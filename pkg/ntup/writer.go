package ntup

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"
)

// Writer appends records to a new ntuple file.
//
// The entry count in the header is written as zero on Create and fixed up
// by Close, so a file abandoned mid-write is detectable by its size not
// matching the header.
type Writer struct {
	f       *os.File
	bw      *bufio.Writer
	cols    []string
	entries int64
	recBuf  []byte // payload + CRC scratch, reused across Append calls
	closed  bool
}

// Create creates path and writes the ntuple header for the given tree and
// column names. The file is invalid until Close succeeds.
func Create(path, tree string, cols []string) (*Writer, error) {
	err := validateSchema(tree, cols)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating ntuple file: %w", err)
	}

	var hdr bytes.Buffer

	hdr.WriteString(fileMagic)
	writeU16(&hdr, fileVersion)
	writeU16(&hdr, uint16(len(cols)))
	writeU64(&hdr, 0) // entries, rewritten on Close
	writeU16(&hdr, uint16(len(tree)))
	hdr.WriteString(tree)

	for _, c := range cols {
		writeU16(&hdr, uint16(len(c)))
		hdr.WriteString(c)
	}

	_, err = f.Write(hdr.Bytes())
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("writing ntuple header: %w", err)
	}

	return &Writer{
		f:      f,
		bw:     bufio.NewWriter(f),
		cols:   append([]string(nil), cols...),
		recBuf: make([]byte, len(cols)*8+crcSize),
	}, nil
}

// Columns returns the column names in file order.
func (w *Writer) Columns() []string {
	return append([]string(nil), w.cols...)
}

// Entries returns the number of records appended so far.
func (w *Writer) Entries() int64 {
	return w.entries
}

// Append writes one record. The number of values must match the number of
// columns declared in Create.
func (w *Writer) Append(vals ...float64) error {
	if w.closed {
		return ErrWriterClosed
	}

	if len(vals) != len(w.cols) {
		return fmt.Errorf("%w: got %d, want %d", ErrColumnCount, len(vals), len(w.cols))
	}

	payload := w.recBuf[:len(vals)*8]

	for i, v := range vals {
		binary.LittleEndian.PutUint64(payload[i*8:], math.Float64bits(v))
	}

	binary.LittleEndian.PutUint32(w.recBuf[len(payload):], crc32.ChecksumIEEE(payload))

	_, err := w.bw.Write(w.recBuf)
	if err != nil {
		return fmt.Errorf("appending record: %w", err)
	}

	w.entries++

	return nil
}

// Close flushes buffered records, rewrites the entry count in the header,
// fsyncs and closes the file. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	err := w.bw.Flush()
	if err != nil {
		_ = w.f.Close()

		return fmt.Errorf("flushing records: %w", err)
	}

	var count [8]byte

	binary.LittleEndian.PutUint64(count[:], uint64(w.entries))

	_, err = w.f.WriteAt(count[:], entriesOffset)
	if err != nil {
		_ = w.f.Close()

		return fmt.Errorf("finalizing entry count: %w", err)
	}

	err = w.f.Sync()
	if err != nil {
		_ = w.f.Close()

		return fmt.Errorf("syncing ntuple file: %w", err)
	}

	closeErr := w.f.Close()
	if closeErr != nil {
		return fmt.Errorf("closing ntuple file: %w", closeErr)
	}

	return nil
}

func writeU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte

	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func writeU64(b *bytes.Buffer, v uint64) {
	var tmp [8]byte

	binary.LittleEndian.PutUint64(tmp[:], v)
	b.Write(tmp[:])
}
