package elist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// WriteFile persists the list to path atomically. The containing directory
// must exist.
func (l *List) WriteFile(path string) error {
	if len(l.name) > maxNameLen || len(l.title) > maxTitleLen {
		return ErrNameTooLong
	}

	l.bm.RunOptimize()

	payload, err := l.bm.ToBytes()
	if err != nil {
		return fmt.Errorf("serializing entry list: %w", err)
	}

	var buf bytes.Buffer

	buf.WriteString(fileMagic)
	writeU16(&buf, fileVersion)
	writeU16(&buf, uint16(len(l.name)))
	buf.WriteString(l.name)
	writeU16(&buf, uint16(len(l.title)))
	buf.WriteString(l.title)
	writeU32(&buf, uint32(len(payload)))
	buf.Write(payload)

	err = atomic.WriteFile(path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("writing entry-list file: %w", err)
	}

	return nil
}

// ReadFile loads a list from path. A missing file surfaces as the
// underlying not-exist error so callers can tell absent from corrupt.
func ReadFile(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entry-list file: %w", err)
	}

	if len(data) < 4 || string(data[0:4]) != fileMagic {
		return nil, ErrBadMagic
	}

	off := 4

	version, off, err := readU16(data, off)
	if err != nil {
		return nil, err
	}

	if version != fileVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersionMismatch, version)
	}

	name, off, err := readString(data, off)
	if err != nil {
		return nil, err
	}

	title, off, err := readString(data, off)
	if err != nil {
		return nil, err
	}

	if off+4 > len(data) {
		return nil, ErrCorrupt
	}

	payloadLen := int(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4

	if off+payloadLen != len(data) {
		return nil, ErrCorrupt
	}

	l := New(name, title)

	err = l.bm.UnmarshalBinary(data[off:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return l, nil
}

func writeU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte

	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func writeU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte

	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func readU16(data []byte, off int) (uint16, int, error) {
	if off+2 > len(data) {
		return 0, 0, ErrCorrupt
	}

	return binary.LittleEndian.Uint16(data[off : off+2]), off + 2, nil
}

func readString(data []byte, off int) (string, int, error) {
	n, off, err := readU16(data, off)
	if err != nil {
		return "", 0, err
	}

	if off+int(n) > len(data) {
		return "", 0, ErrCorrupt
	}

	return string(data[off : off+int(n)]), off + int(n), nil
}
