package ntup_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ichain/pkg/ntup"
)

// writeDummy writes n records with x=i and y=2*i.
func writeDummy(t *testing.T, path string, n int64) {
	t.Helper()

	w, err := ntup.Create(path, "dummy_tree", []string{"x", "y"})
	if err != nil {
		t.Fatal(err)
	}

	for i := int64(0); i < n; i++ {
		if err := w.Append(float64(i), float64(2*i)); err != nil {
			t.Fatal(err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")
	writeDummy(t, path, 1000)

	r, err := ntup.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if got := r.Tree(); got != "dummy_tree" {
		t.Fatalf("tree = %q, want %q", got, "dummy_tree")
	}

	if got := r.Entries(); got != 1000 {
		t.Fatalf("entries = %d, want %d", got, 1000)
	}

	cols := r.Columns()
	if len(cols) != 2 || cols[0] != "x" || cols[1] != "y" {
		t.Fatalf("columns = %v, want [x y]", cols)
	}

	dst := make([]float64, 2)

	for _, i := range []int64{0, 1, 499, 999} {
		if err := r.ReadEntry(i, dst); err != nil {
			t.Fatalf("ReadEntry(%d): %v", i, err)
		}

		if dst[0] != float64(i) || dst[1] != float64(2*i) {
			t.Fatalf("entry %d = %v, want [%d %d]", i, dst, i, 2*i)
		}
	}
}

func TestEventAccessors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")
	writeDummy(t, path, 10)

	r, err := ntup.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ev, err := r.Event(7)
	if err != nil {
		t.Fatal(err)
	}

	x, ok := ev.Get("x")
	if !ok || x != 7 {
		t.Fatalf("Get(x) = %v, %v; want 7, true", x, ok)
	}

	if _, ok := ev.Get("nope"); ok {
		t.Fatal("Get on unknown column should report false")
	}

	vars := ev.Vars()
	if vars["y"] != float64(14) {
		t.Fatalf("Vars()[y] = %v, want 14", vars["y"])
	}
}

func TestEmptyFileRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.ntup")

	w, err := ntup.Create(path, "t", []string{"x"})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := ntup.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if got := r.Entries(); got != 0 {
		t.Fatalf("entries = %d, want 0", got)
	}

	err = r.ReadEntry(0, make([]float64, 1))
	if !errors.Is(err, ntup.ErrEntryRange) {
		t.Fatalf("err = %v, want ErrEntryRange", err)
	}
}

func TestCreateRejectsBadSchemas(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cases := []struct {
		name string
		tree string
		cols []string
		want error
	}{
		{"no columns", "t", nil, ntup.ErrNoColumns},
		{"bad tree name", "1tree", []string{"x"}, ntup.ErrBadName},
		{"bad column name", "t", []string{"x", "x-y"}, ntup.ErrBadName},
		{"leading digit column", "t", []string{"2x"}, ntup.ErrBadName},
		{"duplicate column", "t", []string{"x", "x"}, ntup.ErrDupColumn},
		{"empty column", "t", []string{""}, ntup.ErrBadName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ntup.Create(filepath.Join(dir, tc.name+".ntup"), tc.tree, tc.cols)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAppendArityChecked(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")

	w, err := ntup.Create(path, "t", []string{"x", "y"})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	err = w.Append(1.0)
	if !errors.Is(err, ntup.ErrColumnCount) {
		t.Fatalf("err = %v, want ErrColumnCount", err)
	}
}

func TestAppendAfterClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")

	w, err := ntup.Create(path, "t", []string{"x"})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// Close again is a no-op.
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	err = w.Append(1.0)
	if !errors.Is(err, ntup.ErrWriterClosed) {
		t.Fatalf("err = %v, want ErrWriterClosed", err)
	}
}

func TestOpenRejectsForeignFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "junk.bin")

	if err := os.WriteFile(path, []byte("JUNKJUNKJUNKJUNKJUNK"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := ntup.Open(path)
	if !errors.Is(err, ntup.ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")
	writeDummy(t, path, 100)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Cut off the last record and a half.
	if err := os.WriteFile(path, data[:len(data)-30], 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = ntup.Open(path)
	if !errors.Is(err, ntup.ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestOpenRejectsTrailingGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")
	writeDummy(t, path, 10)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.Write([]byte("tail")); err != nil {
		t.Fatal(err)
	}

	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = ntup.Open(path)
	if !errors.Is(err, ntup.ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestOpenRejectsOverflowingEntryCount(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")

	w, err := ntup.Create(path, "t", []string{"x"})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Append(1.0); err != nil {
		t.Fatal(err)
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Declare 1<<62+1 entries: times the 12-byte record size this wraps in
	// int64 to the 12 bytes actually present, so comparing byte totals
	// would accept the file and reads past entry 0 would run off the
	// mapping.
	binary.LittleEndian.PutUint64(data[8:16], 1<<62+1)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = ntup.Open(path)
	if !errors.Is(err, ntup.ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestCorruptRecordDetected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")
	writeDummy(t, path, 10)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Flip one payload byte in the last record. The record is 2*8+4 bytes;
	// the payload of the last record starts 20 bytes before EOF.
	data[len(data)-20] ^= 0xff

	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := ntup.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	dst := make([]float64, 2)

	err = r.ReadEntry(9, dst)
	if !errors.Is(err, ntup.ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}

	// Untouched records still read fine.
	if err := r.ReadEntry(0, dst); err != nil {
		t.Fatalf("ReadEntry(0) after corruption elsewhere: %v", err)
	}
}

func TestReaderCloseIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.ntup")
	writeDummy(t, path, 5)

	r, err := ntup.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}
