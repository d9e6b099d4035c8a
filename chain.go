package ichain

import (
	"fmt"
	"slices"
	"sort"

	"ichain/pkg/elist"
	"ichain/pkg/logger"
	"ichain/pkg/ntup"
)

// Chain reads an ordered set of ntup files holding the same tree as one
// continuous sequence of entries. Entry numbers are chain-global: entry
// 0 of the second file sits right after the last entry of the first.
//
// A Chain is not safe for concurrent use.
type Chain struct {
	tree string
	opts Options
	log  logger.Logger

	files   []*chainFile
	cols    []string
	entries int64

	// index restricts iteration to the entries named via AddIndexed.
	// nil means every entry is in play.
	index *elist.List

	// Entry-list bookkeeping, populated by RetrieveEntryLists.
	states []*selState
	byName map[string]*selState
	cur    *selState

	stats  Stats
	closed bool
}

type chainFile struct {
	path   string
	r      *ntup.Reader
	offset int64 // chain-global entry number of the file's first entry
}

// New returns an empty chain for the named tree.
func New(tree string, opts Options) (*Chain, error) {
	if tree == "" {
		return nil, ErrNoTreeName
	}

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Chain{
		tree:   tree,
		opts:   opts,
		log:    opts.Logger,
		byName: make(map[string]*selState),
	}, nil
}

// Add appends the tree from path to the end of the chain. Every file
// must carry the chain's tree name and, after the first, the same
// column set.
func (c *Chain) Add(path string) error {
	return c.AddIndexed(path, nil)
}

// AddIndexed appends a file like Add, but marks only the listed
// file-local entries as in play for unpreselected iteration. Entries
// past the end of the file are dropped with a warning; negative entries
// are an error. Files added without an index keep all their entries in
// play.
func (c *Chain) AddIndexed(path string, index []int64) error {
	if c.closed {
		return ErrChainClosed
	}

	for _, e := range index {
		if e < 0 {
			return fmt.Errorf("%w: index entry %d for %s", ErrEntryRange, e, path)
		}
	}

	r, err := ntup.Open(path)
	if err != nil {
		return fmt.Errorf("add %s: %w", path, err)
	}

	if r.Tree() != c.tree {
		_ = r.Close()

		return fmt.Errorf("%w: %s holds %q, chain reads %q", ErrTreeMismatch, path, r.Tree(), c.tree)
	}

	if len(c.files) == 0 {
		c.cols = r.Columns()
	} else if !slices.Equal(c.cols, r.Columns()) {
		_ = r.Close()

		return fmt.Errorf("%w: %s", ErrColumnsMismatch, path)
	}

	if index != nil && c.index == nil {
		if err := c.startIndex(); err != nil {
			_ = r.Close()

			return err
		}
	}

	offset := c.entries
	c.files = append(c.files, &chainFile{path: path, r: r, offset: offset})
	c.entries += r.Entries()

	if c.index == nil {
		return nil
	}

	if index == nil {
		return c.index.EnterRange(offset, offset+r.Entries())
	}

	dropped := 0

	for _, e := range index {
		if e >= r.Entries() {
			dropped++
			continue
		}

		if err := c.index.Enter(offset + e); err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
	}

	if dropped > 0 {
		c.log.Warnf("index extends beyond input file length, truncating: dropped %d of %d entries for %s",
			dropped, len(index), path)
	}

	return nil
}

// startIndex begins intrinsic indexing; files added before the first
// indexed one stay fully in play.
func (c *Chain) startIndex() error {
	c.index = elist.New("index", "entries in play")

	for _, f := range c.files {
		if err := c.index.EnterRange(f.offset, f.offset+f.r.Entries()); err != nil {
			return fmt.Errorf("index %s: %w", f.path, err)
		}
	}

	return nil
}

// Name returns the tree name the chain reads.
func (c *Chain) Name() string {
	return c.tree
}

// Files returns the input file paths in chain order.
func (c *Chain) Files() []string {
	paths := make([]string, len(c.files))
	for i, f := range c.files {
		paths[i] = f.path
	}

	return paths
}

// Columns returns the column names shared by every input file. It is
// nil before the first file is added.
func (c *Chain) Columns() []string {
	return slices.Clone(c.cols)
}

// Entries returns the total number of entries across all files.
func (c *Chain) Entries() int64 {
	return c.entries
}

// Entry reads the chain-global entry i.
func (c *Chain) Entry(i int64) (ntup.Event, error) {
	if c.closed {
		return ntup.Event{}, ErrChainClosed
	}

	f, local, err := c.locate(i)
	if err != nil {
		return ntup.Event{}, err
	}

	ev, err := f.r.Event(local)
	if err != nil {
		return ntup.Event{}, fmt.Errorf("entry %d in %s: %w", i, f.path, err)
	}

	c.stats.EntriesRead++

	return ev, nil
}

// locate maps a chain-global entry number to its file and the
// file-local entry number.
func (c *Chain) locate(i int64) (*chainFile, int64, error) {
	if i < 0 || i >= c.entries {
		return nil, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrEntryRange, i, c.entries)
	}

	n := sort.Search(len(c.files), func(k int) bool { return c.files[k].offset > i })
	f := c.files[n-1]

	return f, i - f.offset, nil
}

// Stats returns counters of the work done so far.
func (c *Chain) Stats() Stats {
	return c.stats
}

// Close releases every input file. Lists already retrieved stay
// readable in memory, but entry reads and cache operations fail
// afterwards. Close is idempotent.
func (c *Chain) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true

	var firstErr error

	for _, f := range c.files {
		if err := f.r.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", f.path, err)
		}
	}

	return firstErr
}
