package ichain

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash"
	"github.com/zeebo/blake3"

	"ichain/pkg/elist"
)

// selState tracks one retrieved selection: its cache location, the
// in-memory list, and whether the list came from the cache.
type selState struct {
	sel  *Selection
	path string

	list *elist.List

	// hasList records whether the list existed in the cache when it was
	// retrieved. SaveLists only writes states where it is false.
	hasList bool
}

// RetrieveEntryLists loads the cached entry list of every given
// selection, or starts an empty one where the cache has none. It
// replaces the working set of a previous call; an active preselection
// is kept until the next Preselect. Selections passed in one call must
// have distinct names.
func (c *Chain) RetrieveEntryLists(sels ...*Selection) error {
	if c.closed {
		return ErrChainClosed
	}

	if err := c.ensureCacheDir(); err != nil {
		return err
	}

	states := make([]*selState, 0, len(sels))
	byName := make(map[string]*selState, len(sels))

	for _, sel := range sels {
		if _, ok := byName[sel.Name()]; ok {
			return fmt.Errorf("%w: %q", ErrDupSelection, sel.Name())
		}

		st := &selState{
			sel:  sel,
			path: filepath.Join(c.opts.CacheDir, sel.Name()+"_"+c.cacheKey(sel)+".elist"),
		}

		list, err := elist.ReadFile(st.path)

		switch {
		case err == nil:
			st.list = list
			st.hasList = true
			c.stats.ListsLoaded++
			c.log.Infof("retrieved entry list for %q from %s", sel.Name(), st.path)
		case errors.Is(err, fs.ErrNotExist):
			st.list = elist.New(sel.Name(), sel.Expr())
			c.stats.ListsBuilt++
			c.log.Infof("creating entry list for %q", sel.Name())
		default:
			return fmt.Errorf("retrieve entry list for %q: %w", sel.Name(), err)
		}

		states = append(states, st)
		byName[sel.Name()] = st
	}

	c.states = states
	c.byName = byName

	return nil
}

// IndexedSelections returns the retrieved selections whose entry list
// was found in the cache, in retrieval order. Iterating these with an
// active preselection skips every failing entry.
func (c *Chain) IndexedSelections() []*Selection {
	var sels []*Selection

	for _, st := range c.states {
		if st.hasList {
			sels = append(sels, st.sel)
		}
	}

	return sels
}

// UnindexedSelections returns the retrieved selections that had no
// cached entry list. Their lists are filled with AddEntryToList and
// persisted with SaveLists.
func (c *Chain) UnindexedSelections() []*Selection {
	var sels []*Selection

	for _, st := range c.states {
		if !st.hasList {
			sels = append(sels, st.sel)
		}
	}

	return sels
}

// Preselect restricts iteration to the entries recorded for sel. A nil
// sel clears the preselection. Requesting a selection that was not
// retrieved, or whose list was not in the cache, logs a warning and
// clears the preselection so that iteration falls back to the full
// chain.
func (c *Chain) Preselect(sel *Selection) {
	if sel == nil {
		c.cur = nil
		c.log.Infof("no preselection: %d entries", c.entries)

		return
	}

	st, ok := c.byName[sel.Name()]
	if !ok || !st.hasList {
		c.cur = nil
		c.log.Warnf("requested entry list for %q not available", sel.Name())

		return
	}

	c.cur = st
	c.log.Infof("preselected %d of %d entries for %q", st.list.Len(), c.entries, sel.Name())
}

// NumPreselected returns how many entries the active preselection
// keeps, or the total number of entries when none is active.
func (c *Chain) NumPreselected() int64 {
	if c.cur == nil {
		return c.entries
	}

	return c.cur.list.Len()
}

// AddEntryToList records the chain-global entry in sel's list. The
// selection must have been retrieved first.
func (c *Chain) AddEntryToList(sel *Selection, entry int64) error {
	if c.closed {
		return ErrChainClosed
	}

	st, ok := c.byName[sel.Name()]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSelection, sel.Name())
	}

	if entry < 0 || entry >= c.entries {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrEntryRange, entry, c.entries)
	}

	if err := st.list.Enter(entry); err != nil {
		return fmt.Errorf("add entry to list for %q: %w", sel.Name(), err)
	}

	return nil
}

// SaveLists writes every list built in this session to the cache
// directory, empty ones included. Lists that were loaded from the
// cache are left untouched.
func (c *Chain) SaveLists() error {
	if c.closed {
		return ErrChainClosed
	}

	if err := c.ensureCacheDir(); err != nil {
		return err
	}

	for _, st := range c.states {
		if st.hasList {
			continue
		}

		if err := st.list.WriteFile(st.path); err != nil {
			return fmt.Errorf("save entry list for %q: %w", st.sel.Name(), err)
		}

		c.log.Infof("wrote entry list for %q to %s", st.sel.Name(), st.path)
	}

	return nil
}

// DeleteEntryLists removes the cache files of all retrieved selections
// and forgets the in-memory lists along with any active preselection.
func (c *Chain) DeleteEntryLists() error {
	if c.closed {
		return ErrChainClosed
	}

	if len(c.states) == 0 {
		c.log.Infof("no entry lists to delete")

		return nil
	}

	for _, st := range c.states {
		err := os.Remove(st.path)

		switch {
		case err == nil:
			c.log.Infof("deleted entry list for %q at %s", st.sel.Name(), st.path)
		case errors.Is(err, fs.ErrNotExist):
			// Built this session and never saved.
		default:
			return fmt.Errorf("delete entry list for %q: %w", st.sel.Name(), err)
		}
	}

	c.states = nil
	c.byName = make(map[string]*selState)
	c.cur = nil

	return nil
}

// cacheKey hashes selection name, expression, tree name and the input
// file paths, so a cached list never outlives a change to any of them.
func (c *Chain) cacheKey(sel *Selection) string {
	var b bytes.Buffer

	b.WriteString(sel.Name())
	b.WriteByte(0)
	b.WriteString(sel.Expr())
	b.WriteByte(0)
	b.WriteString(c.tree)

	for _, f := range c.files {
		b.WriteByte(0)
		b.WriteString(f.path)
	}

	if c.opts.Digest == DigestBlake3 {
		sum := blake3.Sum256(b.Bytes())

		return hex.EncodeToString(sum[:])
	}

	return fmt.Sprintf("%016x", xxhash.Sum64(b.Bytes()))
}

// ensureCacheDir creates the cache directory on first use.
func (c *Chain) ensureCacheDir() error {
	dir := c.opts.CacheDir

	info, err := os.Stat(dir)

	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrCacheDirInvalid, dir)
		}

		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("stat cache dir: %w", err)
	}
}
