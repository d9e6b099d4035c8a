package ichain

import (
	"ichain/pkg/elist"
	"ichain/pkg/ntup"
)

// Scanner steps through the chain's entries in order, reading one event
// per step. Which entries it visits is fixed when Scan is called: the
// active preselection if there is one, otherwise the intrinsic index
// from AddIndexed, otherwise every entry.
type Scanner struct {
	c  *Chain
	it *elist.Iterator // nil for a full scan

	next int64 // next sequential entry when it == nil
	cur  int64
	ev   ntup.Event

	err  error
	done bool
}

// Scan returns a scanner positioned before the first entry in play.
func (c *Chain) Scan() *Scanner {
	s := &Scanner{c: c, cur: -1}

	switch {
	case c.cur != nil:
		s.it = c.cur.list.Iterator()
	case c.index != nil:
		s.it = c.index.Iterator()
	}

	return s
}

// Next advances to the next entry and reads its event. It returns false
// when the entries in play are exhausted or a read fails; Err tells the
// two apart. An entry recorded beyond the chain's length stops the
// scan with a warning rather than an error.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}

	if s.c.closed {
		s.err = ErrChainClosed
		s.done = true

		return false
	}

	var i int64

	if s.it != nil {
		e, ok := s.it.Next()
		if !ok {
			s.done = true

			return false
		}

		if e >= s.c.entries {
			s.c.log.Warnf("index runs beyond data size, breaking iteration at entry %d", e)
			s.done = true

			return false
		}

		i = e
	} else {
		if s.next >= s.c.entries {
			s.done = true

			return false
		}

		i = s.next
		s.next++
	}

	ev, err := s.c.Entry(i)
	if err != nil {
		s.err = err
		s.done = true

		return false
	}

	s.cur = i
	s.ev = ev

	return true
}

// Entry returns the chain-global entry number of the current event. It
// is -1 before the first successful Next.
func (s *Scanner) Entry() int64 {
	return s.cur
}

// Event returns the event read by the last successful Next.
func (s *Scanner) Event() ntup.Event {
	return s.ev
}

// Err returns the error that stopped the scan, if any. Exhaustion and
// an over-long entry list are not errors.
func (s *Scanner) Err() error {
	return s.err
}
