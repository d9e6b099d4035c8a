// Package ichain reads chains of ntup files with cached per-selection
// entry lists, so repeated passes over the same selections skip the
// entries that failed them.
//
// The first pass over a fresh cache evaluates each selection once and
// records the passing entries:
//
//	chain, err := ichain.New("nominal", ichain.Options{})
//	chain.Add("a.ntup")
//	chain.Add("b.ntup")
//
//	signal, err := ichain.NewSelection("signal", "pt > 25")
//	chain.RetrieveEntryLists(signal)
//
//	if fresh := chain.UnindexedSelections(); len(fresh) > 0 {
//		for sc := chain.Scan(); sc.Next(); {
//			for _, sel := range fresh {
//				if pass, _ := sel.Eval(sc.Event().Vars()); pass {
//					chain.AddEntryToList(sel, sc.Entry())
//				}
//			}
//		}
//		chain.SaveLists()
//	}
//
// Later passes preselect a cached list and visit only its entries:
//
//	chain.Preselect(signal)
//	for sc := chain.Scan(); sc.Next(); {
//		fmt.Println(sc.Entry())
//	}
//
// Cached lists are keyed by selection name, expression, tree name and
// the exact input file set; changing any of these rebuilds the list
// instead of reusing a stale one. The cache format is portable across
// machines and the files are safe to delete at any time.
package ichain
