package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// ScanCmd returns the scan command.
func ScanCmd(s *session) *Command {
	flags := flag.NewFlagSet("scan", flag.ContinueOnError)
	cut := flags.String("cut", "", "Preselect this cut's cached entry list")
	limit := flags.Int64("limit", 0, "Stop after this many entries (0 = all)")
	quiet := flags.BoolP("quiet", "q", false, "Suppress per-entry output")
	stats := flags.Bool("stats", false, "Print read statistics after the scan")

	return &Command{
		Flags: flags,
		Usage: "scan [flags] [file...]",
		Short: "Iterate the chain and print entries",
		Long: "Walk the chain in entry order and print one line per entry. With\n" +
			"--cut only the entries on that cut's cached list are visited; a\n" +
			"missing list falls back to the full chain.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execScan(ctx, o, s, *cut, *limit, *quiet, *stats, args)
		},
	}
}

func execScan(ctx context.Context, o *IO, s *session, cut string, limit int64, quiet, stats bool, files []string) error {
	c, err := s.openChain(files)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if cut != "" {
		sels, err := s.selections([]string{cut})
		if err != nil {
			return err
		}

		if err := c.RetrieveEntryLists(sels...); err != nil {
			return err
		}

		if len(c.IndexedSelections()) == 0 {
			o.Warnf("no cached entry list for %q, scanning every entry (run \"ichain index\" first)", cut)
		}

		c.Preselect(sels[0])
	}

	cols := c.Columns()

	var visited int64

	sc := c.Scan()
	for sc.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !quiet {
			o.Printf("%d", sc.Entry())

			for i, v := range sc.Event().Values() {
				o.Printf("  %s=%g", cols[i], v)
			}

			o.Println()
		}

		visited++
		if limit > 0 && visited >= limit {
			break
		}
	}

	if err := sc.Err(); err != nil {
		return err
	}

	o.Printf("scanned %d of %d entries\n", visited, c.Entries())

	if stats {
		st := c.Stats()
		o.Printf("entries read: %d, lists loaded: %d, lists built: %d\n",
			st.EntriesRead, st.ListsLoaded, st.ListsBuilt)
	}

	return nil
}
