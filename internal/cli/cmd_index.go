package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// IndexCmd returns the index command.
func IndexCmd(s *session) *Command {
	flags := flag.NewFlagSet("index", flag.ContinueOnError)
	cuts := flags.StringArray("cut", nil, "Cut to index (repeatable; default: all configured cuts)")
	force := flags.Bool("force", false, "Rebuild lists that are already cached")

	return &Command{
		Flags: flags,
		Usage: "index [flags] [file...]",
		Short: "Build and cache entry lists",
		Long: "Evaluate the configured cuts once over the chain and cache one entry\n" +
			"list per cut. Cuts whose list is already cached are reported and\n" +
			"skipped unless --force is given.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execIndex(ctx, o, s, *cuts, *force, args)
		},
	}
}

func execIndex(ctx context.Context, o *IO, s *session, cuts []string, force bool, files []string) error {
	sels, err := s.selections(cuts)
	if err != nil {
		return err
	}

	c, err := s.openChain(files)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.RetrieveEntryLists(sels...); err != nil {
		return err
	}

	if force && len(c.IndexedSelections()) > 0 {
		// Drop the cached lists and retrieve again so every cut
		// starts from an empty list.
		if err := c.DeleteEntryLists(); err != nil {
			return err
		}

		if err := c.RetrieveEntryLists(sels...); err != nil {
			return err
		}
	}

	for _, sel := range c.IndexedSelections() {
		o.Printf("%s: cached\n", sel.Name())
	}

	fresh := c.UnindexedSelections()
	if len(fresh) == 0 {
		return nil
	}

	passed := make(map[string]int64, len(fresh))

	sc := c.Scan()
	for sc.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		vars := sc.Event().Vars()

		for _, sel := range fresh {
			pass, err := sel.Eval(vars)
			if err != nil {
				return err
			}

			if !pass {
				continue
			}

			if err := c.AddEntryToList(sel, sc.Entry()); err != nil {
				return err
			}

			passed[sel.Name()]++
		}
	}

	if err := sc.Err(); err != nil {
		return err
	}

	if err := c.SaveLists(); err != nil {
		return err
	}

	for _, sel := range fresh {
		o.Printf("%s: %d of %d entries\n", sel.Name(), passed[sel.Name()], c.Entries())
	}

	return nil
}
