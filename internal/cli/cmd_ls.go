package cli

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// LsCmd returns the ls command.
func LsCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("ls", flag.ContinueOnError),
		Usage: "ls [file...]",
		Short: "Show the chain and its cached entry lists",
		Long: "Print the chain summary followed by one line per configured cut,\n" +
			"stating whether its entry list is cached and how many entries it\n" +
			"selects.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execLs(o, s, args)
		},
	}
}

func execLs(o *IO, s *session, files []string) error {
	c, err := s.openChain(files)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	o.Printf("tree:    %s\n", c.Name())
	o.Printf("files:   %d (%d entries)\n", len(c.Files()), c.Entries())
	o.Printf("columns: %s\n", strings.Join(c.Columns(), ", "))
	o.Printf("cache:   %s (%s)\n", s.cfg.CacheDirAbs, s.cfg.Digest)

	if len(s.cfg.Cuts) == 0 {
		o.Println()
		o.Println("no cuts configured")

		return nil
	}

	sels, err := s.selections(nil)
	if err != nil {
		return err
	}

	if err := c.RetrieveEntryLists(sels...); err != nil {
		return err
	}

	indexed := make(map[string]bool, len(sels))
	for _, sel := range c.IndexedSelections() {
		indexed[sel.Name()] = true
	}

	o.Println()

	for _, sel := range sels {
		status := "missing"
		count := "-"

		if indexed[sel.Name()] {
			status = "indexed"

			c.Preselect(sel)
			count = fmt.Sprintf("%d", c.NumPreselected())
		}

		o.Printf("%-20s %-8s %6s  %s\n", sel.Name(), status, count, sel.Expr())
	}

	return nil
}
