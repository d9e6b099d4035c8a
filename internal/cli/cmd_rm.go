package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// RmCmd returns the rm command.
func RmCmd(s *session) *Command {
	flags := flag.NewFlagSet("rm", flag.ContinueOnError)
	cuts := flags.StringArray("cut", nil, "Cut whose list to delete (repeatable; default: all configured cuts)")

	return &Command{
		Flags: flags,
		Usage: "rm [flags] [file...]",
		Short: "Delete cached entry lists",
		Long: "Delete the cached entry lists of the configured cuts for this chain.\n" +
			"Lists cached for other file sets or trees share the cache directory\n" +
			"but are left alone.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execRm(o, s, *cuts, args)
		},
	}
}

func execRm(o *IO, s *session, cuts []string, files []string) error {
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

	cached := len(c.IndexedSelections())

	if err := c.DeleteEntryLists(); err != nil {
		return err
	}

	o.Printf("deleted %d of %d entry lists\n", cached, len(sels))

	return nil
}
