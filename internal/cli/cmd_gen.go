package cli

import (
	"context"
	"math"
	"math/rand/v2"

	flag "github.com/spf13/pflag"

	"ichain/pkg/ntup"
)

// genColumns is the schema of generated sample files.
var genColumns = []string{"pt", "eta", "phi"}

// GenCmd returns the gen command.
func GenCmd(s *session) *Command {
	flags := flag.NewFlagSet("gen", flag.ContinueOnError)
	entries := flags.Int64P("entries", "n", 1000, "Entries per file")
	seed := flags.Uint64P("seed", "s", 1, "Generator seed")

	return &Command{
		Flags: flags,
		Usage: "gen [flags] <file...>",
		Short: "Write deterministic sample files",
		Long: "Write sample files for the configured tree with pt, eta and phi\n" +
			"columns. The same seed always produces the same data, so generated\n" +
			"files are reproducible inputs for scans and entry-list builds.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execGen(o, s, *entries, *seed, args)
		},
	}
}

func execGen(o *IO, s *session, entries int64, seed uint64, files []string) error {
	if entries <= 0 {
		return ErrEntriesPositive
	}

	if len(files) == 0 {
		return ErrFileRequired
	}

	for i, file := range files {
		path := absPath(s.cfg.EffectiveCwd, file)

		if err := writeSample(path, s.cfg.Tree, entries, seed+uint64(i)); err != nil {
			return err
		}

		o.Printf("%s: %d entries\n", file, entries)
	}

	return nil
}

// writeSample writes one file of pseudo-random events. pt falls off
// like a spectrum, eta covers [-2.5, 2.5) and phi covers [-pi, pi).
func writeSample(path, tree string, entries int64, seed uint64) error {
	w, err := ntup.Create(path, tree, genColumns)
	if err != nil {
		return err
	}

	r := rand.New(rand.NewPCG(seed, seed))

	for i := int64(0); i < entries; i++ {
		pt := 100 * r.Float64() * r.Float64()
		eta := 5*r.Float64() - 2.5
		phi := 2*math.Pi*r.Float64() - math.Pi

		if err := w.Append(pt, eta, phi); err != nil {
			_ = w.Close()

			return err
		}
	}

	return w.Close()
}
