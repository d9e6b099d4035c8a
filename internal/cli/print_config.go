package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execPrintConfig(o, s.cfg)
		},
	}
}

func execPrintConfig(o *IO, cfg Config) error {
	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println("tree=" + cfg.Tree)
	o.Println("cache_dir=" + cfg.CacheDirAbs)
	o.Println("digest=" + cfg.Digest)

	if cfg.LogFileAbs != "" {
		o.Println("log_file=" + cfg.LogFileAbs)
	}

	for _, f := range cfg.FilesAbs {
		o.Println("file=" + f)
	}

	for _, name := range cfg.cutNames() {
		o.Println("cut." + name + "=" + cfg.Cuts[name])
	}

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")

		return nil
	}

	if cfg.Sources.Global != "" {
		o.Println("global_config=" + cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		o.Println("project_config=" + cfg.Sources.Project)
	}

	return nil
}
