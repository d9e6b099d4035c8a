package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ichain/pkg/logger"
)

const (
	minArgs      = 2
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

// Run is the main entry point. Returns exit code.
func Run(ctx context.Context, in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	if len(args) < minArgs {
		printUsage(out, commands(&session{}))

		return 0
	}

	// Parse global flags
	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, commands(&session{}))

		return 1
	}

	// Handle bare invocations and help before touching any config
	if len(flags.remaining) == 0 || flags.remaining[0] == "-h" || flags.remaining[0] == helpFlag {
		printUsage(out, commands(&session{}))

		return 0
	}

	// Load and validate config
	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride:  flags.workDir,
		ConfigPath:       flags.configPath,
		TreeOverride:     flags.tree,
		CacheDirOverride: flags.cacheDir,
		LogFileOverride:  flags.logFile,
		DigestOverride:   flags.digest,
		Env:              env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	log, closeLog, err := newLogger(cfg, flags.verbose, errOut)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}
	defer closeLog()

	s := &session{cfg: cfg, log: log, in: in}
	cmds := commands(s)

	name := flags.remaining[0]

	cmd := findCommand(cmds, name)
	if cmd == nil {
		fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut, cmds)

		return 1
	}

	o := NewIO(out, errOut)

	if code := cmd.Run(ctx, o, flags.remaining[1:]); code != 0 {
		return code
	}

	// Finish handles warnings and exit code
	return o.Finish()
}

// newLogger builds the session logger: a file logger when log_file is
// configured, stderr when -v is given without one, silence otherwise.
func newLogger(cfg Config, verbose bool, errOut io.Writer) (logger.Logger, func(), error) {
	if cfg.LogFileAbs != "" {
		fw, err := logger.NewFileWriter(cfg.LogFileAbs)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}

		closeLog := func() { _ = fw.Close() }

		if verbose {
			return logger.NewVerboseLogger(fw), closeLog, nil
		}

		return logger.NewStandardLogger(fw), closeLog, nil
	}

	if verbose {
		return logger.NewVerboseLogger(errOut), func() {}, nil
	}

	return logger.NopLogger, func() {}, nil
}

// commands returns the command set for one invocation.
func commands(s *session) []*Command {
	return []*Command{
		GenCmd(s),
		IndexCmd(s),
		LsCmd(s),
		ScanCmd(s),
		RmCmd(s),
		ShellCmd(s),
		PrintConfigCmd(s),
	}
}

func findCommand(cmds []*Command, name string) *Command {
	for _, cmd := range cmds {
		if cmd.Name() == name {
			return cmd
		}
	}

	return nil
}

type globalFlags struct {
	workDir    string
	configPath string
	tree       string
	cacheDir   string
	logFile    string
	digest     string
	verbose    bool
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C/--cwd flag (work directory), value separate or attached
	if arg == "-C" || arg == "--cwd" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", ErrFlagRequiresArg, arg)
		}

		flags.workDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok && after != "" {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--cwd="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	// String flags with a separate or "=" value. An empty value is an
	// error where the setting has no usable empty form.
	for _, spec := range []struct {
		short, long string
		dst         *string
		emptyErr    error
	}{
		{"-c", "--config", &flags.configPath, nil},
		{"", "--tree", &flags.tree, ErrTreeEmpty},
		{"", "--cache-dir", &flags.cacheDir, ErrCacheDirEmpty},
		{"", "--log-file", &flags.logFile, nil},
		{"", "--digest", &flags.digest, ErrBadDigest},
	} {
		if arg == spec.long || (spec.short != "" && arg == spec.short) {
			if idx+1 >= len(args) {
				return consumedNone, fmt.Errorf("%w: %s", ErrFlagRequiresArg, arg)
			}

			if args[idx+1] == "" && spec.emptyErr != nil {
				return consumedNone, spec.emptyErr
			}

			*spec.dst = args[idx+1]

			return consumedTwo, nil
		}

		if after, ok := strings.CutPrefix(arg, spec.long+"="); ok {
			if after == "" && spec.emptyErr != nil {
				return consumedNone, spec.emptyErr
			}

			*spec.dst = after

			return consumedOne, nil
		}
	}

	if arg == "-v" || arg == "--verbose" {
		flags.verbose = true

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, cmds []*Command) {
	fprintln(w, `ichain - event chains with cached per-cut entry lists

Usage: ichain [options] <command> [args]

Options:
  -C, --cwd <dir>        Run as if started in <dir>
  -c, --config <file>    Use specified config file
      --tree <name>      Override the tree name
      --cache-dir <dir>  Override the entry-list cache directory
      --log-file <file>  Append the bookkeeping log to <file>
      --digest <name>    Override the cache digest (xxhash|blake3)
  -v, --verbose          Log debug detail

Commands:`)

	for _, cmd := range cmds {
		fprintln(w, cmd.HelpLine())
	}
}
