package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"ichain"
)

// ShellCmd returns the shell command.
func ShellCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell [file...]",
		Short: "Explore the chain interactively",
		Long: "Open the chain in a line-edited prompt with history and completion.\n" +
			"Type \"help\" inside the shell for its commands.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execShell(ctx, o, s, args)
		},
	}
}

func execShell(ctx context.Context, o *IO, s *session, files []string) error {
	c, err := s.openChain(files)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	sels := make(map[string]*ichain.Selection, len(s.cfg.Cuts))
	names := make([]string, 0, len(s.cfg.Cuts))

	for _, name := range s.cfg.cutNames() {
		sel, selErr := ichain.NewSelection(name, s.cfg.Cuts[name])
		if selErr != nil {
			o.ErrPrintln("warning: skipping cut", name+":", selErr)

			continue
		}

		sels[name] = sel
		names = append(names, name)
	}

	sh := &shell{o: o, chain: c, sels: sels, names: names}

	return sh.run(ctx)
}

// shell is the interactive command loop.
type shell struct {
	o     *IO
	chain *ichain.Chain
	sels  map[string]*ichain.Selection
	names []string
	liner *liner.State
}

// shellHistoryFile returns the path to the history file.
func shellHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".ichain_history")
}

// run starts the shell loop.
func (sh *shell) run(ctx context.Context) error {
	sh.liner = liner.NewLiner()
	defer sh.liner.Close()

	sh.liner.SetCtrlCAborts(true)
	sh.liner.SetCompleter(sh.completer)

	if f, err := os.Open(shellHistoryFile()); err == nil {
		_, _ = sh.liner.ReadHistory(f)
		_ = f.Close()
	}

	sh.o.Printf("ichain - %s chain (%d files, %d entries)\n",
		sh.chain.Name(), len(sh.chain.Files()), sh.chain.Entries())
	sh.o.Println("Type 'help' for available commands.")
	sh.o.Println()

	for {
		if ctx.Err() != nil {
			break
		}

		line, err := sh.liner.Prompt("ichain> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				sh.o.Println("\nBye!")

				break
			}

			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		sh.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			sh.o.Println("Bye!")

			sh.saveHistory()

			return nil

		case "help", "?":
			sh.printHelp()

		case "info":
			sh.cmdInfo()

		case "files":
			sh.cmdFiles()

		case "cuts":
			sh.cmdCuts()

		case "retrieve":
			sh.cmdRetrieve(args)

		case "preselect", "pre":
			sh.cmdPreselect(args)

		case "count":
			sh.cmdCount()

		case "scan", "ls", "list":
			sh.cmdScan(ctx, args)

		case "entry":
			sh.cmdEntry(args)

		case "eval":
			sh.cmdEval(ctx, args)

		case "build":
			sh.cmdBuild(ctx)

		case "save":
			sh.cmdSave()

		case "delete", "del":
			sh.cmdDelete()

		case "stats":
			sh.cmdStats()

		case "clear", "cls":
			sh.o.Printf("\033[H\033[2J")

		default:
			sh.o.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	sh.saveHistory()

	return nil
}

// saveHistory persists command history to disk.
func (sh *shell) saveHistory() {
	path := shellHistoryFile()
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil {
		_, _ = sh.liner.WriteHistory(f)
		_ = f.Close()
	}
}

// completer provides tab completion for shell commands and cut names.
func (sh *shell) completer(line string) []string {
	words := []string{
		"info", "files", "cuts",
		"retrieve", "preselect", "pre", "none",
		"count", "scan", "entry", "eval",
		"build", "save", "delete", "del",
		"stats", "clear", "cls",
		"help", "exit", "quit", "q",
	}
	words = append(words, sh.names...)

	var completions []string

	fields := strings.Fields(strings.ToLower(line))

	last := ""
	if len(fields) > 0 && !strings.HasSuffix(line, " ") {
		last = fields[len(fields)-1]
	}

	prefix := line[:len(line)-len(last)]

	for _, w := range words {
		if strings.HasPrefix(w, last) {
			completions = append(completions, prefix+w)
		}
	}

	return completions
}

func (sh *shell) printHelp() {
	sh.o.Println("Commands:")
	sh.o.Println("  info                  Show the chain summary")
	sh.o.Println("  files                 List the chained files")
	sh.o.Println("  cuts                  List the configured cuts")
	sh.o.Println("  retrieve [cut...]     Retrieve entry lists (default: all cuts)")
	sh.o.Println("  preselect <cut|none>  Restrict iteration to a cut's entry list")
	sh.o.Println("  count                 Show how many entries are in play")
	sh.o.Println("  scan [limit]          Print entries (default: first 20)")
	sh.o.Println("  entry <n>             Print one entry by number")
	sh.o.Println("  eval <expr>           Count entries in play passing an expression")
	sh.o.Println("  build                 Evaluate cuts without a cached list")
	sh.o.Println("  save                  Write built entry lists to the cache")
	sh.o.Println("  delete                Delete the retrieved entry lists")
	sh.o.Println("  stats                 Show read statistics")
	sh.o.Println("  help                  Show this help")
	sh.o.Println("  exit / quit / q       Exit")
}

func (sh *shell) cmdInfo() {
	sh.o.Printf("Tree:        %s\n", sh.chain.Name())
	sh.o.Printf("Files:       %d\n", len(sh.chain.Files()))
	sh.o.Printf("Entries:     %d\n", sh.chain.Entries())
	sh.o.Printf("Columns:     %s\n", strings.Join(sh.chain.Columns(), ", "))
	sh.o.Printf("In play:     %d\n", sh.chain.NumPreselected())
}

func (sh *shell) cmdFiles() {
	for i, f := range sh.chain.Files() {
		sh.o.Printf("%3d. %s\n", i+1, f)
	}
}

func (sh *shell) cmdCuts() {
	if len(sh.names) == 0 {
		sh.o.Println("(no cuts configured)")

		return
	}

	indexed := make(map[string]bool)
	for _, sel := range sh.chain.IndexedSelections() {
		indexed[sel.Name()] = true
	}

	fresh := make(map[string]bool)
	for _, sel := range sh.chain.UnindexedSelections() {
		fresh[sel.Name()] = true
	}

	for _, name := range sh.names {
		status := "not retrieved"

		switch {
		case indexed[name]:
			status = "indexed"
		case fresh[name]:
			status = "building"
		}

		sh.o.Printf("%-20s %-14s %s\n", name, status, sh.sels[name].Expr())
	}
}

func (sh *shell) cmdRetrieve(args []string) {
	names := args
	if len(names) == 0 {
		names = sh.names
	}

	if len(names) == 0 {
		sh.o.Println("No cuts configured.")

		return
	}

	sels := make([]*ichain.Selection, 0, len(names))

	for _, name := range names {
		sel, ok := sh.sels[name]
		if !ok {
			sh.o.Printf("Unknown cut: %s\n", name)

			return
		}

		sels = append(sels, sel)
	}

	if err := sh.chain.RetrieveEntryLists(sels...); err != nil {
		sh.o.Printf("Error: %v\n", err)

		return
	}

	sh.o.Printf("OK: %d cached, %d to build\n",
		len(sh.chain.IndexedSelections()), len(sh.chain.UnindexedSelections()))
}

func (sh *shell) cmdPreselect(args []string) {
	if len(args) < 1 {
		sh.o.Println("Usage: preselect <cut|none>")

		return
	}

	if args[0] == "none" {
		sh.chain.Preselect(nil)
		sh.o.Printf("%d of %d entries in play\n", sh.chain.NumPreselected(), sh.chain.Entries())

		return
	}

	sel, ok := sh.sels[args[0]]
	if !ok {
		sh.o.Printf("Unknown cut: %s\n", args[0])

		return
	}

	sh.chain.Preselect(sel)

	if sh.chain.NumPreselected() == sh.chain.Entries() {
		sh.o.Println("No entry list for that cut; retrieve it first ('retrieve', 'build', 'save').")
	}

	sh.o.Printf("%d of %d entries in play\n", sh.chain.NumPreselected(), sh.chain.Entries())
}

func (sh *shell) cmdCount() {
	sh.o.Printf("%d of %d entries in play\n", sh.chain.NumPreselected(), sh.chain.Entries())
}

func (sh *shell) cmdScan(ctx context.Context, args []string) {
	limit := int64(20)

	if len(args) >= 1 {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || n < 1 {
			sh.o.Println("Error: limit must be a positive integer")

			return
		}

		limit = n
	}

	cols := sh.chain.Columns()

	var shown int64

	sc := sh.chain.Scan()
	for sc.Next() {
		if ctx.Err() != nil {
			sh.o.Println("Interrupted.")

			return
		}

		sh.o.Printf("%6d", sc.Entry())

		for i, v := range sc.Event().Values() {
			sh.o.Printf("  %s=%g", cols[i], v)
		}

		sh.o.Println()

		shown++
		if shown >= limit {
			break
		}
	}

	if err := sc.Err(); err != nil {
		sh.o.Printf("Error: %v\n", err)

		return
	}

	if shown == 0 {
		sh.o.Println("(no entries)")

		return
	}

	if total := sh.chain.NumPreselected(); shown < total {
		sh.o.Printf("... (showing first %d of %d, use 'scan <limit>' for more)\n", shown, total)
	}
}

func (sh *shell) cmdEntry(args []string) {
	if len(args) < 1 {
		sh.o.Println("Usage: entry <n>")

		return
	}

	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		sh.o.Printf("Error parsing entry number: %v\n", err)

		return
	}

	ev, err := sh.chain.Entry(n)
	if err != nil {
		sh.o.Printf("Error: %v\n", err)

		return
	}

	for i, col := range ev.Columns() {
		sh.o.Printf("%-8s %g\n", col, ev.Values()[i])
	}
}

// cmdEval counts the entries in play passing an ad-hoc expression.
func (sh *shell) cmdEval(ctx context.Context, args []string) {
	if len(args) == 0 {
		sh.o.Println("Usage: eval <expression>")

		return
	}

	sel, err := ichain.NewSelection("adhoc", strings.Join(args, " "))
	if err != nil {
		sh.o.Printf("Error: %v\n", err)

		return
	}

	var passed, seen int64

	sc := sh.chain.Scan()
	for sc.Next() {
		if ctx.Err() != nil {
			sh.o.Println("Interrupted.")

			return
		}

		seen++

		pass, evalErr := sel.Eval(sc.Event().Vars())
		if evalErr != nil {
			sh.o.Printf("Error: %v\n", evalErr)

			return
		}

		if pass {
			passed++
		}
	}

	if err := sc.Err(); err != nil {
		sh.o.Printf("Error: %v\n", err)

		return
	}

	sh.o.Printf("%d of %d entries pass\n", passed, seen)
}

func (sh *shell) cmdBuild(ctx context.Context) {
	fresh := sh.chain.UnindexedSelections()
	if len(fresh) == 0 {
		sh.o.Println("Nothing to build (retrieve some cuts first).")

		return
	}

	// Building must see the whole chain, not a preselected slice.
	if sh.chain.NumPreselected() != sh.chain.Entries() {
		sh.chain.Preselect(nil)
		sh.o.Println("Cleared the preselection for the build pass.")
	}

	passed := make(map[string]int64, len(fresh))

	sc := sh.chain.Scan()
	for sc.Next() {
		if ctx.Err() != nil {
			sh.o.Println("Interrupted.")

			return
		}

		vars := sc.Event().Vars()

		for _, sel := range fresh {
			pass, err := sel.Eval(vars)
			if err != nil {
				sh.o.Printf("Error evaluating %s: %v\n", sel.Name(), err)

				return
			}

			if !pass {
				continue
			}

			if err := sh.chain.AddEntryToList(sel, sc.Entry()); err != nil {
				sh.o.Printf("Error: %v\n", err)

				return
			}

			passed[sel.Name()]++
		}
	}

	if err := sc.Err(); err != nil {
		sh.o.Printf("Error: %v\n", err)

		return
	}

	for _, sel := range fresh {
		sh.o.Printf("%s: %d of %d entries\n", sel.Name(), passed[sel.Name()], sh.chain.Entries())
	}

	sh.o.Println("Run 'save' to cache the built lists.")
}

func (sh *shell) cmdSave() {
	built := len(sh.chain.UnindexedSelections())
	if built == 0 {
		sh.o.Println("Nothing to save.")

		return
	}

	if err := sh.chain.SaveLists(); err != nil {
		sh.o.Printf("Error: %v\n", err)

		return
	}

	sh.o.Printf("OK: wrote %d entry lists ('retrieve' again to preselect them)\n", built)
}

func (sh *shell) cmdDelete() {
	cached := len(sh.chain.IndexedSelections())

	if err := sh.chain.DeleteEntryLists(); err != nil {
		sh.o.Printf("Error: %v\n", err)

		return
	}

	sh.o.Printf("OK: deleted %d cached entry lists\n", cached)
}

func (sh *shell) cmdStats() {
	st := sh.chain.Stats()

	sh.o.Printf("Entries read: %d\n", st.EntriesRead)
	sh.o.Printf("Lists loaded: %d\n", st.ListsLoaded)
	sh.o.Printf("Lists built:  %d\n", st.ListsBuilt)
}
