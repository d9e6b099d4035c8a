package cli_test

import (
	"strings"
	"testing"

	"ichain/internal/cli"
)

const e2eConfig = `{
	"files": ["a.ntup", "b.ntup"],
	"cuts": {
		"signal": "pt > 25 && eta < 1.0",
		"low": "pt < 5"
	}
}`

func TestChainWorkflow(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.WriteConfig(e2eConfig)

	// Generate deterministic inputs.
	stdout := h.MustRun("gen", "-n", "500", "a.ntup", "b.ntup")
	cli.AssertContains(t, stdout, "a.ntup: 500 entries")
	cli.AssertContains(t, stdout, "b.ntup: 500 entries")

	// First index pass builds both lists from scratch.
	stdout = h.MustRun("index")
	cli.AssertContains(t, stdout, "signal:")
	cli.AssertContains(t, stdout, "low:")
	cli.AssertContains(t, stdout, "of 1000 entries")

	files := h.CacheFiles()
	if got, want := len(files), 2; got != want {
		t.Fatalf("cached lists=%d, want=%d (%v)", got, want, files)
	}

	for _, f := range files {
		if !strings.HasSuffix(f, ".elist") {
			t.Errorf("cache file %q should end in .elist", f)
		}
	}

	// Second pass finds everything cached.
	stdout = h.MustRun("index")
	cli.AssertContains(t, stdout, "signal: cached")
	cli.AssertContains(t, stdout, "low: cached")

	// ls reports the chain and both lists as indexed.
	stdout = h.MustRun("ls")
	cli.AssertContains(t, stdout, "tree:    nominal")
	cli.AssertContains(t, stdout, "files:   2 (1000 entries)")
	cli.AssertContains(t, stdout, "columns: pt, eta, phi")
	cli.AssertContains(t, stdout, "signal")
	cli.AssertContains(t, stdout, "indexed")
	cli.AssertNotContains(t, stdout, "missing")

	// A preselected scan visits only the cached list, silently.
	stdoutRaw, stderr, exitCode := h.Run("scan", "--cut", "signal", "-q")
	if got, want := exitCode, 0; got != want {
		t.Fatalf("exitCode=%d, want=%d; stderr=%s", got, want, stderr)
	}

	if got, want := stderr, ""; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdoutRaw, "of 1000 entries")

	// rm deletes both lists.
	stdout = h.MustRun("rm")
	cli.AssertContains(t, stdout, "deleted 2 of 2 entry lists")

	if got, want := len(h.CacheFiles()), 0; got != want {
		t.Errorf("cached lists=%d, want=%d", got, want)
	}
}

func TestScanWithoutIndexWarns(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.WriteConfig(`{"cuts": {"signal": "pt > 25"}}`)
	h.MustRun("gen", "-n", "50", "data.ntup")

	// The missing list falls back to a full scan, flagged as a warning.
	stdout, stderr, exitCode := h.Run("scan", "--cut", "signal", "-q", "data.ntup")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stderr, "warning:")
	cli.AssertContains(t, stderr, "no cached entry list")
	cli.AssertContains(t, stdout, "scanned 50 of 50 entries")
}

func TestScanLimitAndStats(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.MustRun("gen", "-n", "100", "data.ntup")

	stdout := h.MustRun("scan", "-q", "--limit", "3", "--stats", "data.ntup")
	cli.AssertContains(t, stdout, "scanned 3 of 100 entries")
	cli.AssertContains(t, stdout, "entries read: 3")
}

func TestScanPrintsColumns(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.MustRun("gen", "-n", "5", "data.ntup")

	stdout := h.MustRun("scan", "data.ntup")
	cli.AssertContains(t, stdout, "pt=")
	cli.AssertContains(t, stdout, "eta=")
	cli.AssertContains(t, stdout, "phi=")
	cli.AssertContains(t, stdout, "scanned 5 of 5 entries")
}

func TestGenValidation(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)

	stderr := h.MustFail("gen")
	cli.AssertContains(t, stderr, "output file path is required")

	stderr = h.MustFail("gen", "-n", "0", "data.ntup")
	cli.AssertContains(t, stderr, "entries must be positive")
}

func TestGenIsDeterministic(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.MustRun("gen", "-n", "20", "-s", "42", "one.ntup")
	h.MustRun("gen", "-n", "20", "-s", "42", "two.ntup")

	first := h.MustRun("scan", "one.ntup")
	second := h.MustRun("scan", "two.ntup")

	if first != second {
		t.Errorf("same seed should produce identical files\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestIndexCutValidation(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.MustRun("gen", "-n", "10", "data.ntup")

	stderr := h.MustFail("index", "data.ntup")
	cli.AssertContains(t, stderr, "no cuts defined in config")

	h.WriteConfig(`{"cuts": {"signal": "pt > 25"}}`)

	stderr = h.MustFail("index", "--cut", "nope", "data.ntup")
	cli.AssertContains(t, stderr, "cut not defined in config")
	cli.AssertContains(t, stderr, "nope")
}

func TestNoInputFiles(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)

	stderr := h.MustFail("ls")
	cli.AssertContains(t, stderr, "no input files")
}

func TestFileListFromStdin(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.MustRun("gen", "-n", "25", "a.ntup", "b.ntup")

	stdout, stderr, exitCode := h.RunWithInput("# inputs\na.ntup\nb.ntup\n", "ls", "-")

	if got, want := exitCode, 0; got != want {
		t.Fatalf("exitCode=%d, want=%d; stderr=%s", got, want, stderr)
	}

	cli.AssertContains(t, stdout, "files:   2 (50 entries)")
}

func TestLsShowsMissingLists(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.WriteConfig(`{"cuts": {"signal": "pt > 25"}}`)
	h.MustRun("gen", "-n", "10", "data.ntup")

	stdout := h.MustRun("ls", "data.ntup")
	cli.AssertContains(t, stdout, "signal")
	cli.AssertContains(t, stdout, "missing")
}

func TestRmWithNothingCached(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.WriteConfig(`{"cuts": {"signal": "pt > 25"}}`)
	h.MustRun("gen", "-n", "10", "data.ntup")

	stdout := h.MustRun("rm", "data.ntup")
	cli.AssertContains(t, stdout, "deleted 0 of 1 entry lists")
}

func TestIndexForceRebuilds(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.WriteConfig(`{"files": ["data.ntup"], "cuts": {"signal": "pt > 25"}}`)
	h.MustRun("gen", "-n", "200", "data.ntup")

	h.MustRun("index")

	before := h.CacheFiles()

	// Without --force the cached list is reused.
	stdout := h.MustRun("index")
	cli.AssertContains(t, stdout, "signal: cached")

	// With --force the list is rebuilt from scratch.
	stdout = h.MustRun("index", "--force")
	cli.AssertContains(t, stdout, "of 200 entries")
	cli.AssertNotContains(t, stdout, "cached")

	after := h.CacheFiles()
	if got, want := len(after), len(before); got != want {
		t.Errorf("cached lists=%d, want=%d", got, want)
	}
}

func TestChainAcrossTreeMismatch(t *testing.T) {
	t.Parallel()

	h := cli.NewCLI(t)
	h.MustRun("gen", "-n", "10", "a.ntup")
	h.MustRun("--tree", "systematics", "gen", "-n", "10", "b.ntup")

	stderr := h.MustFail("ls", "a.ntup", "b.ntup")
	cli.AssertContains(t, stderr, "does not match chain")
}
