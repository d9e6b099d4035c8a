package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"ichain"
	"ichain/pkg/logger"
)

// session carries the resolved configuration and shared services into
// the command constructors.
type session struct {
	cfg Config
	log logger.Logger
	in  io.Reader
}

// openChain opens the chain for one command invocation. File arguments
// win over the config's default set; a single "-" reads the file list
// from stdin. Relative paths are resolved against the effective
// working directory.
func (s *session) openChain(files []string) (*ichain.Chain, error) {
	if len(files) == 1 && files[0] == "-" {
		list, err := readFileList(s.in)
		if err != nil {
			return nil, err
		}

		if len(list) == 0 {
			return nil, ErrNoInputFiles
		}

		files = list
	}

	if len(files) == 0 {
		files = s.cfg.FilesAbs
	}

	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}

	c, err := ichain.New(s.cfg.Tree, ichain.Options{
		CacheDir: s.cfg.CacheDirAbs,
		Digest:   s.cfg.Digest,
		Logger:   s.log,
	})
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := c.Add(absPath(s.cfg.EffectiveCwd, f)); err != nil {
			_ = c.Close()

			return nil, err
		}
	}

	return c, nil
}

// readFileList reads one file path per line, skipping blank lines and
// lines starting with '#'.
func readFileList(r io.Reader) ([]string, error) {
	if r == nil {
		return nil, ErrNoInputFiles
	}

	var files []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		files = append(files, line)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading file list: %w", err)
	}

	return files, nil
}

// selections builds a Selection for each named cut, or for every
// configured cut when names is empty.
func (s *session) selections(names []string) ([]*ichain.Selection, error) {
	if len(names) == 0 {
		names = s.cfg.cutNames()
	}

	if len(names) == 0 {
		return nil, ErrNoCuts
	}

	sels := make([]*ichain.Selection, 0, len(names))

	for _, name := range names {
		expr, ok := s.cfg.Cuts[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCut, name)
		}

		sel, err := ichain.NewSelection(name, expr)
		if err != nil {
			return nil, err
		}

		sels = append(sels, sel)
	}

	return sels, nil
}
