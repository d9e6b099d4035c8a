package cli

import "errors"

// Errors surfaced by the CLI layer.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrTreeEmpty          = errors.New("tree cannot be empty")
	ErrCacheDirEmpty      = errors.New("cache-dir cannot be empty")
	ErrBadDigest          = errors.New("digest must be xxhash or blake3")
	ErrFlagRequiresArg    = errors.New("flag requires an argument")
	ErrUnknownFlag        = errors.New("unknown flag")
	ErrNoInputFiles       = errors.New("no input files (pass file arguments or set \"files\" in config)")
	ErrNoCuts             = errors.New("no cuts defined in config")
	ErrUnknownCut         = errors.New("cut not defined in config")
	ErrEntriesPositive    = errors.New("entries must be positive")
	ErrFileRequired       = errors.New("output file path is required")
)
