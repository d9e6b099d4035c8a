package ichain

import (
	"fmt"

	"ichain/pkg/logger"
)

// Digest algorithms for deriving entry-list cache file names.
const (
	// DigestXXHash is the default: fast, 16 hex characters.
	DigestXXHash = "xxhash"

	// DigestBlake3 gives long collision-proof names for cache
	// directories shared between many datasets.
	DigestBlake3 = "blake3"
)

// DefaultCacheDir is where entry lists are cached unless overridden.
const DefaultCacheDir = ".ichain-cache"

// Options configures a Chain. The zero value is usable.
type Options struct {
	// CacheDir is the directory holding cached entry-list files. It is
	// created on first use. Defaults to DefaultCacheDir.
	CacheDir string

	// Digest selects the algorithm hashing (selection, file set) into a
	// cache file name: DigestXXHash or DigestBlake3.
	Digest string

	// Logger receives the bookkeeping trail. Defaults to the no-op
	// logger.
	Logger logger.Logger
}

// withDefaults fills in zero fields and validates the digest choice.
func (o Options) withDefaults() (Options, error) {
	if o.CacheDir == "" {
		o.CacheDir = DefaultCacheDir
	}

	if o.Digest == "" {
		o.Digest = DigestXXHash
	}

	if o.Digest != DigestXXHash && o.Digest != DigestBlake3 {
		return Options{}, fmt.Errorf("%w: %q", ErrUnknownDigest, o.Digest)
	}

	if o.Logger == nil {
		o.Logger = logger.NopLogger
	}

	return o, nil
}
