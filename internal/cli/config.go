package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tailscale/hujson"

	"ichain"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Tree     string            `json:"tree"`
	CacheDir string            `json:"cache_dir"`
	Digest   string            `json:"digest,omitempty"`
	LogFile  string            `json:"log_file,omitempty"`
	Files    []string          `json:"files,omitempty"`
	Cuts     map[string]string `json:"cuts,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string   `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	CacheDirAbs  string   `json:"-"` // Absolute path to the entry-list cache directory
	LogFileAbs   string   `json:"-"` // Absolute log file path, empty when logging is off
	FilesAbs     []string `json:"-"` // Absolute default input files

	// Sources tracks which config files were loaded (for diagnostics)
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Tree:     "nominal",
		CacheDir: ichain.DefaultCacheDir,
		Digest:   ichain.DigestXXHash,
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = ".ichain.json"

// getGlobalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/ichain/config.json if set, otherwise
// ~/.config/ichain/config.json. Returns empty string if the home
// directory cannot be determined.
func getGlobalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "ichain", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "ichain", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride  string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath       string            // -c/--config flag value
	TreeOverride     string            // --tree flag value; empty means no override
	CacheDirOverride string            // --cache-dir flag value; empty means no override
	LogFileOverride  string            // --log-file flag value; empty means no override
	DigestOverride   string            // --digest flag value; empty means no override
	Env              map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/ichain/config.json or $XDG_CONFIG_HOME/ichain/config.json)
// 3. Project config file at default location (.ichain.json, if exists)
// 4. Explicit config file via configPath (if non-empty)
// 5. CLI overrides.
//
// Cuts and files are taken wholesale from the highest layer that sets
// them; layers do not merge entries. All paths in the returned Config
// are resolved to absolute paths.
func LoadConfig(input LoadConfigInput) (Config, error) {
	// Resolve effective working directory
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	// Load global config if it exists
	globalCfg, globalPath, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	// Load project/explicit config file
	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	// Apply CLI overrides
	if input.TreeOverride != "" {
		cfg.Tree = input.TreeOverride
	}

	if input.CacheDirOverride != "" {
		cfg.CacheDir = input.CacheDirOverride
	}

	if input.LogFileOverride != "" {
		cfg.LogFile = input.LogFileOverride
	}

	if input.DigestOverride != "" {
		cfg.Digest = input.DigestOverride
	}

	// Validate
	validateErr := validateConfig(cfg)
	if validateErr != nil {
		return Config{}, validateErr
	}

	// Resolve all paths to absolute
	cfg.EffectiveCwd = workDir
	cfg.CacheDirAbs = absPath(workDir, cfg.CacheDir)

	if cfg.LogFile != "" {
		cfg.LogFileAbs = absPath(workDir, cfg.LogFile)
	}

	cfg.FilesAbs = make([]string, len(cfg.Files))
	for i, f := range cfg.Files {
		cfg.FilesAbs[i] = absPath(workDir, f)
	}

	return cfg, nil
}

func absPath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// loadGlobalConfig loads the global user config file if it exists.
// Returns the config, the path if loaded, and any error.
func loadGlobalConfig(env map[string]string) (Config, string, error) {
	globalCfgPath := getGlobalConfigPath(env)
	if globalCfgPath == "" {
		return Config{}, "", nil
	}

	globalCfg, explicitEmpty, loaded, err := loadConfigFile(globalCfgPath, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if err := checkExplicitEmpty(explicitEmpty, globalCfgPath); err != nil {
		return Config{}, "", err
	}

	return globalCfg, globalCfgPath, nil
}

// loadProjectConfig loads the project config file (.ichain.json) or an
// explicit config file. Returns the config, the path if loaded, and any
// error.
func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		// Explicit config file - must exist
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		// Check existence first to provide a clear "not found" error
		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		// Default project config file - optional
		cfgFile = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	fileCfg, explicitEmpty, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if err := checkExplicitEmpty(explicitEmpty, cfgFile); err != nil {
		return Config{}, "", err
	}

	return fileCfg, cfgFile, nil
}

func checkExplicitEmpty(explicitEmpty map[string]bool, path string) error {
	if explicitEmpty["tree"] {
		return fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrTreeEmpty)
	}

	if explicitEmpty["cache_dir"] {
		return fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrCacheDirEmpty)
	}

	return nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files return zero config.
// Returns the config, a map of explicitly empty fields, whether file was loaded, and any error.
func loadConfigFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, nil, false, nil
	}

	cfg, explicitEmpty, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, explicitEmpty, true, nil
}

func parseConfig(data []byte) (Config, map[string]bool, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	// Check which fields were explicitly set to empty
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	for _, field := range []string{"tree", "cache_dir"} {
		if val, exists := raw[field]; exists {
			if str, ok := val.(string); ok && str == "" {
				explicitEmpty[field] = true
			}
		}
	}

	return cfg, explicitEmpty, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Tree != "" {
		base.Tree = overlay.Tree
	}

	if overlay.CacheDir != "" {
		base.CacheDir = overlay.CacheDir
	}

	if overlay.Digest != "" {
		base.Digest = overlay.Digest
	}

	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}

	if len(overlay.Files) > 0 {
		base.Files = overlay.Files
	}

	if len(overlay.Cuts) > 0 {
		base.Cuts = overlay.Cuts
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.Tree == "" {
		return ErrTreeEmpty
	}

	if cfg.CacheDir == "" {
		return ErrCacheDirEmpty
	}

	if cfg.Digest != ichain.DigestXXHash && cfg.Digest != ichain.DigestBlake3 {
		return fmt.Errorf("%w: %q", ErrBadDigest, cfg.Digest)
	}

	return nil
}

// cutNames returns the configured cut names in sorted order.
func (c Config) cutNames() []string {
	names := make([]string, 0, len(c.Cuts))
	for name := range c.Cuts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
