// Package paths resolves the locale cache, configuration and data directory
// locations. Environment variables are read here, once, at the process
// boundary; the resolved paths are then injected into the components that
// need them.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ReverseDomainID names the per-user cache the CSL processor keeps its
// locale files in. It is shared with the processor so a locale cache filled
// by one is visible to the other.
const (
	ReverseDomainID = "net.cormacrelf.citeproc-rs"
	cacheQualifier  = "cormacrelf"
	cacheAppName    = "citeproc-rs"
	localesDirName  = "locales"
)

// CWD-relative and per-user directory names for citefix itself.
const (
	AppName              = "citefix"
	DefaultConfigDirName = ".citefix"
	DefaultDataDirName   = ".citefix-db"
)

// Environment variable names for directory overrides.
const (
	EnvLocaleDir = "CITEFIX_LOCALE_DIR"
	EnvConfigDir = "CITEFIX_CONFIG_DIR"
	EnvDataDir   = "CITEFIX_DATA_DIR"
)

// ErrNoHome is returned when the user's home directory cannot be determined.
var ErrNoHome = errors.New("no home directory found")

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	goos         string
	homeDir      func() (string, error)
	userCacheDir func() (string, error)
	getenv       func(string) string
}{
	goos:         runtime.GOOS,
	homeDir:      os.UserHomeDir,
	userCacheDir: os.UserCacheDir,
	getenv:       os.Getenv,
}

func home() (string, error) {
	h, err := platformDir.homeDir()
	if err != nil || h == "" {
		return "", fmt.Errorf("%w: %v", ErrNoHome, err)
	}
	return h, nil
}

// DefaultCacheDir returns the processor's per-user cache root.
//
// macOS:   ~/Library/Caches/net.cormacrelf.citeproc-rs
// Linux:   $XDG_CACHE_HOME/citeproc-rs (fallback ~/.cache/citeproc-rs)
// Windows: %LOCALAPPDATA%/cormacrelf/citeproc-rs/cache
func DefaultCacheDir() (string, error) {
	switch platformDir.goos {
	case "darwin":
		h, err := home()
		if err != nil {
			return "", err
		}
		return filepath.Join(h, "Library", "Caches", ReverseDomainID), nil
	case "windows":
		dir, err := platformDir.userCacheDir()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoHome, err)
		}
		return filepath.Join(dir, cacheQualifier, cacheAppName, "cache"), nil
	default:
		if xdg := platformDir.getenv("XDG_CACHE_HOME"); filepath.IsAbs(xdg) {
			return filepath.Join(xdg, cacheAppName), nil
		}
		h, err := home()
		if err != nil {
			return "", err
		}
		return filepath.Join(h, ".cache", cacheAppName), nil
	}
}

// DefaultLocaleDir returns the locales directory beneath DefaultCacheDir.
func DefaultLocaleDir() (string, error) {
	root, err := DefaultCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, localesDirName), nil
}

// ResolveLocaleDir returns the locale directory following the precedence
// chain: flag > config value > CITEFIX_LOCALE_DIR env > DefaultLocaleDir().
func ResolveLocaleDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := platformDir.getenv(EnvLocaleDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultLocaleDir()
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > CITEFIX_CONFIG_DIR env > $(CWD)/.citefix.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := platformDir.getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return filepath.Abs(DefaultConfigDirName)
}

// ResolveDataDir returns the run-history directory following the precedence
// chain: flag > config value > CITEFIX_DATA_DIR env > $(CWD)/.citefix-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := platformDir.getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return filepath.Abs(DefaultDataDirName)
}
