package retrieve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocaleFileName returns the cache file name for a canonical tag.
func LocaleFileName(tag string) string {
	return "locales-" + tag + ".xml"
}

// LocaleDir reads locale files from a cache directory. The directory is
// resolved by the caller; LocaleDir never consults the environment.
type LocaleDir struct {
	root string
}

// NewLocaleDir returns a LocaleDir rooted at root.
func NewLocaleDir(root string) *LocaleDir {
	return &LocaleDir{root: root}
}

// Root returns the directory locale files are read from.
func (d *LocaleDir) Root() string { return d.root }

// Path returns the file a tag resolves to.
func (d *LocaleDir) Path(tag string) (string, error) {
	canon, err := CanonicalTag(tag)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, LocaleFileName(canon)), nil
}

// RetrieveLocale implements LocaleSource. A missing file is reported as
// ErrLocaleNotFound with the path attempted.
func (d *LocaleDir) RetrieveLocale(tag string) (string, error) {
	path, err := d.Path(tag)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrLocaleNotFound, err)
		}
		return "", &LocaleError{Tag: tag, Path: path, Err: err}
	}
	return string(data), nil
}
