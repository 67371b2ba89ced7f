package fixture

import (
	"path/filepath"
	"strings"
)

// IsLegacyPath reports whether path names a legacy text fixture.
func IsLegacyPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// Load reads a fixture in whichever format its extension names: .txt is the
// legacy format, anything else is a structured document.
func Load(path string, opts ParseOptions) (*Fixture, error) {
	if IsLegacyPath(path) {
		return ParseLegacyFile(path, opts)
	}
	return DecodeFile(path, opts)
}
