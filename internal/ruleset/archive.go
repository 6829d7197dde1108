package ruleset

import (
	"path/filepath"

	"github.com/outfitforge/bundleengine/internal/compression"
)

// ExtractBundle extracts a rule-set pack distributed as a .tar.xz archive
// (the same format the teacher distributes plugin archives in, adapted by
// internal/compression's ExtractAllTarXz since a rule-set pack is a
// directory tree rather than one plugin binary) into destDir. A rule-set
// pack is a directory tree: a ruleset.yaml at its root plus any number of
// auxiliary template/weight fragment files it references. Returns the paths
// written, relative to destDir.
func ExtractBundle(data []byte, destDir string) ([]string, error) {
	return compression.ExtractAllTarXz(data, destDir)
}

// LoadBundle extracts a tar.xz rule-set pack into destDir and loads its
// root ruleset.yaml.
func LoadBundle(data []byte, destDir string) (RuleSet, error) {
	if _, err := ExtractBundle(data, destDir); err != nil {
		return RuleSet{}, err
	}
	return LoadFile(filepath.Join(destDir, "ruleset.yaml"))
}
