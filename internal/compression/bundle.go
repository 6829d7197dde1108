// Package compression extracts rule-set packs distributed as tar.xz
// archives.
package compression

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/outfitforge/bundleengine/internal/security"
	"github.com/ulikunitz/xz"
)

// maxBundleMemberSize bounds any single extracted file, guarding against
// decompression-bomb archives.
const maxBundleMemberSize = 64 * 1024 * 1024

// ExtractAllTarXz extracts every regular file from a tar.xz archive into
// destDir: a rule-set pack is a directory tree (a root ruleset.yaml plus any
// number of fragment files it references), so every member is written out
// rather than hunting a single target file. Returns the paths written,
// relative to destDir.
func ExtractAllTarXz(data []byte, destDir string) ([]string, error) {
	xzr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compression: create xz reader: %w", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("compression: create destination dir: %w", err)
	}

	tr := tar.NewReader(xzr)
	var written []string

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("compression: read tar archive: %w", err)
		}
		if header.Typeflag == tar.TypeDir {
			continue
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		if err := security.ValidateFilePath(header.Name, destDir); err != nil {
			return nil, fmt.Errorf("compression: archive member %q: %w", header.Name, err)
		}

		destPath := filepath.Join(destDir, header.Name)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return nil, fmt.Errorf("compression: create member directory: %w", err)
		}

		out, err := os.Create(destPath) // #nosec G304 - destPath validated against destDir above
		if err != nil {
			return nil, fmt.Errorf("compression: create %s: %w", destPath, err)
		}

		limited := security.NewLimitedReader(tr, maxBundleMemberSize)
		_, copyErr := io.Copy(out, limited)
		closeErr := out.Close()
		if copyErr != nil {
			return nil, fmt.Errorf("compression: extract %s: %w", header.Name, copyErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("compression: close %s: %w", destPath, closeErr)
		}

		written = append(written, header.Name)
	}

	if len(written) == 0 {
		return nil, fmt.Errorf("compression: archive contained no regular files")
	}
	return written, nil
}
