// SPDX-License-Identifier: MPL-2.0

// Package locate finds the payload file inside an extracted archive tree.
//
// Extracted game archives bury a single package file under an arbitrary
// nesting of folders. The payload is taken to be the regular file at the
// greatest directory depth below the extraction root.
package locate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Innermost walks the tree rooted at root and returns the regular file with
// the strictly greatest depth, where depth is the number of path separators
// between root and the file (0 for files directly inside root).
//
// Among files at equal maximum depth the first one visited wins. The walk
// visits entries in lexical order, so the choice is stable across platforms.
//
// ok is false when the tree contains no regular files; that is a data
// condition, not an error. err is non-nil only when the tree cannot be read.
func Innermost(root string) (path string, ok bool, err error) {
	return InnermostFS(os.DirFS(root), root)
}

// InnermostFS is Innermost over an fs.FS. The returned path is joined onto
// prefix using the host separator.
func InnermostFS(fsys fs.FS, prefix string) (path string, ok bool, err error) {
	best := ""
	maxDepth := -1

	walkErr := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		// fs.FS paths always use forward slashes.
		if depth := strings.Count(p, "/"); depth > maxDepth {
			maxDepth = depth
			best = p
		}
		return nil
	})
	if walkErr != nil {
		return "", false, fmt.Errorf("walk %s: %w", prefix, walkErr)
	}
	if maxDepth < 0 {
		return "", false, nil
	}

	return filepath.Join(prefix, filepath.FromSlash(best)), true, nil
}
