// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xblaunpack/xblaunpack/internal/sanitize"
)

// Item is one archive queued for processing.
type Item struct {
	// Path is the archive's absolute path.
	Path string
	// Name is the archive's file name as found on disk.
	Name string
}

// Claims records which archive owns each output file name during one batch.
// Names are compared case-insensitively since the output directory may live
// on a case-insensitive filesystem.
type Claims struct {
	owners map[string]string
}

// NewClaims creates an empty claim set.
func NewClaims() *Claims {
	return &Claims{owners: make(map[string]string)}
}

// Claim records names as produced by archive. Nothing is recorded when any of
// them already belongs to another archive; the error then wraps
// ErrNameCollision and names the owner.
func (c *Claims) Claim(archive string, names ...string) error {
	for _, name := range names {
		if owner, ok := c.owners[strings.ToLower(name)]; ok && owner != archive {
			return fmt.Errorf("%w: %q is produced by %s", ErrNameCollision, name, owner)
		}
	}
	for _, name := range names {
		c.owners[strings.ToLower(name)] = archive
	}
	return nil
}

// NewItem creates an Item from an archive path.
func NewItem(path string) Item {
	return Item{Path: path, Name: filepath.Base(path)}
}

// Enumerate lists the regular files directly inside inputDir whose names end
// in a supported archive extension, sorted by name. Subdirectories are not
// searched.
func Enumerate(inputDir string) ([]Item, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}

	// os.ReadDir returns entries sorted by file name.
	var items []Item
	for _, e := range entries {
		if !e.Type().IsRegular() || !sanitize.IsArchive(e.Name()) {
			continue
		}
		items = append(items, NewItem(filepath.Join(inputDir, e.Name())))
	}
	return items, nil
}
