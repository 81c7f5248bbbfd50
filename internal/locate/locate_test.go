// SPDX-License-Identifier: MPL-2.0

package locate

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/xblaunpack/xblaunpack/internal/testutil"
)

func TestInnermost(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.BuildTree(t, root, map[string]string{
		"readme.txt":                  "depth 0",
		"a/info.nfo":                  "depth 1",
		"b/cover.jpg":                 "depth 1",
		"a/x/y/5841128F0A40FD79C1D5E": "depth 3",
	})

	got, ok, err := Innermost(root)
	if err != nil {
		t.Fatalf("Innermost() returned error: %v", err)
	}
	if !ok {
		t.Fatal("Innermost() reported not found")
	}

	want := filepath.Join(root, "a", "x", "y", "5841128F0A40FD79C1D5E")
	if got != want {
		t.Errorf("Innermost() = %q, want %q", got, want)
	}
}

func TestInnermost_EmptyTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(root, "only", "dirs", "here"), 0o755)

	got, ok, err := Innermost(root)
	if err != nil {
		t.Fatalf("Innermost() returned error: %v", err)
	}
	if ok {
		t.Errorf("Innermost() = %q, want not found", got)
	}
}

func TestInnermost_MissingRoot(t *testing.T) {
	t.Parallel()

	_, ok, err := Innermost(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if ok {
		t.Error("ok must be false when an error is returned")
	}
}

func TestInnermost_SkipsSymlinks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.BuildTree(t, root, map[string]string{
		"payload": "data",
	})
	testutil.MustMkdirAll(t, filepath.Join(root, "deep", "deeper"), 0o755)
	if err := os.Symlink(filepath.Join(root, "payload"), filepath.Join(root, "deep", "deeper", "link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	got, ok, err := Innermost(root)
	if err != nil || !ok {
		t.Fatalf("Innermost() = %q, %v, %v", got, ok, err)
	}
	if want := filepath.Join(root, "payload"); got != want {
		t.Errorf("Innermost() = %q, want %q", got, want)
	}
}

func TestInnermostFS_TieBreak(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"b/z/second": {Data: []byte("2")},
		"a/y/first":  {Data: []byte("1")},
		"c/top":      {Data: []byte("0")},
	}

	got, ok, err := InnermostFS(fsys, "root")
	if err != nil || !ok {
		t.Fatalf("InnermostFS() = %q, %v, %v", got, ok, err)
	}
	if want := filepath.Join("root", "a", "y", "first"); got != want {
		t.Errorf("InnermostFS() = %q, want %q (lexically first at max depth)", got, want)
	}
}

func TestInnermostFS_RootFileOnly(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"single": {Data: []byte("x")}}

	got, ok, err := InnermostFS(fsys, "out")
	if err != nil || !ok {
		t.Fatalf("InnermostFS() = %q, %v, %v", got, ok, err)
	}
	if want := filepath.Join("out", "single"); got != want {
		t.Errorf("InnermostFS() = %q, want %q", got, want)
	}
}
