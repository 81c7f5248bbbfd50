// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestBuiltinBackendArgs(t *testing.T) {
	t.Parallel()

	archive := filepath.Join("in", "My Game.rar")
	dest := filepath.Join("out", "My_Game_temp")

	tests := []struct {
		name    string
		backend *CLIBackend
		binary  string
		want    []string
	}{
		{
			name:    "unrar",
			backend: NewUnrarBackend(),
			binary:  "unrar",
			want:    []string{"x", "-o-", "-y", archive, dest + string(filepath.Separator)},
		},
		{
			name:    "7z",
			backend: NewSevenZipBackend(),
			binary:  "7z",
			want:    []string{"x", "-y", "-o" + dest, archive},
		},
		{
			name:    "unzip",
			backend: NewUnzipBackend(),
			binary:  "unzip",
			want:    []string{"-q", archive, "-d", dest},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.backend.Name(); got != tt.name {
				t.Errorf("Name() = %q, want %q", got, tt.name)
			}
			if got := tt.backend.Binary(); got != tt.binary {
				t.Errorf("Binary() = %q, want %q", got, tt.binary)
			}
			if got := tt.backend.Args(archive, dest); !slices.Equal(got, tt.want) {
				t.Errorf("Args() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCLIBackend_Probe(t *testing.T) {
	t.Parallel()

	t.Run("missing from PATH", func(t *testing.T) {
		t.Parallel()

		recorder := newMockCommandRecorder()
		b := NewSevenZipBackend(WithLookPath(missingFromPath), WithExecCommand(recorder.commandFunc(t)))

		err := b.Probe(context.Background())
		if !errors.Is(err, exec.ErrNotFound) {
			t.Fatalf("Probe() error = %v, want exec.ErrNotFound", err)
		}
		if recorder.count() != 0 {
			t.Errorf("probe ran the tool %d times, want 0", recorder.count())
		}
	})

	t.Run("probe command succeeds", func(t *testing.T) {
		t.Parallel()

		recorder := newMockCommandRecorder()
		b := NewSevenZipBackend(WithLookPath(foundInPath), WithExecCommand(recorder.commandFunc(t)))

		if err := b.Probe(context.Background()); err != nil {
			t.Fatalf("Probe() error = %v", err)
		}
		inv := recorder.lastInvocation()
		if inv == nil || inv.Name != "7z" || !slices.Equal(inv.Args, []string{"i"}) {
			t.Errorf("probe invocation = %+v, want 7z [i]", inv)
		}
	})

	t.Run("probe command fails", func(t *testing.T) {
		t.Parallel()

		recorder := newMockCommandRecorder()
		recorder.exitCode = 1
		b := NewUnzipBackend(WithLookPath(foundInPath), WithExecCommand(recorder.commandFunc(t)))

		if err := b.Probe(context.Background()); err == nil {
			t.Fatal("Probe() error = nil, want failure")
		}
	})

	t.Run("probe times out", func(t *testing.T) {
		t.Parallel()

		recorder := newMockCommandRecorder()
		recorder.mode = "hang"
		b := NewUnzipBackend(WithLookPath(foundInPath), WithExecCommand(recorder.commandFunc(t)))

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err := b.Probe(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Probe() error = %v, want deadline exceeded", err)
		}
	})
}

func TestCLIBackend_Extract(t *testing.T) {
	t.Parallel()

	t.Run("success writes into destination", func(t *testing.T) {
		t.Parallel()

		dest := t.TempDir()
		recorder := newMockCommandRecorder()
		recorder.mode = "write"
		recorder.stdout = "Archive: game.zip"
		b := NewUnzipBackend(WithExecCommand(recorder.commandFunc(t)))

		if err := b.Extract(context.Background(), "game.zip", dest); err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dest, "payload.bin")); err != nil {
			t.Errorf("payload not written: %v", err)
		}
	})

	t.Run("non-zero exit is a backend error with output", func(t *testing.T) {
		t.Parallel()

		recorder := newMockCommandRecorder()
		recorder.exitCode = 3
		recorder.stderr = "line1\nline2\nCRC failed in game.rar"
		b := NewUnrarBackend(WithExecCommand(recorder.commandFunc(t)))

		err := b.Extract(context.Background(), "game.rar", t.TempDir())
		var be *BackendError
		if !errors.As(err, &be) {
			t.Fatalf("Extract() error = %v, want *BackendError", err)
		}
		if be.Backend != NameUnrar {
			t.Errorf("Backend = %q, want %q", be.Backend, NameUnrar)
		}
		if be.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", be.ExitCode)
		}
		if !strings.Contains(be.Output, "CRC failed") {
			t.Errorf("Output = %q, want stderr tail", be.Output)
		}
		if !strings.Contains(be.Error(), "exit status 3") {
			t.Errorf("Error() = %q, want exit status", be.Error())
		}
	})

	t.Run("cancellation kills the tool", func(t *testing.T) {
		t.Parallel()

		recorder := newMockCommandRecorder()
		recorder.mode = "hang"
		b := NewSevenZipBackend(WithExecCommand(recorder.commandFunc(t)))

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := b.Extract(ctx, "game.7z", t.TempDir())
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Extract() error = %v, want deadline exceeded", err)
		}
		var be *BackendError
		if errors.As(err, &be) && be.ExitCode != -1 {
			t.Errorf("ExitCode = %d, want -1", be.ExitCode)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("Extract() took %s after cancellation", elapsed)
		}
	})
}

func TestNewTemplateBackend(t *testing.T) {
	t.Parallel()

	b, err := NewTemplateBackend("bsdtar", `bsdtar -xf "$ARCHIVE" -C "$DEST"`, "bsdtar --version")
	if err != nil {
		t.Fatalf("NewTemplateBackend() error = %v", err)
	}
	if b.Name() != "bsdtar" || b.Binary() != "bsdtar" {
		t.Errorf("Name/Binary = %q/%q, want bsdtar/bsdtar", b.Name(), b.Binary())
	}

	archive := filepath.Join("in dir", "Some Game.zip")
	dest := filepath.Join("out dir", "Some_Game_temp")
	want := []string{"-xf", archive, "-C", dest}
	if got := b.Args(archive, dest); !slices.Equal(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}

	recorder := newMockCommandRecorder()
	b, err = NewTemplateBackend("bsdtar", `bsdtar -xf "$ARCHIVE" -C "$DEST"`, "bsdtar --version",
		WithLookPath(foundInPath), WithExecCommand(recorder.commandFunc(t)))
	if err != nil {
		t.Fatalf("NewTemplateBackend() error = %v", err)
	}
	if err := b.Probe(context.Background()); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if inv := recorder.lastInvocation(); inv == nil || !slices.Equal(inv.Args, []string{"--version"}) {
		t.Errorf("probe invocation = %+v, want [--version]", inv)
	}
}

func TestNewTemplateBackend_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bname   string
		command string
		probe   string
	}{
		{name: "empty name", bname: " ", command: `tool "$ARCHIVE" "$DEST"`},
		{name: "empty command", bname: "tool", command: ""},
		{name: "missing DEST", bname: "tool", command: `tool x "$ARCHIVE"`},
		{name: "missing ARCHIVE", bname: "tool", command: `tool x -o "$DEST"`},
		{name: "unterminated quote", bname: "tool", command: `tool "$ARCHIVE "$DEST"`},
		{name: "probe runs another binary", bname: "tool", command: `tool "$ARCHIVE" "$DEST"`, probe: "other --help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewTemplateBackend(tt.bname, tt.command, tt.probe); err == nil {
				t.Error("NewTemplateBackend() error = nil, want error")
			}
		})
	}
}

func TestTail(t *testing.T) {
	t.Parallel()

	if got := tail("  \n "); got != "" {
		t.Errorf("tail(blank) = %q, want empty", got)
	}
	got := tail("1\n2\n3\n4\n5\n6\n7")
	if got != "3 | 4 | 5 | 6 | 7" {
		t.Errorf("tail() = %q", got)
	}
	long := strings.Repeat("x", 2*outputTailBytes)
	if got := tail(long); len(got) != outputTailBytes+3 || !strings.HasPrefix(got, "...") {
		t.Errorf("tail(long) length = %d, want %d", len(got), outputTailBytes+3)
	}
}
