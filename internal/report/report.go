// SPDX-License-Identifier: MPL-2.0

// Package report serializes a batch summary as a TOML document.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/xblaunpack/xblaunpack/internal/pipeline"
)

type (
	// Report is the TOML document written after a batch.
	Report struct {
		Generated time.Time `toml:"generated"`
		InputDir  string    `toml:"input_dir"`
		OutputDir string    `toml:"output_dir"`
		Format    string    `toml:"format"`
		Backends  []string  `toml:"backends" comment:"Usable backends in rank order"`
		Total     int       `toml:"total"`
		Succeeded int       `toml:"succeeded"`
		Failed    int       `toml:"failed"`
		Skipped   int       `toml:"skipped"`
		Pending   int       `toml:"pending,omitempty"`
		Cancelled bool      `toml:"cancelled"`
		Items     []Item    `toml:"item"`
	}

	// Item is one archive's entry in the report.
	Item struct {
		Archive  string    `toml:"archive"`
		Name     string    `toml:"name,omitempty"`
		Stage    string    `toml:"stage"`
		Backend  string    `toml:"backend,omitempty"`
		Artifact string    `toml:"artifact,omitempty"`
		Marker   string    `toml:"marker,omitempty"`
		Scratch  string    `toml:"scratch,omitempty"`
		Error    string    `toml:"error,omitempty"`
		Warnings []string  `toml:"warnings,omitempty"`
		Skipped  bool      `toml:"skipped,omitempty"`
		Elapsed  string    `toml:"elapsed"`
		Attempts []Attempt `toml:"attempt,omitempty"`
	}

	// Attempt is one backend invocation.
	Attempt struct {
		Backend string `toml:"backend"`
		Error   string `toml:"error,omitempty"`
		Elapsed string `toml:"elapsed"`
	}

	// Meta carries the batch context that the summary itself lacks.
	Meta struct {
		InputDir  string
		OutputDir string
		Format    string
		Backends  []string
	}
)

// New builds a Report from a batch summary.
func New(sum pipeline.Summary, meta Meta, now time.Time) Report {
	r := Report{
		Generated: now.UTC().Truncate(time.Second),
		InputDir:  meta.InputDir,
		OutputDir: meta.OutputDir,
		Format:    meta.Format,
		Backends:  meta.Backends,
		Total:     len(sum.Results) + sum.Pending,
		Pending:   sum.Pending,
		Cancelled: sum.Cancelled,
	}

	for _, res := range sum.Results {
		switch {
		case !res.OK():
			r.Failed++
		case res.Skipped:
			r.Skipped++
		default:
			r.Succeeded++
		}
		r.Items = append(r.Items, newItem(res))
	}
	return r
}

func newItem(res pipeline.Result) Item {
	it := Item{
		Archive: res.Item.Name,
		Name:    res.Name,
		Stage:   res.Stage.String(),
		Backend: res.Backend,
		Scratch: res.ScratchDir,
		Skipped: res.Skipped,
		Elapsed: res.Elapsed.Round(time.Millisecond).String(),
	}
	if res.OK() {
		it.Artifact = res.Artifact
		it.Marker = res.MarkerPath
	}
	if res.Err != nil {
		it.Error = res.Err.Error()
	}
	for _, w := range res.Warnings {
		it.Warnings = append(it.Warnings, w.Error())
	}
	for _, a := range res.Attempts {
		at := Attempt{Backend: a.Backend, Elapsed: a.Elapsed.Round(time.Millisecond).String()}
		if a.Err != nil {
			at.Error = a.Err.Error()
		}
		it.Attempts = append(it.Attempts, at)
	}
	return it
}

// Encode writes r to w as TOML.
func (r Report) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteFile writes r to path as TOML.
func (r Report) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close report: %w", closeErr)
		}
	}()
	return r.Encode(f)
}
