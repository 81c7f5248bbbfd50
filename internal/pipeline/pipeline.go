// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/xblaunpack/xblaunpack/internal/extract"
	"github.com/xblaunpack/xblaunpack/internal/locate"
	"github.com/xblaunpack/xblaunpack/internal/sanitize"
)

// DefaultMarkerSuffix is appended to the artifact path to name its marker.
const DefaultMarkerSuffix = ".xbox360"

type (
	// Extractor unpacks one archive into a destination directory.
	// *extract.Extractor satisfies it.
	Extractor interface {
		Extract(ctx context.Context, archivePath, destDir string) extract.Outcome
	}

	// Observer is notified as items move through the state machine.
	// Calls happen on the pipeline's goroutine, one item at a time.
	Observer interface {
		// OnStage is called on entering each non-terminal stage.
		OnStage(item Item, stage Stage)
		// OnResult is called once per item with its terminal result.
		OnResult(res Result)
	}

	// Result is the terminal state of one item.
	Result struct {
		Item Item
		// Name is the sanitized output name, empty if sanitization failed.
		Name string
		// Stage is StageDone on success, otherwise the stage that failed.
		Stage Stage
		// Err is a *StageError when the item failed, nil otherwise.
		Err error
		// Artifact is the final payload path.
		Artifact string
		// MarkerPath is the marker file path.
		MarkerPath string
		// Backend names the backend that extracted the archive.
		Backend string
		// Attempts lists every extraction attempt.
		Attempts []extract.Attempt
		// Warnings holds non-fatal marker and cleanup failures.
		Warnings []error
		// ScratchDir is the retained scratch directory after a failure.
		ScratchDir string
		// Skipped is set when the output already existed and was kept.
		Skipped bool
		// Elapsed is the wall time spent on the item.
		Elapsed time.Duration
	}

	// Summary is the outcome of a whole batch.
	Summary struct {
		Results []Result
		// Cancelled is set when the batch stopped before every item ran.
		Cancelled bool
		// Pending counts the items never started because of cancellation.
		Pending int
	}

	// Pipeline processes archives into an output directory.
	Pipeline struct {
		outputDir string
		extractor Extractor
		opts      options
	}

	// Option configures a Pipeline.
	Option func(*options)

	options struct {
		logger       *log.Logger
		observer     Observer
		format       sanitize.Format
		markerSuffix string
		overwrite    bool
		cleanup      func(ctx context.Context, dir string) error
	}

	nopObserver struct{}
)

func (nopObserver) OnStage(Item, Stage) {}
func (nopObserver) OnResult(Result) {}

// WithLogger sets the logger for per-item diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver sets the state transition observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithFormat sets the naming format.
func WithFormat(f sanitize.Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithMarkerSuffix sets the marker file suffix.
func WithMarkerSuffix(suffix string) Option {
	return func(o *options) {
		if suffix != "" {
			o.markerSuffix = suffix
		}
	}
}

// WithOverwrite makes the pipeline reprocess items whose artifact and
// marker already exist instead of skipping them.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) {
		o.overwrite = overwrite
	}
}

// New creates a Pipeline writing into outputDir, which must exist.
func New(outputDir string, ex Extractor, opts ...Option) *Pipeline {
	o := options{
		logger:       log.New(io.Discard),
		observer:     nopObserver{},
		format:       sanitize.FormatUnderscore,
		markerSuffix: DefaultMarkerSuffix,
		cleanup:      Cleanup,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{outputDir: outputDir, extractor: ex, opts: o}
}

// OK reports whether the item reached Done.
func (r Result) OK() bool {
	return r.Stage == StageDone && r.Err == nil
}

// Succeeded returns the results that reached Done.
func (s Summary) Succeeded() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the results that stopped at a fatal stage.
func (s Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Plan returns the artifact and marker paths an archive name maps to
// without touching the filesystem.
func (p *Pipeline) Plan(item Item) (name, artifact, marker string, err error) {
	name, err = sanitize.Name(item.Name, p.opts.format)
	if err != nil {
		return "", "", "", err
	}
	artifact = filepath.Join(p.outputDir, name)
	return name, artifact, artifact + p.opts.markerSuffix, nil
}

// Run processes items in order. Cancellation is checked between items; an
// item already in flight runs to its terminal state. An item whose output
// name was already claimed by an earlier item fails at StageSanitizing with
// ErrNameCollision, before anything is extracted or written.
func (p *Pipeline) Run(ctx context.Context, items []Item) Summary {
	var sum Summary
	claims := NewClaims()
	for i, item := range items {
		if ctx.Err() != nil {
			sum.Cancelled = true
			sum.Pending = len(items) - i
			p.opts.logger.Debug("batch cancelled", "remaining", sum.Pending)
			break
		}
		sum.Results = append(sum.Results, p.run(ctx, item, claims))
	}
	return sum
}

// Process runs one item through the state machine. It never panics on item
// errors and never returns an error: failures are carried in the Result.
func (p *Pipeline) Process(ctx context.Context, item Item) Result {
	return p.run(ctx, item, nil)
}

func (p *Pipeline) run(ctx context.Context, item Item, claims *Claims) Result {
	start := time.Now()
	res := Result{Item: item, Stage: StagePending}
	res = p.process(ctx, res, claims)
	res.Elapsed = time.Since(start)

	p.opts.logger.Debug("item finished", "archive", item.Name, "stage", res.Stage, "elapsed", res.Elapsed)
	p.opts.observer.OnResult(res)
	return res
}

func (p *Pipeline) process(ctx context.Context, res Result, claims *Claims) Result {
	item := res.Item
	// record stores a failure at stage: fatal ones end the item, the rest
	// become warnings.
	record := func(stage Stage, sentinel, cause error) {
		err := &StageError{Stage: stage, Archive: item.Name, Err: fmt.Errorf("%w: %w", sentinel, cause)}
		if !stage.Fatal() {
			res.Warnings = append(res.Warnings, err)
			return
		}
		res.Stage = stage
		res.Err = err
	}
	fail := func(stage Stage, sentinel, cause error) Result {
		record(stage, sentinel, cause)
		return res
	}

	p.enter(&res, StageSanitizing)
	name, artifact, marker, err := p.Plan(item)
	if err != nil {
		return fail(StageSanitizing, ErrSanitization, err)
	}
	if claims != nil {
		if err := claims.Claim(item.Name, filepath.Base(artifact), filepath.Base(marker)); err != nil {
			return fail(StageSanitizing, ErrSanitization, err)
		}
	}
	res.Name, res.Artifact, res.MarkerPath = name, artifact, marker

	if !p.opts.overwrite && exists(artifact) && exists(marker) {
		p.opts.logger.Debug("already unpacked, skipping", "archive", item.Name, "artifact", artifact)
		res.Stage = StageDone
		res.Skipped = true
		return res
	}

	p.enter(&res, StageExtracting)
	scratch := filepath.Join(p.outputDir, name+"_temp-"+uuid.NewString()[:8])
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fail(StageExtracting, ErrExtraction, err)
	}
	res.ScratchDir = scratch
	p.opts.logger.Debug("extracting", "archive", item.Name, "dest", scratch)

	outcome := p.extractor.Extract(ctx, item.Path, scratch)
	res.Attempts = outcome.Attempts
	if !outcome.Succeeded() {
		return fail(StageExtracting, ErrExtraction, outcome.Err())
	}
	res.Backend = outcome.Backend

	p.enter(&res, StageLocating)
	found, ok, err := locate.Innermost(scratch)
	if err != nil {
		return fail(StageLocating, ErrLocate, err)
	}
	if !ok {
		return fail(StageLocating, ErrLocate, fmt.Errorf("%s is empty", scratch))
	}

	p.enter(&res, StageRelocating)
	if err := Relocate(found, artifact); err != nil {
		return fail(StageRelocating, ErrRelocation, err)
	}

	// The artifact exists now, so the marker can never be orphaned.
	p.enter(&res, StageMarkerWriting)
	if err := WriteMarker(marker, name); err != nil {
		record(StageMarkerWriting, ErrMarkerWrite, err)
		res.MarkerPath = ""
	}

	p.enter(&res, StageCleaningUp)
	if err := p.opts.cleanup(context.WithoutCancel(ctx), scratch); err != nil {
		record(StageCleaningUp, ErrCleanup, err)
	} else {
		res.ScratchDir = ""
	}

	res.Stage = StageDone
	return res
}

func (p *Pipeline) enter(res *Result, stage Stage) {
	res.Stage = stage
	p.opts.observer.OnStage(res.Item, stage)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
