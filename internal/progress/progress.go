// SPDX-License-Identifier: MPL-2.0

package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"

	"github.com/xblaunpack/xblaunpack/internal/pipeline"
)

const barWidth = 30

type (
	// Bar renders a terminal progress bar advancing one step per item.
	Bar struct {
		bar *progressbar.ProgressBar
	}

	// Log writes one structured log line per finished item and keeps a
	// running tally.
	Log struct {
		logger *log.Logger
		total  int

		mu       sync.Mutex
		finished int
		failed   int
	}

	// Multi fans notifications out to several observers in order.
	Multi []pipeline.Observer
)

// NewBar creates a progress bar for total items writing to w.
func NewBar(w io.Writer, total int) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetWidth(barWidth),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// OnStage describes the current item and stage.
func (b *Bar) OnStage(item pipeline.Item, stage pipeline.Stage) {
	b.bar.Describe(fmt.Sprintf("%-12s %s", stage, item.Name))
}

// OnResult advances the bar.
func (b *Bar) OnResult(pipeline.Result) {
	_ = b.bar.Add(1)
}

// Finish completes and clears the bar.
func (b *Bar) Finish() error {
	return b.bar.Finish()
}

// NewLog creates a log observer for a batch of total items.
func NewLog(logger *log.Logger, total int) *Log {
	return &Log{logger: logger, total: total}
}

// OnStage logs the transition at debug level.
func (l *Log) OnStage(item pipeline.Item, stage pipeline.Stage) {
	l.logger.Debug("stage", "archive", item.Name, "stage", stage)
}

// OnResult logs the item outcome: errors at error level, warnings at warn
// level, and successes at info level.
func (l *Log) OnResult(res pipeline.Result) {
	l.mu.Lock()
	l.finished++
	if !res.OK() {
		l.failed++
	}
	pos := fmt.Sprintf("%d/%d", l.finished, l.total)
	l.mu.Unlock()

	switch {
	case res.Err != nil:
		kv := []any{"item", pos, "archive", res.Item.Name, "stage", res.Stage, "error", res.Err}
		if res.ScratchDir != "" {
			kv = append(kv, "scratch", res.ScratchDir)
		}
		l.logger.Error("failed", kv...)
	case res.Skipped:
		l.logger.Info("already unpacked", "item", pos, "archive", res.Item.Name, "artifact", res.Artifact)
	default:
		for _, w := range res.Warnings {
			l.logger.Warn("warning", "item", pos, "archive", res.Item.Name, "error", w)
		}
		l.logger.Info("unpacked", "item", pos, "archive", res.Item.Name, "artifact", res.Artifact,
			"backend", res.Backend, "elapsed", res.Elapsed.Round(time.Millisecond))
	}
}

// Tally returns the number of finished and failed items so far.
func (l *Log) Tally() (finished, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finished, l.failed
}

// OnStage forwards to every observer.
func (m Multi) OnStage(item pipeline.Item, stage pipeline.Stage) {
	for _, o := range m {
		o.OnStage(item, stage)
	}
}

// OnResult forwards to every observer.
func (m Multi) OnResult(res pipeline.Result) {
	for _, o := range m {
		o.OnResult(res)
	}
}
