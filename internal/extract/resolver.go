// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/xblaunpack/xblaunpack/internal/platform"
)

type (
	// ProbeResult records one candidate's availability check.
	ProbeResult struct {
		Name    string
		Backend Backend
		Err     error
		Elapsed time.Duration
	}

	// Resolver probes candidate backends and ranks the usable ones.
	Resolver struct {
		opts options
	}

	// CandidateOptions selects and orders the candidate backends.
	CandidateOptions struct {
		// GOOS selects the platform-specific native tools.
		GOOS string
		// Custom backends rank after native tools and before the library.
		Custom []Backend
		// Order, when non-empty, is the exact ranking by backend name.
		Order []string
		// Disable removes backends by name.
		Disable []string
		// CLIOptions are applied to every built-in CLI backend.
		CLIOptions []CLIOption
	}
)

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	return &Resolver{opts: newOptions(opts)}
}

// NativeBackends returns the built-in CLI backends for goos in preference
// order: the RAR tool, then 7-Zip, then unzip (not on Windows).
func NativeBackends(goos string, opts ...CLIOption) []Backend {
	backends := []Backend{
		NewUnrarBackend(opts...),
		NewSevenZipBackend(opts...),
	}
	if goos != platform.Windows {
		backends = append(backends, NewUnzipBackend(opts...))
	}
	return backends
}

// Candidates assembles the ranked candidate list: native tools, custom
// backends, then the library fallback. Order replaces the ranking and Disable
// removes entries; both reject unknown names.
func Candidates(co CandidateOptions) ([]Backend, error) {
	all := NativeBackends(co.GOOS, co.CLIOptions...)
	all = append(all, co.Custom...)
	all = append(all, NewLibraryBackend())

	byName := make(map[string]Backend, len(all))
	for _, b := range all {
		if _, dup := byName[b.Name()]; dup {
			return nil, fmt.Errorf("duplicate backend name %q", b.Name())
		}
		byName[b.Name()] = b
	}

	for _, name := range co.Disable {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("cannot disable unknown backend %q", name)
		}
	}

	ranked := all
	if len(co.Order) > 0 {
		ranked = make([]Backend, 0, len(co.Order))
		for _, name := range co.Order {
			b, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("unknown backend %q in order", name)
			}
			if slices.Contains(ranked, b) {
				return nil, fmt.Errorf("backend %q listed twice in order", name)
			}
			ranked = append(ranked, b)
		}
	}

	return slices.DeleteFunc(slices.Clone(ranked), func(b Backend) bool {
		return slices.Contains(co.Disable, b.Name())
	}), nil
}

// Probe checks every candidate in order, each bounded by the probe timeout.
// A failing probe is recorded, never returned.
func (r *Resolver) Probe(ctx context.Context, candidates []Backend) []ProbeResult {
	results := make([]ProbeResult, 0, len(candidates))
	for _, b := range candidates {
		probeCtx, cancel := context.WithTimeout(ctx, r.opts.probeTimeout)
		start := time.Now()
		err := b.Probe(probeCtx)
		cancel()

		res := ProbeResult{Name: b.Name(), Backend: b, Err: err, Elapsed: time.Since(start)}
		if err != nil {
			r.opts.logger.Debug("backend unavailable", "backend", res.Name, "error", err)
		} else {
			r.opts.logger.Debug("backend available", "backend", res.Name, "elapsed", res.Elapsed)
		}
		results = append(results, res)
	}
	return results
}

// Resolve returns the candidates whose probe succeeded, preserving rank.
// When none succeeded it returns a *ConfigurationError wrapping ErrNoBackend.
func (r *Resolver) Resolve(ctx context.Context, candidates []Backend) ([]Backend, error) {
	results := r.Probe(ctx, candidates)

	var usable []Backend
	for _, res := range results {
		if res.Err == nil {
			usable = append(usable, res.Backend)
		}
	}
	if len(usable) == 0 {
		return nil, &ConfigurationError{Probes: results}
	}
	return usable, nil
}
