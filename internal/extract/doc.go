// SPDX-License-Identifier: MPL-2.0

// Package extract unpacks archives by delegating to external tools and a
// general-purpose library, choosing among them at runtime.
//
// A Backend is one way to unpack an archive: an external command-line tool
// (unrar, 7z, unzip, or a user-defined command template) or the built-in
// multi-format library. The Resolver probes candidate backends once per run
// and keeps those that respond within the probe timeout, in rank order. The
// Extractor then tries the ranked backends for each archive until one
// succeeds, bounding every attempt with a timeout.
//
// A failing backend is never fatal on its own: its error is logged and
// recorded in the Outcome, and the next backend is tried. Only an empty
// backend list is a configuration error (ErrNoBackend).
package extract
