// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs the per-archive unpack state machine.
//
// Each archive moves through Sanitizing, Extracting, Locating, Relocating,
// MarkerWriting and CleaningUp to Done, or stops at the first fatal stage.
// Items are processed one at a time and a failing item never stops the batch.
// Source archives are never modified or deleted here.
package pipeline
