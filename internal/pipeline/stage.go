// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

const (
	// StagePending is the state of an item that has not been started.
	StagePending Stage = "pending"
	// StageSanitizing derives the output name.
	StageSanitizing Stage = "sanitizing"
	// StageExtracting unpacks the archive into a scratch directory.
	StageExtracting Stage = "extracting"
	// StageLocating finds the innermost file in the scratch tree.
	StageLocating Stage = "locating"
	// StageRelocating moves the located file to the output directory.
	StageRelocating Stage = "relocating"
	// StageMarkerWriting writes the sidecar marker file.
	StageMarkerWriting Stage = "marker-writing"
	// StageCleaningUp removes the scratch directory.
	StageCleaningUp Stage = "cleaning-up"
	// StageDone is the terminal success state.
	StageDone Stage = "done"
)

var (
	// ErrInvalidStage is the sentinel error wrapped by InvalidStageError.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrSanitization means the archive name produced no usable output name.
	ErrSanitization = errors.New("sanitization failed")
	// ErrNameCollision means an earlier archive in the batch already maps to
	// the same output name.
	ErrNameCollision = errors.New("output name already claimed")
	// ErrExtraction means every backend failed for the archive.
	ErrExtraction = errors.New("extraction failed")
	// ErrLocate means the extracted tree contained no regular file.
	ErrLocate = errors.New("no file found in extracted tree")
	// ErrRelocation means both move and copy of the artifact failed.
	ErrRelocation = errors.New("relocation failed")
	// ErrMarkerWrite means the marker file could not be written. Non-fatal.
	ErrMarkerWrite = errors.New("marker write failed")
	// ErrCleanup means the scratch directory could not be removed. Non-fatal.
	ErrCleanup = errors.New("cleanup failed")
)

type (
	// Stage is one state of the per-item state machine.
	Stage string

	// InvalidStageError is returned when a Stage value is not recognized.
	InvalidStageError struct {
		Value Stage
	}

	// StageError records where and why an item stopped.
	StageError struct {
		Stage   Stage
		Archive string
		Err     error
	}
)

// Stages returns every stage in transition order.
func Stages() []Stage {
	return []Stage{
		StagePending,
		StageSanitizing,
		StageExtracting,
		StageLocating,
		StageRelocating,
		StageMarkerWriting,
		StageCleaningUp,
		StageDone,
	}
}

// String returns the string representation of the Stage.
func (s Stage) String() string { return string(s) }

// IsValid returns whether the Stage is one of the defined stages,
// and a list of validation errors if it is not.
func (s Stage) IsValid() (bool, []error) {
	for _, known := range Stages() {
		if s == known {
			return true, nil
		}
	}
	return false, []error{&InvalidStageError{Value: s}}
}

// Fatal reports whether a failure at this stage fails the item.
// Marker and cleanup failures are reported as warnings instead.
func (s Stage) Fatal() bool {
	switch s {
	case StageSanitizing, StageExtracting, StageLocating, StageRelocating:
		return true
	default:
		return false
	}
}

// Error implements the error interface.
func (e *InvalidStageError) Error() string {
	return fmt.Sprintf("invalid stage %q", e.Value)
}

// Unwrap returns ErrInvalidStage for errors.Is() compatibility.
func (e *InvalidStageError) Unwrap() error { return ErrInvalidStage }

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Archive, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }
