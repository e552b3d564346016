// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"context"
	"fmt"
)

// RecordingMode selects when a recording scope emits its record.
type RecordingMode int

const (
	// ModeExplicit emits a record only when the build script calls
	// Scope.Write itself. Close is then a no-op.
	ModeExplicit RecordingMode = iota

	// ModeOnClose emits the record from Scope.Close if no explicit
	// Write (and no Skip) happened inside the scope. This is the
	// structured replacement for recording "automatically at process
	// exit": acquisition and finalization are explicit in the build
	// script's control flow, not hidden behind a process-wide flag.
	ModeOnClose
)

// Scope is a recording scope held for the duration of one artifact
// build. Acquire with BeginRecording at the start of the build, Close
// on the way out (success or failure); the scope — not any global
// state — decides whether a record still needs to be emitted.
type Scope struct {
	writer   *Writer
	mode     RecordingMode
	spec     RecordSpec
	recorded bool
	skipped  bool
}

// BeginRecording opens a recording scope for one artifact build.
func BeginRecording(w *Writer, mode RecordingMode, spec RecordSpec) *Scope {
	return &Scope{writer: w, mode: mode, spec: spec}
}

// Write emits the record now, regardless of mode, and marks the scope
// so Close will not emit a second one.
func (s *Scope) Write(ctx context.Context) (*BuildRecord, error) {
	record, err := s.writer.Write(ctx, s.spec)
	if err != nil {
		return nil, err
	}
	s.recorded = true
	return record, nil
}

// Skip suppresses the pending record. Call when the build failed and
// no outputs exist worth recording.
func (s *Scope) Skip() {
	s.skipped = true
}

// Close finalizes the scope. In ModeOnClose, a record is emitted if
// one was neither written nor skipped inside the scope; in
// ModeExplicit, Close never writes. Close is idempotent.
func (s *Scope) Close(ctx context.Context) error {
	if s.mode != ModeOnClose || s.recorded || s.skipped {
		return nil
	}
	if _, err := s.writer.Write(ctx, s.spec); err != nil {
		return fmt.Errorf("recording scope for %q: %w", s.spec.Artifact, err)
	}
	s.recorded = true
	return nil
}
