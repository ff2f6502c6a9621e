// Package services defines shared utilities consumed by the editing,
// processing, and transcription packages and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp operation IDs, component names, and chunk
//     positions for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure classes
//     (validation, planning, engine, cancellation, transcription) visible to
//     errors.Is after context has been added.
//
// Use these helpers when wiring new integrations so operational behaviour
// (error handling, observability) stays uniform across the tool.
package services
