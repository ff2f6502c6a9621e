// Package processing applies a set of cuts to an audio file through the media
// engine.
//
// A Processor runs one operation at a time. Each run plans keep segments,
// builds the filter graph, stages the input in the engine, executes it under
// a timeout, and copies the result to its destination. Cancellation is
// cooperative: Cancel sets a flag that the run observes at its next
// checkpoint. Working files are always removed, and cleanup failures are
// logged rather than returned.
package processing
