// Package engine wraps the external media engine that executes processing
// plans.
//
// Engine is the collaborator contract: a private working area that files are
// written into and read back from, plus an Exec call that runs one engine
// invocation and streams its log lines to registered listeners. FFmpeg
// implements it with a per-run workspace directory guarded by a file lock.
package engine
