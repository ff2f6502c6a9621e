// Package preflight provides readiness checks for the filesystem paths,
// binaries and remote service podcut depends on.
//
// These checks run in two contexts:
//   - The apply and transcribe commands call RunAll before starting work so a
//     missing directory or binary fails fast with a clear message.
//   - The CLI "podcut status" command renders every check, including the
//     transcription API reachability probe.
package preflight
