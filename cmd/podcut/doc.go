// Package main hosts the podcut CLI entrypoint and command graph.
//
// The Cobra command tree covers planning and applying cuts, exporting cut
// lists, the interactive edit session, transcription, cache maintenance and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
