// Package ffprobe runs ffprobe against audio files and exposes the fields
// podcut needs from its JSON output: the container duration that drives cut
// planning, and the audio stream layout shown by the CLI.
package ffprobe
