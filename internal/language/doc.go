// Package language normalizes the language labels reported by transcription
// services into ISO codes and display names.
package language
