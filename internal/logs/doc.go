// Package logs reads the podcut log file for `podcut logs`.
//
// Last returns the final N lines with bounded memory, ReadFrom continues
// from a byte offset, and Follow polls for appended lines until its context
// ends. A truncated or rotated file restarts from the beginning.
package logs
