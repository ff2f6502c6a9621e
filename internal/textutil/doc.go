// Package textutil provides small text helpers shared by the CLI and the
// export code: clock formatting for timestamps and filename sanitization.
package textutil
