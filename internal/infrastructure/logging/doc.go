// Package logging provides structured logging for the back-office core.
//
// It wraps log/slog to give every component consistent, structured
// output with default service and version fields, level filtering, and
// a choice of JSON (production) or text (development) format.
//
// Never log secrets: passwords, credential hashes, raw tokens, and
// cookie values must not appear in any log entry.
package logging
