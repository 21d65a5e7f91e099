// Package logger wraps zap for the sentinel binaries.
//
// It keeps one global sugared logger with a console encoder and an atomic
// level, stores scoped loggers in a context.Context (ToContext, FromContext,
// WithName, WithKV) and offers level helpers (Infof, WarnKV, ...) that read
// the logger from the context they are given.
package logger
