// Package version exposes build metadata for the sensor.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// Short and Full render them for the CLI and the start-up log line.
package version
