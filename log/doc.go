// Package log provides the leveled logging interface used across
// ragpipe.
//
// Two implementations ship with the package: DefaultLogger on the
// standard library's log package, and GologLogger wrapping an existing
// github.com/kataras/golog logger. NoOpLogger silences a component.
//
//	logger := log.NewGologLogger(golog.New())
//	logger.SetLevel(log.LogLevelDebug)
//	logger.Info("indexed %d chunks", n)
//
// Pipeline packages log through Component("name"), which tags lines
// with the component and follows the package-level default
// (SetDefaultLogger/GetDefaultLogger) even when it is swapped later.
// ParseLevel turns a config string like "warn" into a LogLevel.
package log
