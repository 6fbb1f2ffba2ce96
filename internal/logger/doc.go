// Package logger provides a simple, thread-safe logging facility.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, optional tag, and message.
// Pool workers tag their lines with "worker-N", jobs with their ID.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "pool started")
//	logger.Debug("worker-3", "picked up job %s", id)
//	logger.Error("worker-3", "job panicked: %v", r)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("worker-0", "idle")
//
// Levels can be parsed from configuration with ParseLevel.
//
// # Thread Safety
//
// All logging operations are protected by a mutex and safe for concurrent use.
package logger
