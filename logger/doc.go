// Package logger provides structured logging on top of zerolog.
//
// A single global logger is configured once at startup with Init; packages
// obtain component-scoped loggers with WithComponent. When a log file
// is configured every event is also written, as JSON, to that file.
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "console"
//	file = "streambot.log"
//
// # Usage
//
//	log := logger.WithComponent("chat")
//	log.Info("joined channel", logger.Fields("channel", name))
package logger
