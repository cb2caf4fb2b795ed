// Package logger provides structured logging for busdi using zerolog.
//
// Adapters and the bootstrap package log registration, build and scope
// events at debug level through component-tagged loggers ("di",
// "di.dig", "di.do", "di.vessel", "bootstrap"). The global logger is quiet
// at debug level unless configured otherwise. Register a logger under one
// of those names to redirect that component.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("bootstrap")
//	log.Debug("Bus registered", logger.Fields("services", 12))
package logger
