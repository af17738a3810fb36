/*
Package log provides structured logging for Orbit using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

Orbit's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("scheduler")               │          │
	│  │  - WithNodeID("node-abc123")                │          │
	│  │  - WithBusinessID("business-xyz")           │          │
	│  │  - WithComponentID("component-def456")      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "scheduler",                │          │
	│  │    "time": "2026-07-31T10:30:00Z",          │          │
	│  │    "message": "component scheduled"          │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2026-07-31T10:30:00Z INF component scheduled component=scheduler │ │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all Orbit packages (manager and agent alike)
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add subsystem name ("scheduler", "liveness", "agent") to all logs
  - WithNodeID: Add node ID context
  - WithBusinessID: Add business ID context
  - WithComponentID: Add component-instance ID context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "scanning node set: count=4"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "business deployed: web (3 components)"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "node heartbeat missed, marking offline"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "failed to deploy component: image pull failed"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "failed to open store: %v"

# Usage

Initializing the Logger:

	import "github.com/cuemby/orbit/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/orbit.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("manager started")
	log.Debug("checking node status")
	log.Warn("high memory usage detected")
	log.Error("failed to reach agent")
	log.Fatal("cannot start without store") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("business_id", "business-123").
		Int("component_count", 3).
		Msg("business deployed")

	log.Logger.Error().
		Err(err).
		Str("node_id", "node-abc").
		Msg("node health check failed")

Component Loggers:

	// Create subsystem-specific logger
	schedulerLog := log.WithComponent("scheduler")
	schedulerLog.Info().Msg("starting scheduling pass")
	schedulerLog.Debug().Str("component_id", "component-123").Msg("placing component")

	// Multiple context fields
	deployLog := log.WithComponent("business").
		With().Str("node_id", "node-abc").
		Str("business_id", "business-123").Logger()
	deployLog.Info().Msg("deploying business")
	deployLog.Error().Err(err).Msg("deploy failed")

Context Logger Helpers:

	// Node-specific logs
	nodeLog := log.WithNodeID("node-abc123")
	nodeLog.Info().Msg("node registered")

	// Business-specific logs
	bizLog := log.WithBusinessID("business-xyz789")
	bizLog.Info().Msg("business status changed")

	// Component-specific logs
	compLog := log.WithComponentID("component-def456")
	compLog.Info().Msg("component started")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/cuemby/orbit/pkg/log"
	)

	func main() {
		// Initialize logger
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("manager starting")

		// Subsystem-specific logging
		schedulerLog := log.WithComponent("scheduler")
		schedulerLog.Info().
			Str("node_id", "node-1").
			Int("component_count", 5).
			Msg("scheduling components")

		// Error logging
		err := errors.New("connection refused")
		log.Logger.Error().
			Err(err).
			Str("component", "agentclient").
			Msg("failed to reach agent")

		log.Info("manager stopped")
	}

# Integration Points

This package integrates with:

  - pkg/business: Logs business lifecycle decisions
  - pkg/scheduler: Logs placement decisions
  - pkg/liveness: Logs node/slot liveness transitions
  - pkg/agent: Logs telemetry collection and command handling
  - pkg/api: Logs API requests and errors

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"business","time":"2026-07-31T10:30:00Z","message":"business deployed"}
	{"level":"info","component":"scheduler","component_id":"component-123","time":"2026-07-31T10:30:01Z","message":"component scheduled"}
	{"level":"error","component":"agent","node_id":"node-abc","error":"image not found","time":"2026-07-31T10:30:02Z","message":"failed to start component"}

Console Format (Development):

	2026-07-31T10:30:00Z INF business deployed component=business
	2026-07-31T10:30:01Z INF component scheduled component=scheduler component_id=component-123
	2026-07-31T10:30:02Z ERR failed to start component component=agent node_id=node-abc error="image not found"

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Provides cause information alongside the message
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Performance Characteristics

Logging Overhead:
  - Disabled level: 0ns (compile-time optimization)
  - JSON encode: ~500ns per log line
  - Console format: ~1µs per log line
  - String field: +50ns per field
  - Int field: +30ns per field

Memory Allocation:
  - Zero allocation for disabled levels
  - ~100 bytes per log line (JSON)
  - ~200 bytes per log line (console)
  - Amortized by buffer pooling

Log Level Impact:
  - Debug: High volume, use in development only
  - Info: Moderate volume, suitable for production
  - Warn/Error: Low volume, minimal impact
  - Recommendation: Info level in production

# Troubleshooting

Common Issues:

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger in main() before any logging

Excessive Log Volume:
  - Symptom: Disk space fills quickly
  - Cause: Debug level in production
  - Check: Log level configuration
  - Solution: Use Info level in production, rotate logs

Missing Context Fields:
  - Symptom: Logs missing component or ID fields
  - Cause: Using global Logger instead of context logger
  - Solution: Use WithComponent() or create child loggers

Log Parsing Fails:
  - Symptom: Cannot parse JSON logs
  - Cause: Invalid JSON in message field
  - Check: Embedded quotes or control characters
  - Solution: Use .Str() instead of string interpolation

# Log Rotation

File-Based Logging:

Orbit doesn't include built-in log rotation. Use external tools:

Logrotate (Linux):

	# /etc/logrotate.d/orbit
	/var/log/orbit/*.log {
	    daily
	    rotate 7
	    compress
	    delaycompress
	    missingok
	    notifempty
	    copytruncate
	}

Systemd Journal:

	# Automatic rotation by systemd
	journalctl -u orbit-manager -f

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create subsystem-specific loggers
  - Log errors with .Err() for cause information
  - Include context (node ID, business ID, component ID)

Don't:
  - Log sensitive data (secrets, tokens)
  - Use Debug level in production
  - Log in tight loops (use sampling)
  - Concatenate strings (use .Str, .Int)
  - Block on log writes (use buffered output)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
*/
package log
