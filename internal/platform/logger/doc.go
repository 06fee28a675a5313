// Package logger configures the process-wide slog logger (JSON or text,
// level from config) and threads request- and task-scoped loggers and
// trace IDs through context.Context.
package logger
