// Package logger builds the process-wide *slog.Logger that ormtour echoes
// statements to, either on the console or in a rotated log file.
package logger
