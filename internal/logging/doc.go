// Package logging configures slog for addrmatch.
//
// Interactive commands log human-readable text to stderr at warn level.
// With --debug, JSON logs are also written to ~/.addrmatch/logs/addrmatch.log
// through a size-rotating writer. The MCP server logs to the file only,
// since stdout carries the protocol stream.
package logging
