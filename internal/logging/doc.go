// Package logging builds the slog loggers used by the hris binaries.
//
// Text format writes one colorized line per record for terminals; json
// format hands off to slog.NewJSONHandler for log shippers.
package logging
