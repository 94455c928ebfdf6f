package logger

import "nadfolio/internal/app/port"

// slogAdapter implements port.Logger on top of the package-level functions,
// so services log through whatever Init configured.
type slogAdapter struct {
	attrs []any
}

// NewSlogAdapter returns a port.Logger backed by the global slog logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// With returns an adapter that adds attrs to every record.
func (a *slogAdapter) With(attrs ...any) port.Logger {
	return &slogAdapter{attrs: append(append([]any(nil), a.attrs...), attrs...)}
}

func (a *slogAdapter) args(args []any) []any {
	if len(a.attrs) == 0 {
		return args
	}
	return append(append([]any(nil), a.attrs...), args...)
}

func (a *slogAdapter) Info(msg string, args ...any)  { Info(msg, a.args(args)...) }
func (a *slogAdapter) Debug(msg string, args ...any) { Debug(msg, a.args(args)...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { Warn(msg, a.args(args)...) }
func (a *slogAdapter) Error(msg string, args ...any) { Error(msg, a.args(args)...) }
