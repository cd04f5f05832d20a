package pg

import (
	"context"
	"fmt"
)

// logger is the minimal structured logging surface this package needs.
// *slog.Logger satisfies it.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

func sprintf(format string, v ...any) string {
	return fmt.Sprintf(format, v...)
}
