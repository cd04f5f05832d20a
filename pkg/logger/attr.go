package logger

import (
	"log/slog"
	"strconv"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Info("msg", logger.Error(err)) without explicit
// nil checks.

func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors, enabling safe usage without nil checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func AppID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("app_id", id)
}

func EndpointID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("endpoint_id", id)
}

func MessageID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("msg_id", id)
}

func OrgID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("org_id", id)
}

func DeliveryID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("delivery_id", id)
}

func AttemptCount(count int) slog.Attr {
	return slog.Int("attempt_count", count)
}

func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}
