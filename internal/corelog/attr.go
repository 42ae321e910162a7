package corelog

import (
	"log/slog"
	"time"
)

// Error, SessionID and ClientID follow the empty-Attr pattern: a nil error
// or empty id yields slog.Attr{}, which slog silently drops, so callers
// never need nil checks. The other helpers always produce an attribute.

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component creates an attribute for a component name.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event creates an attribute for an event name.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// SessionID creates an attribute for a session identifier.
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// ClientID creates an attribute for a client identifier.
func ClientID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("client_id", id)
}

// BatchSize creates an attribute for a batch's event count.
func BatchSize(n int) slog.Attr {
	return slog.Int("batch_size", n)
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Priority creates an attribute for a transmitter's priority.
func Priority(p int) slog.Attr {
	return slog.Int("priority", p)
}

// Result creates an attribute for an operation result (success/failure/dropped).
func Result(result string) slog.Attr {
	return slog.String("result", result)
}
