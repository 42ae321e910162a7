// Package corelog provides the structured logging facade used across the
// tracker: a slog.Logger factory with environment presets plus a small set
// of attribute helpers for the identifiers and outcomes this module logs.
package corelog

import (
	"io"
	"log/slog"
	"os"
)

// Option configures a logger built by New.
type Option func(*options)

type options struct {
	level     slog.Level
	json      bool
	output    io.Writer
	addSource bool
	attrs     []slog.Attr
}

func defaultOptions() *options {
	return &options{
		level:  slog.LevelInfo,
		json:   true,
		output: os.Stdout,
	}
}

// WithLevel sets the minimum level the logger emits.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithJSONFormatter selects JSON output (the default).
func WithJSONFormatter() Option {
	return func(o *options) { o.json = true }
}

// WithTextFormatter selects human-readable text output.
func WithTextFormatter() Option {
	return func(o *options) { o.json = false }
}

// WithOutput redirects log records to w.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithSource adds file:line source attribution to every record.
func WithSource() Option {
	return func(o *options) { o.addSource = true }
}

// WithAttr attaches static attributes to every record emitted by the logger.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithDevelopment configures a verbose, human-readable logger for local work.
func WithDevelopment(component string) Option {
	return func(o *options) {
		o.level = slog.LevelDebug
		o.json = false
		o.addSource = true
		o.attrs = append(o.attrs, slog.String("component", component))
	}
}

// WithProduction configures a terse JSON logger suitable for shipped builds.
func WithProduction(component string) Option {
	return func(o *options) {
		o.level = slog.LevelInfo
		o.json = true
		o.attrs = append(o.attrs, slog.String("component", component))
	}
}

// New builds a slog.Logger from the given options. With no options it
// writes JSON records at Info level and above to os.Stdout; Noop returns a
// logger that discards every record.
func New(opts ...Option) *slog.Logger {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	var handler slog.Handler
	handlerOpts := &slog.HandlerOptions{Level: o.level, AddSource: o.addSource}
	if o.json {
		handler = slog.NewJSONHandler(o.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(o.output, handlerOpts)
	}

	log := slog.New(handler)
	if len(o.attrs) > 0 {
		args := make([]any, 0, len(o.attrs))
		for _, a := range o.attrs {
			args = append(args, a)
		}
		log = log.With(args...)
	}
	return log
}

// Noop returns a logger that discards all output, used as the zero-value
// default so every component can log unconditionally.
func Noop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
