package log

import (
	"io"
	"sync"

	"github.com/ardnew/ftl/pkg"
)

// Option configures a [Logger].
type Option = pkg.Option[config]

// update returns an [Option] that applies fn to the configuration while
// holding its lock.
func update(fn func(*config)) Option {
	return func(c config) config {
		if c.mutex == nil {
			c.mutex = &sync.RWMutex{}
		} else {
			c.mutex.Lock()
			defer c.mutex.Unlock()
		}

		fn(&c)

		return c
	}
}

// WithDefaults returns an option that restores the default configuration
// writing to w: [DefaultTimeLayout], [DefaultLevel], [DefaultFormat],
// [DefaultCaller] and [DefaultPretty].
func WithDefaults(w io.Writer) Option {
	return update(func(c *config) {
		c.output = orDiscard(w)
		c.formatTime = makeFormatTimeFunc(DefaultTimeLayout)
		c.level = DefaultLevel
		c.format = DefaultFormat
		c.caller = DefaultCaller
		c.pretty = DefaultPretty
	})
}

// WithOutput returns an option that sets the writer of log messages. A nil
// writer discards them.
func WithOutput(w io.Writer) Option {
	return update(func(c *config) { c.output = orDiscard(w) })
}

// WithLevel returns an option that sets the minimum log level.
func WithLevel(level Level) Option {
	return update(func(c *config) { c.level = level })
}

// WithFormat returns an option that sets the output format.
func WithFormat(format Format) Option {
	return update(func(c *config) { c.format = format })
}

// WithTimeLayout returns an option that sets the layout of log timestamps.
//
// The layout is either a name from the [time] package, matched ignoring
// case and punctuation ("RFC3339", "rfc-3339-nano", "kitchen"), a short
// alias ("ms", "us", "ns"), or a layout passed verbatim to
// [time.Time.Format]. An empty layout or "none" omits timestamps.
func WithTimeLayout(layout string) Option {
	format := makeFormatTimeFunc(layout)

	return update(func(c *config) { c.formatTime = format })
}

// WithCaller returns an option that adds the source file and line of the
// logging call to each message.
func WithCaller(enable bool) Option {
	return update(func(c *config) { c.caller = enable })
}

// WithPretty returns an option that colorizes output for a terminal. Text
// output drops quoting, JSON output is indented one attribute per line.
func WithPretty(enable bool) Option {
	return update(func(c *config) { c.pretty = enable })
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}
