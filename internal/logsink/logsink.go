// Package logsink provides lumen's pluggable diagnostic log sink: a
// small leveled interface plus one io.Writer-backed implementation
// used by the CLI driver for --log-gc and general diagnostics.
package logsink

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Level identifies a log sink severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	}
	return "?"
}

// Sink is lumen's logging interface: a leveled, formatted write.
type Sink interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TextSink writes leveled, timestamped lines to an io.Writer,
// colorizing the level tag when the writer is a terminal.
type TextSink struct {
	w      io.Writer
	color  bool
	prefix string
}

// NewTextSink wraps w. If w is backed by a file descriptor that is a
// terminal (checked via go-isatty), level tags are ANSI-colorized;
// prefix, if non-empty, is printed before every line (lumen uses this
// for the VM's session id).
func NewTextSink(w io.Writer, prefix string) *TextSink {
	color := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &TextSink{w: w, color: color, prefix: prefix}
}

func (s *TextSink) levelTag(l Level) string {
	if !s.color {
		return l.String()
	}
	code := "37"
	switch l {
	case Debug:
		code = "90"
	case Info:
		code = "36"
	case Warn:
		code = "33"
	case Error:
		code = "31"
	}
	return "\x1b[" + code + "m" + l.String() + "\x1b[0m"
}

func (s *TextSink) write(l Level, format string, args ...any) {
	ts := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	if s.prefix != "" {
		fmt.Fprintf(s.w, "%s %-5s [%s] %s\n", ts, s.levelTag(l), s.prefix, msg)
		return
	}
	fmt.Fprintf(s.w, "%s %-5s %s\n", ts, s.levelTag(l), msg)
}

func (s *TextSink) Debug(format string, args ...any) { s.write(Debug, format, args...) }
func (s *TextSink) Info(format string, args ...any)  { s.write(Info, format, args...) }
func (s *TextSink) Warn(format string, args ...any)  { s.write(Warn, format, args...) }
func (s *TextSink) Error(format string, args ...any) { s.write(Error, format, args...) }

// FormatBytes renders n bytes the way --log-gc diagnostics do,
// e.g. "2.1 kB".
func FormatBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}
