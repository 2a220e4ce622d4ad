// Package tlog is a small structured logger in the vein of the
// terminal-aware, key/value loggers used throughout the gtos stack: a
// level, a message, and an even list of key/value pairs, rendered in
// colour on a terminal and plainly otherwise.
package tlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level orders log severities numerically from most verbose (LevelDebug)
// to most severe (LevelError).
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "EROR"
	default:
		return "????"
	}
}

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgWhite),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// Logger writes leveled, key/value structured records carrying a
// caller-site tag, the way a participant's event loop annotates every
// consensus decision it makes.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	ctx      []interface{}
	colorise bool
	minLevel Level
}

// New builds a Logger writing to os.Stderr, auto-detecting whether the
// stream is a terminal to decide on colourised output.
func New(ctx ...interface{}) *Logger {
	isTerm := isatty.IsTerminal(os.Stderr.Fd())
	return &Logger{
		out:      colorable.NewColorableStderr(),
		ctx:      ctx,
		colorise: isTerm,
		minLevel: LevelDebug,
	}
}

// SetMinLevel suppresses records below lvl.
func (l *Logger) SetMinLevel(lvl Level) { l.minLevel = lvl }

// With returns a child Logger carrying additional persistent key/values.
func (l *Logger) With(ctx ...interface{}) *Logger {
	combined := make([]interface{}, 0, len(l.ctx)+len(ctx))
	combined = append(combined, l.ctx...)
	combined = append(combined, ctx...)
	return &Logger{out: l.out, ctx: combined, colorise: l.colorise, minLevel: l.minLevel}
}

func (l *Logger) log(lvl Level, msg string, kv []interface{}) {
	if lvl < l.minLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	frame := stack.Caller(2).Frame()
	ts := time.Now().Format("15:04:05.000")

	var b strings.Builder
	if l.colorise {
		levelColor[lvl].Fprint(&b, lvl.String())
	} else {
		b.WriteString(lvl.String())
	}
	site := fmt.Sprintf("%s:%d", shortFile(frame.File), frame.Line)
	fmt.Fprintf(&b, "[%s] %-28s %-24s", ts, msg, site)

	all := append(append([]interface{}{}, l.ctx...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	b.WriteByte('\n')
	io.WriteString(l.out, b.String())
}

func shortFile(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LevelError, msg, kv) }
