// Package aislog provides a small leveled logger and named tracer, in the
// same shape the rest of the corpus uses, trimmed to the sinks this module
// actually needs (no syslog daemon, no log database).
package aislog

import (
	"fmt"
	"io"
	reallog "log"
	syslog "log/syslog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// Priority reuses log/syslog's ordering and naming so level comparisons
// ("only log at WARNING or more severe") read the same way syslog's do,
// without ever dialing an actual syslog daemon.
type Priority = syslog.Priority

const (
	Emerg   = syslog.LOG_EMERG
	Alert   = syslog.LOG_ALERT
	Crit    = syslog.LOG_CRIT
	Err     = syslog.LOG_ERR
	Warning = syslog.LOG_WARNING
	Notice  = syslog.LOG_NOTICE
	Info    = syslog.LOG_INFO
	Debug   = syslog.LOG_DEBUG
	Trace   = Debug + 1
)

const (
	lightRed   = "\033[1;31m"
	yellow     = "\033[0;33m"
	blue       = "\033[0;34m"
	nc         = "\033[0m"
	green      = "\033[0;32m"
	lightGreen = "\033[1;32m"
)

var colorByPriority = map[Priority]string{
	Emerg:   nc,
	Alert:   lightGreen,
	Crit:    lightRed,
	Err:     lightRed,
	Warning: yellow,
	Notice:  nc,
	Info:    blue,
	Debug:   green,
	Trace:   green,
}

var nameByPriority = map[Priority]string{
	Emerg:   "EMERGENCY",
	Alert:   "ALERT",
	Crit:    "CRITICAL",
	Err:     "ERROR",
	Warning: "WARNING",
	Notice:  "NOTICE",
	Info:    "INFO",
	Debug:   "DEBUG",
	Trace:   "TRACE",
}

var spewConfig = spew.ConfigState{
	Indent:   "  ",
	SortKeys: true,
	MaxDepth: 3,
}

// Spew pretty-prints obj for debug logging, the same helper the teacher's
// log package exposes.
func Spew(obj ...interface{}) string {
	return spewConfig.Sdump(obj...)
}

// Logger is implemented by every sink this package produces.
type Logger interface {
	Log(prio Priority, msgFmt string, args ...interface{})
	Trace(args ...interface{})
	Fatal(msgFmt string, args ...interface{})
	Crit(msgFmt string, args ...interface{})
	Error(msgFmt string, args ...interface{})
	Warn(msgFmt string, args ...interface{})
	Info(msgFmt string, args ...interface{})
	Debug(msgFmt string, args ...interface{})
}

// Options configures a Logger. ToStderr and File default to disabled;
// SourceLocation defaults to off to keep quiet output for file-only logs.
type Options struct {
	Level          Priority
	ToStderr       bool
	FilePath       string
	SourceLocation bool
}

type logger struct {
	level    Priority
	fileLine bool
	writers  []io.Writer
}

// New builds a Logger from Options. A non-empty FilePath is opened for
// append, matching the teacher's behaviour; failure to open it is fatal,
// since a misconfigured log destination should not be silently dropped.
func New(opts Options) Logger {
	l := &logger{level: opts.Level, fileLine: opts.SourceLocation}
	if opts.ToStderr {
		l.writers = append(l.writers, os.Stderr)
	}
	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			reallog.Fatalf("aislog: could not open log file %q: %v", opts.FilePath, err)
		}
		l.writers = append(l.writers, f)
	}
	return l
}

func (l *logger) Log(prio Priority, msgFmt string, args ...interface{}) {
	if prio > l.level {
		return
	}
	msg := spewConfig.Sprintf(msgFmt, fmtArgs(msgFmt, args)...)
	if l.fileLine || prio == Trace {
		file, line := logSite()
		msg = fmt.Sprintf("%s: %v (%v:%v) %v", coloredName(prio), time.Now(), file, line, msg)
	} else {
		msg = fmt.Sprintf("%s: %v %v", coloredName(prio), time.Now(), msg)
	}
	msg += "\n"
	for _, w := range l.writers {
		io.WriteString(w, msg)
	}
}

func (l *logger) Trace(args ...interface{}) { l.Log(Trace, "", args...) }
func (l *logger) Fatal(msgFmt string, args ...interface{}) {
	l.Log(Crit, msgFmt, args...)
	os.Exit(1)
}
func (l *logger) Crit(msgFmt string, args ...interface{})  { l.Log(Crit, msgFmt, args...) }
func (l *logger) Error(msgFmt string, args ...interface{}) { l.Log(Err, msgFmt, args...) }
func (l *logger) Warn(msgFmt string, args ...interface{})  { l.Log(Warning, msgFmt, args...) }
func (l *logger) Info(msgFmt string, args ...interface{})  { l.Log(Info, msgFmt, args...) }
func (l *logger) Debug(msgFmt string, args ...interface{}) { l.Log(Debug, msgFmt, args...) }

func fmtArgs(format string, args []interface{}) []interface{} {
	lastWasPercent := false
	fmtParams := 0
	for _, r := range format {
		if r == '%' {
			if !lastWasPercent {
				fmtParams++
			} else {
				fmtParams--
			}
			lastWasPercent = true
		} else {
			lastWasPercent = false
		}
	}
	if fmtParams > len(args) {
		fmtParams = len(args)
	}
	return args[0:fmtParams]
}

func shaveSrcFile(fn string) string {
	idx := strings.LastIndex(fn, "aistrack/")
	if idx < 0 {
		return fn
	}
	return fn[idx+len("aistrack/"):]
}

func logSite() (string, int) {
	skip := 1
	for {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		file = shaveSrcFile(file)
		if !strings.HasSuffix(file, "internal/aislog/log.go") {
			return file, line
		}
		skip++
	}
	return "", -1
}

func coloredName(prio Priority) string {
	return colorByPriority[prio] + nameByPriority[prio] + nc
}

// Tracer is a named, independently toggled debug channel, grounded in the
// same idea as the leveled Logger but keyed by subsystem name rather than
// severity. An enabled Tracer writes through its sink at Trace priority, so
// its lines appear only when that sink's level is Trace; enabling a Tracer
// does not bypass the sink's level filter.
type Tracer struct {
	mu      sync.Mutex
	enabled bool
	prefix  string
	sink    Logger
}

func (t *Tracer) Logf(format string, args ...interface{}) {
	t.mu.Lock()
	enabled, prefix, sink := t.enabled, t.prefix, t.sink
	t.mu.Unlock()
	if !enabled || sink == nil {
		return
	}
	sink.Log(Trace, prefix+format, args...)
}

func (t *Tracer) Enable(sink Logger) {
	t.mu.Lock()
	t.enabled = true
	t.sink = sink
	t.mu.Unlock()
}

var (
	tracerMu sync.Mutex
	tracers  = map[string]*Tracer{}
)

// GetTracer returns the process-wide Tracer for name, creating it on first
// use. Tracers start disabled; callers (typically a -trace CLI flag, bound
// in internal/config) call Enable to turn them on.
func GetTracer(name string) *Tracer {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	t := tracers[name]
	if t == nil {
		t = &Tracer{prefix: fmt.Sprintf("[%s] ", name)}
		tracers[name] = t
	}
	return t
}
