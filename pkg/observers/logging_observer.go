// Package observers provides observers for monitoring intersection drivers
package observers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ardalan-sia/signal-timing/pkg/simulation"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// LogError logs only errors
	LogError LogLevel = iota
	// LogWarning logs errors and warnings
	LogWarning
	// LogInfo logs errors, warnings, and info
	LogInfo
	// LogDebug logs everything, including every tick
	LogDebug
)

// ParseLogLevel accepts error, warn, info or debug.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogError, nil
	case "warn", "warning":
		return LogWarning, nil
	case "info", "":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	}
	return LogInfo, fmt.Errorf("unknown log level %q", s)
}

// LogFormatter formats log messages
type LogFormatter func(level LogLevel, format string, args ...interface{}) string

// DefaultLogFormatter provides default log formatting
func DefaultLogFormatter(level LogLevel, format string, args ...interface{}) string {
	levelStr := "INFO"
	switch level {
	case LogError:
		levelStr = "ERROR"
	case LogWarning:
		levelStr = "WARN"
	case LogDebug:
		levelStr = "DEBUG"
	}
	return fmt.Sprintf("[%s] %s", levelStr, fmt.Sprintf(format, args...))
}

// LoggingObserver logs driver events
type LoggingObserver struct {
	simulation.BaseObserver

	level     LogLevel
	prefix    string
	out       io.Writer
	mutex     sync.RWMutex
	formatter LogFormatter
}

// NewLoggingObserver creates a logging observer writing to stderr
func NewLoggingObserver(level LogLevel, prefix string) *LoggingObserver {
	return &LoggingObserver{
		level:     level,
		prefix:    prefix,
		out:       os.Stderr,
		formatter: DefaultLogFormatter,
	}
}

// SetFormatter sets the log formatter
func (o *LoggingObserver) SetFormatter(formatter LogFormatter) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.formatter = formatter
}

// SetOutput redirects log lines to w
func (o *LoggingObserver) SetOutput(w io.Writer) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.out = w
}

// Logf writes a message if level is enabled. Writes are serialized, so one
// observer can be shared by concurrently running drivers.
func (o *LoggingObserver) Logf(level LogLevel, format string, args ...interface{}) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if level > o.level {
		return
	}
	prefix := ""
	if o.prefix != "" {
		prefix = fmt.Sprintf("[%s] ", o.prefix)
	}
	message := ""
	if o.formatter != nil {
		message = o.formatter(level, format, args...)
	} else {
		message = fmt.Sprintf(format, args...)
	}
	fmt.Fprintf(o.out, "%s%s\n", prefix, message)
}

// OnTick logs every plan's queues at debug level
func (o *LoggingObserver) OnTick(d *simulation.Driver, obs simulation.Observation) {
	if !o.enabled(LogDebug) {
		return
	}
	for _, p := range obs.Plans {
		var b strings.Builder
		for i, a := range p.Approaches {
			if i > 0 {
				b.WriteByte(' ')
			}
			mark := ""
			if a.Green {
				mark = "*"
			}
			fmt.Fprintf(&b, "%s%s=%d", a.Direction, mark, a.Queue)
		}
		o.Logf(LogDebug, "run %s tick %d %s phase %d: %s", shortID(obs.RunID.String()), obs.Tick, p.Name, p.Phase, b.String())
	}
}

// OnPause logs pauses
func (o *LoggingObserver) OnPause(d *simulation.Driver, tick int) {
	o.Logf(LogInfo, "run %s paused at tick %d", shortID(d.ID().String()), tick)
}

// OnResume logs resumes
func (o *LoggingObserver) OnResume(d *simulation.Driver, tick int) {
	o.Logf(LogInfo, "run %s resumed at tick %d", shortID(d.ID().String()), tick)
}

// OnComplete logs the final queue lengths
func (o *LoggingObserver) OnComplete(d *simulation.Driver, tick int) {
	o.Logf(LogInfo, "run %s finished after %d ticks", shortID(d.ID().String()), tick)
	for _, p := range d.Config().Plans {
		q, ok := d.Queues(p.Name)
		if !ok {
			continue
		}
		if q.Total() > 0 {
			o.Logf(LogWarning, "run %s plan %s left %d vehicles queued", shortID(d.ID().String()), p.Name, q.Total())
		}
	}
}

func (o *LoggingObserver) enabled(level LogLevel) bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return level <= o.level
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
