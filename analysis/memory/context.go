package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cs-au-dk/memsnap/utils"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface threaded through the algorithms.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	With(fields map[string]interface{}) Logger
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{})        {}
func (NopLogger) Infof(string, ...interface{})         {}
func (NopLogger) Warnf(string, ...interface{})         {}
func (NopLogger) Errorf(string, ...interface{})        {}
func (l NopLogger) With(map[string]interface{}) Logger { return l }

type logrusLogger struct {
	logrus.FieldLogger
}

// NewLogrusLogger adapts a logrus logger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	return logrusLogger{l}
}

func (l logrusLogger) With(fields map[string]interface{}) Logger {
	return logrusLogger{l.FieldLogger.WithFields(logrus.Fields(fields))}
}

// NewLogger creates a logrus backed logger configured by the options.
// Verbose output forces the debug level.
func NewLogger(opts utils.Options) (Logger, error) {
	l := logrus.New()
	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    opts.NoColorize,
		DisableTimestamp: true,
	})
	return NewLogrusLogger(l), nil
}

// Context carries the collaborators shared by every snapshot of a factory.
type Context struct {
	Logger    Logger
	Benchmark *Benchmark
}

func (c Context) logger() Logger {
	if c.Logger == nil {
		return NopLogger{}
	}
	return c.Logger
}

type measurement struct {
	count int
	time  time.Duration
}

// Benchmark counts invocations of the snapshot algorithms and the time
// spent in them. A nil *Benchmark is disabled.
type Benchmark struct {
	mu  sync.Mutex
	ops map[string]*measurement
}

func NewBenchmark() *Benchmark {
	return &Benchmark{ops: make(map[string]*measurement)}
}

// Enabled checks whether the benchmark is collecting.
func (b *Benchmark) Enabled() bool {
	return b != nil
}

// Start measuring op. The returned function stops the measurement.
func (b *Benchmark) Start(op string) func() {
	if b == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start)

		b.mu.Lock()
		defer b.mu.Unlock()
		m, ok := b.ops[op]
		if !ok {
			m = &measurement{}
			b.ops[op] = m
		}
		m.count++
		m.time += elapsed
	}
}

// Count returns how many times op was measured.
func (b *Benchmark) Count(op string) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.ops[op]; ok {
		return m.count
	}
	return 0
}

func (b *Benchmark) String() string {
	if b == nil {
		return "Benchmark disabled"
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ops := make([]string, 0, len(b.ops))
	for op := range b.ops {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-20s %8s %14s\n", "Operation", "Count", "Time")
	for _, op := range ops {
		m := b.ops[op]
		fmt.Fprintf(&sb, "%-20s %8d %14s\n", op, m.count, m.time)
	}
	return sb.String()
}
