package utils

import (
	"flag"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Strategy selects how snapshot containers are copied and which merge and
// commit algorithms run over them.
type Strategy string

const (
	// Eager copies every table when a container becomes writeable and uses
	// the full-walk algorithms.
	Eager Strategy = "eager"
	// Lazy shares persistent tables and uses the full-walk algorithms.
	Lazy Strategy = "lazy"
	// Tracking shares persistent tables and uses change trackers to only
	// visit what changed.
	Tracking Strategy = "tracking"
)

var strategies = []struct {
	flag        Strategy
	explanation string
}{{
	Eager,
	"Deep copy containers on write; merge and commit walk every index",
}, {
	Lazy,
	"Share containers structurally; merge and commit walk every index",
}, {
	Tracking,
	"Share containers structurally; merge and commit only visit changed indexes",
}}

// Options configures a snapshot factory.
type Options struct {
	Strategy Strategy `yaml:"strategy"`
	// SimplifyLimit is the entry size above which commit asks the value
	// domain to simplify.
	SimplifyLimit int `yaml:"simplify-limit"`
	// WideningLimit is the number of transactions after which
	// CommitTransaction widens instead of committing.
	WideningLimit int    `yaml:"widening-limit"`
	NoColorize    bool   `yaml:"no-colorize"`
	Verbose       bool   `yaml:"verbose"`
	LogLevel      string `yaml:"log-level"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Strategy:      Tracking,
		SimplifyLimit: 5,
		WideningLimit: 3,
		LogLevel:      "warn",
	}
}

// ParseOptions reads YAML options on top of the defaults.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrap(err, "parsing options")
	}
	return opts, opts.Validate()
}

// LoadOptions reads YAML options from the file at path.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultOptions(), errors.Wrapf(err, "reading options %s", path)
	}
	return ParseOptions(data)
}

// RegisterFlags binds the options to command line flags.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	strategyFlag := ""
	for _, s := range strategies {
		strategyFlag += "\n" + string(s.flag) + " - " + s.explanation
	}

	fs.StringVar((*string)(&o.Strategy), "strategy", string(o.Strategy), "Container strategy. Options:"+strategyFlag)
	fs.IntVar(&o.SimplifyLimit, "simplify-limit", o.SimplifyLimit, "Simplify entries with more values than this on commit")
	fs.IntVar(&o.WideningLimit, "widening-limit", o.WideningLimit, "Widen after this many transactions")
	fs.BoolVar(&o.NoColorize, "no-colorize", o.NoColorize, "Disable pretty printer colorization")
	fs.BoolVar(&o.Verbose, "verbose", o.Verbose, "Enable verbose output")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level [debug | info | warn | error]")
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	known := false
	for _, s := range strategies {
		if s.flag == o.Strategy {
			known = true
		}
	}
	switch {
	case !known:
		return errors.Errorf("unknown strategy %q", o.Strategy)
	case o.SimplifyLimit < 1:
		return errors.Errorf("simplify limit must be positive, got %d", o.SimplifyLimit)
	case o.WideningLimit < 0:
		return errors.Errorf("widening limit must not be negative, got %d", o.WideningLimit)
	}
	return nil
}

// Apply installs the process-wide printing options.
func (o Options) Apply() {
	noColorize = o.NoColorize
}
