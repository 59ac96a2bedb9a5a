// Package options provides data structures and functions for configuring
// the Ignite database. It defines the parameters that control Ignite's
// storage layout, file naming and the periodic maintenance tasks
// (compaction and tombstone deletion) that keep the log bounded.
package options

import (
	"strings"
	"time"
)

// Options defines the configuration parameters for Ignite DB. It provides
// control over storage layout and maintenance-task cadence.
type Options struct {
	// Specifies the base path where files will be stored.
	//
	// Default: "."
	DataDir string `json:"dataDir"`

	// Name of the append-only log file within DataDir.
	//
	// Default: "data.txt"
	LogFileName string `json:"logFileName"`

	// Name of the tombstone file within DataDir, recording keys pending
	// physical removal from the log.
	//
	// Default: "delete.txt"
	TombstoneFileName string `json:"tombstoneFileName"`

	// Defines how often the compaction task runs to rewrite the log,
	// dropping any byte ranges the index no longer points at.
	//
	// Default: 5s
	CompactInterval time.Duration `json:"compactInterval"`

	// Defines how often the deletion task runs to drain pending
	// tombstones and purge the records they name from the log.
	//
	// Default: 5s
	DeleteInterval time.Duration `json:"deleteInterval"`

	// Maximum length, in bytes, of a single log line (key + separator +
	// value + terminator). Lines longer than this are truncated rather
	// than rejected, matching the original engine's fgets-based reader.
	//
	// Default: 1024
	MaxLineLength int `json:"maxLineLength"`

	// Maximum number of tombstones drained from the tombstone file in a
	// single deletion-task run. Any tombstones beyond this count are
	// dropped along with the ones that were drained, matching the
	// original engine's fixed-size scan buffer.
	//
	// Default: 1024
	MaxTombstoneBatch int `json:"maxTombstoneBatch"`
}

// OptionFunc is a function type that modifies the Ignite system's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies a predefined set of default configuration
// values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		*o = opts
	}
}

// WithDataDir sets the primary data directory for Ignite.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithLogFileName sets the name of the append-only log file.
func WithLogFileName(name string) OptionFunc {
	return func(o *Options) {
		name = strings.TrimSpace(name)
		if name != "" {
			o.LogFileName = name
		}
	}
}

// WithTombstoneFileName sets the name of the tombstone file.
func WithTombstoneFileName(name string) OptionFunc {
	return func(o *Options) {
		name = strings.TrimSpace(name)
		if name != "" {
			o.TombstoneFileName = name
		}
	}
}

// WithCompactInterval sets the interval at which Ignite performs compaction.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.CompactInterval = interval
		}
	}
}

// WithDeleteInterval sets the interval at which Ignite drains tombstones.
func WithDeleteInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.DeleteInterval = interval
		}
	}
}

// WithMaxLineLength sets the maximum accepted length of a log line.
func WithMaxLineLength(length int) OptionFunc {
	return func(o *Options) {
		if length > 0 {
			o.MaxLineLength = length
		}
	}
}

// WithMaxTombstoneBatch sets the maximum number of tombstones drained per
// deletion-task run.
func WithMaxTombstoneBatch(count int) OptionFunc {
	return func(o *Options) {
		if count > 0 {
			o.MaxTombstoneBatch = count
		}
	}
}
