package options

import "time"

const (
	// DefaultDataDir specifies the default base directory where IgniteDB
	// will store its data files. If no other directory is specified during
	// initialization, this path will be used.
	DefaultDataDir = "."

	// DefaultLogFileName is the default name of the append-only log file.
	DefaultLogFileName = "data.txt"

	// DefaultTombstoneFileName is the default name of the tombstone file.
	DefaultTombstoneFileName = "delete.txt"

	// DefaultCompactInterval defines the default time duration between
	// automatic compaction runs.
	DefaultCompactInterval = time.Second * 5

	// DefaultDeleteInterval defines the default time duration between
	// automatic tombstone-draining runs.
	DefaultDeleteInterval = time.Second * 5

	// DefaultMaxLineLength is the default maximum length, in bytes, of a
	// single log line.
	DefaultMaxLineLength = 1024

	// DefaultMaxTombstoneBatch is the default maximum number of tombstones
	// drained per deletion-task run.
	DefaultMaxTombstoneBatch = 1024
)

// defaultOptions holds the default configuration settings for an IgniteDB instance.
var defaultOptions = Options{
	DataDir:           DefaultDataDir,
	LogFileName:       DefaultLogFileName,
	TombstoneFileName: DefaultTombstoneFileName,
	CompactInterval:   DefaultCompactInterval,
	DeleteInterval:    DefaultDeleteInterval,
	MaxLineLength:     DefaultMaxLineLength,
	MaxTombstoneBatch: DefaultMaxTombstoneBatch,
}

// NewDefaultOptions returns a copy of the default Ignite configuration.
func NewDefaultOptions() Options {
	return defaultOptions
}
