package index

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Index represents the in-memory hash table that maps keys to the byte
// offset of their most recent record within the log file. This is the
// entire Bitcask "index": no segment bookkeeping, no per-entry size or
// timestamp metadata — those live in the record itself on disk, and the
// index only needs to know where to seek to find them.
//
// Index performs no locking of its own. Every operation that touches the
// log file and the index together must be serialized by the caller's
// single log-lock; adding a second mutex here would just be redundant
// nesting around the same critical section.
type Index struct {
	dataDir string             // Filesystem directory backing this index, kept for diagnostics.
	log     *zap.SugaredLogger // Structured logging for index operations.
	offsets map[string]int64   // Maps key to the byte offset of its latest record in the log.
	closed  atomic.Bool        // Indicates whether the index has been closed.
}

// Config encapsulates the configuration parameters required to initialize an Index.
type Config struct {
	DataDir string             // Filesystem directory backing this index, kept for diagnostics.
	Logger  *zap.SugaredLogger // Structured logging for Index operations.
}
