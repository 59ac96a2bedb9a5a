// Package logstore owns the two files that make up ignite's on-disk
// state: the append-only log of SET records, and the tombstone file that
// records keys pending physical removal from the log. Every operation
// that touches the log file and the in-memory index together must run
// under the caller's single log-lock; Store itself performs no locking,
// matching the single-lock concurrency model the rest of the engine
// relies on. The tombstone file is the one exception — AppendTombstone
// and DrainTombstones are safe to call under a separate, independent
// tombstone-lock because no log-side operation ever touches that file.
package logstore

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/kvforge/ignite/pkg/errors"
	"github.com/kvforge/ignite/pkg/filesys"
	"go.uber.org/zap"
)

// Store manages the append-only log file and the tombstone file backing
// an ignite instance.
type Store struct {
	log *zap.SugaredLogger

	dataDir       string
	logPath       string
	tombstonePath string

	logFile       *os.File
	tombstoneFile *os.File

	maxLineLength     int
	maxTombstoneBatch int
}

// Config encapsulates the configuration parameters required to open a Store.
type Config struct {
	DataDir           string
	LogFileName       string
	TombstoneFileName string
	MaxLineLength     int
	MaxTombstoneBatch int
	Logger            *zap.SugaredLogger
}

// Open creates the data directory if needed and opens (or creates) the
// log file and tombstone file within it.
func Open(config *Config) (*Store, error) {
	if config == nil || config.DataDir == "" || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "logstore configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	if err := filesys.CreateDir(config.DataDir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, config.DataDir)
	}

	logPath := filepath.Join(config.DataDir, config.LogFileName)
	tombstonePath := filepath.Join(config.DataDir, config.TombstoneFileName)

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, logPath, config.LogFileName)
	}

	tombstoneFile, err := os.OpenFile(tombstonePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		logFile.Close()
		return nil, errors.ClassifyFileOpenError(err, tombstonePath, config.TombstoneFileName)
	}

	return &Store{
		log:               config.Logger,
		dataDir:           config.DataDir,
		logPath:           logPath,
		tombstonePath:     tombstonePath,
		logFile:           logFile,
		tombstoneFile:     tombstoneFile,
		maxLineLength:     config.MaxLineLength,
		maxTombstoneBatch: config.MaxTombstoneBatch,
	}, nil
}

// AppendRecord writes a SET record for key/value at the end of the log
// file and returns the byte offset at which it was written. The caller
// must hold the log-lock.
func (s *Store) AppendRecord(key, value string) (int64, error) {
	offset, err := s.logFile.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.ClassifySyncError(err, filepath.Base(s.logPath), s.logPath, 0)
	}

	line := encodeRecord(key, value, s.maxLineLength)
	if _, err := s.logFile.Write(line); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append record").
			WithPath(s.logPath).WithFileName(filepath.Base(s.logPath)).WithOffset(offset)
	}

	return offset, nil
}

// ReadRecordAt reads and decodes the record at offset. It returns a
// corruption-classified *errors.IndexError when the bytes at offset don't
// decode to a well-formed record, or when the decoded key doesn't match
// expectedKey (a sign the offset is stale, e.g. after a rewrite the
// caller didn't account for).
func (s *Store) ReadRecordAt(offset int64, expectedKey string) (string, error) {
	buf := make([]byte, s.maxLineLength)
	n, err := s.logFile.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return "", errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read record").
			WithPath(s.logPath).WithOffset(offset)
	}
	buf = buf[:n]

	nl := -1
	for i, b := range buf {
		if b == recordTerminator {
			nl = i
			break
		}
	}
	if nl < 0 {
		return "", errors.NewRecordCorruptionError(nil, expectedKey, "Get").
			WithDetail("offset", offset)
	}

	key, value, ok := decodeLine(buf[:nl])
	if !ok || key != expectedKey {
		return "", errors.NewRecordCorruptionError(nil, expectedKey, "Get").
			WithDetail("offset", offset).WithDetail("decodedKey", key)
	}

	return value, nil
}

// ScanRecords reads the log file from the beginning, invoking fn with
// every record's key, value, and starting byte offset. Used both for
// startup recovery and by the deletion rewrite (RewriteFiltered), which
// needs a full linear pass over the log. The caller must hold the
// log-lock.
func (s *Store) ScanRecords(fn func(key, value string, offset int64) error) error {
	if _, err := s.logFile.Seek(0, io.SeekStart); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek log file").WithPath(s.logPath)
	}

	reader := bufio.NewReaderSize(s.logFile, 64*1024)
	var offset int64

	for {
		line, err := reader.ReadBytes(recordTerminator)
		if len(line) > 0 {
			trimmed := line
			if trimmed[len(trimmed)-1] == recordTerminator {
				trimmed = trimmed[:len(trimmed)-1]
			}
			if len(trimmed) > 0 {
				key, value, ok := decodeLine(trimmed)
				if ok {
					if cbErr := fn(key, value, offset); cbErr != nil {
						return cbErr
					}
				} else {
					s.log.Warnw("skipping malformed log line during scan", "offset", offset)
				}
			}
			offset += int64(len(line))
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read log file").WithPath(s.logPath)
		}
	}

	if _, err := s.logFile.Seek(0, io.SeekEnd); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek log file").WithPath(s.logPath)
	}
	return nil
}

// AppendTombstone records key as pending deletion. It only touches the
// tombstone file, so the caller must hold the tombstone-lock, not the
// log-lock.
func (s *Store) AppendTombstone(key string) error {
	if _, err := s.tombstoneFile.Seek(0, io.SeekEnd); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek tombstone file").WithPath(s.tombstonePath)
	}
	line := append([]byte(key), recordTerminator)
	if _, err := s.tombstoneFile.Write(line); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append tombstone").WithPath(s.tombstonePath)
	}
	return nil
}

// DrainTombstones reads up to maxTombstoneBatch keys from the tombstone
// file and unconditionally truncates it to empty, matching the original
// engine's fixed-size scan buffer: any tombstones past the batch limit
// are silently dropped along with the ones that were read, rather than
// preserved for the next run. The caller must hold the tombstone-lock.
func (s *Store) DrainTombstones() ([]string, error) {
	if _, err := s.tombstoneFile.Seek(0, io.SeekStart); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek tombstone file").WithPath(s.tombstonePath)
	}

	keys := make([]string, 0, s.maxTombstoneBatch)
	scanner := bufio.NewScanner(s.tombstoneFile)
	bufSize := s.maxLineLength
	if bufSize <= 0 {
		bufSize = 1024
	}
	initialCap := bufSize
	if initialCap > 512 {
		initialCap = 512
	}
	scanner.Buffer(make([]byte, 0, initialCap), bufSize)

	for scanner.Scan() && len(keys) < s.maxTombstoneBatch {
		key := scanner.Text()
		if key != "" {
			keys = append(keys, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read tombstone file").WithPath(s.tombstonePath)
	}

	if err := s.tombstoneFile.Truncate(0); err != nil {
		return nil, errors.ClassifySyncError(err, filepath.Base(s.tombstonePath), s.tombstonePath, 0)
	}
	if _, err := s.tombstoneFile.Seek(0, io.SeekStart); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rewind tombstone file").WithPath(s.tombstonePath)
	}

	return keys, nil
}

// CompactTo rewrites the log file so it contains exactly one record per
// key named in offsets, in index iteration order, dropping every
// superseded or tombstoned byte range. It returns the new offsets each
// surviving key now has in the rewritten log, plus the list of keys whose
// recorded offset failed to read back cleanly. Orphaned keys are kept in
// newOffsets at their old offset rather than dropped, but their records
// are not copied into the rewritten log, so that offset no longer points
// at the key's record: reads of the key report corruption until a
// restart rebuilds the index from a fresh scan or a subsequent SET
// overwrites it. The caller must hold the log-lock for the entire call.
func (s *Store) CompactTo(offsets map[string]int64) (newOffsets map[string]int64, orphaned []string, err error) {
	scratch, err := os.CreateTemp(s.dataDir, ".ignite-compact-*")
	if err != nil {
		return nil, nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create compaction scratch file").WithPath(s.dataDir)
	}
	scratchPath := scratch.Name()
	defer os.Remove(scratchPath)

	newOffsets = make(map[string]int64, len(offsets))
	var written int64

	for key, offset := range offsets {
		value, readErr := s.ReadRecordAt(offset, key)
		if readErr != nil {
			s.log.Warnw("index entry orphaned during compaction, keeping stale offset", "key", key, "offset", offset, "error", readErr)
			orphaned = append(orphaned, key)
			newOffsets[key] = offset
			continue
		}

		line := encodeRecord(key, value, s.maxLineLength)
		if _, writeErr := scratch.Write(line); writeErr != nil {
			scratch.Close()
			return nil, nil, errors.NewStorageError(writeErr, errors.ErrorCodeIO, "failed to write compaction scratch file").WithPath(scratchPath)
		}
		newOffsets[key] = written
		written += int64(len(line))
	}

	if err := scratch.Sync(); err != nil {
		scratch.Close()
		return nil, nil, errors.ClassifySyncError(err, filepath.Base(scratchPath), scratchPath, written)
	}
	scratch.Close()

	if err := s.swapInScratch(scratchPath); err != nil {
		return nil, nil, err
	}

	return newOffsets, orphaned, nil
}

// RewriteFiltered performs a forward, sequential scan of the live log,
// writing every record whose key is not in dropKeys to a scratch file,
// and returns the offsets that scratch file assigns to keys still present
// in currentOffsets.
//
// Because it writes every surviving record verbatim rather than
// deduplicating by key, a key that was SET multiple times since the last
// compaction still appears multiple times in the rewritten log; only the
// last occurrence's offset is kept in newOffsets, preserving last-write-
// wins. This also means a record can be reached here for a key in
// dropKeys after a concurrent SET already gave that key a new offset:
// the record is dropped anyway, by key, matching the original engine's
// behavior. That is a known, deliberately unfixed race between draining
// a tombstone and a subsequent SET for the same key landing before this
// scan starts; callers relying on strict delete/set ordering around
// tombstone drains should be aware of it.
func (s *Store) RewriteFiltered(dropKeys map[string]struct{}, currentOffsets map[string]int64) (newOffsets map[string]int64, err error) {
	scratch, err := os.CreateTemp(s.dataDir, ".ignite-delete-*")
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create deletion scratch file").WithPath(s.dataDir)
	}
	scratchPath := scratch.Name()
	defer os.Remove(scratchPath)

	newOffsets = make(map[string]int64, len(currentOffsets))
	var written int64

	scanErr := s.ScanRecords(func(key, value string, _ int64) error {
		if _, dropped := dropKeys[key]; dropped {
			return nil
		}

		line := encodeRecord(key, value, s.maxLineLength)
		if _, writeErr := scratch.Write(line); writeErr != nil {
			return writeErr
		}

		if _, stillLive := currentOffsets[key]; stillLive {
			newOffsets[key] = written
		}
		written += int64(len(line))
		return nil
	})
	if scanErr != nil {
		scratch.Close()
		return nil, errors.NewStorageError(scanErr, errors.ErrorCodeIO, "failed to scan log during deletion rewrite").WithPath(s.logPath)
	}

	if err := scratch.Sync(); err != nil {
		scratch.Close()
		return nil, errors.ClassifySyncError(err, filepath.Base(scratchPath), scratchPath, written)
	}
	scratch.Close()

	if err := s.swapInScratch(scratchPath); err != nil {
		return nil, err
	}

	return newOffsets, nil
}

// swapInScratch replaces the live log file's contents with scratch's,
// preserving the live file's handle identity (truncate-and-copy-in
// rather than rename-over), so any code holding s.logFile keeps working
// against the same descriptor after the swap.
func (s *Store) swapInScratch(scratchPath string) error {
	scratch, err := os.Open(scratchPath)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to reopen scratch file").WithPath(scratchPath)
	}
	defer scratch.Close()

	if err := s.logFile.Truncate(0); err != nil {
		return errors.ClassifySyncError(err, filepath.Base(s.logPath), s.logPath, 0)
	}
	if _, err := s.logFile.Seek(0, io.SeekStart); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rewind log file").WithPath(s.logPath)
	}
	if _, err := io.Copy(s.logFile, scratch); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to copy rewritten log into place").WithPath(s.logPath)
	}
	if err := s.logFile.Sync(); err != nil {
		return errors.ClassifySyncError(err, filepath.Base(s.logPath), s.logPath, 0)
	}
	if _, err := s.logFile.Seek(0, io.SeekEnd); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek log file to end").WithPath(s.logPath)
	}
	return nil
}

// Close flushes and closes both the log file and the tombstone file.
func (s *Store) Close() error {
	var firstErr error
	if err := s.logFile.Sync(); err != nil {
		firstErr = err
	}
	if err := s.logFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.tombstoneFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return errors.NewStorageError(firstErr, errors.ErrorCodeIO, "failed to close store files").WithPath(s.dataDir)
	}
	return nil
}
