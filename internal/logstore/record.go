package logstore

import (
	stdErrors "errors"
	"strings"

	"github.com/kvforge/ignite/pkg/errors"
)

// recordSeparator separates a record's key from its value on disk.
const recordSeparator = ' '

// recordTerminator marks the end of a record line on disk.
const recordTerminator = '\n'

// ErrInvalidKey is wrapped into the rich validation errors returned by
// ValidateKey, so callers can still match it with errors.Is regardless of
// how much context the *errors.ValidationError wraps around it.
var ErrInvalidKey = stdErrors.New("key fails record format constraints")

// ValidateKey rejects keys that would corrupt the line-delimited record
// format: a key may not be empty and may not contain the separator or
// terminator bytes used to frame records.
func ValidateKey(key string) error {
	if key == "" {
		return errors.NewFieldFormatError(ErrInvalidKey, "key", key, "non-empty string")
	}
	if strings.IndexByte(key, recordSeparator) >= 0 {
		return errors.NewFieldFormatError(ErrInvalidKey, "key", key, "must not contain a space")
	}
	if strings.IndexByte(key, recordTerminator) >= 0 {
		return errors.NewFieldFormatError(ErrInvalidKey, "key", key, "must not contain a newline")
	}
	return nil
}

// ValidateValue rejects values that would corrupt the line-delimited
// record format: a value may not contain the line terminator.
func ValidateValue(value string) error {
	if strings.IndexByte(value, recordTerminator) >= 0 {
		return errors.NewFieldFormatError(ErrInvalidKey, "value", value, "must not contain a newline")
	}
	return nil
}

// encodeRecord builds the on-disk line for a key/value pair, truncating
// the result to maxLineLength bytes rather than rejecting it — matching
// the original engine's fixed-size line buffer, which silently truncated
// overlong lines instead of failing the write.
func encodeRecord(key, value string, maxLineLength int) []byte {
	line := make([]byte, 0, len(key)+len(value)+2)
	line = append(line, key...)
	line = append(line, recordSeparator)
	line = append(line, value...)
	line = append(line, recordTerminator)

	if maxLineLength > 0 && len(line) > maxLineLength {
		line = line[:maxLineLength-1]
		line = append(line, recordTerminator)
	}
	return line
}

// decodeLine splits a raw log line (without its trailing terminator) into
// its key and value. A line with no separator byte is corrupt.
func decodeLine(line []byte) (key, value string, ok bool) {
	idx := -1
	for i, b := range line {
		if b == recordSeparator {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", "", false
	}
	return string(line[:idx]), string(line[idx+1:]), true
}
