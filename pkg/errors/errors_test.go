package errors

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageErrorPathMatchesWithPath(t *testing.T) {
	cause := stdErrors.New("boom")
	err := NewStorageError(cause, ErrorCodeIO, "failed").
		WithPath("/data/ignite.log").
		WithFileName("ignite.log").
		WithOffset(42)

	require.Equal(t, "/data/ignite.log", err.Path())
	require.Equal(t, "ignite.log", err.FileName())
	require.Equal(t, int64(42), err.Offset())
	require.ErrorIs(t, err, cause)
}

func TestKeyNotFoundErrorWrapsCause(t *testing.T) {
	cause := stdErrors.New("not found sentinel")
	err := NewKeyNotFoundError(cause, "alpha")

	require.ErrorIs(t, err, cause)
	require.Equal(t, "alpha", err.Key())
	require.Equal(t, ErrorCodeIndexKeyNotFound, err.Code())
}

func TestFieldFormatErrorCarriesContext(t *testing.T) {
	cause := stdErrors.New("invalid sentinel")
	err := NewFieldFormatError(cause, "key", "bad key", "non-empty string")

	require.ErrorIs(t, err, cause)
	require.Equal(t, "key", err.Field())
	require.Equal(t, "format", err.Rule())
	require.Equal(t, "bad key", err.Provided())
}
