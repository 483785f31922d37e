package dirac

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diracstore/diracstore/pkg/errors"
)

const metadataFixture = "" +
	"LFN metadata query:\n" +
	"  ModificationDate : 2021-05-01 12:00:00\n" +
	"  Size : 4096\n" +
	"  GUID : 0A1B2C3D\n"

func TestParseMtime(t *testing.T) {
	ts, err := ParseMtime(metadataFixture)
	require.NoError(t, err)

	expected := time.Date(2021, 5, 1, 12, 0, 0, 0, time.Local)
	assert.True(t, ts.Equal(expected), "got %v, want %v", ts, expected)
}

func TestParseMtime_FieldMissing(t *testing.T) {
	_, err := ParseMtime("  Size : 4096\n")
	require.Error(t, err)

	var storageErr *errors.StorageError
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, errors.ErrCodeFieldNotFound, storageErr.Code)
}

func TestParseMtime_Malformed(t *testing.T) {
	_, err := ParseMtime("  ModificationDate : yesterday\n")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.NewError(errors.ErrCodeFieldNotFound, "")))
}

func TestParseSize(t *testing.T) {
	size, err := ParseSize(metadataFixture)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), size)
}

func TestParseSize_TrailingText(t *testing.T) {
	size, err := ParseSize("  Size : 123 (bytes)\n")
	require.NoError(t, err)
	assert.Equal(t, int64(123), size)
}

func TestParseSize_FieldMissing(t *testing.T) {
	_, err := ParseSize("  ModificationDate : 2021-05-01 12:00:00\n")
	require.Error(t, err)

	var storageErr *errors.StorageError
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, errors.ErrCodeFieldNotFound, storageErr.Code)
}

func TestMarkers(t *testing.T) {
	assert.True(t, ReportsFailure("Failed : no such file\n"))
	assert.False(t, ReportsFailure(metadataFixture))

	assert.True(t, ReportsSuccess("Successful : /grid/user/data.root\n"))
	assert.False(t, ReportsSuccess("Failed : nope\n"))

	assert.True(t, DownloadStarted("Downloading file to /tmp/data.root\n"))
	assert.False(t, DownloadStarted("nothing happened\n"))

	assert.True(t, UploadSucceeded("Successful : uploaded\n"))
	assert.False(t, UploadSucceeded("Successful :\n"))
}

func TestTransferLine(t *testing.T) {
	line := TransferLine("/grid/user/data.root", "/tmp/stage/data.root")
	assert.Equal(t, "/grid/user/data.root : /tmp/stage/data.root", line)
}

func TestMetadataPatterns_LineAnchored(t *testing.T) {
	// Fields embedded mid-line must not match.
	_, err := ParseMtime("note ModificationDate : 2021-05-01 12:00:00\n")
	assert.Error(t, err)

	_, err = ParseSize("note Size : 4096\n")
	assert.Error(t, err)
}
