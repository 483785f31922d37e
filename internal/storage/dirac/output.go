package dirac

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/diracstore/diracstore/pkg/errors"
)

// Literal markers emitted by the dirac-dms-* tools. Together with the two
// line patterns below they form the textual contract this adapter depends
// on; any format drift in the tools is absorbed here.
const (
	MarkerFailed          = "Failed :"
	MarkerSuccessful      = "Successful :"
	MarkerDownloadStarted = "Downloading file to"
)

// mtimeLayout is how the metadata tool prints modification dates. The
// output carries no timezone; it is interpreted in the host's local time.
const mtimeLayout = "2006-01-02 15:04:05"

var (
	mtimeRe = regexp.MustCompile(`(?m)^\s*ModificationDate : (.+)$`)
	sizeRe  = regexp.MustCompile(`(?m)^\s*Size : ([0-9]+).*$`)
)

// ReportsFailure reports whether tool output carries the failure marker.
func ReportsFailure(output string) bool {
	return strings.Contains(output, MarkerFailed)
}

// ReportsSuccess reports whether tool output carries the success marker.
func ReportsSuccess(output string) bool {
	return strings.Contains(output, MarkerSuccessful)
}

// DownloadStarted reports whether the fetch tool got as far as starting a
// transfer. Its absence means the tool never ran properly.
func DownloadStarted(output string) bool {
	return strings.Contains(output, MarkerDownloadStarted)
}

// UploadSucceeded reports whether the publish tool confirmed the upload.
// The confirmation line always has a value after the marker, hence the
// trailing space.
func UploadSucceeded(output string) bool {
	return strings.Contains(output, MarkerSuccessful+" ")
}

// TransferLine is the exact substring the fetch tool prints for a
// completed transfer of lfn to localPath.
func TransferLine(lfn, localPath string) string {
	return fmt.Sprintf("%s : %s", lfn, localPath)
}

// ParseMtime extracts the ModificationDate field from metadata output and
// parses it in the host's local time.
func ParseMtime(output string) (time.Time, error) {
	m := mtimeRe.FindStringSubmatch(output)
	if m == nil {
		return time.Time{}, errors.NewError(errors.ErrCodeFieldNotFound,
			"no ModificationDate field in metadata output").WithOutput(output)
	}
	ts, err := time.ParseInLocation(mtimeLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, errors.Newf(errors.ErrCodeFieldNotFound,
			"malformed ModificationDate %q", m[1]).WithCause(err)
	}
	return ts, nil
}

// ParseSize extracts the Size field from metadata output.
func ParseSize(output string) (int64, error) {
	m := sizeRe.FindStringSubmatch(output)
	if m == nil {
		return 0, errors.NewError(errors.ErrCodeFieldNotFound,
			"no Size field in metadata output").WithOutput(output)
	}
	size, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeFieldNotFound,
			"malformed Size %q", m[1]).WithCause(err)
	}
	return size, nil
}
