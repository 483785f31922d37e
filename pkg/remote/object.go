package remote

import (
	"context"
	stderr "errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/diracstore/diracstore/internal/cache"
	"github.com/diracstore/diracstore/internal/storage/dirac"
	"github.com/diracstore/diracstore/pkg/errors"
	"github.com/diracstore/diracstore/pkg/types"
)

// Object performs the storage operations for one logical file name. Each
// object belongs to exactly one provider and operates on exactly one
// remote path; the remote path is never stored in stripped form but
// derived on demand.
type Object struct {
	provider   *Provider
	client     *dirac.Client
	remotePath string
	localPath  string

	fs        afero.Fs
	syncFS    func()
	logger    zerolog.Logger
	metaCache *cache.MetadataCache
}

var _ types.RemoteObject = (*Object)(nil)

// RemotePath returns the remote path as configured, scheme included.
func (o *Object) RemotePath() string {
	return o.remotePath
}

// LocalPath returns the local staging path for download and upload.
func (o *Object) LocalPath() string {
	return o.localPath
}

// LogicalName strips exactly the scheme prefix from the remote path,
// yielding the bare logical file name passed to every tool.
func (o *Object) LogicalName() string {
	return strings.TrimPrefix(o.remotePath, Scheme)
}

// metadataText runs the metadata-query tool and returns its raw output.
// Process failures are always wrapped here with the captured stderr.
// When the provider carries a metadata cache, the raw reply is cached
// per logical file name so repeat queries skip the process spawn.
func (o *Object) metadataText(ctx context.Context, op string) (string, error) {
	lfn := o.LogicalName()
	if o.metaCache != nil {
		if out, ok := o.metaCache.Get(lfn); ok {
			return out, nil
		}
	}

	out, err := o.client.Run(ctx, dirac.ToolMetadata, []string{lfn}, dirac.RunOptions{RawError: true})
	if err != nil {
		return "", wrapExit(err, op, dirac.ToolMetadata)
	}

	if o.metaCache != nil {
		o.metaCache.Put(lfn, out)
	}
	return out, nil
}

// Exists reports whether the federation knows the logical file name. The
// metadata tool exits zero even for unknown files and reports them with
// the failure marker instead.
func (o *Object) Exists(ctx context.Context) (bool, error) {
	out, err := o.metadataText(ctx, "exists")
	if err != nil {
		return false, err
	}
	return !dirac.ReportsFailure(out), nil
}

// Mtime returns the remote modification time, parsed in the host's local
// time. A missing field propagates as FIELD_NOT_FOUND, unwrapped.
func (o *Object) Mtime(ctx context.Context) (time.Time, error) {
	out, err := o.metadataText(ctx, "mtime")
	if err != nil {
		return time.Time{}, err
	}
	return dirac.ParseMtime(out)
}

// Size returns the remote size in bytes. A missing field propagates as
// FIELD_NOT_FOUND, unwrapped.
func (o *Object) Size(ctx context.Context) (int64, error) {
	out, err := o.metadataText(ctx, "size")
	if err != nil {
		return 0, err
	}
	return dirac.ParseSize(out)
}

// Stat returns the combined metadata record in a single tool invocation.
func (o *Object) Stat(ctx context.Context) (*types.ObjectInfo, error) {
	out, err := o.metadataText(ctx, "stat")
	if err != nil {
		return nil, err
	}
	mtime, err := dirac.ParseMtime(out)
	if err != nil {
		return nil, err
	}
	size, err := dirac.ParseSize(out)
	if err != nil {
		return nil, err
	}
	return &types.ObjectInfo{LFN: o.LogicalName(), Size: size, ModTime: mtime}, nil
}

// Download materializes the remote file at the local staging path.
//
// The fetch tool writes into the staging path's parent directory. Its
// output is interpreted in order: a missing start marker means the tool
// never began a transfer (an environment invariant violation); the
// failure marker raises with the full output; otherwise success requires
// the success marker, the exact "<lfn> : <local-path>" transfer line and
// the file actually present on disk after a filesystem sync. Anything
// short of that is the soft ("", false, nil) result, not an error.
func (o *Object) Download(ctx context.Context) (string, bool, error) {
	lfn := o.LogicalName()
	path := o.localPath
	dir := filepath.Dir(path)

	out, err := o.client.Run(ctx, dirac.ToolGetFile, []string{"-D", dir, lfn}, dirac.RunOptions{RawError: true})
	if err != nil {
		return "", false, wrapExit(err, "download", dirac.ToolGetFile)
	}

	if !dirac.DownloadStarted(out) {
		return "", false, errors.Newf(errors.ErrCodeInvariantViolated,
			"%s did not even start downloading", dirac.ToolGetFile).
			WithOp("download").WithTool(dirac.ToolGetFile).WithOutput(out)
	}

	if dirac.ReportsFailure(out) {
		return "", false, errors.Newf(errors.ErrCodeToolReportedFailure,
			"error calling %s:\n%s", dirac.ToolGetFile, out).
			WithOp("download").WithTool(dirac.ToolGetFile).WithOutput(out)
	}

	// The fetch tool can return before the OS reports the file as
	// stat-able; sync before checking.
	o.syncFS()

	onDisk, err := afero.Exists(o.fs, path)
	if err != nil {
		return "", false, errors.Newf(errors.ErrCodeInternalError,
			"stat %s: %v", path, err).WithOp("download").WithCause(err)
	}

	if dirac.ReportsSuccess(out) && strings.Contains(out, dirac.TransferLine(lfn, path)) && onDisk {
		o.logger.Debug().Str("path", path).Msg("download confirmed")
		return path, true, nil
	}

	return "", false, nil
}

// Upload publishes the local staging file to the provider's default
// storage element under the object's logical file name. A missing success
// marker is an invariant violation; when the marker is present the
// returned boolean is true, preserving the historical contract.
func (o *Object) Upload(ctx context.Context) (bool, error) {
	source, err := filepath.Abs(o.localPath)
	if err != nil {
		return false, errors.Newf(errors.ErrCodeInternalError,
			"resolve %s: %v", o.localPath, err).WithOp("upload").WithCause(err)
	}

	args := []string{o.LogicalName(), source, o.provider.StorageElement()}
	out, err := o.client.Run(ctx, dirac.ToolAddFile, args, dirac.RunOptions{RawError: true})
	if err != nil {
		return false, wrapExit(err, "upload", dirac.ToolAddFile)
	}

	if !dirac.UploadSucceeded(out) {
		return false, errors.NewError(errors.ErrCodeInvariantViolated,
			"file upload failed").
			WithOp("upload").WithTool(dirac.ToolAddFile).WithOutput(out)
	}

	// The catalog entry just changed; cached metadata is stale now.
	if o.metaCache != nil {
		o.metaCache.Delete(o.LogicalName())
	}

	return true, nil
}

// List enumerates remote entries matching the object's path pattern.
//
// Not implemented. The intended design was to strip the filename from the
// pattern, run the listing tool on the directory portion and match the
// returned entries against the stripped pattern; it was never realized.
func (o *Object) List(ctx context.Context) ([]string, error) {
	return nil, errors.NewError(errors.ErrCodeNotImplemented,
		"directory listing is not implemented").WithOp("list").WithTool(dirac.ToolListDirectory)
}

// Host identifies the storage endpoint backing this object.
func (o *Object) Host() string {
	return o.provider.StorageElement()
}

// wrapExit converts a raw process failure into a wrapped workflow error
// carrying the captured stderr, attaching call-site context.
func wrapExit(err error, op, tool string) error {
	var exitErr *dirac.ExitError
	if stderr.As(err, &exitErr) {
		return errors.Newf(errors.ErrCodeCommandFailed,
			"error calling %s:\n%s", tool, exitErr.Stderr).
			WithOp(op).WithTool(tool).WithOutput(exitErr.Stderr).WithCause(exitErr.Err)
	}
	return err
}
