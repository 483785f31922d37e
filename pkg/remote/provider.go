package remote

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/diracstore/diracstore/internal/cache"
	"github.com/diracstore/diracstore/internal/storage/dirac"
	"github.com/diracstore/diracstore/pkg/types"
)

const (
	// Scheme is the addressing scheme prepended to logical file names.
	Scheme = "LFN://"

	// DefaultStorageElement is the storage endpoint uploads target when
	// none is configured.
	DefaultStorageElement = "CERN-USER"

	// DefaultRetry is the default retry budget per command invocation.
	DefaultRetry = 2
)

// Provider supplies the addressing scheme to the workflow engine and
// holds configuration shared by every Object created under it.
type Provider struct {
	client         *dirac.Client
	retry          int
	retryDelay     time.Duration
	commandTimeout time.Duration
	storageElement string

	keepLocal    bool
	stayOnRemote bool
	isDefault    bool

	logger zerolog.Logger
	fs     afero.Fs
	sync   func()

	cacheTTL  time.Duration
	metaCache *cache.MetadataCache

	runner   dirac.Runner
	observer dirac.Observer
}

var _ types.RemoteProvider = (*Provider)(nil)

// Option customizes a Provider.
type Option func(*Provider)

// WithRetry sets the retry budget for command invocations.
func WithRetry(retry int) Option {
	return func(p *Provider) { p.retry = retry }
}

// WithRetryDelay sets the pause between command retries.
func WithRetryDelay(delay time.Duration) Option {
	return func(p *Provider) { p.retryDelay = delay }
}

// WithCommandTimeout bounds the runtime of a single command invocation.
// Zero means no per-invocation bound beyond the caller's context.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(p *Provider) { p.commandTimeout = timeout }
}

// WithMetadataCacheTTL enables caching of catalog metadata replies for
// the given lifetime. Zero (the default) disables caching, so every
// query reaches the catalog.
func WithMetadataCacheTTL(ttl time.Duration) Option {
	return func(p *Provider) { p.cacheTTL = ttl }
}

// WithStorageElement sets the default storage element for uploads.
func WithStorageElement(se string) Option {
	return func(p *Provider) { p.storageElement = se }
}

// WithKeepLocal marks staged files to be kept after the workflow ends.
// Pass-through flag; not interpreted by this adapter.
func WithKeepLocal(keep bool) Option {
	return func(p *Provider) { p.keepLocal = keep }
}

// WithStayOnRemote marks files to be consumed in place on the remote.
// Pass-through flag; not interpreted by this adapter.
func WithStayOnRemote(stay bool) Option {
	return func(p *Provider) { p.stayOnRemote = stay }
}

// WithIsDefault marks this provider as the engine's default scheme.
// Pass-through flag; not interpreted by this adapter.
func WithIsDefault(isDefault bool) Option {
	return func(p *Provider) { p.isDefault = isDefault }
}

// WithLogger sets the logger used by the provider and its objects.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithFs substitutes the local filesystem used for staging checks.
func WithFs(fs afero.Fs) Option {
	return func(p *Provider) { p.fs = fs }
}

// WithSyncFunc substitutes the filesystem sync performed after downloads.
func WithSyncFunc(sync func()) Option {
	return func(p *Provider) { p.sync = sync }
}

// WithCommandRunner substitutes the command execution primitive.
func WithCommandRunner(runner dirac.Runner) Option {
	return func(p *Provider) { p.runner = runner }
}

// WithObserver attaches an invocation observer, e.g. a metrics exporter.
func WithObserver(observer dirac.Observer) Option {
	return func(p *Provider) { p.observer = observer }
}

// NewProvider creates a provider for a detected toolchain. It fails only
// on invalid configuration; toolchain detection happens beforehand via
// dirac.DetectToolchain so the availability error surfaces at startup.
func NewProvider(toolchain dirac.Toolchain, opts ...Option) (*Provider, error) {
	p := &Provider{
		retry:          DefaultRetry,
		storageElement: DefaultStorageElement,
		logger:         zerolog.Nop(),
		fs:             afero.NewOsFs(),
		sync:           osSync,
	}
	for _, opt := range opts {
		opt(p)
	}

	cfg := dirac.NewDefaultConfig()
	cfg.Retry = p.retry
	if p.retryDelay > 0 {
		cfg.RetryDelay = p.retryDelay
	}
	if p.commandTimeout > 0 {
		cfg.CommandTimeout = p.commandTimeout
	}

	var clientOpts []dirac.ClientOption
	if p.runner != nil {
		clientOpts = append(clientOpts, dirac.WithRunner(p.runner))
	}
	if p.observer != nil {
		clientOpts = append(clientOpts, dirac.WithObserver(p.observer))
	}

	client, err := dirac.NewClient(toolchain, cfg, p.logger, clientOpts...)
	if err != nil {
		return nil, err
	}
	p.client = client

	if p.cacheTTL > 0 {
		p.metaCache = cache.NewMetadataCache(&cache.Config{
			MaxEntries: 4096,
			TTL:        p.cacheTTL,
		})
	}

	return p, nil
}

// DefaultProtocol is the scheme prepended to a path when none is given.
func (p *Provider) DefaultProtocol() string {
	return Scheme
}

// AvailableProtocols lists the schemes this provider accepts.
func (p *Provider) AvailableProtocols() []string {
	return []string{Scheme}
}

// Retry returns the configured retry budget.
func (p *Provider) Retry() int {
	return p.retry
}

// StorageElement returns the configured default storage element.
func (p *Provider) StorageElement() string {
	return p.storageElement
}

// KeepLocal reports the pass-through keep-local flag.
func (p *Provider) KeepLocal() bool {
	return p.keepLocal
}

// StayOnRemote reports the pass-through stay-on-remote flag.
func (p *Provider) StayOnRemote() bool {
	return p.stayOnRemote
}

// IsDefault reports the pass-through default-provider flag.
func (p *Provider) IsDefault() bool {
	return p.isDefault
}

// Metrics returns a snapshot of command-client metrics.
func (p *Provider) Metrics() dirac.ClientMetrics {
	return p.client.Metrics()
}

// CacheStats returns metadata cache statistics, or the zero value when
// caching is disabled.
func (p *Provider) CacheStats() cache.Stats {
	if p.metaCache == nil {
		return cache.Stats{}
	}
	return p.metaCache.Stats()
}

// Object binds a remote path and a local staging path to this provider.
func (p *Provider) Object(remotePath, localPath string) *Object {
	return &Object{
		provider:   p,
		client:     p.client,
		remotePath: remotePath,
		localPath:  localPath,
		fs:         p.fs,
		syncFS:     p.sync,
		logger:     p.logger.With().Str("lfn", remotePath).Logger(),
		metaCache:  p.metaCache,
	}
}
