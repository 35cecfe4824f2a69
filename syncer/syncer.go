package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/origami/repo-data/cache"
	"github.com/origami/repo-data/config"
	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/external"
	"github.com/origami/repo-data/logging"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/metrics"
	"github.com/origami/repo-data/types"
	"github.com/origami/repo-data/util"
)

// Syncer runs the ingestion workers: each worker claims queued ingestions,
// materializes them and records the outcome on the queue row.
type Syncer struct {
	dao          db.RepoDataDao
	config       *config.SyncerConfig
	source       external.SourceClient
	packages     external.PackageDownloader
	prober       external.SizeProber
	announcer    external.Announcer
	materializer *Materializer
	bundles      *BundleUpdater
	now          func() time.Time
	wg           sync.WaitGroup
}

type Option func(*Syncer)

func WithSourceClient(source external.SourceClient) Option {
	return func(s *Syncer) {
		s.source = source
	}
}

func WithPackageDownloader(packages external.PackageDownloader) Option {
	return func(s *Syncer) {
		s.packages = packages
	}
}

func WithSizeProber(prober external.SizeProber) Option {
	return func(s *Syncer) {
		s.prober = prober
	}
}

func WithAnnouncer(announcer external.Announcer) Option {
	return func(s *Syncer) {
		s.announcer = announcer
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

// NewSyncer wires the collaborators described by cfg. Options replace any of
// them.
func NewSyncer(dao db.RepoDataDao, cfg *config.SyncerConfig, fileCache cache.Cache, opts ...Option) *Syncer {
	s := &Syncer{
		dao:    dao,
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if fileCache == nil {
		fileCache = cache.NoopCache{}
	}
	if s.source == nil {
		s.source = external.NewGithubClient(cfg.GetGithubAPIURL(),
			external.WithGithubHTTPClient(external.NewHTTPClient(cfg.GetHTTPTimeout())),
			external.WithGithubAuthToken(cfg.GithubAuthToken),
			external.WithGithubCache(fileCache),
		)
	}
	if s.packages == nil {
		s.packages = external.NewNpmClient(external.WithTarballTimeout(cfg.GetTarballTimeout()))
	}
	if s.prober == nil {
		s.prober = external.NewBuildServiceClient(external.WithProbeTimeout(cfg.GetBundleProbeTimeout()))
	}
	defaults := manifest.Defaults{SupportEmail: cfg.GetSupportEmail(), SupportChannel: cfg.GetSupportChannel()}
	if s.announcer == nil {
		if cfg.SlackAuthToken != "" {
			s.announcer = external.NewSlackAnnouncer(cfg.SlackAuthToken, cfg.GetSlackChannelIds(), cfg.GetRegistryURL(), defaults)
		} else {
			s.announcer = external.NoopAnnouncer{}
		}
	}
	s.materializer = NewMaterializer(dao, s.source, s.packages, manifest.NewNormalizer(defaults),
		cfg.GetNpmRegistryURL(), cfg.GetRepositoryOrgURL(), cfg.GetTempDir())
	s.bundles = NewBundleUpdater(dao, s.prober, cfg.GetBuildServiceBundlesURL())
	return s
}

// StartLoop starts the workers and the queue monitor. They stop when ctx is
// done; Wait blocks until they have.
func (s *Syncer) StartLoop(ctx context.Context) {
	for i := 0; i < s.config.GetWorkers(); i++ {
		s.wg.Add(1)
		go func(worker int) {
			defer s.wg.Done()
			s.work(ctx, worker)
		}(i)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.monitorQueue(ctx)
	}()
}

// Wait returns once every goroutine started by StartLoop has exited.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

func (s *Syncer) work(ctx context.Context, worker int) {
	logging.Logger.Infof("ingestion worker %d started", worker)
	ticker := time.NewTicker(s.config.GetPollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Logger.Infof("ingestion worker %d stopped", worker)
			return
		case <-ticker.C:
		}
		// drain the queue before sleeping again
		for ctx.Err() == nil {
			processed, err := s.ProcessNext(ctx)
			if err != nil {
				logging.Logger.Errorf("worker %d failed to process ingestion, err=%s", worker, err.Error())
				break
			}
			if !processed {
				break
			}
		}
	}
}

// ProcessNext claims one ingestion and processes it. It reports whether an
// ingestion was claimed. Ingestion failures are recorded on the queue row,
// only storage failures are returned.
func (s *Syncer) ProcessNext(ctx context.Context) (bool, error) {
	ingestion, err := s.dao.ClaimNextIngestion(s.config.GetMaxIngestionAttempts(), s.config.GetBaseBackoff(), s.now())
	if err != nil {
		return false, fmt.Errorf("failed to claim ingestion: %w", err)
	}
	if ingestion == nil {
		return false, nil
	}
	logging.Logger.Infof("claimed ingestion %s (%s %s), attempt=%d",
		ingestion.Id, ingestion.Type, describeIngestion(ingestion), ingestion.IngestionAttempts+1)

	start := time.Now()
	err = s.process(ctx, ingestion)
	metrics.IngestionDurationHistogram.WithLabelValues(string(ingestion.Type)).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return true, s.releaseInterrupted(ingestion, err)
		}
		return true, s.recordFailure(ingestion, err)
	}

	metrics.IngestionsProcessedCounter.WithLabelValues(string(ingestion.Type), metrics.ResultSucceeded).Inc()
	logging.Logger.Infof("ingestion %s (%s) completed", ingestion.Id, describeIngestion(ingestion))
	return true, s.dao.DeleteIngestion(ingestion.Id)
}

func (s *Syncer) process(ctx context.Context, ingestion *db.Ingestion) error {
	var (
		version *db.Version
		err     error
	)
	switch ingestion.Type {
	case db.IngestionTypeVersion:
		version, err = s.materializer.FromGithub(ctx, util.StringValue(ingestion.Url), util.StringValue(ingestion.Tag))
	case db.IngestionTypeNpm:
		version, err = s.materializer.FromNpm(ctx, util.StringValue(ingestion.PackageName), util.StringValue(ingestion.Version))
	case db.IngestionTypeBundle:
		return s.refreshBundles(ctx, ingestion)
	default:
		return types.NewError(types.UnsupportedIngestionKind,
			fmt.Sprintf("ingestion kind %q is not supported", ingestion.Type), false)
	}
	if err != nil {
		return err
	}

	s.updateBundles(ctx, version)
	if err := s.announcer.Announce(ctx, version); err != nil {
		logging.Logger.Errorf("failed to announce %s@%s, err=%s", version.Name, version.Version, err.Error())
	}
	return nil
}

// updateBundles runs right after a version is saved. Retrying the original
// ingestion would conflict with the saved version, so a recoverable failure
// queues a bundle-only ingestion instead.
func (s *Syncer) updateBundles(ctx context.Context, version *db.Version) {
	bundles, err := s.bundles.Update(ctx, version)
	if err == nil {
		logging.Logger.Infof("updated %d bundle(s) of %s@%s", len(bundles), version.Name, version.Version)
		return
	}
	if !types.IsRecoverable(err) {
		logging.Logger.Errorf("bundle sizes of %s@%s cannot be computed, recoverable=false, err=%s",
			version.Name, version.Version, err.Error())
		return
	}
	logging.Logger.Warningf("bundle sizes of %s@%s failed, queueing a bundle ingestion, err=%s",
		version.Name, version.Version, err.Error())
	retry := &db.Ingestion{
		Url:  util.StringPtr(version.Url),
		Tag:  util.StringPtr(version.Tag),
		Type: db.IngestionTypeBundle,
	}
	if err := s.dao.CreateIngestion(retry); err != nil {
		logging.Logger.Errorf("failed to queue bundle ingestion for %s@%s, err=%s", version.Name, version.Version, err.Error())
	}
}

func (s *Syncer) refreshBundles(ctx context.Context, ingestion *db.Ingestion) error {
	url, tag := util.StringValue(ingestion.Url), util.StringValue(ingestion.Tag)
	version, err := s.dao.GetVersionByUrlAndTag(url, tag)
	if err != nil {
		return err
	}
	if version == nil {
		return types.NewError(types.SourceNotFound, fmt.Sprintf("no version exists for %s#%s", url, tag), false)
	}
	_, err = s.bundles.Update(ctx, version)
	return err
}

// releaseInterrupted puts back an ingestion whose processing was cut short by
// shutdown. The attempt is not counted.
func (s *Syncer) releaseInterrupted(ingestion *db.Ingestion, cause error) error {
	logging.Logger.Warningf("ingestion %s (%s) interrupted, releasing it without counting the attempt, err=%s",
		ingestion.Id, describeIngestion(ingestion), cause.Error())
	if _, err := s.dao.RequeueIngestion(ingestion.Id); err != nil {
		return fmt.Errorf("failed to release interrupted ingestion %s: %w", ingestion.Id, err)
	}
	return nil
}

// recordFailure returns the ingestion to the queue with one more attempt.
// Non-recoverable failures are retired at once when configured to.
func (s *Syncer) recordFailure(ingestion *db.Ingestion, cause error) error {
	recoverable := types.IsRecoverable(cause)
	retire := !recoverable && s.config.DeadLetterNonRecoverable
	result := metrics.ResultRecoverable
	if recoverable {
		logging.Logger.Warningf("ingestion %s (%s) failed, attempt=%d, recoverable=true, kind=%s, err=%s",
			ingestion.Id, describeIngestion(ingestion), ingestion.IngestionAttempts+1, types.KindOf(cause), cause.Error())
	} else {
		result = metrics.ResultNonRecoverable
		logging.Logger.Errorf("ingestion %s (%s) failed, attempt=%d, recoverable=false, retired=%t, kind=%s, err=%s",
			ingestion.Id, describeIngestion(ingestion), ingestion.IngestionAttempts+1, retire, types.KindOf(cause), cause.Error())
	}
	metrics.IngestionsProcessedCounter.WithLabelValues(string(ingestion.Type), result).Inc()

	if err := s.dao.RecordIngestionFailure(ingestion.Id, retire, s.config.GetMaxIngestionAttempts()); err != nil {
		return fmt.Errorf("failed to record failure of ingestion %s: %w", ingestion.Id, err)
	}
	if !retire && ingestion.IngestionAttempts+1 < s.config.GetMaxIngestionAttempts() {
		next := *ingestion
		next.IngestionAttempts++
		logging.Logger.Infof("ingestion %s will be retried after %s",
			ingestion.Id, next.EarliestAttemptAt(s.config.GetBaseBackoff()).Format(time.RFC3339))
	}
	return nil
}
