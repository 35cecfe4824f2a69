package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/origami/repo-data/config"
	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/entity"
	"github.com/origami/repo-data/types"
	"github.com/origami/repo-data/util"
)

var (
	githubRepositoryRegexp = regexp.MustCompile(`^https://github\.com/[\w.-]+/[\w.-]+$`)
	npmPackageNameRegexp   = regexp.MustCompile(`^(@[a-z0-9][\w.-]*/)?[a-z0-9][\w.-]*$`)
)

// Submission is a request to queue one ingestion. An empty Type means a
// GitHub version ingestion.
type Submission struct {
	Type        string `json:"type"`
	Url         string `json:"url"`
	Tag         string `json:"tag"`
	PackageName string `json:"packageName"`
	Version     string `json:"version"`
}

type Ingestion interface {
	Submit(s Submission) (*entity.Ingestion, error)
	GetIngestion(id string) (*entity.Ingestion, error)
	ListIngestions() ([]*entity.Ingestion, error)
	ListDeadIngestions() ([]*entity.Ingestion, error)
	ListStuckIngestions() ([]*entity.Ingestion, error)
	Requeue(id string) (*entity.Ingestion, error)
}

type IngestionService struct {
	dao    db.RepoDataDao
	config *config.SyncerConfig
	now    func() time.Time
}

func NewIngestionService(dao db.RepoDataDao, cfg *config.SyncerConfig) Ingestion {
	return &IngestionService{
		dao:    dao,
		config: cfg,
		now:    time.Now,
	}
}

// Submit validates s and queues it. Sources that are already ingested or
// queued are rejected with a 409.
func (i *IngestionService) Submit(s Submission) (*entity.Ingestion, error) {
	var (
		ingestion *db.Ingestion
		err       error
	)
	switch db.IngestionType(s.Type) {
	case "", db.IngestionTypeVersion:
		ingestion, err = i.versionIngestion(s)
	case db.IngestionTypeNpm:
		ingestion, err = i.npmIngestion(s)
	case db.IngestionTypeBundle:
		ingestion, err = i.bundleIngestion(s)
	default:
		return nil, ErrBadRequest.Enrich(fmt.Sprintf("ingestion type %q is not supported", s.Type))
	}
	if err != nil {
		return nil, err
	}
	if err := i.dao.CreateIngestion(ingestion); err != nil {
		return nil, fromStoreError(err)
	}
	return entity.ToIngestion(ingestion), nil
}

func (i *IngestionService) versionIngestion(s Submission) (*db.Ingestion, error) {
	url := strings.TrimSpace(s.Url)
	tag := strings.TrimSpace(s.Tag)
	if !githubRepositoryRegexp.MatchString(url) {
		return nil, ErrBadRequest.Enrich("url must be an https GitHub repository url")
	}
	if _, err := db.ParseSemver(tag); err != nil {
		return nil, ErrBadRequest.Enrich("tag must be a valid semantic version")
	}
	version, err := i.dao.GetVersionByUrlAndTag(url, tag)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if version != nil {
		return nil, ErrConflict.Enrich(fmt.Sprintf("version %s of %s has already been ingested", tag, url))
	}
	queued, err := i.dao.GetIngestionBySource(url, tag)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if queued != nil {
		return nil, ErrConflict.Enrich(fmt.Sprintf("version %s of %s is already queued as %s", tag, url, queued.Id))
	}
	return &db.Ingestion{
		Url:  util.StringPtr(url),
		Tag:  util.StringPtr(tag),
		Type: db.IngestionTypeVersion,
	}, nil
}

func (i *IngestionService) npmIngestion(s Submission) (*db.Ingestion, error) {
	name := strings.TrimSpace(s.PackageName)
	number := strings.TrimSpace(s.Version)
	if !npmPackageNameRegexp.MatchString(name) {
		return nil, ErrBadRequest.Enrich("packageName must be a valid npm package name")
	}
	if _, err := db.ParseSemver(number); err != nil {
		return nil, ErrBadRequest.Enrich("version must be a valid semantic version")
	}
	url := types.GetRepositoryURL(i.config.GetRepositoryOrgURL(), name)
	version, err := i.dao.GetVersionByUrlAndTag(url, number)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if version != nil {
		return nil, ErrConflict.Enrich(fmt.Sprintf("%s@%s has already been ingested", name, number))
	}
	queued, err := i.dao.GetIngestionByPackage(name, number)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if queued != nil {
		return nil, ErrConflict.Enrich(fmt.Sprintf("%s@%s is already queued as %s", name, number, queued.Id))
	}
	return &db.Ingestion{
		PackageName: util.StringPtr(name),
		Version:     util.StringPtr(number),
		Type:        db.IngestionTypeNpm,
	}, nil
}

// bundleIngestion refreshes the bundles of a version that already exists.
func (i *IngestionService) bundleIngestion(s Submission) (*db.Ingestion, error) {
	url := strings.TrimSpace(s.Url)
	tag := strings.TrimSpace(s.Tag)
	version, err := i.dao.GetVersionByUrlAndTag(url, tag)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if version == nil {
		return nil, ErrNotFound.Enrich(fmt.Sprintf("no version %s of %s has been ingested", tag, url))
	}
	return &db.Ingestion{
		Url:  util.StringPtr(url),
		Tag:  util.StringPtr(tag),
		Type: db.IngestionTypeBundle,
	}, nil
}

func (i *IngestionService) GetIngestion(id string) (*entity.Ingestion, error) {
	ingestion, err := i.dao.GetIngestion(id)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if ingestion == nil {
		return nil, ErrNotFound.Enrich(fmt.Sprintf("ingestion %s", id))
	}
	return entity.ToIngestion(ingestion), nil
}

func (i *IngestionService) ListIngestions() ([]*entity.Ingestion, error) {
	ingestions, err := i.dao.GetIngestions()
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	return toIngestions(ingestions), nil
}

// ListDeadIngestions lists ingestions that will never be claimed again.
func (i *IngestionService) ListDeadIngestions() ([]*entity.Ingestion, error) {
	ingestions, err := i.dao.GetOverAttemptedIngestions(i.config.GetMaxIngestionAttempts())
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	return toIngestions(ingestions), nil
}

// ListStuckIngestions lists ingestions claimed longer ago than the
// over-running threshold.
func (i *IngestionService) ListStuckIngestions() ([]*entity.Ingestion, error) {
	ingestions, err := i.dao.GetOverRunningIngestions(i.config.GetOverrunningThreshold(), i.now())
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	return toIngestions(ingestions), nil
}

// Requeue releases an in-progress ingestion so another worker can claim it.
func (i *IngestionService) Requeue(id string) (*entity.Ingestion, error) {
	requeued, err := i.dao.RequeueIngestion(id)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if !requeued {
		return nil, ErrNotFound.Enrich(fmt.Sprintf("no in-progress ingestion %s", id))
	}
	return i.GetIngestion(id)
}

func toIngestions(ingestions []*db.Ingestion) []*entity.Ingestion {
	views := make([]*entity.Ingestion, 0, len(ingestions))
	for _, ingestion := range ingestions {
		views = append(views, entity.ToIngestion(ingestion))
	}
	return views
}
