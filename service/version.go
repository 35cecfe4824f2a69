package service

import (
	"fmt"
	"strings"

	"github.com/origami/repo-data/cache"
	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/entity"
)

type Version interface {
	ListRepos() ([]*entity.Version, error)
	GetRepo(idOrName string) (*entity.Version, error)
	ListVersions(repoId string) ([]*entity.Version, error)
	GetVersion(repoId, idOrNumber string) (*entity.Version, error)
	GetBundles(repoId, versionId, language, brand string) ([]*entity.Bundle, error)
}

type VersionService struct {
	dao          db.RepoDataDao
	cacheService cache.Cache
	options      entity.ViewOptions
}

func NewVersionService(dao db.RepoDataDao, cache cache.Cache, options entity.ViewOptions) Version {
	return &VersionService{
		dao:          dao,
		cacheService: cache,
		options:      options,
	}
}

// ListRepos lists every repository through its latest version.
func (v *VersionService) ListRepos() ([]*entity.Version, error) {
	versions, err := v.dao.GetLatestVersions()
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	repos := make([]*entity.Version, 0, len(versions))
	for _, version := range versions {
		repos = append(repos, entity.ToRepo(version, v.options))
	}
	return repos, nil
}

// GetRepo finds a repository by repo id, falling back to its name.
func (v *VersionService) GetRepo(idOrName string) (*entity.Version, error) {
	latest, err := v.dao.GetLatestVersionByRepoId(idOrName)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if latest == nil {
		latest, err = v.dao.GetLatestVersionByName(idOrName)
		if err != nil {
			return nil, InternalErrorWithError(err)
		}
	}
	if latest == nil {
		return nil, ErrNotFound.Enrich(fmt.Sprintf("repo %s", idOrName))
	}
	return entity.ToRepo(latest, v.options), nil
}

func (v *VersionService) ListVersions(repoId string) ([]*entity.Version, error) {
	versions, err := v.dao.GetVersionsByRepoId(repoId)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if len(versions) == 0 {
		return nil, ErrNotFound.Enrich(fmt.Sprintf("repo %s", repoId))
	}
	views := make([]*entity.Version, 0, len(versions))
	for _, version := range versions {
		views = append(views, entity.ToVersion(version, v.options))
	}
	return views, nil
}

// GetVersion finds a version of a repository by id or version number.
// Versions never change, so lookups are cached.
func (v *VersionService) GetVersion(repoId, idOrNumber string) (*entity.Version, error) {
	version, err := v.findVersion(repoId, idOrNumber)
	if err != nil {
		return nil, err
	}
	return entity.ToVersion(version, v.options), nil
}

func (v *VersionService) findVersion(repoId, idOrNumber string) (*db.Version, error) {
	key := fmt.Sprintf("version:%s:%s", repoId, idOrNumber)
	if cached, found := v.cacheService.Get(key); found {
		return cached.(*db.Version), nil
	}
	version, err := v.dao.GetVersion(idOrNumber)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	if version == nil || version.RepoId != repoId {
		version, err = v.dao.GetVersionByRepoIdAndNumber(repoId, idOrNumber)
		if err != nil {
			return nil, InternalErrorWithError(err)
		}
	}
	if version == nil {
		return nil, ErrNotFound.Enrich(fmt.Sprintf("version %s of repo %s", idOrNumber, repoId))
	}
	v.cacheService.Set(key, version)
	return version, nil
}

// GetBundles lists the bundles of a version. language and brand filter the
// result when set; the brand "none" selects unbranded bundles.
func (v *VersionService) GetBundles(repoId, versionId, language, brand string) ([]*entity.Bundle, error) {
	version, err := v.findVersion(repoId, versionId)
	if err != nil {
		return nil, err
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "scss" {
		language = db.BundleTypeCSS
	}
	if language != "" && language != db.BundleTypeCSS && language != db.BundleTypeJS {
		return nil, ErrBadRequest.Enrich(fmt.Sprintf("bundle language %q is not supported", language))
	}
	var brandFilter *string
	switch brand = strings.ToLower(strings.TrimSpace(brand)); brand {
	case "":
	case "none":
		empty := ""
		brandFilter = &empty
	default:
		brandFilter = &brand
	}
	bundles, err := v.dao.GetBundlesByVersionId(version.Id, language, brandFilter)
	if err != nil {
		return nil, InternalErrorWithError(err)
	}
	views := make([]*entity.Bundle, 0, len(bundles))
	for _, bundle := range bundles {
		views = append(views, entity.ToBundle(bundle))
	}
	return views, nil
}
