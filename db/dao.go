package db

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/origami/repo-data/types"
)

type RepoDataDao interface {
	IngestionDB
	VersionDB
	BundleDB
}

type RepoDataSvcDB struct {
	db *gorm.DB
}

func NewRepoDataSvcDB(db *gorm.DB) RepoDataDao {
	return &RepoDataSvcDB{
		db,
	}
}

func (d *RepoDataSvcDB) dialect() string {
	return d.db.Dialector.Name()
}

func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

type IngestionDB interface {
	CreateIngestion(i *Ingestion) error
	GetIngestion(id string) (*Ingestion, error)
	GetIngestions() ([]*Ingestion, error)
	GetIngestionBySource(url, tag string) (*Ingestion, error)
	GetIngestionByPackage(packageName, version string) (*Ingestion, error)
	ClaimNextIngestion(maxAttempts int, baseBackoff time.Duration, now time.Time) (*Ingestion, error)
	RecordIngestionFailure(id string, retire bool, maxAttempts int) error
	DeleteIngestion(id string) error
	RequeueIngestion(id string) (bool, error)
	GetOverAttemptedIngestions(maxAttempts int) ([]*Ingestion, error)
	GetOverRunningIngestions(threshold time.Duration, now time.Time) ([]*Ingestion, error)
}

func (d *RepoDataSvcDB) CreateIngestion(i *Ingestion) error {
	err := d.db.Create(i).Error
	if IsDuplicateEntry(err) {
		return types.WrapError(types.ConflictError, err, false, "ingestion %s already exists", i.Id)
	}
	return err
}

func (d *RepoDataSvcDB) GetIngestion(id string) (*Ingestion, error) {
	ingestion := Ingestion{}
	err := d.db.Model(Ingestion{}).Where("id = ?", id).Take(&ingestion).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &ingestion, nil
}

func (d *RepoDataSvcDB) GetIngestions() ([]*Ingestion, error) {
	ingestions := make([]*Ingestion, 0)
	if err := d.db.Order("created_at asc").Find(&ingestions).Error; err != nil {
		return ingestions, err
	}
	return ingestions, nil
}

func (d *RepoDataSvcDB) GetIngestionBySource(url, tag string) (*Ingestion, error) {
	ingestion := Ingestion{}
	err := d.db.Model(Ingestion{}).Where("url = ? AND tag = ?", url, tag).
		Where("type <> ?", IngestionTypeBundle).Take(&ingestion).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &ingestion, nil
}

func (d *RepoDataSvcDB) GetIngestionByPackage(packageName, version string) (*Ingestion, error) {
	ingestion := Ingestion{}
	err := d.db.Model(Ingestion{}).Where(&Ingestion{PackageName: &packageName, Version: &version}).
		Take(&ingestion).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &ingestion, nil
}

// ClaimNextIngestion atomically marks the least recently updated eligible
// ingestion as started and returns it, or nil when nothing is eligible.
// A row is eligible when it is not started, has attempts below maxAttempts
// and its backoff window created_at + baseBackoff * 2^attempts has passed.
// Concurrent callers never receive the same row.
func (d *RepoDataSvcDB) ClaimNextIngestion(maxAttempts int, baseBackoff time.Duration, now time.Time) (*Ingestion, error) {
	var claimed *Ingestion
	err := d.db.Transaction(func(dbTx *gorm.DB) error {
		cond, args := backoffCondition(d.dialect(), baseBackoff, now)
		ingestion := Ingestion{}
		err := dbTx.Model(Ingestion{}).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("ingestion_started_at IS NULL").
			Where("ingestion_attempts < ?", maxAttempts).
			Where(cond, args...).
			Order("updated_at asc").
			Take(&ingestion).Error
		if err != nil {
			return notFoundAsNil(err)
		}
		res := dbTx.Model(Ingestion{}).
			Where("id = ? AND ingestion_started_at IS NULL", ingestion.Id).
			Updates(map[string]interface{}{"ingestion_started_at": now, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		ingestion.IngestionStartedAt = &now
		ingestion.UpdatedAt = now
		claimed = &ingestion
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// RecordIngestionFailure releases a claimed ingestion and counts the failed
// attempt. When retire is set the attempts jump to maxAttempts so the row is
// never claimed again.
func (d *RepoDataSvcDB) RecordIngestionFailure(id string, retire bool, maxAttempts int) error {
	attempts := gorm.Expr("ingestion_attempts + 1")
	if retire {
		attempts = gorm.Expr("?", maxAttempts)
	}
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		return dbTx.Model(Ingestion{}).Where("id = ?", id).Updates(map[string]interface{}{
			"ingestion_attempts":   attempts,
			"ingestion_started_at": nil,
		}).Error
	})
}

func (d *RepoDataSvcDB) DeleteIngestion(id string) error {
	return d.db.Where("id = ?", id).Delete(&Ingestion{}).Error
}

// RequeueIngestion clears the start time of an in-progress ingestion without
// touching its attempt count. It reports whether a row was changed.
func (d *RepoDataSvcDB) RequeueIngestion(id string) (bool, error) {
	res := d.db.Model(Ingestion{}).
		Where("id = ? AND ingestion_started_at IS NOT NULL", id).
		Update("ingestion_started_at", nil)
	return res.RowsAffected == 1, res.Error
}

func (d *RepoDataSvcDB) GetOverAttemptedIngestions(maxAttempts int) ([]*Ingestion, error) {
	ingestions := make([]*Ingestion, 0)
	err := d.db.Where("ingestion_attempts >= ?", maxAttempts).Order("created_at asc").Find(&ingestions).Error
	return ingestions, err
}

func (d *RepoDataSvcDB) GetOverRunningIngestions(threshold time.Duration, now time.Time) ([]*Ingestion, error) {
	ingestions := make([]*Ingestion, 0)
	err := d.db.Where("ingestion_started_at IS NOT NULL AND ingestion_started_at <= ?", now.Add(-threshold)).
		Order("ingestion_started_at asc").Find(&ingestions).Error
	return ingestions, err
}

type VersionDB interface {
	CreateVersion(v *Version) error
	GetVersion(id string) (*Version, error)
	GetVersionByUrlAndTag(url, tag string) (*Version, error)
	GetVersionsByRepoId(repoId string) ([]*Version, error)
	GetVersionByRepoIdAndNumber(repoId, number string) (*Version, error)
	GetLatestVersionByRepoId(repoId string) (*Version, error)
	GetLatestVersionByName(name string) (*Version, error)
	GetLatestVersions() ([]*Version, error)
	CountVersions() (int64, error)
}

// CreateVersion inserts a new version. A version with the same url and tag
// yields a ConflictError.
func (d *RepoDataSvcDB) CreateVersion(v *Version) error {
	err := d.db.Transaction(func(dbTx *gorm.DB) error {
		return dbTx.Create(v).Error
	})
	if IsDuplicateEntry(err) {
		return types.WrapError(types.ConflictError, err, false, "version %s %s already exists", v.Url, v.Tag)
	}
	return err
}

func (d *RepoDataSvcDB) GetVersion(id string) (*Version, error) {
	version := Version{}
	err := d.db.Model(Version{}).Where("id = ?", id).Take(&version).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &version, nil
}

func (d *RepoDataSvcDB) GetVersionByUrlAndTag(url, tag string) (*Version, error) {
	version := Version{}
	err := d.db.Model(Version{}).Where("url = ? AND tag = ?", url, tag).Take(&version).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &version, nil
}

func semverOrder(dbTx *gorm.DB) *gorm.DB {
	return dbTx.Order("version_major desc").Order("version_minor desc").Order("version_patch desc").
		Order("created_at desc")
}

func (d *RepoDataSvcDB) GetVersionsByRepoId(repoId string) ([]*Version, error) {
	versions := make([]*Version, 0)
	err := semverOrder(d.db.Where("repo_id = ?", repoId)).Find(&versions).Error
	return versions, err
}

func (d *RepoDataSvcDB) GetVersionByRepoIdAndNumber(repoId, number string) (*Version, error) {
	version := Version{}
	err := d.db.Model(Version{}).Where("repo_id = ? AND version = ?", repoId, NormaliseSemver(number)).
		Take(&version).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &version, nil
}

// GetLatestVersionByRepoId returns the highest stable version of a repo,
// falling back to the highest prerelease when no stable version exists.
func (d *RepoDataSvcDB) GetLatestVersionByRepoId(repoId string) (*Version, error) {
	return d.latestVersion(d.db.Where("repo_id = ?", repoId))
}

func (d *RepoDataSvcDB) GetLatestVersionByName(name string) (*Version, error) {
	return d.latestVersion(d.db.Where("name = ?", name))
}

func (d *RepoDataSvcDB) latestVersion(scope *gorm.DB) (*Version, error) {
	version := Version{}
	err := semverOrder(scope.Session(&gorm.Session{}).Model(Version{}).Where("version_prerelease IS NULL")).
		Take(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = semverOrder(scope.Session(&gorm.Session{}).Model(Version{})).Take(&version).Error
	}
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &version, nil
}

// GetLatestVersions returns the latest version of every repo, ordered by name.
func (d *RepoDataSvcDB) GetLatestVersions() ([]*Version, error) {
	repoIds := make([]string, 0)
	if err := d.db.Model(Version{}).Distinct("repo_id").Pluck("repo_id", &repoIds).Error; err != nil {
		return nil, err
	}
	versions := make([]*Version, 0, len(repoIds))
	for _, repoId := range repoIds {
		v, err := d.GetLatestVersionByRepoId(repoId)
		if err != nil {
			return nil, err
		}
		if v != nil {
			versions = append(versions, v)
		}
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Name < versions[j].Name
	})
	return versions, nil
}

func (d *RepoDataSvcDB) CountVersions() (int64, error) {
	var count int64
	err := d.db.Model(Version{}).Count(&count).Error
	return count, err
}

type BundleDB interface {
	UpsertBundle(b *Bundle) error
	GetBundlesByVersionId(versionId string, bundleType string, brand *string) ([]*Bundle, error)
}

// UpsertBundle creates or replaces the bundle identified by its version id,
// type and brand in a single statement, then loads the stored row into b.
func (d *RepoDataSvcDB) UpsertBundle(b *Bundle) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		err := dbTx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "version_id"}, {Name: "type"}, {Name: "brand"}},
			DoUpdates: clause.AssignmentColumns([]string{"url", "sizes", "updated_at"}),
		}).Create(b).Error
		if err != nil {
			return err
		}
		stored := Bundle{}
		err = whereBrand(dbTx.Model(Bundle{}).Where("version_id = ? AND type = ?", b.VersionId, b.Type), b.Brand).
			Take(&stored).Error
		if err != nil {
			return err
		}
		*b = stored
		return nil
	})
}

// GetBundlesByVersionId lists bundles of a version, optionally filtered by
// type and brand. Empty filters match everything.
func (d *RepoDataSvcDB) GetBundlesByVersionId(versionId string, bundleType string, brand *string) ([]*Bundle, error) {
	bundles := make([]*Bundle, 0)
	query := d.db.Where("version_id = ?", versionId)
	if bundleType != "" {
		query = query.Where("type = ?", bundleType)
	}
	if brand != nil {
		query = whereBrand(query, brand)
	}
	err := query.Order("type asc").Order("brand asc").Find(&bundles).Error
	return bundles, err
}

func whereBrand(query *gorm.DB, brand *string) *gorm.DB {
	if brand == nil {
		return query.Where("brand = ?", "")
	}
	return query.Where("brand = ?", *brand)
}

func AutoMigrateDB(db *gorm.DB) {
	var err error
	if err = db.AutoMigrate(&Ingestion{}); err != nil {
		panic(err)
	}
	if err = db.AutoMigrate(&Version{}); err != nil {
		panic(err)
	}
	if err = db.AutoMigrate(&Bundle{}); err != nil {
		panic(err)
	}
}
