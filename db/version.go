package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/types"
)

// Version is one tagged release of a repository. Versions are never updated
// once created.
type Version struct {
	Id                string            `gorm:"primaryKey;size:36"`
	RepoId            string            `gorm:"NOT NULL;size:36;index:idx_versions_repo_id"`
	Name              string            `gorm:"NOT NULL;size:214;index:idx_versions_name"`
	Type              *string           `gorm:"size:32"`
	Url               string            `gorm:"NOT NULL;size:255;uniqueIndex:idx_versions_url_tag"`
	Tag               string            `gorm:"NOT NULL;size:128;uniqueIndex:idx_versions_url_tag"`
	Version           string            `gorm:"NOT NULL;size:128"`
	VersionMajor      int               `gorm:"NOT NULL"`
	VersionMinor      int               `gorm:"NOT NULL"`
	VersionPatch      int               `gorm:"NOT NULL"`
	VersionPrerelease *string           `gorm:"size:128"`
	OrigamiVersion    *string           `gorm:"size:16"`
	Languages         []string          `gorm:"serializer:json;type:text"`
	Manifests         manifest.Bag      `gorm:"serializer:json;type:text"`
	Markdown          manifest.Markdown `gorm:"serializer:json;type:text"`
	SupportEmail      *string           `gorm:"size:255"`
	SupportChannel    *string           `gorm:"size:255"`
	SupportStatus     *string           `gorm:"size:32"`
	CreatedAt         time.Time         `gorm:"NOT NULL"`
	UpdatedAt         time.Time         `gorm:"NOT NULL"`
}

func (*Version) TableName() string {
	return "versions"
}

func (v *Version) BeforeCreate(*gorm.DB) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	return nil
}

// BeforeSave derives the repo id and semantic version fields, which are
// never set directly.
func (v *Version) BeforeSave(*gorm.DB) error {
	v.RepoId = RepoIdFromURL(v.Url)
	sv, err := ParseSemver(v.Tag)
	if err != nil {
		return types.WrapError(types.InvalidSource, err, false, "tag %q of %s is not a valid version", v.Tag, v.Url)
	}
	v.Version = sv.String()
	v.VersionMajor = int(sv.Major())
	v.VersionMinor = int(sv.Minor())
	v.VersionPatch = int(sv.Patch())
	v.VersionPrerelease = nil
	if pre := sv.Prerelease(); pre != "" {
		v.VersionPrerelease = &pre
	}
	if v.Languages == nil {
		v.Languages = []string{}
	}
	return nil
}

// RepoIdFromURL is the name-based (v5) uuid of a repository url, shared by
// every version of the repository.
func RepoIdFromURL(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// ParseSemver parses a git tag or npm version such as "v1.2.3-beta.1".
func ParseSemver(tag string) (*semver.Version, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(tag), "v=")
	sv, err := semver.StrictNewVersion(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid semantic version: %w", tag, err)
	}
	return sv, nil
}

// NormaliseSemver returns the canonical form of a version number, or "" when
// it is not valid.
func NormaliseSemver(tag string) string {
	sv, err := ParseSemver(tag)
	if err != nil {
		return ""
	}
	return sv.String()
}
