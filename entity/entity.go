// Package entity holds the serialized views of stored records.
package entity

import (
	"fmt"
	"time"

	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/util"
)

// ViewOptions carry what a view needs beyond the stored record.
type ViewOptions struct {
	Defaults manifest.Defaults
	DemoURLs manifest.DemoURLs
}

type Version struct {
	Id             string             `json:"id"`
	RepoId         string             `json:"repoId"`
	Name           string             `json:"name"`
	Url            string             `json:"url"`
	Type           *string            `json:"type"`
	SubType        *string            `json:"subType"`
	Version        string             `json:"version"`
	Tag            string             `json:"tag"`
	Description    *string            `json:"description"`
	Keywords       []string           `json:"keywords"`
	Languages      []string           `json:"languages"`
	Brands         []string           `json:"brands"`
	Demos          []manifest.Demo    `json:"demos"`
	OrigamiVersion *string            `json:"origamiVersion"`
	Support        Support            `json:"support"`
	Resources      manifest.Resources `json:"resources"`
	LastIngested   time.Time          `json:"lastIngested"`
}

type Support struct {
	Status    *string                `json:"status"`
	Email     *string                `json:"email"`
	Slack     *manifest.SlackChannel `json:"slack"`
	IsOrigami bool                   `json:"isOrigami"`
}

func ToVersion(v *db.Version, opts ViewOptions) *Version {
	return &Version{
		Id:             v.Id,
		RepoId:         v.RepoId,
		Name:           v.Name,
		Url:            v.Url,
		Type:           v.Type,
		SubType:        manifest.SubType(v.Manifests),
		Version:        v.Version,
		Tag:            v.Tag,
		Description:    manifest.Description(v.Manifests),
		Keywords:       manifest.Keywords(v.Manifests),
		Languages:      nonNil(v.Languages),
		Brands:         manifest.Brands(v.Type, v.Manifests),
		Demos:          manifest.Demos(v.Name, v.Version, v.Type, v.Manifests, opts.DemoURLs),
		OrigamiVersion: v.OrigamiVersion,
		Support: Support{
			Status:    v.SupportStatus,
			Email:     v.SupportEmail,
			Slack:     manifest.ParseSlackChannel(v.SupportChannel),
			IsOrigami: manifest.IsOrigamiSupported(v.SupportEmail, opts.Defaults),
		},
		Resources:    manifest.ResourceURLs(v.RepoId, v.Id, v.Manifests, v.Markdown),
		LastIngested: v.CreatedAt,
	}
}

// ToRepo is the latest version of a repository presented as the repository
// itself.
func ToRepo(v *db.Version, opts ViewOptions) *Version {
	repo := ToVersion(v, opts)
	repo.Id = v.RepoId
	repo.Resources.Self = fmt.Sprintf("/v1/repos/%s", v.RepoId)
	repo.Resources.Repo = ""
	return repo
}

type IngestionRepo struct {
	Url *string `json:"url"`
	Tag *string `json:"tag"`
}

type IngestionPackage struct {
	Name    *string `json:"name"`
	Version *string `json:"version"`
}

type Progress struct {
	IsInProgress bool       `json:"isInProgress"`
	StartTime    *time.Time `json:"startTime"`
	Attempts     int        `json:"attempts"`
}

type Ingestion struct {
	Id       string            `json:"id"`
	Type     string            `json:"type"`
	Repo     *IngestionRepo    `json:"repo,omitempty"`
	Package  *IngestionPackage `json:"package,omitempty"`
	Progress Progress          `json:"progress"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
}

func ToIngestion(i *db.Ingestion) *Ingestion {
	view := &Ingestion{
		Id:   i.Id,
		Type: string(i.Type),
		Progress: Progress{
			IsInProgress: i.IsInProgress(),
			StartTime:    i.IngestionStartedAt,
			Attempts:     i.IngestionAttempts,
		},
		Created: i.CreatedAt,
		Updated: i.UpdatedAt,
	}
	if i.Type == db.IngestionTypeNpm {
		view.Package = &IngestionPackage{Name: i.PackageName, Version: i.Version}
	} else {
		view.Repo = &IngestionRepo{Url: i.Url, Tag: i.Tag}
	}
	return view
}

type BundleSizes struct {
	Raw  int64 `json:"raw"`
	Gzip int64 `json:"gzip"`
}

type Bundle struct {
	Id        string      `json:"id"`
	VersionId string      `json:"versionId"`
	Language  string      `json:"language"`
	Brand     *string     `json:"brand"`
	Url       string      `json:"url"`
	Sizes     BundleSizes `json:"sizes"`
	Updated   time.Time   `json:"updated"`
}

func ToBundle(b *db.Bundle) *Bundle {
	var brand *string
	if b.Brand != nil {
		brand = util.StringPtr(*b.Brand)
	}
	return &Bundle{
		Id:        b.Id,
		VersionId: b.VersionId,
		Language:  b.Type,
		Brand:     brand,
		Url:       b.Url,
		Sizes:     BundleSizes{Raw: b.Sizes.Raw, Gzip: b.Sizes.Gzip},
		Updated:   b.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
