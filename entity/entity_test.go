package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/util"
)

var testOptions = ViewOptions{
	Defaults: manifest.OrigamiDefaults,
	DemoURLs: manifest.DemoURLs{
		BundlesBase: "https://www.ft.com/__origami/service/build/v2",
		DemosBase:   "https://www.ft.com/__origami/service/build/v3",
	},
}

func testVersion() *db.Version {
	readme := "# o-example"
	return &db.Version{
		Id:      "version-id",
		RepoId:  "repo-id",
		Name:    "o-example",
		Url:     "https://github.com/Financial-Times/o-example",
		Type:    util.StringPtr("component"),
		Tag:     "v2.1.0",
		Version: "2.1.0",
		Manifests: manifest.Bag{
			Origami: manifest.Document{
				"origamiVersion":  "2.0",
				"origamiCategory": "components",
				"description":     "An example component",
				"keywords":        "Example, demo",
				"brands":          []interface{}{"core", "internal"},
				"demos": []interface{}{
					map[string]interface{}{"name": "basic", "title": "Basic"},
					map[string]interface{}{"name": "secret", "hidden": true},
				},
			},
			Package: manifest.Document{"keywords": []interface{}{"demo", "ft"}},
		},
		Markdown:       manifest.Markdown{Readme: &readme},
		Languages:      []string{"js", "scss"},
		SupportEmail:   util.StringPtr(manifest.DefaultSupportEmail),
		SupportChannel: util.StringPtr("financialtimes/#origami-support"),
		SupportStatus:  util.StringPtr("active"),
		CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestToVersion(t *testing.T) {
	view := ToVersion(testVersion(), testOptions)

	assert.Equal(t, "version-id", view.Id)
	assert.Equal(t, "components", util.StringValue(view.SubType))
	assert.Equal(t, "An example component", util.StringValue(view.Description))
	assert.Equal(t, []string{"example", "demo", "ft"}, view.Keywords)
	assert.Equal(t, []string{"core", "internal"}, view.Brands)
	require.Len(t, view.Demos, 1)
	assert.Equal(t, "basic", view.Demos[0].Id)
	assert.Contains(t, view.Demos[0].Display.HTML, "component=o-example@2.1.0&demo=basic")
	assert.True(t, view.Support.IsOrigami)
	require.NotNil(t, view.Support.Slack)
	assert.Equal(t, "#origami-support", view.Support.Slack.Name)
	assert.Equal(t, "https://financialtimes.slack.com/messages/origami-support", view.Support.Slack.URL)
	assert.Equal(t, "/v1/repos/repo-id/versions/version-id", view.Resources.Self)
	assert.Equal(t, "/v1/repos/repo-id/versions/version-id/markdown/readme", util.StringValue(view.Resources.Markdown["readme"]))
	assert.Nil(t, view.Resources.Manifests["bower"])
}

func TestToRepo(t *testing.T) {
	view := ToRepo(testVersion(), testOptions)
	assert.Equal(t, "repo-id", view.Id)
	assert.Equal(t, "/v1/repos/repo-id", view.Resources.Self)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"repo":`)
}

func TestToIngestion(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	view := ToIngestion(&db.Ingestion{
		Id:                 "ingestion-id",
		Url:                util.StringPtr("https://github.com/Financial-Times/o-example"),
		Tag:                util.StringPtr("v2.1.0"),
		Type:               db.IngestionTypeVersion,
		IngestionAttempts:  2,
		IngestionStartedAt: &started,
	})
	require.NotNil(t, view.Repo)
	assert.Nil(t, view.Package)
	assert.Equal(t, "v2.1.0", util.StringValue(view.Repo.Tag))
	assert.True(t, view.Progress.IsInProgress)
	assert.Equal(t, 2, view.Progress.Attempts)

	view = ToIngestion(&db.Ingestion{
		PackageName: util.StringPtr("@financial-times/o-example"),
		Version:     util.StringPtr("2.1.0"),
		Type:        db.IngestionTypeNpm,
	})
	assert.Nil(t, view.Repo)
	require.NotNil(t, view.Package)
	assert.False(t, view.Progress.IsInProgress)
	assert.Nil(t, view.Progress.StartTime)
}

func TestToBundle(t *testing.T) {
	view := ToBundle(&db.Bundle{
		Id:        "bundle-id",
		VersionId: "version-id",
		Type:      db.BundleTypeCSS,
		Url:       "https://build.example/bundles/css?modules=o-example@2.1.0",
		Sizes:     db.BundleSizes{Raw: 100, Gzip: 40},
	})
	assert.Equal(t, "css", view.Language)
	assert.Nil(t, view.Brand)
	assert.Equal(t, int64(40), view.Sizes.Gzip)
}
