package syncer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/external"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/types"
	"github.com/origami/repo-data/util"
)

func testVersion(versionType string, languages []string, brands ...interface{}) *db.Version {
	origami := manifest.Document{"origamiType": versionType}
	if len(brands) > 0 {
		origami["brands"] = brands
	}
	return &db.Version{
		Name:      "o-test",
		Url:       "https://github.com/org/o-test",
		Tag:       "v2.0.0",
		Version:   "2.0.0",
		Type:      util.StringPtr(versionType),
		Languages: languages,
		Manifests: manifest.Bag{Origami: origami},
	}
}

func TestBundleTargets(t *testing.T) {
	targets := bundleTargets(testVersion("component", []string{"js", "scss"}, "core", "internal"))
	require.Len(t, targets, 3)
	assert.Equal(t, db.BundleTypeCSS, targets[0].Type)
	assert.Equal(t, "core", util.StringValue(targets[0].Brand))
	assert.Equal(t, "internal", util.StringValue(targets[1].Brand))
	assert.Equal(t, db.BundleTypeJS, targets[2].Type)
	assert.Nil(t, targets[2].Brand)

	targets = bundleTargets(testVersion("component", []string{"scss"}))
	require.Len(t, targets, 1)
	assert.Nil(t, targets[0].Brand)

	// only components are branded
	targets = bundleTargets(testVersion("service", []string{"css"}, "core"))
	require.Len(t, targets, 1)
	assert.Nil(t, targets[0].Brand)

	assert.Empty(t, bundleTargets(testVersion("component", []string{"ts"})))
}

func TestBundleUpdaterIsIdempotent(t *testing.T) {
	dao := newTestDao(t)
	version := testVersion("component", []string{"js", "scss"}, "core")
	require.NoError(t, dao.CreateVersion(version))
	prober := &fakeProber{}
	updater := NewBundleUpdater(dao, prober, "https://www.ft.com/__origami/service/build/v3")

	first, err := updater.Update(context.Background(), version)
	require.NoError(t, err)
	require.Len(t, first, 2)
	second, err := updater.Update(context.Background(), version)
	require.NoError(t, err)
	require.Len(t, second, 2)

	stored, err := dao.GetBundlesByVersionId(version.Id, "", nil)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, first[0].Id, stored[0].Id)
	assert.Equal(t, "https://www.ft.com/__origami/service/build/v3/bundles/css?modules=o-test@2.0.0&brand=core", stored[0].Url)
	assert.Equal(t, int64(len(stored[0].Url)), stored[0].Sizes.Gzip)
	assert.Len(t, prober.urls, 4)
}

func TestBundleUpdaterCollectsFailures(t *testing.T) {
	dao := newTestDao(t)
	version := testVersion("component", []string{"js", "scss"}, "core", "internal")
	require.NoError(t, dao.CreateVersion(version))
	prober := &fakeProber{}
	updater := NewBundleUpdater(dao, prober, "https://build.example")

	prober.probe = func(bundleURL, _ string) (*external.BundleSizes, error) {
		switch {
		case strings.Contains(bundleURL, "brand=core"):
			return nil, types.NewError(types.BuildServiceError, "status 560", false)
		case strings.Contains(bundleURL, "brand=internal"):
			return nil, types.NewError(types.BuildServiceError, "status 502", true)
		}
		return &external.BundleSizes{Raw: 10, Gzip: 5}, nil
	}
	bundles, err := updater.Update(context.Background(), version)
	require.Error(t, err)
	require.Len(t, bundles, 1)

	var updateErr *types.BundleUpdateError
	require.ErrorAs(t, err, &updateErr)
	assert.Equal(t, version.Id, updateErr.VersionId)
	assert.Equal(t, []string{bundles[0].Id}, updateErr.SucceededBundles)
	assert.Len(t, updateErr.Failures, 2)
	assert.True(t, types.IsRecoverable(err))

	prober.probe = func(bundleURL, _ string) (*external.BundleSizes, error) {
		if strings.Contains(bundleURL, "brand=") {
			return nil, types.NewError(types.BuildServiceError, "status 400", false)
		}
		return &external.BundleSizes{Raw: 10, Gzip: 5}, nil
	}
	_, err = updater.Update(context.Background(), version)
	require.Error(t, err)
	assert.False(t, types.IsRecoverable(err))
}

func TestBundleUpdaterRejectsMissingVersion(t *testing.T) {
	updater := NewBundleUpdater(newTestDao(t), &fakeProber{}, "https://build.example")
	_, err := updater.Update(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.BuildServiceError))
	assert.False(t, types.IsRecoverable(err))
}
