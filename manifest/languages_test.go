package manifest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origami/repo-data/types"
)

type fakeLoader struct {
	files map[string]string
	calls []types.FileRef
}

func (f *fakeLoader) LoadTextFile(_ context.Context, ref types.FileRef) (*string, error) {
	f.calls = append(f.calls, ref)
	if content, ok := f.files[ref.Path]; ok {
		return &content, nil
	}
	return nil, nil
}

func normalized(t *testing.T, doc Document) *Normalized {
	t.Helper()
	n, err := NewNormalizer(OrigamiDefaults).Normalize(doc)
	require.NoError(t, err)
	return n
}

func TestVersionLanguagesFromBower(t *testing.T) {
	origami := normalized(t, Document{"origamiType": "module", "origamiVersion": 1})
	bower := Document{"main": []interface{}{"mock.js", "mock.scss"}}
	loader := &fakeLoader{}

	languages, err := VersionLanguages(context.Background(), origami, bower, nil, "v1.0.28", "org", "o-test", loader)
	require.NoError(t, err)
	assert.Equal(t, []string{"js", "scss"}, languages)
	assert.Empty(t, loader.calls, "v1 components never probe for a sass index")
}

func TestVersionLanguagesV1ComponentIgnoresPackage(t *testing.T) {
	origami := normalized(t, Document{"origamiType": "component"})
	pkg := Document{"browser": "main.js", "main": "index.ts"}

	languages, err := VersionLanguages(context.Background(), origami, Document{"main": "main.scss"}, pkg, "v1.0.0", "org", "o-test", &fakeLoader{})
	require.NoError(t, err)
	assert.Equal(t, []string{"scss"}, languages)
}

func TestVersionLanguagesV2Component(t *testing.T) {
	origami := normalized(t, Document{"origamiType": "component", "origamiVersion": "2.0"})
	pkg := Document{"browser": "main.js", "main": "ignored.ts"}

	t.Run("with sass index", func(t *testing.T) {
		loader := &fakeLoader{files: map[string]string{"_index.scss": "@mixin x {}"}}
		languages, err := VersionLanguages(context.Background(), origami, nil, pkg, "v2.0.1", "org", "o-test", loader)
		require.NoError(t, err)
		assert.Equal(t, []string{"js", "scss"}, languages)
		require.Len(t, loader.calls, 1)
		assert.Equal(t, types.FileRef{Owner: "org", Repo: "o-test", Ref: "v2.0.1", Path: "_index.scss"}, loader.calls[0])
	})

	t.Run("without sass index", func(t *testing.T) {
		languages, err := VersionLanguages(context.Background(), origami, nil, pkg, "v2.0.16", "org", "o-test", &fakeLoader{})
		require.NoError(t, err)
		assert.Equal(t, []string{"js"}, languages)
	})
}

func TestVersionLanguagesLibraryUsesPackageMain(t *testing.T) {
	origami := normalized(t, Document{"origamiType": "service"})
	pkg := Document{"main": "index.JS", "browser": 12}

	languages, err := VersionLanguages(context.Background(), origami, nil, pkg, "v1.0.0", "org", "lib", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"js"}, languages)
}

func TestVersionLanguagesSkipsExtensionless(t *testing.T) {
	languages, err := VersionLanguages(context.Background(), nil, Document{"main": []interface{}{"Makefile", []interface{}{"a.css"}}}, nil, "v1", "o", "r", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"css"}, languages)
}

func TestPackageLanguages(t *testing.T) {
	assert.Equal(t, []string{"js", "scss"}, PackageLanguages(true, Document{"browser": "main.js"}))
	assert.Equal(t, []string{"js"}, PackageLanguages(false, Document{"browser": "main.js"}))
	assert.Equal(t, []string{}, PackageLanguages(false, Document{}))
}
