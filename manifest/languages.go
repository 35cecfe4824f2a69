package manifest

import (
	"context"

	"github.com/origami/repo-data/types"
	"github.com/origami/repo-data/util"
)

const SassIndexFile = "_index.scss"

// FileLoader loads a text file of a repository, returning nil when the file
// does not exist.
type FileLoader interface {
	LoadTextFile(ctx context.Context, ref types.FileRef) (*string, error)
}

// VersionLanguages infers the source languages of a version from the entry
// points its manifests declare. The result is lowercase, sorted and free of
// duplicates.
func VersionLanguages(
	ctx context.Context,
	origami *Normalized,
	bower, pkg Document,
	tag string,
	owner, repo string,
	loader FileLoader,
) ([]string, error) {
	if origami == nil {
		origami = &Normalized{Spec: SpecV1}
	}
	var mainPaths []interface{}

	// spec v1 projects are the most likely to be misconfigured, check bower first
	if bower != nil {
		switch main := bower["main"].(type) {
		case string:
			mainPaths = append(mainPaths, main)
		case []interface{}:
			for _, m := range main {
				if nested, ok := m.([]interface{}); ok {
					mainPaths = append(mainPaths, nested...)
					continue
				}
				mainPaths = append(mainPaths, m)
			}
		}
	}

	if !origami.IsV1Component() && pkg != nil {
		mainPaths = append(mainPaths, pkg["browser"])
	}

	// components don't use main, libraries do
	if !origami.IsComponent() && pkg != nil {
		mainPaths = append(mainPaths, pkg["main"])
	}

	if origami.IsComponent() && !origami.IsV1Component() && loader != nil {
		sassIndex, err := loader.LoadTextFile(ctx, types.FileRef{
			Owner: owner,
			Repo:  repo,
			Ref:   tag,
			Path:  SassIndexFile,
		})
		if err != nil {
			return nil, err
		}
		if sassIndex != nil {
			mainPaths = append(mainPaths, SassIndexFile)
		}
	}

	languages := make([]string, 0, len(mainPaths))
	for _, p := range mainPaths {
		if s, ok := p.(string); ok {
			languages = append(languages, util.FileExtension(s))
		}
	}
	return util.UniqueSorted(languages), nil
}

// PackageLanguages is the narrower inference used for npm tarballs: a
// main.scss means scss and a browser entry in package.json means js.
func PackageLanguages(hasMainSass bool, pkg Document) []string {
	var languages []string
	if hasMainSass {
		languages = append(languages, "scss")
	}
	if pkg != nil {
		if browser, ok := pkg["browser"]; ok && browser != nil {
			languages = append(languages, "js")
		}
	}
	return util.UniqueSorted(languages)
}
