package syncer

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/external"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/types"
)

const (
	origamiManifestFile  = "origami.json"
	aboutManifestFile    = "about.json"
	bowerManifestFile    = "bower.json"
	imageSetManifestFile = "imageset.json"
	packageManifestFile  = "package.json"
	designGuidelinesFile = "designguidelines.md"
	migrationFile        = "migration.md"
	changelogFile        = "CHANGELOG.md"
)

// Materializer turns an ingestion source into a persisted Version.
type Materializer struct {
	versions         db.VersionDB
	source           external.SourceClient
	packages         external.PackageDownloader
	normalizer       *manifest.Normalizer
	npmRegistry      string
	repositoryOrgURL string
	tempDir          string
}

func NewMaterializer(
	versions db.VersionDB,
	source external.SourceClient,
	packages external.PackageDownloader,
	normalizer *manifest.Normalizer,
	npmRegistry, repositoryOrgURL, tempDir string,
) *Materializer {
	return &Materializer{
		versions:         versions,
		source:           source,
		packages:         packages,
		normalizer:       normalizer,
		npmRegistry:      npmRegistry,
		repositoryOrgURL: repositoryOrgURL,
		tempDir:          tempDir,
	}
}

// FromGithub materializes the version tagged tag of the GitHub repository
// at url.
func (m *Materializer) FromGithub(ctx context.Context, url, tag string) (*db.Version, error) {
	if !m.source.IsValidRepositoryURL(url) {
		return nil, types.NewError(types.InvalidSource, fmt.Sprintf("ingestion url %s is not a GitHub repository", url), false)
	}
	owner, repo, err := m.source.ExtractOwnerAndRepo(url)
	if err != nil {
		return nil, err
	}

	exists, err := m.source.TagExists(ctx, owner, repo, tag)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.NewError(types.SourceNotFound, fmt.Sprintf("repo %s/%s or tag %s does not exist", owner, repo, tag), false)
	}

	ref := func(path string) types.FileRef {
		return types.FileRef{Owner: owner, Repo: repo, Ref: tag, Path: path}
	}
	origami, err := m.source.LoadJSONFile(ctx, ref(origamiManifestFile))
	if err != nil {
		return nil, err
	}
	if origami == nil {
		return nil, types.NewError(types.MissingManifest, fmt.Sprintf("%s/%s@%s does not contain an Origami manifest", owner, repo, tag), false)
	}
	normalized, err := m.normalizer.Normalize(origami)
	if err != nil {
		return nil, err
	}

	bag := manifest.Bag{Origami: origami}
	markdown := manifest.Markdown{}
	g, gctx := errgroup.WithContext(ctx)
	loadJSON := func(path string, target *manifest.Document) {
		g.Go(func() error {
			doc, err := m.source.LoadJSONFile(gctx, ref(path))
			*target = doc
			return err
		})
	}
	loadText := func(path string, target **string) {
		g.Go(func() error {
			text, err := m.source.LoadTextFile(gctx, ref(path))
			*target = text
			return err
		})
	}
	loadJSON(aboutManifestFile, &bag.About)
	loadJSON(bowerManifestFile, &bag.Bower)
	loadJSON(imageSetManifestFile, &bag.ImageSet)
	loadJSON(packageManifestFile, &bag.Package)
	g.Go(func() error {
		readme, err := m.source.LoadReadme(gctx, owner, repo, tag)
		markdown.Readme = readme
		return err
	})
	loadText(designGuidelinesFile, &markdown.DesignGuidelines)
	loadText(migrationFile, &markdown.Migration)
	loadText(changelogFile, &markdown.Changelog)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	languages, err := manifest.VersionLanguages(ctx, normalized, bag.Bower, bag.Package, tag, owner, repo, m.source)
	if err != nil {
		return nil, err
	}

	version := toVersion(repo, url, tag, normalized, bag, markdown, languages)
	if err := m.versions.CreateVersion(version); err != nil {
		return nil, err
	}
	return version, nil
}

// FromNpm materializes a published npm package. The repository url is
// derived from the unscoped package name.
func (m *Materializer) FromNpm(ctx context.Context, packageName, version string) (*db.Version, error) {
	dir, err := os.MkdirTemp(m.tempDir, "repo-data-npm-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := m.packages.DownloadAndUnpack(ctx, dir, packageName, version, m.npmRegistry); err != nil {
		return nil, err
	}
	pkg, err := readNpmPackage(dir, packageName, version)
	if err != nil {
		return nil, err
	}
	normalized, err := m.normalizer.Normalize(pkg.Origami)
	if err != nil {
		return nil, err
	}

	bag := manifest.Bag{Origami: pkg.Origami, Package: pkg.Package}
	markdown := manifest.Markdown{
		Readme:           pkg.Readme,
		DesignGuidelines: pkg.DesignGuidelines,
		Migration:        pkg.Migration,
		Changelog:        pkg.Changelog,
	}
	languages := manifest.PackageLanguages(pkg.HasMainSass, pkg.Package)
	url := types.GetRepositoryURL(m.repositoryOrgURL, packageName)

	v := toVersion(types.StripPackageScope(packageName), url, version, normalized, bag, markdown, languages)
	if err := m.versions.CreateVersion(v); err != nil {
		return nil, err
	}
	return v, nil
}
