package syncer

import (
	"context"
	"fmt"

	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/external"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/types"
	"github.com/origami/repo-data/util"
)

// bundleTarget is one (language, brand) combination a version reports a
// bundle size for.
type bundleTarget struct {
	Type  string
	Brand *string
}

// BundleUpdater records compiled bundle sizes of versions as reported by the
// build service.
type BundleUpdater struct {
	bundles     db.BundleDB
	prober      external.SizeProber
	bundlesBase string
}

func NewBundleUpdater(bundles db.BundleDB, prober external.SizeProber, bundlesBase string) *BundleUpdater {
	return &BundleUpdater{
		bundles:     bundles,
		prober:      prober,
		bundlesBase: bundlesBase,
	}
}

// bundleTargets pairs css with every brand of the version, or a single
// unbranded bundle when it has none. Scripts are never branded.
func bundleTargets(version *db.Version) []bundleTarget {
	var hasJS, hasCSS bool
	for _, language := range version.Languages {
		switch language {
		case "js":
			hasJS = true
		case "scss", "css":
			hasCSS = true
		}
	}

	targets := make([]bundleTarget, 0)
	if hasCSS {
		brands := manifest.Brands(version.Type, version.Manifests)
		if len(brands) == 0 {
			targets = append(targets, bundleTarget{Type: db.BundleTypeCSS})
		}
		for _, brand := range brands {
			targets = append(targets, bundleTarget{Type: db.BundleTypeCSS, Brand: util.StringPtr(brand)})
		}
	}
	if hasJS {
		targets = append(targets, bundleTarget{Type: db.BundleTypeJS})
	}
	return targets
}

// Update probes every bundle of version and upserts the results. When any
// probe fails the remaining targets are still attempted and a
// *types.BundleUpdateError describing all failures is returned.
func (u *BundleUpdater) Update(ctx context.Context, version *db.Version) ([]*db.Bundle, error) {
	if version == nil {
		return nil, types.NewError(types.BuildServiceError, "could not gather bundle information for a missing version", false)
	}
	var (
		bundles  []*db.Bundle
		failures []error
	)
	for _, target := range bundleTargets(version) {
		bundle, err := u.updateTarget(ctx, version, target)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		bundles = append(bundles, bundle)
	}
	if len(failures) == 0 {
		return bundles, nil
	}
	succeeded := make([]string, 0, len(bundles))
	for _, b := range bundles {
		succeeded = append(succeeded, b.Id)
	}
	return bundles, &types.BundleUpdateError{
		VersionId:        version.Id,
		SucceededBundles: succeeded,
		Failures:         failures,
	}
}

func (u *BundleUpdater) updateTarget(ctx context.Context, version *db.Version, target bundleTarget) (*db.Bundle, error) {
	bundleURL := types.GetBundleURL(u.bundlesBase, target.Type, version.Name, version.Version, util.StringValue(target.Brand))
	sizes, err := u.prober.ProbeSizes(ctx, bundleURL, target.Type)
	if err != nil {
		return nil, err
	}
	bundle := &db.Bundle{
		VersionId: version.Id,
		Type:      target.Type,
		Brand:     target.Brand,
		Url:       bundleURL,
		Sizes:     db.BundleSizes{Raw: sizes.Raw, Gzip: sizes.Gzip},
	}
	if err := u.bundles.UpsertBundle(bundle); err != nil {
		return nil, fmt.Errorf("failed to save %s bundle of version %s: %w", target.Type, version.Id, err)
	}
	return bundle, nil
}
