package types

import (
	"fmt"
	"net/url"
	"strings"
)

const BuildServiceSystemCode = "origami-repo-data"

// GetBundleURL is the build-service url whose Content-Length is the size of
// a bundle. An empty brand produces the unbranded bundle.
func GetBundleURL(bundlesBase, language, name, version, brand string) string {
	u := fmt.Sprintf("%s/bundles/%s?modules=%s@%s", strings.TrimSuffix(bundlesBase, "/"), language, name, version)
	if brand != "" {
		u += "&brand=" + url.QueryEscape(brand)
	}
	return u
}

// GetDemoURL is the build-service url of a v2 component demo.
func GetDemoURL(demosBase, name, version, demo, brand string) string {
	u := fmt.Sprintf("%s/demo?component=%s@%s&demo=%s&system_code=%s",
		strings.TrimSuffix(demosBase, "/"), name, version, url.QueryEscape(demo), BuildServiceSystemCode)
	if brand != "" {
		u += "&brand=" + url.QueryEscape(brand)
	}
	return u
}

// GetLegacyDemoURL is the build-service url of a spec v1 component demo.
func GetLegacyDemoURL(bundlesBase, name, version, demo, brand string) string {
	u := fmt.Sprintf("%s/demos/%s@%s/%s", strings.TrimSuffix(bundlesBase, "/"), name, version, url.PathEscape(demo))
	if brand != "" {
		u += "?brand=" + url.QueryEscape(brand)
	}
	return u
}

// StripPackageScope turns "@scope/name" into "name".
func StripPackageScope(packageName string) string {
	if strings.HasPrefix(packageName, "@") {
		if idx := strings.Index(packageName, "/"); idx >= 0 {
			return packageName[idx+1:]
		}
	}
	return packageName
}

// GetRepositoryURL synthesizes the repository url of an npm package.
func GetRepositoryURL(organisationURL, packageName string) string {
	return strings.TrimSuffix(organisationURL, "/") + "/" + StripPackageScope(packageName)
}

// FileRef addresses one file of a repository at a git ref.
type FileRef struct {
	Owner string
	Repo  string
	Ref   string
	Path  string
}

func (f FileRef) String() string {
	return fmt.Sprintf("%s/%s@%s:%s", f.Owner, f.Repo, f.Ref, f.Path)
}
