package syncer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/types"
)

const mainSassFile = "main.scss"

// npmPackage is what an unpacked npm tarball contributes to a Version.
type npmPackage struct {
	Origami          manifest.Document
	Package          manifest.Document
	Readme           *string
	DesignGuidelines *string
	Migration        *string
	Changelog        *string
	HasMainSass      bool
}

func readNpmPackage(dir, name, version string) (*npmPackage, error) {
	origami, err := readRequiredJSON(dir, origamiManifestFile, name, version)
	if err != nil {
		return nil, err
	}
	pkg, err := readRequiredJSON(dir, packageManifestFile, name, version)
	if err != nil {
		return nil, err
	}
	readme, err := readMarkdown(dir, func(base string) bool {
		return base == "readme" || strings.HasPrefix(base, "readme.")
	})
	if err != nil {
		return nil, err
	}
	if readme == nil {
		return nil, types.NewError(types.MissingManifest,
			fmt.Sprintf("%s@%s does not contain a README", name, version), false)
	}
	designGuidelines, err := readMarkdown(dir, func(base string) bool { return base == designGuidelinesFile })
	if err != nil {
		return nil, err
	}
	migration, err := readMarkdown(dir, func(base string) bool { return base == migrationFile })
	if err != nil {
		return nil, err
	}
	changelog, err := readMarkdown(dir, func(base string) bool { return base == strings.ToLower(changelogFile) })
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(filepath.Join(dir, mainSassFile))

	return &npmPackage{
		Origami:          origami,
		Package:          pkg,
		Readme:           readme,
		DesignGuidelines: designGuidelines,
		Migration:        migration,
		Changelog:        changelog,
		HasMainSass:      statErr == nil,
	}, nil
}

func readRequiredJSON(dir, file, name, version string) (manifest.Document, error) {
	content, err := os.ReadFile(filepath.Join(dir, file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, types.NewError(types.MissingManifest,
			fmt.Sprintf("%s@%s does not contain a %s file", name, version, file), false)
	}
	if err != nil {
		return nil, err
	}
	doc, err := manifest.Parse(content)
	if err != nil {
		return nil, types.WrapError(types.MalformedManifest, err, false,
			"%s@%s has a %s file which is not valid JSON", name, version, file)
	}
	return doc, nil
}

// readMarkdown returns the first top-level file whose lowercased name
// matches, or nil.
func readMarkdown(dir string, match func(lowerName string) bool) (*string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !match(strings.ToLower(entry.Name())) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		text := string(content)
		return &text, nil
	}
	return nil, nil
}
