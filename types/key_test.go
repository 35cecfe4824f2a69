package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBundleURL(t *testing.T) {
	base := "https://www.ft.com/__origami/service/build/v2"
	assert.Equal(t,
		"https://www.ft.com/__origami/service/build/v2/bundles/css?modules=o-test@1.2.3",
		GetBundleURL(base, "css", "o-test", "1.2.3", ""))
	assert.Equal(t,
		"https://www.ft.com/__origami/service/build/v2/bundles/css?modules=o-test@1.2.3&brand=internal",
		GetBundleURL(base+"/", "css", "o-test", "1.2.3", "internal"))
}

func TestGetDemoURL(t *testing.T) {
	assert.Equal(t,
		"https://build/v3/demo?component=o-test@2.0.0&demo=example1&system_code=origami-repo-data&brand=core",
		GetDemoURL("https://build/v3", "o-test", "2.0.0", "example1", "core"))
	assert.Equal(t,
		"https://build/v2/demos/o-test@1.0.0/example1?brand=master",
		GetLegacyDemoURL("https://build/v2", "o-test", "1.0.0", "example1", "master"))
}

func TestGetRepositoryURL(t *testing.T) {
	assert.Equal(t, "o-test-component", StripPackageScope("@financial-times/o-test-component"))
	assert.Equal(t, "o-test-component", StripPackageScope("o-test-component"))
	assert.Equal(t,
		"https://github.com/Financial-Times/o-test-component",
		GetRepositoryURL("https://github.com/Financial-Times/", "@financial-times/o-test-component"))
}
