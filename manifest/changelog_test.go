package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testChangelog = `# Changelog

## [2.0.0](https://github.com/Financial-Times/o-test/compare/v1.2.0...v2.0.0) (2026-03-01)

### Features

* drop the legacy mixins

## v1.2.0

* add a dark theme
* fix focus styles

## 1.2.0-beta.1

* preview of the dark theme

## 11.2.0

* unrelated
`

func TestChangelogSection(t *testing.T) {
	assert.Equal(t, "### Features\n\n* drop the legacy mixins", ChangelogSection(testChangelog, "2.0.0"))
	assert.Equal(t, "* add a dark theme\n* fix focus styles", ChangelogSection(testChangelog, "1.2.0"))
	assert.Equal(t, "* add a dark theme\n* fix focus styles", ChangelogSection(testChangelog, "v1.2.0"))
	assert.Equal(t, "* preview of the dark theme", ChangelogSection(testChangelog, "1.2.0-beta.1"))
	assert.Equal(t, "", ChangelogSection(testChangelog, "3.0.0"))
	assert.Equal(t, "", ChangelogSection(testChangelog, "2.0"))
	assert.Equal(t, "", ChangelogSection(testChangelog, ""))
	assert.Equal(t, "* fix\n\n* crlf", ChangelogSection("## 1.0.0\r\n\r\n* fix\r\n\r\n* crlf\r\n", "1.0.0"))
}
