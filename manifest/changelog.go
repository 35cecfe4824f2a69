package manifest

import (
	"regexp"
	"strings"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)

// ChangelogSection returns the body of the changelog heading naming version,
// up to the next heading of the same or a higher level. Headings may prefix
// the version with "v" and wrap it in brackets or links. It returns "" when
// no heading names the version.
func ChangelogSection(markdown, version string) string {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return ""
	}
	versionPattern := regexp.MustCompile(`(^|[^\w.-])v?` + regexp.QuoteMeta(version) + `($|[^\w.-])`)

	level := 0
	var section []string
	for _, line := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		heading := headingPattern.FindStringSubmatch(line)
		if level == 0 {
			if heading != nil && versionPattern.MatchString(heading[2]) {
				level = len(heading[1])
			}
			continue
		}
		if heading != nil && len(heading[1]) <= level {
			break
		}
		section = append(section, line)
	}
	return strings.TrimSpace(strings.Join(section, "\n"))
}
