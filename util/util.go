package util

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

var keywordSeparator = regexp.MustCompile(`[,\s]+`)

// SplitByComma splits a comma separated list, dropping empty items.
func SplitByComma(str string) []string {
	str = strings.TrimSpace(str)
	strArr := strings.Split(str, ",")
	var trimStr []string
	for _, item := range strArr {
		if len(strings.TrimSpace(item)) > 0 {
			trimStr = append(trimStr, strings.TrimSpace(item))
		}
	}
	return trimStr
}

func JoinWithComma(slice []string) string {
	return strings.Join(slice, ",")
}

// SplitKeywords splits a keyword string on commas and whitespace.
func SplitKeywords(str string) []string {
	str = strings.TrimSpace(str)
	if str == "" {
		return nil
	}
	return keywordSeparator.Split(str, -1)
}

// FileExtension returns the lowercased extension of p without the dot.
// Leading dots of the file name are part of the name, so ".eslintrc" has no
// extension.
func FileExtension(p string) string {
	name := strings.TrimLeft(path.Base(p), ".")
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// UniqueSorted returns the distinct non-empty values of items in lexical order.
func UniqueSorted(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	sort.Strings(result)
	return result
}

// Union appends the items of b missing from a, keeping first-seen order.
func Union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	result := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, item := range list {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			result = append(result, item)
		}
	}
	return result
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
