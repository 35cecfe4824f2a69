package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/origami/repo-data/types"
	"github.com/origami/repo-data/util"
)

// Description falls back through origami, about, package and bower.
func Description(bag Bag) *string {
	for _, doc := range []Document{bag.Origami, bag.About, bag.Package, bag.Bower} {
		if d, ok := stringField(doc, "description"); ok && d != "" {
			return &d
		}
	}
	return nil
}

// Keywords merges the keywords of origami, package and bower.
func Keywords(bag Bag) []string {
	var keywords []string
	for _, doc := range []Document{bag.Origami, bag.Package, bag.Bower} {
		if doc == nil {
			continue
		}
		keywords = util.Union(keywords, extractKeywords(doc))
	}
	result := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			result = append(result, k)
		}
	}
	return util.Union(nil, result)
}

func extractKeywords(doc Document) []string {
	switch k := doc["keywords"].(type) {
	case string:
		return util.SplitKeywords(k)
	default:
		return stringsOf(k)
	}
}

// SubType is the origamiCategory of the version.
func SubType(bag Bag) *string {
	if c, ok := stringField(bag.Origami, "origamiCategory"); ok && c != "" {
		return &c
	}
	return nil
}

// Brands lists the brands a component supports. Other repository types
// have no brands.
func Brands(versionType *string, bag Bag) []string {
	if !IsComponentType(versionType) || bag.Origami == nil {
		return []string{}
	}
	brands := make([]string, 0)
	for _, b := range stringsOf(bag.Origami["brands"]) {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			brands = append(brands, b)
		}
	}
	return util.Union(nil, brands)
}

type DemoDisplay struct {
	HTML string `json:"html"`
}

type Demo struct {
	Id              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	SupportedBrands []string    `json:"supportedBrands"`
	Display         DemoDisplay `json:"display"`
}

// DemoURLs are the build-service bases demo urls are built from.
type DemoURLs struct {
	BundlesBase string
	DemosBase   string
}

// Demos lists the visible demos of a component version.
func Demos(name, version string, versionType *string, bag Bag, urls DemoURLs) []Demo {
	demos := make([]Demo, 0)
	if bag.Origami == nil {
		return demos
	}
	spec, _, err := ResolveSpecVersion(bag.Origami)
	if err != nil {
		return demos
	}
	versionBrands := Brands(versionType, bag)
	raw, _ := bag.Origami["demos"].([]interface{})
	for _, item := range raw {
		d, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, ok := d["name"].(string)
		if !ok || id == "" {
			continue
		}
		if hidden, _ := d["hidden"].(bool); hidden {
			continue
		}
		title, _ := d["title"].(string)
		if title == "" {
			title = id
		}
		description, _ := d["description"].(string)
		brands := versionBrands
		if own := stringsOf(d["brands"]); len(own) > 0 {
			brands = own
		}
		brand := ""
		if len(brands) > 0 {
			brand = brands[0]
		}
		var demoURL string
		if spec == SpecV2 {
			demoURL = types.GetDemoURL(urls.DemosBase, name, version, id, brand)
		} else {
			demoURL = types.GetLegacyDemoURL(urls.BundlesBase, name, version, id, brand)
		}
		demos = append(demos, Demo{
			Id:              id,
			Title:           title,
			Description:     description,
			SupportedBrands: append([]string{}, brands...),
			Display:         DemoDisplay{HTML: demoURL},
		})
	}
	return demos
}

type SlackChannel struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var slackChannelPattern = regexp.MustCompile(`^(([^/]+)(/))?#?(.+)$`)

// ParseSlackChannel parses "org/#channel", "#channel" or "channel".
func ParseSlackChannel(slack *string) *SlackChannel {
	if slack == nil || strings.TrimSpace(*slack) == "" {
		return nil
	}
	m := slackChannelPattern.FindStringSubmatch(strings.TrimSpace(*slack))
	if m == nil {
		return nil
	}
	org := m[2]
	if org == "" {
		org = "financialtimes"
	}
	return &SlackChannel{
		Name: "#" + m[4],
		URL:  fmt.Sprintf("https://%s.slack.com/messages/%s", org, m[4]),
	}
}

// IsOrigamiSupported reports whether a support email is the Origami team's.
func IsOrigamiSupported(email *string, defaults Defaults) bool {
	return email != nil && *email == defaults.SupportEmail
}

type Resources struct {
	Self      string             `json:"self"`
	Repo      string             `json:"repo,omitempty"`
	Versions  string             `json:"versions"`
	Manifests map[string]*string `json:"manifests"`
	Markdown  map[string]*string `json:"markdown"`
}

// ResourceURLs builds the API urls of a version and its documents.
func ResourceURLs(repoId, versionId string, bag Bag, markdown Markdown) Resources {
	self := fmt.Sprintf("/v1/repos/%s/versions/%s", repoId, versionId)
	r := Resources{
		Self:      self,
		Repo:      fmt.Sprintf("/v1/repos/%s", repoId),
		Versions:  fmt.Sprintf("/v1/repos/%s/versions", repoId),
		Manifests: make(map[string]*string, len(Names)),
		Markdown:  make(map[string]*string, len(MarkdownNames)),
	}
	for _, name := range Names {
		if bag.Get(name) != nil {
			u := fmt.Sprintf("%s/manifests/%s", self, name)
			r.Manifests[name] = &u
		} else {
			r.Manifests[name] = nil
		}
	}
	for _, name := range MarkdownNames {
		if markdown.Get(name) != nil {
			u := fmt.Sprintf("%s/markdown/%s", self, name)
			r.Markdown[name] = &u
		} else {
			r.Markdown[name] = nil
		}
	}
	return r
}
