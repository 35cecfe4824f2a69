package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/origami/repo-data/types"
)

// SpecVersion is the generation of the Origami specification a manifest
// follows.
type SpecVersion int

const (
	SpecV1 SpecVersion = iota + 1
	SpecV2
)

func (s SpecVersion) String() string {
	switch s {
	case SpecV1:
		return "1"
	case SpecV2:
		return "2"
	}
	return "unknown"
}

const (
	TypeModule    = "module"
	TypeComponent = "component"
	TypeImageSet  = "imageset"
	TypeService   = "service"
)

const (
	DefaultSupportEmail   = "origami.support@ft.com"
	DefaultSupportChannel = "financialtimes/origami-support"
)

// Defaults are the support contacts assumed for repositories that declare
// none of their own.
type Defaults struct {
	SupportEmail   string
	SupportChannel string
}

var OrigamiDefaults = Defaults{
	SupportEmail:   DefaultSupportEmail,
	SupportChannel: DefaultSupportChannel,
}

type SupportContact struct {
	Email *string `json:"email"`
	Slack *string `json:"slack"`
}

// Normalized is an origami.json resolved against one spec generation.
type Normalized struct {
	Spec           SpecVersion
	OrigamiVersion *string
	OrigamiType    *string
	Support        *string
	SupportStatus  *string
	SupportContact SupportContact
	// Document is a deep copy of the input with the fields above written back.
	Document Document
}

// IsComponent reports whether the manifest describes a front-end component.
func (n *Normalized) IsComponent() bool {
	return IsComponentType(n.OrigamiType)
}

// IsV1Component is true for components that use bower exclusively.
func (n *Normalized) IsV1Component() bool {
	return n.Spec == SpecV1 && n.IsComponent()
}

func IsComponentType(t *string) bool {
	return t != nil && (*t == TypeModule || *t == TypeComponent)
}

type Normalizer struct {
	defaults Defaults
}

func NewNormalizer(defaults Defaults) *Normalizer {
	if defaults.SupportEmail == "" {
		defaults.SupportEmail = DefaultSupportEmail
	}
	if defaults.SupportChannel == "" {
		defaults.SupportChannel = DefaultSupportChannel
	}
	return &Normalizer{defaults: defaults}
}

func (n *Normalizer) Defaults() Defaults {
	return n.defaults
}

// Normalize converts a raw origami.json into its canonical shape. The input
// is never modified. Manifests of an unknown spec generation fail with an
// UnsupportedSpecVersion error.
func (n *Normalizer) Normalize(raw Document) (*Normalized, error) {
	spec, origamiVersion, err := ResolveSpecVersion(raw)
	if err != nil {
		return nil, err
	}
	doc := DeepCopy(raw)
	if doc == nil {
		doc = Document{}
	}
	out := &Normalized{
		Spec:           spec,
		OrigamiVersion: origamiVersion,
		Document:       doc,
	}

	if t, ok := doc["origamiType"].(string); ok {
		// v2 keeps "component"; v1 stored components as modules
		if t == TypeComponent && spec == SpecV1 {
			t = TypeModule
		}
		out.OrigamiType = &t
	}
	if s, ok := doc["support"].(string); ok {
		out.Support = &s
	}
	if s, ok := doc["supportStatus"].(string); ok {
		out.SupportStatus = &s
	}

	if contact, ok := doc["supportContact"].(map[string]interface{}); ok {
		if email, ok := contact["email"].(string); ok && email != "" {
			out.SupportContact.Email = &email
		}
		if slack, ok := contact["slack"].(string); ok && slack != "" {
			out.SupportContact.Slack = &slack
		}
	}
	if out.SupportContact.Email == nil && out.Support != nil && strings.Contains(*out.Support, "@") {
		email := *out.Support
		out.SupportContact.Email = &email
	}
	if out.SupportContact.Email == nil {
		email := n.defaults.SupportEmail
		out.SupportContact.Email = &email
	}
	if out.SupportContact.Slack == nil && *out.SupportContact.Email == n.defaults.SupportEmail {
		slack := n.defaults.SupportChannel
		out.SupportContact.Slack = &slack
	}

	doc["origamiType"] = nullable(out.OrigamiType)
	doc["support"] = nullable(out.Support)
	doc["supportStatus"] = nullable(out.SupportStatus)
	doc["supportContact"] = map[string]interface{}{
		"email": nullable(out.SupportContact.Email),
		"slack": nullable(out.SupportContact.Slack),
	}
	return out, nil
}

// ResolveSpecVersion reads origamiVersion, falling back to origami. An absent
// value, "1" or 1 mean spec v1; only "2.0" and "2.0.1" mean spec v2.
func ResolveSpecVersion(raw Document) (SpecVersion, *string, error) {
	var value interface{}
	if raw != nil {
		value = raw["origamiVersion"]
		if value == nil {
			value = raw["origami"]
		}
	}
	switch v := value.(type) {
	case nil:
		return SpecV1, nil, nil
	case string:
		switch v {
		case "1":
			return SpecV1, &v, nil
		case "2.0", "2.0.1":
			return SpecV2, &v, nil
		}
	case float64:
		if v == 1 {
			s := "1"
			return SpecV1, &s, nil
		}
	case int:
		if v == 1 {
			s := "1"
			return SpecV1, &s, nil
		}
	case json.Number:
		if v.String() == "1" {
			s := "1"
			return SpecV1, &s, nil
		}
	}
	return 0, nil, types.NewError(types.UnsupportedSpecVersion,
		fmt.Sprintf("could not normalise manifest, origami version %v unknown", value), false)
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
