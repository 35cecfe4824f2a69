package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origami/repo-data/types"
)

func mustParse(t *testing.T, s string) Document {
	t.Helper()
	doc, err := Parse([]byte(s))
	require.NoError(t, err)
	return doc
}

func TestNormalizeRewritesV1Components(t *testing.T) {
	n := NewNormalizer(OrigamiDefaults)
	for _, raw := range []string{
		`{"origamiType": "component"}`,
		`{"origamiType": "component", "origamiVersion": 1}`,
		`{"origamiType": "component", "origamiVersion": "1"}`,
		`{"origamiType": "component", "origami": 1}`,
		`{"origamiType": "component", "origamiVersion": null}`,
	} {
		t.Run(raw, func(t *testing.T) {
			out, err := n.Normalize(mustParse(t, raw))
			require.NoError(t, err)
			require.NotNil(t, out.OrigamiType)
			assert.Equal(t, TypeModule, *out.OrigamiType)
			assert.Equal(t, SpecV1, out.Spec)
			assert.Equal(t, TypeModule, out.Document["origamiType"])
		})
	}
}

func TestNormalizeKeepsV2Components(t *testing.T) {
	n := NewNormalizer(OrigamiDefaults)
	for _, v := range []string{"2.0", "2.0.1"} {
		t.Run(v, func(t *testing.T) {
			out, err := n.Normalize(Document{"origamiType": "component", "origamiVersion": v})
			require.NoError(t, err)
			assert.Equal(t, TypeComponent, *out.OrigamiType)
			assert.Equal(t, SpecV2, out.Spec)
			assert.Equal(t, v, *out.OrigamiVersion)
		})
	}
}

func TestNormalizeRejectsUnknownSpecVersions(t *testing.T) {
	n := NewNormalizer(OrigamiDefaults)
	for _, raw := range []string{
		`{"origamiType": "component", "origamiVersion": "3.0"}`,
		`{"origamiType": "component", "origamiVersion": "random"}`,
		`{"origamiType": "component", "origamiVersion": 3}`,
		`{"origamiType": "component", "origamiVersion": "2"}`,
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := n.Normalize(mustParse(t, raw))
			require.Error(t, err)
			assert.True(t, types.IsKind(err, types.UnsupportedSpecVersion))
			assert.False(t, types.IsRecoverable(err))
		})
	}
}

func TestNormalizeCoercesTypes(t *testing.T) {
	n := NewNormalizer(OrigamiDefaults)
	out, err := n.Normalize(Document{"origamiType": 12, "support": true})
	require.NoError(t, err)
	assert.Nil(t, out.OrigamiType)
	assert.Nil(t, out.Support)
	assert.Nil(t, out.Document["origamiType"])
	assert.Nil(t, out.Document["support"])
}

func TestNormalizeSupportContact(t *testing.T) {
	n := NewNormalizer(OrigamiDefaults)

	t.Run("defaults", func(t *testing.T) {
		out, err := n.Normalize(Document{})
		require.NoError(t, err)
		assert.Equal(t, DefaultSupportEmail, *out.SupportContact.Email)
		assert.Equal(t, DefaultSupportChannel, *out.SupportContact.Slack)
	})

	t.Run("support field email", func(t *testing.T) {
		out, err := n.Normalize(Document{"support": "team@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "team@example.com", *out.SupportContact.Email)
		assert.Nil(t, out.SupportContact.Slack)
	})

	t.Run("support field url is not an email", func(t *testing.T) {
		out, err := n.Normalize(Document{"support": "https://github.com/org/repo/issues"})
		require.NoError(t, err)
		assert.Equal(t, DefaultSupportEmail, *out.SupportContact.Email)
	})

	t.Run("explicit contact", func(t *testing.T) {
		out, err := n.Normalize(Document{"supportContact": map[string]interface{}{
			"email": "a@example.com",
			"slack": "org/#channel",
		}})
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", *out.SupportContact.Email)
		assert.Equal(t, "org/#channel", *out.SupportContact.Slack)
	})

	t.Run("overridden defaults", func(t *testing.T) {
		custom := NewNormalizer(Defaults{SupportEmail: "help@example.com", SupportChannel: "example/#help"})
		out, err := custom.Normalize(Document{})
		require.NoError(t, err)
		assert.Equal(t, "help@example.com", *out.SupportContact.Email)
		assert.Equal(t, "example/#help", *out.SupportContact.Slack)
	})
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	raw := mustParse(t, `{
		"origamiType": "component",
		"supportContact": {"email": null},
		"brands": ["master"],
		"demos": [{"name": "a"}]
	}`)
	before, err := json.Marshal(raw)
	require.NoError(t, err)

	out, err := NewNormalizer(OrigamiDefaults).Normalize(raw)
	require.NoError(t, err)
	out.Document["brands"].([]interface{})[0] = "changed"

	after, err := json.Marshal(raw)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}
