package syncer

import (
	"fmt"

	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/util"
)

// toVersion assembles the record persisted for one materialized tag.
func toVersion(name, url, tag string, normalized *manifest.Normalized, bag manifest.Bag, markdown manifest.Markdown, languages []string) *db.Version {
	if languages == nil {
		languages = []string{}
	}
	return &db.Version{
		Name:           name,
		Type:           normalized.OrigamiType,
		Url:            url,
		Tag:            tag,
		OrigamiVersion: normalized.OrigamiVersion,
		Languages:      languages,
		Manifests:      bag,
		Markdown:       markdown,
		SupportEmail:   normalized.SupportContact.Email,
		SupportChannel: normalized.SupportContact.Slack,
		SupportStatus:  normalized.SupportStatus,
	}
}

// describeIngestion names the source of an ingestion for logs.
func describeIngestion(i *db.Ingestion) string {
	if i.Type == db.IngestionTypeNpm {
		return fmt.Sprintf("%s@%s", util.StringValue(i.PackageName), util.StringValue(i.Version))
	}
	return fmt.Sprintf("%s#%s", util.StringValue(i.Url), util.StringValue(i.Tag))
}
