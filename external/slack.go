package external

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/logging"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/util"
)

const (
	supportStatusActive     = "active"
	supportStatusMaintained = "maintained"
)

// Announcer tells people about new versions.
type Announcer interface {
	Announce(ctx context.Context, version *db.Version) error
}

type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type SlackAnnouncer struct {
	client      slackPoster
	channelIds  []string
	registryURL string
	defaults    manifest.Defaults
}

func NewSlackAnnouncer(authToken string, channelIds []string, registryURL string, defaults manifest.Defaults, options ...slack.Option) *SlackAnnouncer {
	return &SlackAnnouncer{
		client:      slack.New(authToken, options...),
		channelIds:  channelIds,
		registryURL: strings.TrimRight(registryURL, "/"),
		defaults:    defaults,
	}
}

// Announce posts a release message for versions of actively supported,
// Origami-maintained repositories that are not services. Other versions are
// skipped without error. Every configured channel is attempted even when an
// earlier one fails.
func (a *SlackAnnouncer) Announce(ctx context.Context, version *db.Version) error {
	if reason := a.skipReason(version); reason != "" {
		logging.Logger.Infof("slack announcer: type=ignore repo=%s version=%s message=%q", version.Name, version.Version, reason)
		return nil
	}
	text := slack.MsgOptionText(a.Message(version), false)
	posted := make([]string, 0, len(a.channelIds))
	var errs []error
	for _, channelId := range a.channelIds {
		if _, _, err := a.client.PostMessageContext(ctx, channelId, text); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", channelId, err))
			continue
		}
		posted = append(posted, channelId)
	}
	if len(posted) > 0 {
		logging.Logger.Infof("slack announcer: type=success repo=%s version=%s channels=%s",
			version.Name, version.Version, util.JoinWithComma(posted))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("announcing %s@%s: %w", version.Name, version.Version, err)
	}
	return nil
}

// Message links the release in the registry, followed by its changelog
// section when the version ships a changelog that mentions it.
func (a *SlackAnnouncer) Message(version *db.Version) string {
	label := fmt.Sprintf("%s @ %s", version.Name, version.Version)
	link := fmt.Sprintf("%s/%s@%s", a.registryURL, version.Name, version.Version)
	text := fmt.Sprintf("New release: *<%s|%s>*", link, label)
	if changelog := version.Markdown.Changelog; changelog != nil {
		if section := manifest.ChangelogSection(*changelog, version.Version); section != "" {
			text += "\n\n" + section
		}
	}
	return text
}

func (a *SlackAnnouncer) skipReason(version *db.Version) string {
	status := ""
	if version.SupportStatus != nil {
		status = *version.SupportStatus
	}
	if status != supportStatusActive && status != supportStatusMaintained {
		return "Support status is not active or maintained"
	}
	if !manifest.IsOrigamiSupported(version.SupportEmail, a.defaults) {
		return "Repo is not maintained by Origami"
	}
	if version.Type != nil && *version.Type == manifest.TypeService {
		return "Repo is a service"
	}
	return ""
}

// NoopAnnouncer is used when no Slack credentials are configured.
type NoopAnnouncer struct{}

func (NoopAnnouncer) Announce(context.Context, *db.Version) error { return nil }
