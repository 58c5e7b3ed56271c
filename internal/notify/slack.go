package notify

import (
	"context"
	"fmt"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/slack-go/slack"
)

// SlackChannel is a domain-stack supplement beyond the distilled spec's
// email-only notifier, grounded on the slack-go/slack dependency carried
// by the wider example pack's incident-remediation tooling.
type SlackChannel struct {
	cfg     config.SlackConfig
}

func NewSlackChannel(cfg config.SlackConfig) *SlackChannel {
	return &SlackChannel{cfg: cfg}
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Send(ctx context.Context, n Notification) error {
	msg := slack.WebhookMessage{
		Channel: s.cfg.Channel,
		Text:    fmt.Sprintf("*%s*\n%s", n.Subject, stripHTML(n.Body)),
	}
	return slack.PostWebhookContext(ctx, s.cfg.WebhookURL, &msg)
}
