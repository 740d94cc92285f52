package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// SlackTransport posts notifications to a Slack incoming webhook
type SlackTransport struct {
	webhookURL string
	client     *http.Client
}

// NewSlackTransport creates a Slack webhook transport
func NewSlackTransport(webhookURL string) *SlackTransport {
	return &SlackTransport{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackTransport) Name() string { return "slack" }

func (s *SlackTransport) Send(ctx context.Context, subject, body string) error {
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, buildWebhookMessage(subject, body)); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}

// buildWebhookMessage keeps the body in a code block so fixed-width columns line up
func buildWebhookMessage(subject, body string) *slack.WebhookMessage {
	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, subject, false, false))
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, "```"+body+"```", false, false),
		nil, nil)

	return &slack.WebhookMessage{
		Text: fmt.Sprintf("%s\n%s", subject, body),
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{header, section},
		},
	}
}
