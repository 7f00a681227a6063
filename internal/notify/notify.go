// Package notify delivers best-effort operator notifications for cycle
// events: schedule published, infeasible week, review queue grown.
package notify

import (
	"log"
	"os/exec"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/kylemckinstry/rostretto/internal/config"
)

// webhookPoster abstracts the Slack webhook call, enabling test mocks.
type webhookPoster func(url string, msg *slackapi.WebhookMessage) error

// Event is one human-targeted notification.
type Event struct {
	WeekID string
	Text   string
}

// Notifier fans an event out to every configured channel. Delivery is
// best-effort: failures are logged, never returned, so a dead webhook cannot
// stall a cycle.
type Notifier struct {
	cfg config.NotifyConfig

	// post overrides the Slack webhook call in tests.
	post webhookPoster
	// runCommand overrides shell execution in tests.
	runCommand func(cmdStr string) ([]byte, error)
}

// New creates a Notifier for the configured channels.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		cfg:  cfg,
		post: slackapi.PostWebhook,
		runCommand: func(cmdStr string) ([]byte, error) {
			return exec.Command("sh", "-c", cmdStr).CombinedOutput()
		},
	}
}

// Send delivers ev to the Slack webhook and the shell command, whichever are
// configured.
func (n *Notifier) Send(ev Event) {
	if n.cfg.SlackWebhookURL != "" {
		msg := &slackapi.WebhookMessage{Text: ev.Text}
		if err := n.post(n.cfg.SlackWebhookURL, msg); err != nil {
			log.Printf("notify: slack webhook failed: %v", err)
		}
	}
	if n.cfg.Command != "" {
		cmdStr := templateEvent(n.cfg.Command, ev)
		if out, err := n.runCommand(cmdStr); err != nil {
			log.Printf("notify: command failed: %v: %s", err, strings.TrimSpace(string(out)))
		}
	}
}

// templateEvent replaces placeholders in the command template with event
// values.
func templateEvent(command string, ev Event) string {
	r := strings.NewReplacer(
		"{{.Week}}", ev.WeekID,
		"{{.Text}}", ev.Text,
	)
	return r.Replace(command)
}
