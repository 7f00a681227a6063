package notify

import (
	"errors"
	"testing"

	slackapi "github.com/slack-go/slack"

	"github.com/kylemckinstry/rostretto/internal/config"
)

func TestSend_SlackWebhook(t *testing.T) {
	n := New(config.NotifyConfig{SlackWebhookURL: "https://hooks.example.com/T123"})

	var gotURL, gotText string
	n.post = func(url string, msg *slackapi.WebhookMessage) error {
		gotURL = url
		gotText = msg.Text
		return nil
	}
	n.runCommand = func(string) ([]byte, error) {
		t.Fatal("command should not run without config")
		return nil, nil
	}

	n.Send(Event{WeekID: "2025-W36", Text: "week 2025-W36 schedule published"})
	if gotURL != "https://hooks.example.com/T123" {
		t.Errorf("url = %q", gotURL)
	}
	if gotText != "week 2025-W36 schedule published" {
		t.Errorf("text = %q", gotText)
	}
}

func TestSend_CommandTemplate(t *testing.T) {
	n := New(config.NotifyConfig{Command: `notify-send 'Rostretto' '{{.Week}}: {{.Text}}'`})

	var gotCmd string
	n.runCommand = func(cmdStr string) ([]byte, error) {
		gotCmd = cmdStr
		return nil, nil
	}

	n.Send(Event{WeekID: "2025-W36", Text: "infeasible"})
	want := `notify-send 'Rostretto' '2025-W36: infeasible'`
	if gotCmd != want {
		t.Errorf("command = %q, want %q", gotCmd, want)
	}
}

func TestSend_FailuresAreSwallowed(t *testing.T) {
	n := New(config.NotifyConfig{
		SlackWebhookURL: "https://hooks.example.com/T123",
		Command:         "exit 1",
	})
	n.post = func(string, *slackapi.WebhookMessage) error { return errors.New("boom") }
	n.runCommand = func(string) ([]byte, error) { return []byte("bad"), errors.New("exit 1") }

	// Must not panic or propagate; delivery is best-effort.
	n.Send(Event{WeekID: "2025-W36", Text: "anything"})
}
