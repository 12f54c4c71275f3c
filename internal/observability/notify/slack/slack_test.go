package slack

import (
	"strings"
	"testing"
	"time"

	"github.com/ensembleops/recruitops/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when webhook url missing")
	}
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#recruiting-ops",
		Username:   "bot",
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.SweepFailurePayload{
		Component:  "freshness_sweep",
		Schedule:   "0 3 * * *",
		Error:      "boom",
		ErrorClass: "test_error",
	})

	if msg["username"] != "bot" {
		t.Fatalf("expected username to be preserved, got %v", msg["username"])
	}
	if msg["channel"] != "#recruiting-ops" {
		t.Fatalf("expected channel to be set, got %v", msg["channel"])
	}

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	if !containsAll(
		text,
		[]string{"Freshness sweep failure", "freshness_sweep", "0 3 * * *", "boom", "test_error"},
	) {
		t.Fatalf("message text missing fields: %s", text)
	}
}

func TestFormatMessageConsoleLink(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL:       "https://hooks.slack.com/services/test",
		ConsoleURLPrefix: "https://console.recruitops.local",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.SweepFailurePayload{
		Component: "freshness_sweep",
		Error:     "boom",
	})

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}

	expected := "<https://console.recruitops.local/todos|todos>"
	if !strings.Contains(text, expected) {
		t.Fatalf("expected console link %q in text: %s", expected, text)
	}
}

func TestFormatMessageEscapesError(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.SweepFailurePayload{
		Component: "freshness_sweep",
		Error:     "bad & <worse>",
	})

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}

	if !strings.Contains(text, "bad &amp; &lt;worse&gt;") {
		t.Fatalf("expected escaped error, got: %s", text)
	}
}

func TestFormatMessageSkipsInvalidConsolePrefix(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL:       "https://hooks.slack.com/services/test",
		ConsoleURLPrefix: "not a url",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.SweepFailurePayload{Error: "boom"})

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	if strings.Contains(text, "Todos") {
		t.Fatalf("expected no todos link for invalid prefix: %s", text)
	}
}

func containsAll(text string, substrs []string) bool {
	for _, s := range substrs {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return true
}
