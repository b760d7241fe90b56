package mailer

import (
	"strings"
	"testing"
)

func TestBuildMessageHTML(t *testing.T) {
	msg := string(BuildMessage("noreply@attendly.io", "alice@example.com", "Welcome", "<p>hi</p>", "hi"))

	for _, want := range []string{
		"From: noreply@attendly.io\r\n",
		"To: alice@example.com\r\n",
		"Subject: Welcome\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if !strings.HasSuffix(msg, "<p>hi</p>") {
		t.Error("HTML body not used when present")
	}
}

func TestBuildMessagePlainText(t *testing.T) {
	msg := string(BuildMessage("noreply@attendly.io", "bob@example.com", "Reminder", "", "see you there"))

	if !strings.Contains(msg, "Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n") {
		t.Error("plain-text content type missing")
	}
	if !strings.HasSuffix(msg, "see you there") {
		t.Error("text body not used")
	}
	if strings.Contains(msg, "text/html") {
		t.Error("plain message should not declare HTML")
	}
}
