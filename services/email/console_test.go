package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/trezcool/tathmini/core"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	SentMessages = nil // reset
	svc := NewConsoleServiceMock()

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: "amy", Address: "amy@test.cd"}},
		Subject:      "Submission received: HW",
		TemplateName: "assignment_graded",
		TemplateData: map[string]interface{}{
			"Creator":      "amy",
			"Title":        "HW",
			"AssignmentID": "hw",
			"SubmissionID": "42",
			"Earned":       1.5,
			"Possible":     2.0,
			"Late":         true,
		},
	}
	if err := msg.Attach(strings.NewReader(`{"id":"42"}`), "submission-42.json", "application/json"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	noRecipient := &core.EmailMessage{Subject: "nobody", BodyStr: "hi"}
	svc.SendMessages(msg, noRecipient)

	if len(SentMessages) != 1 {
		t.Fatalf("len(SentMessages) = %d; want 1", len(SentMessages))
	}
	sent := SentMessages[0]
	for _, want := range []string{"Hi amy,", `"HW"`, "Score: 1.50 / 2.00", "after the due date", "/assignments/hw/submissions/42"} {
		if !strings.Contains(sent.TextContent, want) {
			t.Errorf("TextContent = %q; want it to contain %q", sent.TextContent, want)
		}
	}
	if !strings.Contains(sent.HTMLContent, "<strong>HW</strong>") {
		t.Errorf("HTMLContent = %q", sent.HTMLContent)
	}
	if len(sent.Attachments) != 1 || sent.Attachments[0].Filename != "submission-42.json" {
		t.Errorf("Attachments = %+v", sent.Attachments)
	}
}

func TestConsoleService_format(t *testing.T) {
	svc := &consoleService{from: mail.Address{Name: "Tathmini", Address: "noreply@localhost"}, subjPrefix: "[Tathmini] "}
	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "amy@test.cd"}},
		Subject:     "hello",
		TextContent: "plain body",
		Attachments: []core.Attachment{{Content: bytes.NewBufferString("e30="), ContentType: "application/json", Filename: "a.json"}},
	}
	body, err := svc.format(msg)
	if err != nil {
		t.Fatalf("format() error = %v", err)
	}
	for _, want := range []string{
		"Subject: [Tathmini] hello",
		"To: <amy@test.cd>",
		"multipart/mixed",
		"plain body",
		"attachment; filename=a.json",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("format() = %q; want it to contain %q", body, want)
		}
	}
	if strings.Contains(body, "text/html") {
		t.Error("format() wrote an empty html part")
	}
}
