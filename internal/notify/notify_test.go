package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSlackMessage_Build(t *testing.T) {
	msg := SlackMessage{
		Text: "Run passed",
		Attachments: []SlackAttachment{
			{
				Color: "good",
				Title: "astropy__astropy-12907",
				Text:  "astropy__astropy-12907 resolved its task",
			},
		},
	}

	payload, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	if len(payload) == 0 {
		t.Error("Payload should not be empty")
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	// Mock webhook server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "Test",
		Message: "Test message",
		Type:    NotifyInfo,
	})

	if err != nil {
		t.Errorf("Send failed: %v", err)
	}
}

func TestSlackNotifier_DisabledWithoutURL(t *testing.T) {
	notifier := NewSlackNotifier("")
	if err := notifier.Send(Notification{Title: "Test"}); err != nil {
		t.Errorf("Send with empty URL should be a no-op, got %v", err)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		got := SlackColor(tt.typ)
		if got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestRunFinished(t *testing.T) {
	n := RunFinished("sympy__sympy-20590", true, false)
	if n.Type != NotifySuccess {
		t.Errorf("Type = %v, want NotifySuccess", n.Type)
	}
	if n.TaskID != "sympy__sympy-20590" {
		t.Errorf("TaskID = %q, want the task id", n.TaskID)
	}

	n = RunFinished("sympy__sympy-20590", false, false)
	if n.Type != NotifyWarning {
		t.Errorf("failed run: Type = %v, want NotifyWarning", n.Type)
	}

	n = RunFinished("sympy__sympy-20590", false, true)
	if n.Type != NotifyError {
		t.Errorf("errored run: Type = %v, want NotifyError", n.Type)
	}
}

func TestBatchFinished(t *testing.T) {
	n := BatchFinished(7, 10)
	if n.Type != NotifySuccess {
		t.Errorf("Type = %v, want NotifySuccess", n.Type)
	}
	if !strings.Contains(n.Message, "7 of 10") {
		t.Errorf("Message = %q, want the processed count", n.Message)
	}
}

func TestMultiNotifier(t *testing.T) {
	var called []string

	mock1 := &mockNotifier{name: "mock1", calls: &called}
	mock2 := &mockNotifier{name: "mock2", calls: &called}

	multi := NewMultiNotifier(mock1, mock2)
	multi.Send(Notification{Title: "Test"})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(called))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
}

func (m *mockNotifier) Send(n Notification) error {
	*m.calls = append(*m.calls, m.name)
	return nil
}
