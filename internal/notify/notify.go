// Package notify pushes run and batch outcomes to the operator's
// desktop or a webhook so long sweeps don't need a watched terminal.
package notify

import "fmt"

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	TaskID  string // Optional task reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// RunFinished builds the notification for a settled single run
func RunFinished(taskID string, passed bool, errored bool) Notification {
	switch {
	case errored:
		return Notification{
			Title:   "Run errored",
			Message: fmt.Sprintf("%s did not produce a result", taskID),
			Type:    NotifyError,
			TaskID:  taskID,
		}
	case passed:
		return Notification{
			Title:   "Run passed",
			Message: fmt.Sprintf("%s resolved its task", taskID),
			Type:    NotifySuccess,
			TaskID:  taskID,
		}
	default:
		return Notification{
			Title:   "Run failed",
			Message: fmt.Sprintf("%s produced a patch that did not resolve the task", taskID),
			Type:    NotifyWarning,
			TaskID:  taskID,
		}
	}
}

// BatchFinished builds the notification for a completed batch sweep
func BatchFinished(processed, total int) Notification {
	return Notification{
		Title:   "Batch finished",
		Message: fmt.Sprintf("%d of %d tasks processed", processed, total),
		Type:    NotifySuccess,
	}
}
