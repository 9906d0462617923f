package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Kerhoff/ShopListBot/internal/metrics"
)

// ReminderCallback delivers a reminder message to a chat.
type ReminderCallback func(chatID int64, text string) error

// StartReminderDispatcher runs a background loop that checks for due
// reminders every interval and invokes the callback for each one. It blocks
// until the context is cancelled, so it should be launched in a separate
// goroutine.
func (s *Service) StartReminderDispatcher(ctx context.Context, interval time.Duration, callback ReminderCallback) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Reminder dispatcher started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder dispatcher stopped")
			return
		case <-ticker.C:
			if err := s.DispatchDue(ctx, callback); err != nil {
				s.logger.Errorf("Reminder dispatch finished with errors: %v", err)
			}
		}
	}
}

// DispatchDue fires the callback for every reminder due now and marks each
// one as sent, whether or not delivery succeeded. Reminders are one-shot and
// never retried.
func (s *Service) DispatchDue(ctx context.Context, callback ReminderCallback) error {
	now := s.Now()

	reminders, err := s.Reminders.GetDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to get due reminders: %w", err)
	}

	var result *multierror.Error
	for _, r := range reminders {
		text := fmt.Sprintf("⏰ %s\n%s", r.Title, r.Text)
		if err := callback(r.ChatID, text); err != nil {
			metrics.RemindersDelivered.WithLabelValues("failed").Inc()
			result = multierror.Append(result, fmt.Errorf("deliver reminder %d: %w", r.ID, err))
		} else {
			metrics.RemindersDelivered.WithLabelValues("sent").Inc()
		}

		if err := s.Reminders.MarkSent(ctx, r.ID, now); err != nil {
			result = multierror.Append(result, fmt.Errorf("mark reminder %d sent: %w", r.ID, err))
		}
	}

	return result.ErrorOrNil()
}
