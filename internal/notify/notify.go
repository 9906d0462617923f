// Package notify turns reminder requests into queued rows that the reminder
// dispatcher delivers once they are due.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Kerhoff/ShopListBot/internal/models"
	"github.com/Kerhoff/ShopListBot/internal/reminder"
	"github.com/Kerhoff/ShopListBot/internal/repository"
)

// QueueNotifier implements reminder.Notifier on top of the reminders table.
type QueueNotifier struct {
	reminders repository.ReminderRepository
	now       func() time.Time
}

// NewQueueNotifier creates a QueueNotifier. now defaults to time.Now.
func NewQueueNotifier(reminders repository.ReminderRepository, now func() time.Time) *QueueNotifier {
	if now == nil {
		now = time.Now
	}
	return &QueueNotifier{reminders: reminders, now: now}
}

// ScheduleOneShot queues req to fire after req.Delay and returns the row ID.
func (n *QueueNotifier) ScheduleOneShot(ctx context.Context, req reminder.Request) (string, error) {
	r, err := n.reminders.Create(ctx, &models.Reminder{
		ChatID:   req.ChatID,
		Title:    req.Title,
		Text:     req.Body,
		RemindAt: n.now().Add(req.Delay),
	})
	if err != nil {
		return "", fmt.Errorf("queue reminder: %w", err)
	}
	return strconv.FormatInt(r.ID, 10), nil
}

// DeviceFlag is a reminder.DeviceChecker fixed at startup. A false value
// stands for a simulated environment.
type DeviceFlag bool

// IsPhysicalDevice implements reminder.DeviceChecker.
func (d DeviceFlag) IsPhysicalDevice() bool { return bool(d) }
