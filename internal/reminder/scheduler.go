// Package reminder decides when an item close to its expiry date should get a
// one-shot notification and hands the request to a Notifier.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/expiry"
	"github.com/Kerhoff/ShopListBot/internal/metrics"
	"github.com/Kerhoff/ShopListBot/internal/models"
)

// Title is the notification title used for every expiry reminder.
const Title = "Expiry approaching!"

// Request is a single delayed notification.
type Request struct {
	ChatID int64
	Title  string
	Body   string
	Delay  time.Duration
}

// Notifier schedules one-shot notifications. It returns an identifier for
// the queued request. No cancellation is offered.
type Notifier interface {
	ScheduleOneShot(ctx context.Context, req Request) (string, error)
}

// DeviceChecker reports whether notifications can actually be delivered.
// Simulated environments never schedule.
type DeviceChecker interface {
	IsPhysicalDevice() bool
}

// SkipReason explains why no reminder was requested.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipNotDevice SkipReason = "not_device"
	SkipNoExpiry  SkipReason = "no_expiry"
	SkipInvalid   SkipReason = "invalid_date"
	SkipPurchased SkipReason = "purchased"
	SkipNotSoon   SkipReason = "not_expiring_soon"
	SkipFailed    SkipReason = "notifier_failed"
)

// Result is the outcome of one scheduling decision. Scheduled results carry
// the request ID; failed requests carry Err. Neither is ever returned as an
// error to the caller of ScheduleIfNeeded.
type Result struct {
	ItemName  string
	Scheduled bool
	RequestID string
	Delay     time.Duration
	Reason    SkipReason
	Err       error
}

// Scheduler requests expiry reminders for items.
type Scheduler struct {
	notifier Notifier
	device   DeviceChecker
	logger   *logrus.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(notifier Notifier, device DeviceChecker, logger *logrus.Logger) *Scheduler {
	return &Scheduler{notifier: notifier, device: device, logger: logger}
}

// ScheduleIfNeeded requests one reminder for item when it has between one and
// three days left and is not purchased. The delay is the exact time left until
// the end of the expiry day. Calling it twice requests two reminders.
func (s *Scheduler) ScheduleIfNeeded(ctx context.Context, chatID int64, item models.Item, now time.Time) Result {
	res := Result{ItemName: item.Name}

	if !s.device.IsPhysicalDevice() {
		s.logger.Warn("Notifications are only delivered on a physical device, skipping")
		return s.skip(res, SkipNotDevice)
	}
	if expiry.IsBlank(item.Expiry) {
		return s.skip(res, SkipNoExpiry)
	}

	status, err := expiry.Classify(item.Expiry, now)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"item":   item.Name,
			"expiry": item.Expiry,
		}).Warn("Cannot classify expiry date")
		return s.skip(res, SkipInvalid)
	}
	if status.Kind != expiry.KindExpiringSoon {
		return s.skip(res, SkipNotSoon)
	}
	if item.Purchased {
		return s.skip(res, SkipPurchased)
	}

	remaining, _ := expiry.Remaining(item.Expiry, now)
	req := Request{
		ChatID: chatID,
		Title:  Title,
		Body:   Message(item, status.DaysLeft),
		Delay:  remaining.Truncate(time.Second),
	}

	id, err := s.notifier.ScheduleOneShot(ctx, req)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"item":    item.Name,
			"error":   err,
		}).Error("Failed to schedule expiry reminder")
		metrics.RemindersRequested.WithLabelValues("failed", string(SkipFailed)).Inc()
		res.Reason = SkipFailed
		res.Err = err
		return res
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id":    chatID,
		"item":       item.Name,
		"request_id": id,
		"delay":      req.Delay,
	}).Info("Expiry reminder scheduled")
	metrics.RemindersRequested.WithLabelValues("scheduled", "").Inc()

	res.Scheduled = true
	res.RequestID = id
	res.Delay = req.Delay
	return res
}

// BulkReschedule runs ScheduleIfNeeded for every item in order. A failure for
// one item does not stop the others.
func (s *Scheduler) BulkReschedule(ctx context.Context, chatID int64, items []models.Item, now time.Time) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, s.ScheduleIfNeeded(ctx, chatID, item, now))
	}
	return results
}

func (s *Scheduler) skip(res Result, reason SkipReason) Result {
	metrics.RemindersRequested.WithLabelValues("skipped", string(reason)).Inc()
	res.Reason = reason
	return res
}

// Message builds the reminder body for item.
func Message(item models.Item, daysLeft int) string {
	return fmt.Sprintf("%d days left before %q expires (%s).", daysLeft, item.Name, item.Expiry)
}
