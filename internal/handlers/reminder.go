package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/service"
)

// RemindAllHandler handles the /remindall command. It requests expiry
// reminders for every item of a list.
type RemindAllHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewRemindAllHandler creates a new RemindAllHandler.
func NewRemindAllHandler(svc *service.Service, logger *logrus.Logger) *RemindAllHandler {
	return &RemindAllHandler{svc: svc, logger: logger}
}

// Handle processes the /remindall command.
func (h *RemindAllHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	name := strings.Join(args, " ")
	if strings.TrimSpace(name) == "" {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/remindall <list>`")
		return nil
	}

	results, err := h.svc.RescheduleList(context.Background(), message.Chat.ID, name)
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	var scheduled, failed int
	var sb strings.Builder
	for _, res := range results {
		switch {
		case res.Scheduled:
			scheduled++
			fmt.Fprintf(&sb, "⏰ %s in %s\n", res.ItemName, formatDelay(res))
		case res.Err != nil:
			failed++
		}
	}

	text := fmt.Sprintf("%d of %d items will get an expiry reminder.", scheduled, len(results))
	if sb.Len() > 0 {
		text += "\n\n" + strings.TrimRight(sb.String(), "\n")
	}
	if failed > 0 {
		text += fmt.Sprintf("\n\n⚠️ %d reminders could not be scheduled.", failed)
	}
	sendText(bot, message.Chat.ID, text)

	h.logger.WithFields(logrus.Fields{
		"chat_id":   message.Chat.ID,
		"list":      name,
		"scheduled": scheduled,
		"failed":    failed,
	}).Info("List reminders rescheduled")
	return nil
}

// RemindersHandler handles the /reminders command. It lists the reminders
// still queued for the chat.
type RemindersHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewRemindersHandler creates a new RemindersHandler.
func NewRemindersHandler(svc *service.Service, logger *logrus.Logger) *RemindersHandler {
	return &RemindersHandler{svc: svc, logger: logger}
}

// Handle processes the /reminders command.
func (h *RemindersHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	reminders, err := h.svc.Reminders.GetByChatID(context.Background(), message.Chat.ID)
	if err != nil {
		return fmt.Errorf("get reminders: %w", err)
	}

	if len(reminders) == 0 {
		sendText(bot, message.Chat.ID, "⏰ No pending reminders.")
		return nil
	}

	loc := h.svc.Now().Location()
	var sb strings.Builder
	sb.WriteString("⏰ Pending reminders\n\n")
	for _, r := range reminders {
		fmt.Fprintf(&sb, "#%d %s\n   %s\n", r.ID, r.RemindAt.In(loc).Format("Mon, 02 Jan 2006 15:04"), r.Text)
	}
	sendText(bot, message.Chat.ID, sb.String())
	return nil
}
