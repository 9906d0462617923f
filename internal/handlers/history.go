package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/service"
)

// historyLimit caps how many purchases are shown in one message.
const historyLimit = 30

// HistoryHandler handles the /history command.
type HistoryHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(svc *service.Service, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{svc: svc, logger: logger}
}

// Handle processes the /history command, newest purchases first.
func (h *HistoryHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	entries, err := h.svc.GetHistory(context.Background(), message.Chat.ID)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}

	if len(entries) == 0 {
		sendText(bot, message.Chat.ID, "📜 No purchases yet.")
		return nil
	}

	loc := h.svc.Now().Location()
	var sb strings.Builder
	sb.WriteString("📜 Purchase history\n\n")
	shown := 0
	for i := len(entries) - 1; i >= 0 && shown < historyLimit; i-- {
		e := entries[i]
		fmt.Fprintf(&sb, "%s  %s (%s) - %s [%s]\n",
			e.PurchasedAt.In(loc).Format("02/01 15:04"),
			e.Item.Name,
			service.FormatQuantity(e.Item.Quantity),
			service.FormatPrice(e.Item.Total()),
			e.ListName)
		shown++
	}
	if len(entries) > historyLimit {
		fmt.Fprintf(&sb, "\n…and %d older purchases", len(entries)-historyLimit)
	}
	sendText(bot, message.Chat.ID, sb.String())
	return nil
}
