package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/expiry"
	"github.com/Kerhoff/ShopListBot/internal/service"
)

// DateHandler handles the /date command. It masks the typed digits the same
// way item input is masked and shows how the date would be classified.
type DateHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewDateHandler creates a new DateHandler.
func NewDateHandler(svc *service.Service, logger *logrus.Logger) *DateHandler {
	return &DateHandler{svc: svc, logger: logger}
}

// Handle processes the /date command.
func (h *DateHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	raw := strings.Join(args, "")
	if raw == "" {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/date 21102026`")
		return nil
	}

	masked := expiry.Mask(raw)
	if masked == "" || !expiry.Validate(masked) {
		sendText(bot, message.Chat.ID, fmt.Sprintf("❌ %q is not a valid dd/mm/yyyy date.", masked))
		return nil
	}

	status, err := expiry.Classify(masked, h.svc.Now())
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	sendText(bot, message.Chat.ID, fmt.Sprintf("📅 %s: %s", masked, status))
	return nil
}
