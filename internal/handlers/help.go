package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	helpText := `📚 *ShopListBot Help*

*Lists:*
• /newlist <name> - Create a list
• /lists - Show your lists
• /renamelist <old> | <new> - Rename a list
• /dellist <name> - Delete a list
• /total <name> - Show the list total
• /share <name> - Get the list as plain text

*Items:*
• /add <list> | <item> | [date] | [qty] | [price] - Add an item
• /items <list> - Show items with their expiry status
• /edit <list> | <n> | <item> | [date] | [qty] | [price] - Edit item n
• /remove <list> | <n> - Remove item n
• /bought <list> | <n> - Toggle item n as purchased
• /history - Show purchase history

*Expiry:*
• /date <digits> - Check a date, e.g. /date 21102026
• /remindall <list> - Schedule reminders for every item
• /reminders - Show pending reminders

_Dates use dd/mm/yyyy. Prices accept a comma or a dot._`

	msg := tgbotapi.NewMessage(message.Chat.ID, helpText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
