package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/models"
	"github.com/Kerhoff/ShopListBot/internal/reminder"
	"github.com/Kerhoff/ShopListBot/internal/service"
)

// ToggleCallbackPrefix is the callback data prefix of the purchased buttons.
const ToggleCallbackPrefix = "buy"

// Telegram rejects callback data longer than 64 bytes.
const maxCallbackData = 64

// ---------------------------------------------------------------------------
// AddItemHandler – /add <list> | <item> | [dd/mm/yyyy] | [qty] | [price]
// ---------------------------------------------------------------------------

// AddItemHandler handles the /add command.
type AddItemHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewAddItemHandler creates a new AddItemHandler.
func NewAddItemHandler(svc *service.Service, logger *logrus.Logger) *AddItemHandler {
	return &AddItemHandler{svc: svc, logger: logger}
}

// Handle processes the /add command.
func (h *AddItemHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	parts := splitFields(args)
	if len(parts) < 2 {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/add List | Item | [dd/mm/yyyy] | [quantity] | [price]`\n\nExample: `/add Groceries | Milk | 21/10/2026 | 2 | 1,50`")
		return nil
	}

	in := service.ItemInput{
		Name:     parts[1],
		Expiry:   field(parts, 2),
		Quantity: field(parts, 3),
		Price:    field(parts, 4),
	}

	item, res, err := h.svc.AddItem(context.Background(), message.Chat.ID, parts[0], in)
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	text := fmt.Sprintf("🛒 Added %s (%s) to %s.", item.Name, service.FormatQuantity(item.Quantity), parts[0])
	if note := reminderNote(res); note != "" {
		text += "\n" + note
	}
	sendText(bot, message.Chat.ID, text)

	h.logger.WithFields(logrus.Fields{
		"chat_id":   message.Chat.ID,
		"list":      parts[0],
		"item":      item.Name,
		"scheduled": res.Scheduled,
	}).Info("Item added")
	return nil
}

// ---------------------------------------------------------------------------
// EditItemHandler – /edit <list> | <n> | <item> | [dd/mm/yyyy] | [qty] | [price]
// ---------------------------------------------------------------------------

// EditItemHandler handles the /edit command.
type EditItemHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewEditItemHandler creates a new EditItemHandler.
func NewEditItemHandler(svc *service.Service, logger *logrus.Logger) *EditItemHandler {
	return &EditItemHandler{svc: svc, logger: logger}
}

// Handle processes the /edit command.
func (h *EditItemHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	parts := splitFields(args)
	if len(parts) < 3 {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/edit List | position | Item | [dd/mm/yyyy] | [quantity] | [price]`")
		return nil
	}

	index, err := parsePosition(parts[1])
	if err != nil {
		sendText(bot, message.Chat.ID, "❌ Invalid item position. Use /items to see the positions.")
		return nil
	}

	in := service.ItemInput{
		Name:     parts[2],
		Expiry:   field(parts, 3),
		Quantity: field(parts, 4),
		Price:    field(parts, 5),
	}

	item, res, err := h.svc.EditItem(context.Background(), message.Chat.ID, parts[0], index, in)
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	text := fmt.Sprintf("✏️ Item %d updated: %s (%s).", index+1, item.Name, service.FormatQuantity(item.Quantity))
	if note := reminderNote(res); note != "" {
		text += "\n" + note
	}
	sendText(bot, message.Chat.ID, text)
	return nil
}

// ---------------------------------------------------------------------------
// RemoveItemHandler – /remove <list> | <n>
// ---------------------------------------------------------------------------

// RemoveItemHandler handles the /remove command.
type RemoveItemHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewRemoveItemHandler creates a new RemoveItemHandler.
func NewRemoveItemHandler(svc *service.Service, logger *logrus.Logger) *RemoveItemHandler {
	return &RemoveItemHandler{svc: svc, logger: logger}
}

// Handle processes the /remove command.
func (h *RemoveItemHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	parts := splitFields(args)
	if len(parts) != 2 {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/remove List | position`")
		return nil
	}

	index, err := parsePosition(parts[1])
	if err != nil {
		sendText(bot, message.Chat.ID, "❌ Invalid item position. Use /items to see the positions.")
		return nil
	}

	item, err := h.svc.RemoveItem(context.Background(), message.Chat.ID, parts[0], index)
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	sendText(bot, message.Chat.ID, fmt.Sprintf("🗑 %s removed from %s.", item.Name, parts[0]))
	return nil
}

// ---------------------------------------------------------------------------
// BoughtHandler – /bought <list> | <n>
// ---------------------------------------------------------------------------

// BoughtHandler handles the /bought command, which toggles the purchased
// flag of an item.
type BoughtHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewBoughtHandler creates a new BoughtHandler.
func NewBoughtHandler(svc *service.Service, logger *logrus.Logger) *BoughtHandler {
	return &BoughtHandler{svc: svc, logger: logger}
}

// Handle processes the /bought command.
func (h *BoughtHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	parts := splitFields(args)
	if len(parts) != 2 {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/bought List | position`")
		return nil
	}

	index, err := parsePosition(parts[1])
	if err != nil {
		sendText(bot, message.Chat.ID, "❌ Invalid item position. Use /items to see the positions.")
		return nil
	}

	item, err := h.svc.TogglePurchased(context.Background(), message.Chat.ID, parts[0], index)
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	if item.Purchased {
		sendText(bot, message.Chat.ID, fmt.Sprintf("✅ %s marked as purchased.", item.Name))
	} else {
		sendText(bot, message.Chat.ID, fmt.Sprintf("⬜ %s is back on the list.", item.Name))
	}
	return nil
}

// ---------------------------------------------------------------------------
// ItemsHandler – /items <list>
// ---------------------------------------------------------------------------

// ItemsHandler handles the /items command. Each item gets an inline button
// that toggles its purchased flag.
type ItemsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewItemsHandler creates a new ItemsHandler.
func NewItemsHandler(svc *service.Service, logger *logrus.Logger) *ItemsHandler {
	return &ItemsHandler{svc: svc, logger: logger}
}

// Handle processes the /items command.
func (h *ItemsHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	name := strings.Join(args, " ")
	if strings.TrimSpace(name) == "" {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/items <list>`")
		return nil
	}

	list, err := h.svc.GetList(context.Background(), message.Chat.ID, name)
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, formatItems(h.svc, list))
	if kb, ok := toggleKeyboard(list); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send items: %w", err)
	}
	return nil
}

// HandleCallback toggles the item encoded in payload ("<index>:<list>") and
// redraws the list in place.
func (h *ItemsHandler) HandleCallback(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery, payload string) error {
	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID

	rawIndex, listName, ok := strings.Cut(payload, ":")
	if !ok {
		return fmt.Errorf("malformed toggle payload %q", payload)
	}
	index, err := strconv.Atoi(rawIndex)
	if err != nil {
		return fmt.Errorf("malformed toggle index %q: %w", rawIndex, err)
	}

	ctx := context.Background()
	if _, err := h.svc.TogglePurchased(ctx, chatID, listName, index); err != nil {
		return replyError(bot, chatID, err)
	}

	list, err := h.svc.GetList(ctx, chatID, listName)
	if err != nil {
		return replyError(bot, chatID, err)
	}

	edit := tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, formatItems(h.svc, list))
	if kb, ok := toggleKeyboard(list); ok {
		edit.ReplyMarkup = &kb
	}
	if _, err := bot.Send(edit); err != nil {
		return fmt.Errorf("failed to update items message: %w", err)
	}
	return nil
}

// toggleKeyboard builds one button per item. It reports false when the list
// name is too long to fit in the callback data.
func toggleKeyboard(list *models.ShoppingList) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(list.Items) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, item := range list.Items {
		data := fmt.Sprintf("%s:%d:%s", ToggleCallbackPrefix, i, list.Name)
		if len(data) > maxCallbackData {
			return tgbotapi.InlineKeyboardMarkup{}, false
		}

		label := fmt.Sprintf("⬜ %d", i+1)
		if item.Purchased {
			label = fmt.Sprintf("✅ %d", i+1)
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

// reminderNote describes a scheduling outcome worth telling the user about.
func reminderNote(res reminder.Result) string {
	switch {
	case res.Scheduled:
		return fmt.Sprintf("⏰ I'll remind you in %s that it is about to expire.", formatDelay(res))
	case res.Reason == reminder.SkipFailed:
		return "⚠️ The item was saved, but the expiry reminder could not be scheduled."
	default:
		return ""
	}
}

func formatDelay(res reminder.Result) string {
	hours := int(res.Delay.Hours())
	if hours >= 24 {
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, int(res.Delay.Minutes())%60)
	}
	return fmt.Sprintf("%dm", int(res.Delay.Minutes()))
}
