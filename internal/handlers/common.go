package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/ShopListBot/internal/expiry"
	"github.com/Kerhoff/ShopListBot/internal/models"
	"github.com/Kerhoff/ShopListBot/internal/service"
)

// sendText sends text without a parse mode; list and item names are user
// input and may contain Markdown control characters.
func sendText(bot *tgbotapi.BotAPI, chatID int64, text string) {
	bot.Send(tgbotapi.NewMessage(chatID, text))
}

func sendMarkdown(bot *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
}

// splitFields joins the whitespace-split arguments back together and splits
// them on "|", so names may contain spaces.
func splitFields(args []string) []string {
	joined := strings.Join(args, " ")
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// field returns parts[i] or "" when absent.
func field(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// parsePosition converts a 1-based position typed by the user into an index.
func parsePosition(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q", raw)
	}
	return n - 1, nil
}

// userError maps validation errors to a reply. It returns false for errors
// the router should report as internal failures.
func userError(err error) (string, bool) {
	switch {
	case errors.Is(err, expiry.ErrInvalidDateFormat):
		return "❌ Enter a valid date in the dd/mm/yyyy format.", true
	case errors.Is(err, service.ErrInvalidPrice):
		return "❌ Enter a valid price for the item.", true
	case errors.Is(err, service.ErrEmptyItemName):
		return "❌ Enter a name for the item.", true
	case errors.Is(err, service.ErrEmptyListName):
		return "❌ Enter a name for the list.", true
	case errors.Is(err, service.ErrListExists):
		return "❌ A list with this name already exists.", true
	case errors.Is(err, service.ErrListNotFound):
		return "❌ List not found. Use /lists to see your lists.", true
	case errors.Is(err, service.ErrItemNotFound):
		return "❌ No item at that position.", true
	default:
		return "", false
	}
}

// replyError answers validation errors in the chat and returns nil, or
// returns err unchanged so the router logs it.
func replyError(bot *tgbotapi.BotAPI, chatID int64, err error) error {
	if text, ok := userError(err); ok {
		sendText(bot, chatID, text)
		return nil
	}
	return err
}

// formatItems renders a list with each item's position, status and price.
func formatItems(svc *service.Service, list *models.ShoppingList) string {
	if len(list.Items) == 0 {
		return fmt.Sprintf("🛒 %s is empty!\n\nAdd items with /add %s | <item>", list.Name, list.Name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 %s\n\n", list.Name)

	var purchased int
	for i, item := range list.Items {
		mark := "⬜"
		if item.Purchased {
			mark = "✅"
			purchased++
		}

		status := svc.ItemStatus(item)
		warn := ""
		if status.IsExpired() {
			warn = " ⚠️"
		}

		expires := item.Expiry
		if expires == "" {
			expires = "No expiry"
		}

		fmt.Fprintf(&sb, "%s %d. %s (%s) - %s%s\n", mark, i+1, item.Name, service.FormatQuantity(item.Quantity), expires, warn)
		fmt.Fprintf(&sb, "      Status: %s - Total price: %s\n", status, service.FormatPrice(item.Total()))
	}

	fmt.Fprintf(&sb, "\n%d remaining, %d purchased\nList total: %s", len(list.Items)-purchased, purchased, service.FormatPrice(list.Total()))
	return sb.String()
}
