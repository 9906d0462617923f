package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/service"
)

// ---------------------------------------------------------------------------
// NewListHandler – /newlist <name>
// ---------------------------------------------------------------------------

// NewListHandler handles the /newlist command to create an empty list.
type NewListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewNewListHandler creates a new NewListHandler.
func NewNewListHandler(svc *service.Service, logger *logrus.Logger) *NewListHandler {
	return &NewListHandler{svc: svc, logger: logger}
}

// Handle processes the /newlist command.
func (h *NewListHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	name := strings.Join(args, " ")
	if strings.TrimSpace(name) == "" {
		sendMarkdown(bot, message.Chat.ID, "❌ Please provide a list name.\nUsage: `/newlist Weekly groceries`")
		return nil
	}

	list, err := h.svc.CreateList(context.Background(), message.Chat.ID, name)
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	sendText(bot, message.Chat.ID, fmt.Sprintf("📝 List %q created!\n\nAdd items with /add %s | <item>", list.Name, list.Name))

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"list":    list.Name,
	}).Info("Shopping list created")
	return nil
}

// ---------------------------------------------------------------------------
// ListsHandler – /lists
// ---------------------------------------------------------------------------

// ListsHandler handles the /lists command to show every list of the chat.
type ListsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewListsHandler creates a new ListsHandler.
func NewListsHandler(svc *service.Service, logger *logrus.Logger) *ListsHandler {
	return &ListsHandler{svc: svc, logger: logger}
}

// Handle processes the /lists command.
func (h *ListsHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	lists, err := h.svc.GetLists(context.Background(), message.Chat.ID)
	if err != nil {
		return fmt.Errorf("get lists: %w", err)
	}

	if len(lists) == 0 {
		sendMarkdown(bot, message.Chat.ID, "🛒 *No lists yet!*\n\nCreate one with `/newlist <name>`")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("🗂 Your lists\n\n")
	for _, list := range lists {
		fmt.Fprintf(&sb, "• %s: %d items, total %s\n", list.Name, len(list.Items), service.FormatPrice(list.Total()))
	}
	sendText(bot, message.Chat.ID, sb.String())
	return nil
}

// ---------------------------------------------------------------------------
// RenameListHandler – /renamelist <old> | <new>
// ---------------------------------------------------------------------------

// RenameListHandler handles the /renamelist command.
type RenameListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewRenameListHandler creates a new RenameListHandler.
func NewRenameListHandler(svc *service.Service, logger *logrus.Logger) *RenameListHandler {
	return &RenameListHandler{svc: svc, logger: logger}
}

// Handle processes the /renamelist command.
func (h *RenameListHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	parts := splitFields(args)
	if len(parts) != 2 {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/renamelist Old name | New name`")
		return nil
	}

	list, err := h.svc.RenameList(context.Background(), message.Chat.ID, parts[0], parts[1])
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	sendText(bot, message.Chat.ID, fmt.Sprintf("✏️ List renamed to %q.", list.Name))
	return nil
}

// ---------------------------------------------------------------------------
// DeleteListHandler – /dellist <name>
// ---------------------------------------------------------------------------

// DeleteListHandler handles the /dellist command.
type DeleteListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewDeleteListHandler creates a new DeleteListHandler.
func NewDeleteListHandler(svc *service.Service, logger *logrus.Logger) *DeleteListHandler {
	return &DeleteListHandler{svc: svc, logger: logger}
}

// Handle processes the /dellist command.
func (h *DeleteListHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	name := strings.Join(args, " ")
	if strings.TrimSpace(name) == "" {
		sendMarkdown(bot, message.Chat.ID, "❌ Usage: `/dellist <name>`")
		return nil
	}

	if err := h.svc.DeleteList(context.Background(), message.Chat.ID, name); err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	sendText(bot, message.Chat.ID, fmt.Sprintf("🗑 List %q deleted.", strings.TrimSpace(name)))

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"list":    name,
	}).Info("Shopping list deleted")
	return nil
}

// ---------------------------------------------------------------------------
// ShareHandler – /share <name>
// ---------------------------------------------------------------------------

// ShareHandler handles the /share command. It replies with the list as plain
// text that can be forwarded to any other chat.
type ShareHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewShareHandler creates a new ShareHandler.
func NewShareHandler(svc *service.Service, logger *logrus.Logger) *ShareHandler {
	return &ShareHandler{svc: svc, logger: logger}
}

// Handle processes the /share command.
func (h *ShareHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	list, err := h.svc.GetList(context.Background(), message.Chat.ID, strings.Join(args, " "))
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	sendText(bot, message.Chat.ID, service.ShareText(list))
	return nil
}

// ---------------------------------------------------------------------------
// TotalHandler – /total <name>
// ---------------------------------------------------------------------------

// TotalHandler handles the /total command.
type TotalHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewTotalHandler creates a new TotalHandler.
func NewTotalHandler(svc *service.Service, logger *logrus.Logger) *TotalHandler {
	return &TotalHandler{svc: svc, logger: logger}
}

// Handle processes the /total command.
func (h *TotalHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	list, err := h.svc.GetList(context.Background(), message.Chat.ID, strings.Join(args, " "))
	if err != nil {
		return replyError(bot, message.Chat.ID, err)
	}

	sendText(bot, message.Chat.ID, fmt.Sprintf("💰 Total for %s: %s", list.Name, service.FormatPrice(list.Total())))
	return nil
}
